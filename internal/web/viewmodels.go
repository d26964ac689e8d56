package web

import (
	"fmt"

	"halfframe/internal/batch"
	"halfframe/internal/frame"
)

// HalfView is one half as shown on the page.
type HalfView struct {
	Side       string
	Rotation   int
	Normalized int // used for the CSS transform
	Selected   bool
	Width      int
	Height     int
	PreviewURL string
	ExportName string
}

type PairView struct {
	Index    int
	ID       string
	FileName string
	Axis     string
	Halves   [2]HalfView
}

// PageView contains data for rendering the workspace page.
type PageView struct {
	Pairs       []PairView
	Selected    int
	Import      batch.Progress
	Export      batch.Progress
	Downloads   []string
	MaxUploadMB int
}

// Busy reports whether either batch is active.
func (v PageView) Busy() bool {
	return v.Import.State != batch.Idle || v.Export.State != batch.Idle
}

func (s *Server) makePageView(ws *Workspace) PageView {
	pairs := ws.Registry.Snapshot()
	ext := ws.Exporter.Encoder.Ext()

	vm := PageView{
		Pairs:       make([]PairView, 0, len(pairs)),
		Import:      ws.Importer.Progress(),
		Export:      ws.Exporter.Progress(),
		Downloads:   ws.Downloads().Names(),
		MaxUploadMB: s.Config.MaxUploadMB,
	}
	for i, p := range pairs {
		pv := PairView{Index: i, ID: p.ID, FileName: p.FileName, Axis: p.Axis.String()}
		for _, side := range frame.Sides {
			h := p.Halves[side]
			if h.Selected {
				vm.Selected++
			}
			pv.Halves[side] = HalfView{
				Side:       side.String(),
				Rotation:   h.Rotation,
				Normalized: frame.Normalize(h.Rotation),
				Selected:   h.Selected,
				Width:      h.Width,
				Height:     h.Height,
				PreviewURL: fmt.Sprintf("/pairs/%s/%s/preview", p.ID, side),
				ExportName: frame.ExportName(p.FileName, side, ext),
			}
		}
		vm.Pairs = append(vm.Pairs, pv)
	}
	return vm
}
