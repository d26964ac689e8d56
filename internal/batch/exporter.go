package batch

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"halfframe/internal/frame"
	"halfframe/internal/registry"
)

// ExportResult summarizes one export batch.
type ExportResult struct {
	Exported  int
	Failed    int
	Cancelled bool
	Names     []string
}

// Exporter encodes every selected half and hands the files to a Sink.
type Exporter struct {
	Registry *registry.Registry
	Encoder  *frame.Encoder
	// Pause is waited between two exports. Zero exports eagerly.
	Pause    time.Duration
	Hold     time.Duration
	Observer Observer

	t tracker
}

func (ex *Exporter) Progress() Progress {
	return ex.t.snapshot()
}

// Cancel asks a running export to stop before its next half. Files already
// handed to the sink are kept.
func (ex *Exporter) Cancel() bool {
	return ex.t.cancel()
}

// Run exports the selected halves of a registry snapshot taken at start,
// so removals during the export neither skip nor repeat work. With nothing
// selected it does nothing.
func (ex *Exporter) Run(ctx context.Context, sink Sink) (ExportResult, error) {
	pairs, total, err := ex.prepare()
	if err != nil || total == 0 {
		return ExportResult{}, err
	}
	return ex.process(ctx, sink, pairs, total), nil
}

// Start begins an export like Run but processes it on its own goroutine.
// It returns the number of halves to export, or ErrBusy.
func (ex *Exporter) Start(ctx context.Context, sink Sink, done func(ExportResult)) (int, error) {
	pairs, total, err := ex.prepare()
	if err != nil || total == 0 {
		return 0, err
	}
	go func() {
		r := ex.process(ctx, sink, pairs, total)
		if done != nil {
			done(r)
		}
	}()
	return total, nil
}

func (ex *Exporter) prepare() ([]frame.SplitPair, int, error) {
	pairs := ex.Registry.Snapshot()
	total := registry.CountSelected(pairs)
	if total == 0 {
		return nil, 0, nil
	}
	if err := ex.t.begin(total); err != nil {
		return nil, 0, err
	}
	return pairs, total, nil
}

func (ex *Exporter) process(ctx context.Context, sink Sink, pairs []frame.SplitPair, total int) ExportResult {
	obs := observerOrNop(ex.Observer)
	obs.OnStart(KindExport, total)

	var res ExportResult
	names := nameSet{}
	processed := 0
loop:
	for i := range pairs {
		for _, side := range frame.Sides {
			h := pairs[i].Halves[side]
			if !h.Selected {
				continue
			}
			if ex.t.stopRequested(ctx) {
				res.Cancelled = true
				break loop
			}

			name := names.claim(frame.ExportName(pairs[i].FileName, side, ex.Encoder.Ext()))
			data, err := ex.Encoder.RotateAndEncode(h.Original, h.Rotation)
			if err == nil {
				err = sink.Put(ctx, name, data)
			}
			if err != nil {
				res.Failed++
				obs.OnItemFailed(KindExport, name, err)
			} else {
				res.Exported++
				res.Names = append(res.Names, name)
			}

			processed++
			obs.OnItemDone(KindExport, name, ex.t.advance(1))
			if processed < total {
				sleep(ctx, ex.Pause)
			}
		}
	}

	obs.OnFinish(KindExport, ex.t.finish(res.Cancelled))
	ex.t.settle(ctx, ex.Hold)
	return res
}

// nameSet hands out file names that are unique within one export. Scans
// may share a file name, so a repeat gets a -2, -3, ... suffix.
type nameSet map[string]bool

func (ns nameSet) claim(name string) string {
	if !ns[name] {
		ns[name] = true
		return name
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		c := base + "-" + strconv.Itoa(n) + ext
		if !ns[c] {
			ns[c] = true
			return c
		}
	}
}
