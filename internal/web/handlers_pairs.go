package web

import (
	"errors"
	"net/http"
	"strconv"

	"halfframe/internal/frame"
	"halfframe/internal/registry"
)

// halfResponse is the JSON answer to rotate and select.
type halfResponse struct {
	ID         string `json:"id"`
	Side       string `json:"side"`
	Rotation   int    `json:"rotation"`
	Normalized int    `json:"normalized"`
	Selected   bool   `json:"selected"`
}

// pairIndex resolves the {id} path value to a registry index.
func pairIndex(w http.ResponseWriter, r *http.Request, ws *Workspace) (int, bool) {
	i := ws.Registry.IndexOf(r.PathValue("id"))
	if i < 0 {
		http.Error(w, "pair not found", http.StatusNotFound)
		return 0, false
	}
	return i, true
}

func pathSide(w http.ResponseWriter, r *http.Request) (frame.Side, bool) {
	side, ok := frame.ParseSide(r.PathValue("side"))
	if !ok {
		http.Error(w, "side must be left or right", http.StatusBadRequest)
	}
	return side, ok
}

func (s *Server) halfState(w http.ResponseWriter, r *http.Request, ws *Workspace, i int, side frame.Side) {
	p, err := ws.Registry.At(i)
	if err != nil {
		registryError(w, err)
		return
	}
	h := p.Halves[side]
	respond(w, r, halfResponse{
		ID:         p.ID,
		Side:       side.String(),
		Rotation:   h.Rotation,
		Normalized: frame.Normalize(h.Rotation),
		Selected:   h.Selected,
	})
}

func registryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNoPair):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrBadAngle), errors.Is(err, registry.ErrBadSide):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /pairs/{id}/{side}/preview
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	side, ok := pathSide(w, r)
	if !ok {
		return
	}
	i, ok := pairIndex(w, r, ws)
	if !ok {
		return
	}
	p, err := ws.Registry.At(i)
	if err != nil {
		registryError(w, err)
		return
	}
	// Previews never change for a pair ID; rotation is applied by the page.
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", previewCacheControl)
	_, _ = w.Write(p.Halves[side].Preview)
}

var allowedDeltas = map[int]bool{90: true, -90: true, 180: true, -180: true}

// POST /pairs/{id}/{side}/rotate
func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	side, ok := pathSide(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	i, ok := pairIndex(w, r, ws)
	if !ok {
		return
	}

	if r.FormValue("reset") != "" {
		if err := ws.Registry.SetRotation(i, side, 0); err != nil {
			registryError(w, err)
			return
		}
	} else {
		delta, err := strconv.Atoi(r.FormValue("delta"))
		if err != nil || !allowedDeltas[delta] {
			http.Error(w, "delta must be 90, -90 or 180", http.StatusBadRequest)
			return
		}
		if _, err := ws.Registry.Rotate(i, side, delta); err != nil {
			registryError(w, err)
			return
		}
	}
	s.halfState(w, r, ws, i, side)
}

// POST /pairs/{id}/{side}/select
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	side, ok := pathSide(w, r)
	if !ok {
		return
	}
	i, ok := pairIndex(w, r, ws)
	if !ok {
		return
	}
	if _, err := ws.Registry.ToggleSelected(i, side); err != nil {
		registryError(w, err)
		return
	}
	s.halfState(w, r, ws, i, side)
}

// POST /pairs/select
func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	all, err := strconv.ParseBool(r.FormValue("all"))
	if err != nil {
		http.Error(w, "all must be true or false", http.StatusBadRequest)
		return
	}
	ws.Registry.SetAllSelected(all)
	respond(w, r, map[string]int{"selected": ws.Registry.SelectedCount()})
}

// POST /pairs/{id}/remove
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	i, ok := pairIndex(w, r, ws)
	if !ok {
		return
	}
	if err := ws.Registry.RemoveAt(i); err != nil {
		registryError(w, err)
		return
	}
	respond(w, r, map[string]int{"pairs": ws.Registry.Len()})
}

// POST /pairs/clear
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	ws.Registry.Clear()
	respond(w, r, map[string]int{"pairs": 0})
}
