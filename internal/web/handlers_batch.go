package web

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"halfframe/internal/batch"
)

// multipart parts above this size are spooled to disk while parsing
const uploadMemory = 32 << 20

// POST /import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)

	limit := s.Config.MaxUploadBytes()
	if r.ContentLength > limit {
		http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad upload", http.StatusBadRequest)
		return
	}

	// Uploaded temp files are removed when the request ends, so the bytes
	// are read now and the import runs from memory.
	var sources []batch.Source
	for _, fh := range r.MultipartForm.File["files"] {
		name := filepath.Base(filepath.Clean(fh.Filename))
		ct := fh.Header.Get("Content-Type")
		if ct == "" || ct == "application/octet-stream" {
			ct = batch.ContentTypeByExt(name)
		}
		if !batch.IsImage(ct) {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}
		sources = append(sources, batch.BytesSource(name, ct, data))
	}

	logger := s.log()
	n, err := ws.Importer.Start(ws.ctx, sources, func(res batch.ImportResult) {
		logger.Info("import done",
			"imported", res.Imported,
			"failed", res.Failed,
			"cancelled", res.Cancelled)
	})
	if errors.Is(err, batch.ErrBusy) {
		http.Error(w, "an import is already running", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respond(w, r, map[string]int{"accepted": n})
}

// POST /import/cancel
func (s *Server) handleImportCancel(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	respond(w, r, map[string]bool{"cancelled": ws.Importer.Cancel()})
}

// POST /export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)

	sink := &batch.MemorySink{}
	logger := s.log()
	n, err := ws.Exporter.Start(ws.ctx, sink, func(res batch.ExportResult) {
		logger.Info("export done",
			"exported", res.Exported,
			"failed", res.Failed,
			"cancelled", res.Cancelled)
	})
	if errors.Is(err, batch.ErrBusy) {
		http.Error(w, "an export is already running", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if n > 0 {
		ws.setDownloads(sink)
	}
	respond(w, r, map[string]int{"accepted": n})
}

// POST /export/cancel
func (s *Server) handleExportCancel(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	respond(w, r, map[string]bool{"cancelled": ws.Exporter.Cancel()})
}

type progressView struct {
	batch.Progress
	Percent int `json:"percent"`
}

type progressResponse struct {
	Import    progressView `json:"import"`
	Export    progressView `json:"export"`
	Pairs     int          `json:"pairs"`
	Selected  int          `json:"selected"`
	Downloads []string     `json:"downloads"`
}

func newProgressView(p batch.Progress) progressView {
	return progressView{Progress: p, Percent: p.Percent()}
}

// GET /progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, progressResponse{
		Import:    newProgressView(ws.Importer.Progress()),
		Export:    newProgressView(ws.Exporter.Progress()),
		Pairs:     ws.Registry.Len(),
		Selected:  ws.Registry.SelectedCount(),
		Downloads: ws.Downloads().Names(),
	})
}
