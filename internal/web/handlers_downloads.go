package web

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"halfframe/internal/batch"
	"halfframe/internal/sheet"
)

func attachment(w http.ResponseWriter, name, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}

// GET /downloads
func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	writeJSON(w, http.StatusOK, map[string][]string{"files": ws.Downloads().Names()})
}

// GET /downloads/{name}
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	name, ok := downloadName(r.PathValue("name"))
	if !ok {
		http.Error(w, "bad file name", http.StatusBadRequest)
		return
	}
	data, ok := ws.Downloads().Get(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	attachment(w, name, batch.ContentTypeByExt(name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

// GET /downloads.zip
func (s *Server) handleDownloadZip(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	sink := ws.Downloads()
	if len(sink.Names()) == 0 {
		http.Error(w, "nothing exported yet", http.StatusNotFound)
		return
	}
	attachment(w, "halfframe-export.zip", "application/zip")
	if err := sink.WriteZip(w); err != nil {
		// headers are gone; all that is left is to log
		s.log().Error("write zip", "err", err)
	}
}

// GET /sheet.pdf
func (s *Server) handleSheet(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	pdf, err := sheet.Generate(ws.Registry.Snapshot(), "Contact sheet")
	if errors.Is(err, sheet.ErrEmpty) {
		http.Error(w, "no selected halves", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log().Error("contact sheet", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attachment(w, "contact-sheet.pdf", "application/pdf")
	_, _ = w.Write(pdf)
}
