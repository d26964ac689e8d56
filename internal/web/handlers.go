package web

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"halfframe/internal/config"
	"halfframe/internal/session"
)

type Server struct {
	Config *config.Config
	Store  session.Store[*Workspace]
	Tmpl   *template.Template
	Logger *slog.Logger
}

const cookieName = "halfframe_sid"

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /progress", s.handleProgress)

	mux.HandleFunc("POST /import", s.handleImport)
	mux.HandleFunc("POST /import/cancel", s.handleImportCancel)
	mux.HandleFunc("POST /export", s.handleExport)
	mux.HandleFunc("POST /export/cancel", s.handleExportCancel)

	mux.HandleFunc("GET /pairs/{id}/{side}/preview", s.handlePreview)
	mux.HandleFunc("POST /pairs/{id}/{side}/rotate", s.handleRotate)
	mux.HandleFunc("POST /pairs/{id}/{side}/select", s.handleSelect)
	mux.HandleFunc("POST /pairs/{id}/remove", s.handleRemove)
	mux.HandleFunc("POST /pairs/select", s.handleSelectAll)
	mux.HandleFunc("POST /pairs/clear", s.handleClear)

	mux.HandleFunc("GET /downloads", s.handleDownloads)
	mux.HandleFunc("GET /downloads/{name}", s.handleDownload)
	mux.HandleFunc("GET /downloads.zip", s.handleDownloadZip)
	mux.HandleFunc("GET /sheet.pdf", s.handleSheet)
	return s.logRequests(mux)
}

// GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ws, _ := s.getOrCreateWorkspace(r.Context(), w, r)
	w.Header().Set("Cache-Control", "no-store")
	if err := s.Tmpl.ExecuteTemplate(w, "index.html", s.makePageView(ws)); err != nil {
		s.log().Error("render index", "err", err)
		http.Error(w, "failed to render template", http.StatusInternalServerError)
	}
}

// getOrCreateWorkspace returns the workspace of the request's session. A
// cookie without a live session gets a new ID, never the one it carried.
func (s *Server) getOrCreateWorkspace(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Workspace, string) {
	if id := s.sessionID(r); id != "" {
		ws, ok, err := s.Store.Get(ctx, id)
		if err != nil {
			s.log().Warn("session lookup failed", "err", err)
		}
		if ok && ws != nil {
			return ws, id
		}
	}

	id := s.Store.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	ws := NewWorkspace(s.Config, s.log().With("session", shortID(id)))
	if err := s.Store.Put(ctx, id, ws); err != nil {
		s.log().Warn("session store failed", "err", err)
	}
	return ws, id
}

func (s *Server) sessionID(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) log() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// wantsJSON is true for script clients; form posts get redirected back to
// the page instead.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond sends v as JSON or redirects to the page.
func respond(w http.ResponseWriter, r *http.Request, v any) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log().Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
