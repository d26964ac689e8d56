package web

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"halfframe/internal/batch"
	"halfframe/internal/config"
	"halfframe/internal/frame"
	"halfframe/internal/session"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Import.HoldMS = 0
	cfg.Export.HoldMS = 0
	cfg.Preview.MaxEdge = 64

	tmpl, err := ParseTemplates()
	if err != nil {
		t.Fatalf("ParseTemplates: %v", err)
	}
	return &Server{
		Config: cfg,
		Store:  session.NewMemoryStore[*Workspace](time.Hour),
		Tmpl:   tmpl,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// newSession stores a fresh workspace and returns its cookie value.
func newSession(t *testing.T, srv *Server) (string, *Workspace) {
	t.Helper()
	id := srv.Store.NewID()
	ws := NewWorkspace(srv.Config, srv.Logger)
	if err := srv.Store.Put(t.Context(), id, ws); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(ws.Close)
	return id, ws
}

func scanPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// seed imports scans named names directly into the workspace.
func seed(t *testing.T, ws *Workspace, names ...string) []frame.SplitPair {
	t.Helper()
	var out []frame.SplitPair
	for _, n := range names {
		p, err := ws.Importer.Splitter.SplitBytes(scanPNG(t, 80, 40), n)
		if err != nil {
			t.Fatalf("SplitBytes: %v", err)
		}
		ws.Registry.Append(p)
		out = append(out, p)
	}
	return out
}

type request struct {
	method, path string
	body         io.Reader
	contentType  string
	sid          string
	json         bool
}

func do(t *testing.T, srv *Server, req request) *httptest.ResponseRecorder {
	t.Helper()
	body := req.body
	if body == nil {
		body = http.NoBody
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if req.sid != "" {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: req.sid})
	}
	if req.json {
		r.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, r)
	return rec
}

func postForm(t *testing.T, srv *Server, sid, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, request{
		method:      http.MethodPost,
		path:        path,
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		sid:         sid,
		json:        true,
	})
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON %q: %v", rec.Body.String(), err)
	}
}

func waitIdle(t *testing.T, p func() batch.Progress) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p().State != batch.Idle {
		if time.Now().After(deadline) {
			t.Fatalf("batch still %v", p().State)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func page(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse HTML: %v", err)
	}
	return doc
}

func TestHandleIndex_NewSession(t *testing.T) {
	srv := testServer(t)
	rec := do(t, srv, request{method: http.MethodGet, path: "/"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName {
		t.Fatalf("expected session cookie, got %v", cookies)
	}
	doc := page(t, rec)
	if doc.Find("#empty").Length() != 1 {
		t.Error("expected empty workspace message")
	}
	if _, ok := doc.Find("#export").Attr("disabled"); !ok {
		t.Error("export should be disabled with nothing selected")
	}
}

func TestHandleIndex_ListsPairs(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "roll1.jpg", "roll2.jpg")
	if _, err := ws.Registry.ToggleSelected(1, frame.Right); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Registry.Rotate(1, frame.Right, -90); err != nil {
		t.Fatal(err)
	}

	rec := do(t, srv, request{method: http.MethodGet, path: "/", sid: sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	doc := page(t, rec)

	articles := doc.Find("article.pair")
	if articles.Length() != 2 {
		t.Fatalf("expected 2 pairs, got %d", articles.Length())
	}
	if id, _ := articles.Eq(0).Attr("data-id"); id != pairs[0].ID {
		t.Errorf("first pair id = %q, want %q", id, pairs[0].ID)
	}

	selected := doc.Find(".half.selected")
	if selected.Length() != 1 {
		t.Fatalf("expected 1 selected half, got %d", selected.Length())
	}
	if side, _ := selected.Attr("data-side"); side != "right" {
		t.Errorf("selected side = %q", side)
	}
	if rot, _ := selected.Attr("data-rotation"); rot != "-90" {
		t.Errorf("data-rotation = %q, want -90", rot)
	}
	style, _ := selected.Find("img.preview").Attr("style")
	if !strings.Contains(style, "rotate(270deg)") {
		t.Errorf("preview style = %q, want normalized rotation", style)
	}
	if alt, _ := selected.Find("img.preview").Attr("alt"); alt != "roll2_right.jpg" {
		t.Errorf("alt = %q", alt)
	}
	if !strings.Contains(doc.Find("#export").Text(), "1 selected") {
		t.Errorf("export button = %q", doc.Find("#export").Text())
	}
}

func multipartBody(t *testing.T, files map[string][]byte, order []string, types map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		if ct := types[name]; ct != "" {
			h.Set("Content-Type", ct)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write(files[name])
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleImport(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)

	order := []string{"b.png", "notes.txt", "a.png"}
	body, ct := multipartBody(t, map[string][]byte{
		"b.png":     scanPNG(t, 60, 30),
		"notes.txt": []byte("not a scan"),
		"a.png":     scanPNG(t, 30, 60),
	}, order, map[string]string{"b.png": "image/png", "notes.txt": "text/plain"})

	rec := do(t, srv, request{method: http.MethodPost, path: "/import", body: body, contentType: ct, sid: sid})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}

	waitIdle(t, ws.Importer.Progress)
	snap := ws.Registry.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(snap))
	}
	if snap[0].FileName != "b.png" || snap[1].FileName != "a.png" {
		t.Errorf("order = %s, %s", snap[0].FileName, snap[1].FileName)
	}
	if snap[0].Axis != frame.Vertical || snap[1].Axis != frame.Horizontal {
		t.Errorf("axes = %v, %v", snap[0].Axis, snap[1].Axis)
	}
}

func TestHandleImport_Busy(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	ws.Importer.Hold = time.Minute

	send := func() *httptest.ResponseRecorder {
		body, ct := multipartBody(t, map[string][]byte{"a.png": scanPNG(t, 20, 10)},
			[]string{"a.png"}, map[string]string{"a.png": "image/png"})
		return do(t, srv, request{method: http.MethodPost, path: "/import", body: body, contentType: ct, sid: sid, json: true})
	}
	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first import: expected 200, got %d", rec.Code)
	}
	if rec := send(); rec.Code != http.StatusConflict {
		t.Errorf("second import: expected 409, got %d", rec.Code)
	}
}

func TestHandleImport_TooLarge(t *testing.T) {
	srv := testServer(t)
	srv.Config.MaxUploadMB = 1
	sid, _ := newSession(t, srv)

	body, ct := multipartBody(t, map[string][]byte{"big.png": bytes.Repeat([]byte{1}, 2<<20)},
		[]string{"big.png"}, map[string]string{"big.png": "image/png"})
	rec := do(t, srv, request{method: http.MethodPost, path: "/import", body: body, contentType: ct, sid: sid})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestHandleRotate(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "roll1.jpg")
	path := "/pairs/" + pairs[0].ID + "/left/rotate"

	var got halfResponse
	rec := postForm(t, srv, sid, path, url.Values{"delta": {"-90"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	decodeJSON(t, rec, &got)
	if got.Rotation != -90 || got.Normalized != 270 {
		t.Errorf("got %+v, want rotation -90 normalized 270", got)
	}

	rec = postForm(t, srv, sid, path, url.Values{"delta": {"180"}})
	decodeJSON(t, rec, &got)
	if got.Rotation != 90 {
		t.Errorf("rotation = %d, want 90", got.Rotation)
	}

	rec = postForm(t, srv, sid, path, url.Values{"reset": {"1"}})
	decodeJSON(t, rec, &got)
	if got.Rotation != 0 {
		t.Errorf("rotation after reset = %d", got.Rotation)
	}

	p, _ := ws.Registry.At(0)
	if p.Halves[frame.Right].Rotation != 0 {
		t.Error("rotating the left half must not touch the right one")
	}
}

func TestHandleRotate_BadInput(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "roll1.jpg")

	tests := []struct {
		name string
		path string
		form url.Values
		want int
	}{
		{"odd angle", "/pairs/" + pairs[0].ID + "/left/rotate", url.Values{"delta": {"45"}}, http.StatusBadRequest},
		{"missing delta", "/pairs/" + pairs[0].ID + "/left/rotate", url.Values{}, http.StatusBadRequest},
		{"bad side", "/pairs/" + pairs[0].ID + "/top/rotate", url.Values{"delta": {"90"}}, http.StatusBadRequest},
		{"unknown pair", "/pairs/nope/left/rotate", url.Values{"delta": {"90"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(t, srv, sid, tt.path, tt.form)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestHandleRotate_FormRedirects(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "roll1.jpg")

	rec := do(t, srv, request{
		method:      http.MethodPost,
		path:        "/pairs/" + pairs[0].ID + "/right/rotate",
		body:        strings.NewReader("delta=90"),
		contentType: "application/x-www-form-urlencoded",
		sid:         sid,
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	p, _ := ws.Registry.At(0)
	if p.Halves[frame.Right].Rotation != 90 {
		t.Errorf("rotation = %d", p.Halves[frame.Right].Rotation)
	}
}

func TestHandleSelect(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "a.jpg", "b.jpg")

	var got halfResponse
	decodeJSON(t, postForm(t, srv, sid, "/pairs/"+pairs[1].ID+"/left/select", nil), &got)
	if !got.Selected {
		t.Error("expected selected after first toggle")
	}
	decodeJSON(t, postForm(t, srv, sid, "/pairs/"+pairs[1].ID+"/left/select", nil), &got)
	if got.Selected {
		t.Error("expected deselected after second toggle")
	}

	var count map[string]int
	decodeJSON(t, postForm(t, srv, sid, "/pairs/select", url.Values{"all": {"true"}}), &count)
	if count["selected"] != 4 {
		t.Errorf("selected = %d, want 4", count["selected"])
	}
	decodeJSON(t, postForm(t, srv, sid, "/pairs/select", url.Values{"all": {"false"}}), &count)
	if count["selected"] != 0 {
		t.Errorf("selected = %d, want 0", count["selected"])
	}
	if rec := postForm(t, srv, sid, "/pairs/select", url.Values{"all": {"maybe"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleRemoveAndClear(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "a.jpg", "b.jpg", "c.jpg")
	if _, err := ws.Registry.ToggleSelected(2, frame.Left); err != nil {
		t.Fatal(err)
	}

	rec := postForm(t, srv, sid, "/pairs/"+pairs[0].ID+"/remove", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ws.Registry.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ws.Registry.Len())
	}
	p, _ := ws.Registry.At(1)
	if p.ID != pairs[2].ID || !p.Halves[frame.Left].Selected {
		t.Error("remaining pairs should keep their selection")
	}

	if rec := postForm(t, srv, sid, "/pairs/"+pairs[0].ID+"/remove", nil); rec.Code != http.StatusNotFound {
		t.Errorf("removing twice: expected 404, got %d", rec.Code)
	}

	postForm(t, srv, sid, "/pairs/clear", nil)
	if ws.Registry.Len() != 0 {
		t.Errorf("Len after clear = %d", ws.Registry.Len())
	}
}

func TestHandlePreview(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	pairs := seed(t, ws, "roll1.jpg")

	rec := do(t, srv, request{method: http.MethodGet, path: "/pairs/" + pairs[0].ID + "/right/preview", sid: sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), pairs[0].Halves[frame.Right].Preview) {
		t.Error("preview bytes differ")
	}

	other, _ := newSession(t, srv)
	rec = do(t, srv, request{method: http.MethodGet, path: "/pairs/" + pairs[0].ID + "/right/preview", sid: other})
	if rec.Code != http.StatusNotFound {
		t.Errorf("other session: expected 404, got %d", rec.Code)
	}
}

func TestExportRoundTrip(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	seed(t, ws, "roll1.jpg", "roll2.jpg")
	if _, err := ws.Registry.ToggleSelected(0, frame.Left); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Registry.Rotate(0, frame.Left, 90); err != nil {
		t.Fatal(err)
	}

	var accepted map[string]int
	decodeJSON(t, postForm(t, srv, sid, "/export", nil), &accepted)
	if accepted["accepted"] != 1 {
		t.Fatalf("accepted = %d, want 1", accepted["accepted"])
	}
	waitIdle(t, ws.Exporter.Progress)

	var list map[string][]string
	decodeJSON(t, do(t, srv, request{method: http.MethodGet, path: "/downloads", sid: sid}), &list)
	if len(list["files"]) != 1 || list["files"][0] != "roll1_left.jpg" {
		t.Fatalf("files = %v", list["files"])
	}

	rec := do(t, srv, request{method: http.MethodGet, path: "/downloads/roll1_left.jpg", sid: sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "roll1_left.jpg") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode export: %v", err)
	}
	// 80x40 scan: 40x40 halves, square either way
	if format != "jpeg" || cfg.Width != 40 || cfg.Height != 40 {
		t.Errorf("export = %s %dx%d", format, cfg.Width, cfg.Height)
	}

	rec = do(t, srv, request{method: http.MethodGet, path: "/downloads.zip", sid: sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("zip: expected 200, got %d", rec.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "roll1_left.jpg" {
		t.Errorf("zip entries = %v", zr.File)
	}

	if rec := do(t, srv, request{method: http.MethodGet, path: "/downloads/missing.jpg", sid: sid}); rec.Code != http.StatusNotFound {
		t.Errorf("missing file: expected 404, got %d", rec.Code)
	}
}

func TestHandleExport_NothingSelected(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	seed(t, ws, "a.jpg")

	var accepted map[string]int
	decodeJSON(t, postForm(t, srv, sid, "/export", nil), &accepted)
	if accepted["accepted"] != 0 {
		t.Errorf("accepted = %d", accepted["accepted"])
	}
	if ws.Exporter.Progress().State != batch.Idle {
		t.Error("export should stay idle")
	}
	if rec := do(t, srv, request{method: http.MethodGet, path: "/downloads.zip", sid: sid}); rec.Code != http.StatusNotFound {
		t.Errorf("zip without export: expected 404, got %d", rec.Code)
	}
}

func TestHandleProgress(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	seed(t, ws, "a.jpg", "b.jpg")
	ws.Registry.SetAllSelected(true)

	rec := do(t, srv, request{method: http.MethodGet, path: "/progress", sid: sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Import struct {
			State string `json:"state"`
			Total int    `json:"total"`
		} `json:"import"`
		Pairs    int `json:"pairs"`
		Selected int `json:"selected"`
	}
	decodeJSON(t, rec, &got)
	if got.Import.State != "idle" || got.Import.Total != 0 {
		t.Errorf("import = %+v", got.Import)
	}
	if got.Pairs != 2 || got.Selected != 4 {
		t.Errorf("pairs = %d selected = %d", got.Pairs, got.Selected)
	}
}

func TestHandleCancel_Idle(t *testing.T) {
	srv := testServer(t)
	sid, _ := newSession(t, srv)
	for _, path := range []string{"/import/cancel", "/export/cancel"} {
		var got map[string]bool
		decodeJSON(t, postForm(t, srv, sid, path, nil), &got)
		if got["cancelled"] {
			t.Errorf("%s: nothing to cancel", path)
		}
	}
}

func TestHandleSheet(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	seed(t, ws, "a.jpg")

	if rec := do(t, srv, request{method: http.MethodGet, path: "/sheet.pdf", sid: sid}); rec.Code != http.StatusNotFound {
		t.Errorf("nothing selected: expected 404, got %d", rec.Code)
	}

	ws.Registry.SetAllSelected(true)
	rec := do(t, srv, request{method: http.MethodGet, path: "/sheet.pdf", sid: sid})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestRoutes_MethodAndPath(t *testing.T) {
	srv := testServer(t)
	if rec := do(t, srv, request{method: http.MethodGet, path: "/nope"}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path: expected 404, got %d", rec.Code)
	}
	if rec := do(t, srv, request{method: http.MethodGet, path: "/export"}); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /export: expected 405, got %d", rec.Code)
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"roll1_left.jpg", true},
		{"roll..1_left.jpg", true},
		{"roll1_left-2.jpg", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../secret", false},
		{`a\b.jpg`, false},
		{"sub/a.jpg", false},
	}
	for _, tt := range tests {
		if _, ok := downloadName(tt.in); ok != tt.ok {
			t.Errorf("downloadName(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := testServer(t)
	sidA, wsA := newSession(t, srv)
	sidB, _ := newSession(t, srv)
	seed(t, wsA, "mine.jpg")

	rec := do(t, srv, request{method: http.MethodGet, path: "/", sid: sidB})
	if n := page(t, rec).Find("article.pair").Length(); n != 0 {
		t.Errorf("session B sees %d pairs", n)
	}
	rec = do(t, srv, request{method: http.MethodGet, path: "/", sid: sidA})
	if n := page(t, rec).Find("article.pair").Length(); n != 1 {
		t.Errorf("session A sees %d pairs", n)
	}
}

func TestExport_SharedFileNames(t *testing.T) {
	srv := testServer(t)
	sid, ws := newSession(t, srv)
	seed(t, ws, "roll..1.jpg", "roll..1.jpg")
	ws.Registry.SetAllSelected(true)

	postForm(t, srv, sid, "/export", nil)
	waitIdle(t, ws.Exporter.Progress)

	var list map[string][]string
	decodeJSON(t, do(t, srv, request{method: http.MethodGet, path: "/downloads", sid: sid}), &list)
	want := []string{"roll..1_left.jpg", "roll..1_right.jpg", "roll..1_left-2.jpg", "roll..1_right-2.jpg"}
	if strings.Join(list["files"], ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", list["files"], want)
	}
	for _, name := range want {
		rec := do(t, srv, request{method: http.MethodGet, path: "/downloads/" + name, sid: sid})
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", name, rec.Code)
		}
	}
}

func TestSession_UnknownCookieGetsFreshID(t *testing.T) {
	srv := testServer(t)
	const planted = "0123456789abcdef0123456789abcdef"

	rec := do(t, srv, request{method: http.MethodGet, path: "/", sid: planted})
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName {
		t.Fatalf("expected a new session cookie, got %v", cookies)
	}
	if cookies[0].Value == planted {
		t.Error("client-chosen session ID was adopted")
	}
	if _, ok, _ := srv.Store.Get(t.Context(), planted); ok {
		t.Error("no session should exist under the client-chosen ID")
	}
	if _, ok, _ := srv.Store.Get(t.Context(), cookies[0].Value); !ok {
		t.Error("new session was not stored")
	}
}

func TestSession_ExpiredWorkspaceIsClosed(t *testing.T) {
	srv := testServer(t)
	store := session.NewMemoryStore[*Workspace](10 * time.Millisecond)
	closed := make(chan *Workspace, 1)
	store.OnEvict = func(ws *Workspace) {
		ws.Close()
		closed <- ws
	}
	srv.Store = store
	sid, old := newSession(t, srv)

	time.Sleep(30 * time.Millisecond)
	rec := do(t, srv, request{method: http.MethodGet, path: "/", sid: sid})
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == sid {
		t.Fatalf("expected a fresh session cookie, got %v", cookies)
	}

	select {
	case ws := <-closed:
		if ws != old {
			t.Error("a different workspace was evicted")
		}
	default:
		t.Fatal("expired workspace was not evicted")
	}
	if old.ctx.Err() == nil {
		t.Error("expired workspace is still running")
	}
}
