// Package panel serves the web visualizer: an HTML page driven by a JSON
// API over playback sessions, Server-Sent Events for autoplay, and the
// Prometheus endpoint.
package panel

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/rendis/recviz/internal/metrics"
	"github.com/rendis/recviz/internal/session"
	"github.com/rendis/recviz/internal/store"
	"github.com/rendis/recviz/internal/streaming"
	"github.com/rendis/recviz/internal/validation"
)

//go:embed templates static
var content embed.FS

// PanelDeps holds the dependencies for the panel server.
type PanelDeps struct {
	Sessions  *session.Manager
	Store     store.Store
	Hub       streaming.EventHub
	Validator *validation.RequestValidator
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// PanelServer serves the visualizer page and its API.
type PanelServer struct {
	deps  PanelDeps
	pages map[string]*template.Template
}

// NewPanelServer creates a new PanelServer with parsed templates.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	funcMap := template.FuncMap{
		"json":      toJSON,
		"join":      joinStrings,
		"themeFlip": themeFlip,
	}

	base := template.Must(
		template.New("").Funcs(funcMap).ParseFS(content, "templates/base.html"),
	)

	// Each page clones the shared set so its {{define "content"}} doesn't
	// collide with others.
	pageFiles := []string{
		"index.html",
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone := template.Must(base.Clone())
		pages[pf] = template.Must(clone.ParseFS(content, "templates/"+pf))
	}

	return &PanelServer{
		deps:  deps,
		pages: pages,
	}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// Catalog and preferences.
	mux.HandleFunc("GET /api/algorithms", s.handleAlgorithms)
	mux.HandleFunc("GET /api/preferences/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/preferences/theme", s.handlePutTheme)

	// Sessions.
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/run", s.handleRun)
	mux.HandleFunc("GET /api/sessions/{id}/frame", s.handleFrame)
	mux.HandleFunc("POST /api/sessions/{id}/play", s.handlePlay)
	mux.HandleFunc("POST /api/sessions/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /api/sessions/{id}/forward", s.handleForward)
	mux.HandleFunc("POST /api/sessions/{id}/back", s.handleBack)
	mux.HandleFunc("POST /api/sessions/{id}/seek", s.handleSeek)
	mux.HandleFunc("PUT /api/sessions/{id}/breakpoint", s.handleBreakpoint)
	mux.HandleFunc("GET /api/sessions/{id}/diagram", s.handleDiagram)

	// SSE streams.
	mux.HandleFunc("GET /sse/sessions/{id}", s.handleSSESession)

	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	return mux
}

// renderPage executes a page template by name.
func (s *PanelServer) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
