package panel

import (
	"net/http"
	"time"

	"github.com/rendis/recviz/internal/diagram"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

type pageData struct {
	Title  string
	Theme  schema.Theme
	Active string
}

type indexData struct {
	pageData
	Problems []trace.Problem
	Formats  []diagram.Format
	Interval time.Duration
	Limit    int
}

// handleIndex renders the visualizer page.
func (s *PanelServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		pageData: pageData{Title: "Recursion Visualizer", Theme: s.theme(r.Context()), Active: "index"},
		Problems: trace.Problems(),
		Formats:  diagram.Formats,
		Interval: s.deps.Sessions.Interval(),
		Limit:    trace.DefaultCallLimit,
	}
	s.renderPage(w, "index.html", data)
}
