package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rendis/recviz/internal/diagram"
	"github.com/rendis/recviz/internal/logging"
	"github.com/rendis/recviz/internal/player"
	"github.com/rendis/recviz/internal/session"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/internal/validation"
	"github.com/rendis/recviz/pkg/schema"
)

const maxBodyBytes = 1 << 16

// frameResponse pairs a session summary with one derived frame.
type frameResponse struct {
	Session  *session.Info    `json:"session"`
	Frame    *player.Snapshot `json:"frame,omitempty"`
	Banner   string           `json:"banner,omitempty"`
	Progress string           `json:"progress,omitempty"`
}

func newFrameResponse(info *session.Info, snap *player.Snapshot) frameResponse {
	resp := frameResponse{Session: info, Frame: snap}
	if snap != nil {
		resp.Banner = snap.Banner()
		resp.Progress = snap.Progress()
	}
	return resp
}

// handleAlgorithms lists the problem catalog.
func (s *PanelServer) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"algorithms": trace.Problems()})
}

// handleListSessions lists live sessions, most recent first.
func (s *PanelServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.deps.Sessions.List()})
}

// handleCreateSession validates a run request, opens a session and loads
// the run into it.
func (s *PanelServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	alg, _ := schema.ParseAlgorithm(req.Algorithm)

	sess, err := s.deps.Sessions.Open(r.Context(), alg, req.N)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	resp, err := s.afterRun(r.Context(), sess, req)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleGetSession returns the session summary and its current frame.
func (s *PanelServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.Snapshot()
	if err != nil && !schema.HasCode(err, schema.ErrCodeConflict) {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), snap))
}

// handleDeleteSession closes a session.
func (s *PanelServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	_, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.deps.Sessions.Close(ctx, r.PathValue("id")); err != nil {
		writeRecvizError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRun loads a new run into an existing session. Autoplay is stopped
// first; a rejected run leaves the session as it was.
func (s *PanelServer) handleRun(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	alg, _ := schema.ParseAlgorithm(req.Algorithm)

	if _, err := sess.Run(ctx, alg, req.N); err != nil {
		writeRecvizError(w, err)
		return
	}
	resp, err := s.afterRun(ctx, sess, req)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// afterRun applies the optional breakpoint and autoplay of a run request.
func (s *PanelServer) afterRun(ctx context.Context, sess *session.Session, req *validation.RunRequest) (frameResponse, error) {
	if req.Breakpoint != "" {
		if err := sess.SetBreakpoint(ctx, req.Breakpoint); err != nil {
			return frameResponse{}, err
		}
	}
	if req.Autoplay {
		if _, err := sess.Play(ctx); err != nil {
			return frameResponse{}, err
		}
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return frameResponse{}, err
	}
	return newFrameResponse(sess.Info(), snap), nil
}

// handleFrame derives the frame at ?step=K, or at the playhead when step
// is absent. The playhead does not move.
func (s *PanelServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.session(w, r)
	if !ok {
		return
	}
	var snap *player.Snapshot
	var err error
	if r.URL.Query().Has("step") {
		snap, err = sess.FrameAt(queryInt(r, "step", 0))
	} else {
		snap, err = sess.Snapshot()
	}
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), snap))
}

func (s *PanelServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Play(ctx); err != nil {
		writeRecvizError(w, err)
		return
	}
	s.writeCurrent(w, sess)
}

func (s *PanelServer) handlePause(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Pause(ctx)
	s.writeCurrent(w, sess)
}

func (s *PanelServer) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset(ctx)
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), nil))
}

func (s *PanelServer) handleForward(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.Forward(ctx)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), snap))
}

func (s *PanelServer) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.Back(ctx)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), snap))
}

func (s *PanelServer) handleSeek(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := s.deps.Validator.SeekRequest(raw)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	snap, err := sess.Seek(ctx, req.Step)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), snap))
}

// handleBreakpoint sets or, with an empty expression, clears the session
// breakpoint.
func (s *PanelServer) handleBreakpoint(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := s.deps.Validator.BreakpointRequest(raw)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	if err := sess.SetBreakpoint(ctx, req.Expression); err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// handleDiagram renders the frame at ?step=K (default: the playhead) as
// ascii, mermaid, png or svg.
func (s *PanelServer) handleDiagram(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.session(w, r)
	if !ok {
		return
	}
	format, err := diagram.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := sess.Recording()
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	var snap *player.Snapshot
	if r.URL.Query().Has("step") {
		snap, err = sess.FrameAt(queryInt(r, "step", 0))
	} else {
		snap, err = sess.Snapshot()
	}
	if err != nil {
		writeRecvizError(w, err)
		return
	}

	model, err := diagram.Build(rec.Trace, rec.Layout, snap)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	model.Theme = s.theme(ctx)

	out, err := diagram.Render(ctx, model, format)
	if err != nil {
		logging.LogWith(ctx, s.deps.Logger).Error("diagram render failed", slog.String("format", string(format)), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleGetTheme returns the stored display preference.
func (s *PanelServer) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"theme": s.theme(r.Context())})
}

// handlePutTheme stores the display preference.
func (s *PanelServer) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	req, err := s.deps.Validator.ThemeRequest(raw)
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences are not persisted")
		return
	}
	if err := s.deps.Store.SetTheme(r.Context(), req.Theme); err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"theme": req.Theme})
}

// theme reads the theme preference, falling back to dark.
func (s *PanelServer) theme(ctx context.Context) schema.Theme {
	if s.deps.Store == nil {
		return schema.ThemeDark
	}
	theme, err := s.deps.Store.Theme(ctx)
	if err != nil {
		s.deps.Logger.Warn("read theme preference", slog.String("error", err.Error()))
		return schema.ThemeDark
	}
	return theme
}

// --- helpers ---

// session resolves the {id} path value and returns a context carrying the
// session id for log correlation.
func (s *PanelServer) session(w http.ResponseWriter, r *http.Request) (*session.Session, context.Context, bool) {
	id := r.PathValue("id")
	sess, err := s.deps.Sessions.Get(id)
	if err != nil {
		writeRecvizError(w, err)
		return nil, nil, false
	}
	return sess, logging.WithSessionID(r.Context(), id), true
}

func (s *PanelServer) decodeRun(w http.ResponseWriter, r *http.Request) (*validation.RunRequest, bool) {
	raw, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	req, err := s.deps.Validator.RunRequest(raw)
	if err != nil {
		writeRecvizError(w, err)
		return nil, false
	}
	return req, true
}

func (s *PanelServer) writeCurrent(w http.ResponseWriter, sess *session.Session) {
	snap, err := sess.Snapshot()
	if err != nil {
		writeRecvizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newFrameResponse(sess.Info(), snap))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return nil, false
	}
	return raw, true
}
