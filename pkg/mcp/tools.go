package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/recviz/internal/diagram"
	"github.com/rendis/recviz/internal/expressions"
	"github.com/rendis/recviz/internal/logging"
	"github.com/rendis/recviz/internal/player"
	"github.com/rendis/recviz/internal/session"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/internal/validation"
	"github.com/rendis/recviz/pkg/schema"
)

// frameResult is the tool-facing view of a session frame.
type frameResult struct {
	Session  *session.Info    `json:"session"`
	Step     int              `json:"step"`
	Banner   string           `json:"banner,omitempty"`
	Progress string           `json:"progress,omitempty"`
	Stack    []string         `json:"stack,omitempty"`
	Current  *trace.Event     `json:"current,omitempty"`
	Final    *int             `json:"final,omitempty"`
	Frame    *player.Snapshot `json:"frame,omitempty"`
}

func newFrameResult(info *session.Info, snap *player.Snapshot, full bool) frameResult {
	res := frameResult{Session: info}
	if snap == nil {
		return res
	}
	res.Step = snap.Step
	res.Banner = snap.Banner()
	res.Progress = snap.Progress()
	res.Current = snap.Current
	res.Final = snap.Final
	for _, f := range snap.Stack {
		res.Stack = append(res.Stack, f.Call)
	}
	if full {
		res.Frame = snap
	}
	return res
}

// handleAlgorithms lists the problem catalog.
func (s *RecvizServer) handleAlgorithms(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return marshalResult(map[string]any{"algorithms": trace.Problems()})
}

// handleRun simulates an algorithm and loads the run into a new or
// existing session.
func (s *RecvizServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString("algorithm"); err != nil {
		return mcp.NewToolResultError("algorithm is required"), nil
	}
	if s.sessions == nil {
		return mcp.NewToolResultError("sessions are not available"), nil
	}

	runReq, err := s.runRequest(req)
	if err != nil {
		return toolError("invalid run request", err), nil
	}
	alg, err := schema.ParseAlgorithm(runReq.Algorithm)
	if err != nil {
		return toolError("invalid run request", err), nil
	}

	var sess *session.Session
	if id := req.GetString("session_id", ""); id != "" {
		sess, err = s.sessions.Get(id)
		if err != nil {
			return toolError("session lookup failed", err), nil
		}
		ctx = logging.WithSessionID(ctx, id)
		if _, err := sess.Run(ctx, alg, runReq.N); err != nil {
			return toolError("run failed", err), nil
		}
	} else {
		sess, err = s.sessions.Open(ctx, alg, runReq.N)
		if err != nil {
			return toolError("run failed", err), nil
		}
		ctx = logging.WithSessionID(ctx, sess.ID)
	}

	// Capture the client so autoplay events reach it.
	s.captureSession(ctx, sess.ID)

	if runReq.Breakpoint != "" {
		if err := sess.SetBreakpoint(ctx, runReq.Breakpoint); err != nil {
			return toolError("breakpoint rejected", err), nil
		}
	}
	if runReq.Autoplay {
		if _, err := sess.Play(ctx); err != nil {
			return toolError("autoplay failed", err), nil
		}
	}

	snap, err := sess.Snapshot()
	if err != nil {
		return toolError("frame failed", err), nil
	}
	return marshalResult(newFrameResult(sess.Info(), snap, false))
}

// runRequest validates the run arguments; session_id is not part of the
// request document.
func (s *RecvizServer) runRequest(req mcp.CallToolRequest) (*validation.RunRequest, error) {
	args := map[string]any{
		"algorithm": req.GetString("algorithm", ""),
		"n":         req.GetInt("n", 0),
	}
	if bp := req.GetString("breakpoint", ""); bp != "" {
		args["breakpoint"] = bp
	}
	if req.GetBool("autoplay", false) {
		args["autoplay"] = true
	}
	if s.validator != nil {
		return s.validator.RunArgs(args)
	}
	alg, err := schema.ParseAlgorithm(args["algorithm"].(string))
	if err != nil {
		return nil, err
	}
	p, err := trace.LookupProblem(alg)
	if err != nil {
		return nil, err
	}
	n := args["n"].(int)
	if err := p.Validate(n); err != nil {
		return nil, err
	}
	return &validation.RunRequest{
		Algorithm:  alg.String(),
		N:          n,
		Breakpoint: req.GetString("breakpoint", ""),
		Autoplay:   req.GetBool("autoplay", false),
	}, nil
}

// handleStep applies a playback action to a session.
func (s *RecvizServer) handleStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	action, err := req.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action is required"), nil
	}
	sess, err := s.lookup(sessionID)
	if err != nil {
		return toolError("session lookup failed", err), nil
	}
	ctx = logging.WithSessionID(ctx, sessionID)

	var snap *player.Snapshot
	switch action {
	case "frame":
		snap, err = sess.Snapshot()
	case "forward":
		snap, err = sess.Forward(ctx)
	case "back":
		snap, err = sess.Back(ctx)
	case "seek":
		snap, err = sess.Seek(ctx, req.GetInt("step", 0))
	case "play":
		if _, err = sess.Play(ctx); err == nil {
			snap, err = sess.Snapshot()
		}
	case "pause":
		sess.Pause(ctx)
		snap, err = sess.Snapshot()
	case "reset":
		sess.Reset(ctx)
		return marshalResult(newFrameResult(sess.Info(), nil, false))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}
	if err != nil {
		return toolError(action+" failed", err), nil
	}
	return marshalResult(newFrameResult(sess.Info(), snap, req.GetBool("include_nodes", false)))
}

// handleEvents filters a run's event log with expr and projects it with jq.
func (s *RecvizServer) handleEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tr, err := s.resolveTrace(req)
	if err != nil {
		return toolError("no run to read", err), nil
	}

	events := tr.Events
	if where := req.GetString("where", ""); where != "" {
		events, err = expressions.FilterEvents(ctx, s.filters, where, tr)
		if err != nil {
			return toolError("filter failed", err), nil
		}
	}

	doc := map[string]any{
		"algorithm": tr.Algorithm,
		"input":     tr.Input,
		"calls":     tr.Calls,
		"result":    tr.Result(),
		"events":    events,
	}
	jq := req.GetString("jq", "")
	if jq == "" {
		return marshalResult(doc)
	}
	out, err := s.projector.Project(ctx, jq, doc)
	if err != nil {
		return toolError("projection failed", err), nil
	}
	if len(out) == 1 {
		return marshalResult(out[0])
	}
	return marshalResult(out)
}

// resolveTrace returns the session's loaded run, or simulates algorithm/n.
func (s *RecvizServer) resolveTrace(req mcp.CallToolRequest) (*trace.Trace, error) {
	if id := req.GetString("session_id", ""); id != "" {
		sess, err := s.lookup(id)
		if err != nil {
			return nil, err
		}
		rec, err := sess.Recording()
		if err != nil {
			return nil, err
		}
		return rec.Trace, nil
	}
	name := req.GetString("algorithm", "")
	if name == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "either session_id or algorithm is required")
	}
	alg, err := schema.ParseAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return trace.Run(alg, req.GetInt("n", 0))
}

// handleDiagram draws a session frame in the requested format.
func (s *RecvizServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	format, err := diagram.ParseFormat(req.GetString("format", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.lookup(sessionID)
	if err != nil {
		return toolError("session lookup failed", err), nil
	}
	rec, err := sess.Recording()
	if err != nil {
		return toolError("no run loaded", err), nil
	}

	var snap *player.Snapshot
	if step := req.GetInt("step", -1); step >= 0 {
		snap, err = sess.FrameAt(step)
	} else {
		snap, err = sess.Snapshot()
	}
	if err != nil {
		return toolError("frame failed", err), nil
	}

	model, err := diagram.Build(rec.Trace, rec.Layout, snap)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram build failed: %v", err)), nil
	}
	model.Theme = s.theme(ctx)

	out, err := diagram.Render(ctx, model, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("diagram render failed: %v", err)), nil
	}
	if format == diagram.FormatPNG {
		encoded := base64.StdEncoding.EncodeToString(out)
		return mcp.NewToolResultImage(model.Banner, encoded, format.ContentType()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handlePreferences reads the preferences, or stores a new theme.
func (s *RecvizServer) handlePreferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("preferences are not persisted"), nil
	}
	if raw := req.GetString("theme", ""); raw != "" {
		theme, err := schema.ParseTheme(raw)
		if err != nil {
			return toolError("invalid theme", err), nil
		}
		if err := s.store.SetTheme(ctx, theme); err != nil {
			return toolError("save theme failed", err), nil
		}
	}
	prefs, err := s.store.ListPreferences(ctx)
	if err != nil {
		return toolError("list preferences failed", err), nil
	}
	return marshalResult(map[string]any{
		"theme":       s.theme(ctx),
		"preferences": prefs,
	})
}

// --- Helpers ---

func (s *RecvizServer) lookup(id string) (*session.Session, error) {
	if s.sessions == nil {
		return nil, schema.NewError(schema.ErrCodeNotFound, "sessions are not available")
	}
	return s.sessions.Get(id)
}

// theme reads the theme preference, falling back to dark.
func (s *RecvizServer) theme(ctx context.Context) schema.Theme {
	if s.store == nil {
		return schema.ThemeDark
	}
	theme, err := s.store.Theme(ctx)
	if err != nil {
		logging.LogWith(ctx, s.logger).Warn("read theme preference", "error", err)
		return schema.ThemeDark
	}
	return theme
}

// captureSession maps the playback session to the calling MCP client.
func (s *RecvizServer) captureSession(ctx context.Context, sessionID string) {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		s.clients.Register(sessionID, cs.SessionID())
	}
}

// toolError renders a domain error with its code so agents can branch on it.
func toolError(prefix string, err error) *mcp.CallToolResult {
	var re *schema.RecvizError
	if errors.As(err, &re) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: [%s] %s", prefix, re.Code, re.Message))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
