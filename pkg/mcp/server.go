package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/recviz/internal/expressions"
	"github.com/rendis/recviz/internal/session"
	"github.com/rendis/recviz/internal/store"
	"github.com/rendis/recviz/internal/streaming"
	"github.com/rendis/recviz/internal/validation"
)

// RecvizServerDeps holds the dependencies for creating a RecvizServer.
type RecvizServerDeps struct {
	Sessions  *session.Manager
	Store     store.Store
	Hub       streaming.EventHub
	Validator *validation.RequestValidator
	Filters   expressions.Engine
	Projector *expressions.GoJQEngine
	Logger    *slog.Logger
}

// RecvizServer wraps an MCP server with recviz-specific tool handlers.
type RecvizServer struct {
	sessions  *session.Manager
	store     store.Store
	hub       streaming.EventHub
	validator *validation.RequestValidator
	filters   expressions.Engine
	projector *expressions.GoJQEngine
	logger    *slog.Logger
	clients   *SessionRegistry
	notifier  *MCPNotifier
	mcpServer *server.MCPServer
}

// NewRecvizServer creates a new RecvizServer with all 6 tools registered.
func NewRecvizServer(deps RecvizServerDeps) *RecvizServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Filters == nil {
		deps.Filters = expressions.NewExprEngine()
	}
	if deps.Projector == nil {
		deps.Projector = expressions.NewGoJQEngine()
	}

	s := &RecvizServer{
		sessions:  deps.Sessions,
		store:     deps.Store,
		hub:       deps.Hub,
		validator: deps.Validator,
		filters:   deps.Filters,
		projector: deps.Projector,
		logger:    logger,
		clients:   NewSessionRegistry(),
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, cs server.ClientSession) {
		s.clients.Remove(cs.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"recviz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("recviz records the call tree of a recursive algorithm (factorial, fibonacci, hanoi) and replays it step by step. Use recviz.algorithms to list problems, recviz.run to load a run into a session, recviz.step to move the playhead or control autoplay, recviz.events to filter and project the event log, recviz.diagram to draw the current frame, and recviz.preferences to read or change the theme."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.clients)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *RecvizServer) Serve(ctx context.Context) error {
	s.startRelay(ctx)
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// SSEHandler returns an SSE transport for mounting next to the panel. The
// caller must also call StartRelay so autoplay events reach connected
// clients.
func (s *RecvizServer) SSEHandler(baseURL string) http.Handler {
	return server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))
}

// ServeSSE runs the SSE transport on its own listener until ctx is done.
func (s *RecvizServer) ServeSSE(ctx context.Context, addr, baseURL string) error {
	s.startRelay(ctx)
	srv := &http.Server{Addr: addr, Handler: s.SSEHandler(baseURL), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// StartRelay forwards session events from the hub to the MCP clients that
// loaded those sessions, until ctx is done.
func (s *RecvizServer) StartRelay(ctx context.Context) {
	s.startRelay(ctx)
}

func (s *RecvizServer) startRelay(ctx context.Context) {
	if s.hub == nil {
		return
	}
	go Relay(ctx, s.hub, s.notifier, s.logger)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *RecvizServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 6 registered MCP tools as ServerTool entries.
func (s *RecvizServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: algorithmsTool(), Handler: s.handleAlgorithms},
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: stepTool(), Handler: s.handleStep},
		{Tool: eventsTool(), Handler: s.handleEvents},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: preferencesTool(), Handler: s.handlePreferences},
	}
}

// --- Tool definitions ---

func algorithmsTool() mcp.Tool {
	return mcp.NewTool("recviz.algorithms",
		mcp.WithDescription("List the recursive problems that can be visualized"),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("recviz.run",
		mcp.WithDescription("Simulate a recursive algorithm and load the run into a playback session"),
		mcp.WithString("algorithm", mcp.Required(),
			mcp.Enum("factorial", "fibonacci", "hanoi"),
			mcp.Description("Algorithm to simulate"),
		),
		mcp.WithNumber("n", mcp.Required(), mcp.Description("Problem size (factorial 1-10, fibonacci 1-8, hanoi 1-6)")),
		mcp.WithString("session_id", mcp.Description("Existing session to load the run into (default: a new session)")),
		mcp.WithString("breakpoint", mcp.Description("CEL condition over event that pauses autoplay, e.g. event.kind == \"return\" && event.result > 10")),
		mcp.WithBoolean("autoplay", mcp.Description("Start autoplay right after loading")),
	)
}

func stepTool() mcp.Tool {
	return mcp.NewTool("recviz.step",
		mcp.WithDescription("Move a session's playhead or control its autoplay"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Target session")),
		mcp.WithString("action", mcp.Required(),
			mcp.Enum("frame", "forward", "back", "seek", "play", "pause", "reset"),
			mcp.Description("Playback action"),
		),
		mcp.WithNumber("step", mcp.Description("Target step for seek (clamped to the log)")),
		mcp.WithBoolean("include_nodes", mcp.Description("Include every node and edge of the frame")),
	)
}

func eventsTool() mcp.Tool {
	return mcp.NewTool("recviz.events",
		mcp.WithDescription("Filter a run's event log with an expr condition and optionally project it with jq"),
		mcp.WithString("session_id", mcp.Description("Session whose run to read")),
		mcp.WithString("algorithm", mcp.Description("Algorithm to simulate when no session_id is given")),
		mcp.WithNumber("n", mcp.Description("Problem size when no session_id is given")),
		mcp.WithString("where", mcp.Description("expr condition over event, e.g. event.kind == \"return\" && event.depth > 2")),
		mcp.WithString("jq", mcp.Description("jq filter over {algorithm, input, calls, result, events}")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("recviz.diagram",
		mcp.WithDescription("Draw the call tree of a session at a step. Returns ASCII art, Mermaid syntax, SVG markup, or a PNG image"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session to draw")),
		mcp.WithNumber("step", mcp.Description("Step to draw (default: the playhead)")),
		mcp.WithString("format",
			mcp.Enum("ascii", "mermaid", "png", "svg"),
			mcp.Description("Output format (default: ascii)"),
		),
	)
}

func preferencesTool() mcp.Tool {
	return mcp.NewTool("recviz.preferences",
		mcp.WithDescription("Read the display preferences, or set the theme"),
		mcp.WithString("theme",
			mcp.Enum("light", "dark"),
			mcp.Description("New theme (omit to read)"),
		),
	)
}
