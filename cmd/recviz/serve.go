package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/recviz/internal/expressions"
	"github.com/rendis/recviz/internal/logging"
	"github.com/rendis/recviz/internal/metrics"
	"github.com/rendis/recviz/internal/panel"
	"github.com/rendis/recviz/internal/scheduler"
	"github.com/rendis/recviz/internal/session"
	"github.com/rendis/recviz/internal/store"
	"github.com/rendis/recviz/internal/streaming"
	"github.com/rendis/recviz/internal/validation"
	recvizmcp "github.com/rendis/recviz/pkg/mcp"
)

// runtimeDeps is everything the process wires once and shares across
// handler rebuilds.
type runtimeDeps struct {
	validator *validation.RequestValidator
	store     store.Store
	hub       *streaming.MemoryHub
	metrics   *metrics.Metrics
	sessions  *session.Manager
	mcp       *recvizmcp.RecvizServer
	mcpSSE    http.Handler
	logger    *slog.Logger
}

// wire builds the shared dependencies. The store is optional: when it
// cannot be opened preferences fall back to their defaults.
func wire(ctx context.Context, cfg Config, cel *expressions.CELEngine, rv *validation.RequestValidator, logger *slog.Logger) (*runtimeDeps, func()) {
	d := &runtimeDeps{
		validator: rv,
		hub:       streaming.NewMemoryHub(),
		metrics:   metrics.New(),
		logger:    logger,
	}

	var closers []func()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("preferences store unavailable", slog.String("db_path", cfg.DBPath), slog.String("error", err.Error()))
	} else {
		d.store = st
		closers = append(closers, func() { _ = st.Close() })
	}

	d.sessions = session.NewManager(session.Deps{
		Hub:         d.hub,
		Breakpoints: cel,
		Metrics:     d.metrics,
		Logger:      logger,
		Interval:    cfg.Interval(),
	})
	closers = append(closers, func() { d.sessions.CloseAll(context.Background()) })

	d.mcp = recvizmcp.NewRecvizServer(recvizmcp.RecvizServerDeps{
		Sessions:  d.sessions,
		Store:     d.store,
		Hub:       d.hub,
		Validator: rv,
		Logger:    logger,
	})

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return d, cleanup
}

// newValidator builds the CEL engine shared by breakpoints and request
// validation.
func newValidator() (*expressions.CELEngine, *validation.RequestValidator, error) {
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, nil, fmt.Errorf("cel engine: %w", err)
	}
	rv, err := validation.NewRequestValidator(cel)
	if err != nil {
		return nil, nil, fmt.Errorf("request validator: %w", err)
	}
	return cel, rv, nil
}

func openStore(ctx context.Context, cfg Config) (*store.LibSQLStore, error) {
	if !strings.Contains(cfg.DBPath, "://") {
		if err := os.MkdirAll(filepath.Dir(strings.TrimPrefix(cfg.DBPath, "file:")), 0o700); err != nil {
			return nil, err
		}
	}
	st, err := store.NewLibSQLStore(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

// buildHandler assembles the HTTP surface for cfg: MCP over SSE always,
// the panel (which carries /metrics) when enabled, /metrics alone otherwise.
func buildHandler(cfg Config, d *runtimeDeps) http.Handler {
	mux := http.NewServeMux()
	if d.mcpSSE != nil {
		mux.Handle("/sse", d.mcpSSE)
		mux.Handle("/message", d.mcpSSE)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "ok sessions=%d\n", d.sessions.Len())
	})

	if cfg.Panel {
		srv := panel.NewPanelServer(panel.PanelDeps{
			Sessions:  d.sessions,
			Store:     d.store,
			Hub:       d.hub,
			Validator: d.validator,
			Metrics:   d.metrics,
			Logger:    d.logger,
		})
		mux.Handle("/", srv.Handler())
	} else {
		mux.Handle("GET /metrics", d.metrics.Handler())
	}
	return mux
}

func baseURL(listenAddr string) string {
	if strings.HasPrefix(listenAddr, ":") {
		return "http://localhost" + listenAddr
	}
	return "http://" + listenAddr
}

// runServe runs the panel, the MCP SSE transport and the session janitor
// until ctx is cancelled. SIGHUP reloads settings.json.
func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	listenAddr := fs.String("listen-addr", "", "TCP listen address (overrides settings)")
	noPanel := fs.Bool("no-panel", false, "serve MCP and metrics only")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cel, rv, err := newValidator()
	if err != nil {
		return err
	}
	cfg, cfgErr := loadConfig(rv)
	applyServeFlags(&cfg, *listenAddr, *noPanel)
	if err := cfg.validate(); err != nil {
		return err
	}

	var level slog.LevelVar
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewLeveled(stderr, &level)
	if cfgErr != nil {
		logger.Warn("ignoring invalid settings", slog.String("error", cfgErr.Error()))
	}

	d, cleanup := wire(ctx, cfg, cel, rv, logger)
	defer cleanup()

	d.mcpSSE = d.mcp.SSEHandler(baseURL(cfg.ListenAddr))
	d.mcp.StartRelay(ctx)

	janitor := scheduler.NewJanitor(d.sessions, cfg.TTL(), scheduler.DefaultEvery, logger)
	if err := janitor.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = janitor.Stop() }()

	swapper := newHandlerSwapper(buildHandler(cfg, d))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           swapper,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("recviz serving",
		slog.String("addr", cfg.ListenAddr),
		slog.Bool("panel", cfg.Panel),
		slog.String("mcp_sse", baseURL(cfg.ListenAddr)+"/sse"),
		slog.Duration("autoplay_interval", cfg.Interval()),
		slog.Duration("session_ttl", cfg.TTL()),
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-hup:
			next, err := loadConfig(rv)
			if err != nil {
				logger.Warn("reload skipped: invalid settings", slog.String("error", err.Error()))
				continue
			}
			applyServeFlags(&next, *listenAddr, *noPanel)
			diff := diffConfigs(cfg, next)
			if diff.LogLevelChanged {
				level.Set(logging.ParseLevel(next.LogLevel))
				cfg.LogLevel = next.LogLevel
			}
			if diff.PanelChanged {
				cfg.Panel = next.Panel
				swapper.Swap(buildHandler(cfg, d))
			}
			if diff.TTLChanged {
				_ = janitor.Stop()
				janitor = scheduler.NewJanitor(d.sessions, next.TTL(), scheduler.DefaultEvery, logger)
				if err := janitor.Start(ctx); err != nil {
					logger.Error("janitor restart failed", slog.String("error", err.Error()))
				}
				cfg.SessionTTL = next.SessionTTL
			}
			if len(diff.RestartNeeded) > 0 {
				logger.Warn("settings changed that need a restart", slog.Any("fields", diff.RestartNeeded))
			}
			logger.Info("settings reloaded", slog.Bool("panel", cfg.Panel), slog.String("log_level", cfg.LogLevel))
		}
	}
}

func applyServeFlags(cfg *Config, listenAddr string, noPanel bool) {
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if noPanel {
		cfg.Panel = false
	}
}
