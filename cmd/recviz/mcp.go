package main

import (
	"context"
	"flag"
	"io"
	"log/slog"

	"github.com/rendis/recviz/internal/logging"
	"github.com/rendis/recviz/internal/scheduler"
)

// runMCP serves the MCP tools over stdio. Logs go to stderr; stdout
// belongs to the protocol.
func runMCP(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cel, rv, err := newValidator()
	if err != nil {
		return err
	}
	cfg, cfgErr := loadConfig(rv)

	logger := logging.New(stderr, cfg.LogLevel)
	if cfgErr != nil {
		logger.Warn("ignoring invalid settings", slog.String("error", cfgErr.Error()))
	}

	d, cleanup := wire(ctx, cfg, cel, rv, logger)
	defer cleanup()

	janitor := scheduler.NewJanitor(d.sessions, cfg.TTL(), scheduler.DefaultEvery, logger)
	if err := janitor.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = janitor.Stop() }()

	logger.Info("recviz mcp on stdio")
	return d.mcp.Serve(ctx)
}
