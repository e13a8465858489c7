package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func usage(w io.Writer) {
	fmt.Fprint(w, `recviz: step through the call tree of a recursive algorithm

Usage:
  recviz algorithms                     list the problem catalog
  recviz trace  -algorithm A -n N       print the event log
  recviz render -algorithm A -n N       draw one step as ascii, mermaid, png or svg
  recviz serve                          run the web panel, SSE and the MCP SSE transport
  recviz mcp                            run the MCP server over stdio
  recviz version                        print the build version

Run "recviz <command> -h" for command flags.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "algorithms":
		err = runAlgorithms(os.Stdout)
	case "trace":
		err = runTrace(ctx, args, os.Stdout, os.Stderr)
	case "render":
		err = runRender(ctx, args, os.Stdout, os.Stderr)
	case "serve":
		err = runServe(ctx, args, os.Stderr)
	case "mcp":
		err = runMCP(ctx, args, os.Stderr)
	case "version", "--version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
