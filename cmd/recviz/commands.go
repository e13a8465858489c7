package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/rendis/recviz/internal/diagram"
	"github.com/rendis/recviz/internal/expressions"
	"github.com/rendis/recviz/internal/layout"
	"github.com/rendis/recviz/internal/player"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// runAlgorithms prints the problem catalog.
func runAlgorithms(stdout io.Writer) error {
	tbl := tablewriter.NewWriter(stdout)
	tbl.SetHeader([]string{"Algorithm", "Title", "Input", "Level", "Concepts"})
	tbl.SetAutoWrapText(false)
	for _, p := range trace.Problems() {
		tbl.Append([]string{
			p.Algorithm.String(),
			p.Title,
			fmt.Sprintf("%d-%d", p.MinInput, p.MaxInput),
			p.Complexity,
			strings.Join(p.Concepts, ", "),
		})
	}
	tbl.Render()
	return nil
}

// runFlags are the run selection flags shared by trace and render.
type runFlags struct {
	algorithm string
	n         int
	limit     int
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.algorithm, "algorithm", "fibonacci", "factorial, fibonacci or hanoi")
	fs.IntVar(&f.n, "n", 4, "problem size")
	fs.IntVar(&f.limit, "limit", trace.DefaultCallLimit, "maximum recursive calls")
}

func (f *runFlags) run() (*trace.Trace, error) {
	alg, err := schema.ParseAlgorithm(f.algorithm)
	if err != nil {
		return nil, err
	}
	return trace.Run(alg, f.n, trace.WithCallLimit(f.limit))
}

// traceDocument is the JSON form of a run printed by trace -json and
// queried by trace -jq.
func traceDocument(tr *trace.Trace, events []trace.Event) map[string]any {
	return map[string]any{
		"algorithm": tr.Algorithm,
		"input":     tr.Input,
		"calls":     tr.Calls,
		"result":    tr.Result(),
		"height":    tr.Height(),
		"events":    events,
	}
}

// runTrace simulates a run and prints its event log.
func runTrace(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rf runFlags
	rf.register(fs)
	where := fs.String("where", "", `expr condition over event, e.g. event.kind == "return"`)
	jq := fs.String("jq", "", "jq filter over {algorithm, input, calls, result, height, events}")
	asJSON := fs.Bool("json", false, "print the run as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tr, err := rf.run()
	if err != nil {
		return err
	}

	events := tr.Events
	if *where != "" {
		events, err = expressions.FilterEvents(ctx, expressions.NewExprEngine(), *where, tr)
		if err != nil {
			return err
		}
	}

	switch {
	case *jq != "":
		out, err := expressions.NewGoJQEngine().Project(ctx, *jq, traceDocument(tr, events))
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		for _, v := range out {
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	case *asJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(traceDocument(tr, events))
	}

	printEvents(stdout, tr, events)
	fmt.Fprintf(stdout, "calls=%d result=%d height=%d events=%d\n", tr.Calls, tr.Result(), tr.Height(), len(tr.Events))
	return nil
}

func printEvents(w io.Writer, tr *trace.Trace, events []trace.Event) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Step", "Kind", "Node", "Call", "Depth", "Result", "Stack"})
	tbl.SetAutoWrapText(false)
	for _, e := range events {
		call, depth := e.NodeID, ""
		if n := tr.Node(e.NodeID); n != nil {
			call = tr.Signature(n)
			depth = strconv.Itoa(n.Depth)
		}
		result := ""
		if e.Result != nil {
			result = strconv.Itoa(*e.Result)
		}
		stack := make([]string, 0, len(e.Stack))
		for _, f := range e.Stack {
			stack = append(stack, f.Call)
		}
		tbl.Append([]string{
			strconv.Itoa(e.Step),
			string(e.Kind),
			e.NodeID,
			call,
			depth,
			result,
			strings.Join(stack, " > "),
		})
	}
	tbl.Render()
}

// runRender draws one step of a run.
func runRender(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var rf runFlags
	rf.register(fs)
	step := fs.Int("step", -1, "step to draw (default: the last step)")
	formatName := fs.String("format", "ascii", "ascii, mermaid, png or svg")
	themeName := fs.String("theme", "dark", "light or dark")
	out := fs.String("o", "", "output file (required for png)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := diagram.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	theme, err := schema.ParseTheme(*themeName)
	if err != nil {
		return err
	}
	if format == diagram.FormatPNG && *out == "" {
		return errors.New("png output needs -o FILE")
	}

	tr, err := rf.run()
	if err != nil {
		return err
	}
	res := layout.Layout(tr)
	at := *step
	if at < 0 {
		at = len(tr.Events) - 1
	}
	snap := player.Frame(tr.Events, tr.Root, at)

	model, err := diagram.Build(tr, res, snap)
	if err != nil {
		return err
	}
	model.Theme = theme

	data, err := diagram.Render(ctx, model, format)
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(stderr, "wrote %s (%s, step %d/%d)\n", *out, format, snap.Step+1, snap.Total)
	return nil
}
