package expressions

import (
	"context"

	"github.com/rendis/recviz/internal/trace"
)

// Scope variable names.
const (
	ScopeEvent = "event"
	ScopeRun   = "run"
)

// EventScope builds the data an expression sees for one event of a run:
//
//	event: step, kind, node_id, call, args, n, rod, result, depth, stack
//	run:   algorithm, input, calls, events, result
//
// args are the node's arguments on both call and return events; rod is -1
// for single-argument algorithms and result is nil on call events.
func EventScope(tr *trace.Trace, e trace.Event) map[string]any {
	args := e.Args
	depth := len(e.Stack) - 1
	if node := tr.Node(e.NodeID); node != nil {
		args = node.Args
		depth = node.Depth
	}

	argv := make([]any, len(args))
	for i, a := range args {
		argv[i] = a
	}
	n, rod := 0, -1
	if len(args) > 0 {
		n = args[0]
	}
	if len(args) > 1 {
		rod = args[1]
	}

	stack := make([]any, len(e.Stack))
	for i, f := range e.Stack {
		stack[i] = f.Call
	}

	var result any
	if e.Result != nil {
		result = *e.Result
	}

	return map[string]any{
		ScopeEvent: map[string]any{
			"step":    e.Step,
			"kind":    string(e.Kind),
			"node_id": e.NodeID,
			"call":    trace.Signature(tr.Algorithm, args),
			"args":    argv,
			"n":       n,
			"rod":     rod,
			"result":  result,
			"depth":   depth,
			"stack":   stack,
		},
		ScopeRun: RunScope(tr),
	}
}

// RunScope returns the run-level metadata of a trace.
func RunScope(tr *trace.Trace) map[string]any {
	return map[string]any{
		"algorithm": string(tr.Algorithm),
		"input":     tr.Input,
		"calls":     tr.Calls,
		"events":    len(tr.Events),
		"result":    tr.Result(),
	}
}

// FilterEvents returns the events of tr for which expression is true.
func FilterEvents(ctx context.Context, e Engine, expression string, tr *trace.Trace) ([]trace.Event, error) {
	var out []trace.Event
	for _, ev := range tr.Events {
		ok, err := EvaluateBool(ctx, e, expression, EventScope(tr, ev))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

// FirstMatch returns the index of the first event in [from, to] for which
// expression holds, or -1. Evaluation errors on individual events count as
// no match; compile errors are returned.
func FirstMatch(ctx context.Context, e Engine, expression string, tr *trace.Trace, from, to int) (int, error) {
	if from < 0 {
		from = 0
	}
	if to >= len(tr.Events) {
		to = len(tr.Events) - 1
	}
	for i := from; i <= to; i++ {
		ok, err := EvaluateBool(ctx, e, expression, EventScope(tr, tr.Events[i]))
		if err != nil {
			if isCompileError(err) {
				return -1, err
			}
			continue
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}
