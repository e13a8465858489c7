package trace

import (
	"errors"

	"github.com/rendis/recviz/pkg/schema"
)

// Trace is the complete result of one simulation: the call tree and the
// ordered event log. It is read-only once returned.
type Trace struct {
	Algorithm schema.Algorithm `json:"algorithm"`
	Input     int              `json:"input"`
	Root      *Node            `json:"root"`
	Events    []Event          `json:"events"`
	Calls     int              `json:"calls"`
	Limit     int              `json:"limit"`

	nodes []*Node
	index map[string]*Node
}

// Option configures a simulation.
type Option func(*options)

type options struct {
	limit int
}

// WithCallLimit overrides DefaultCallLimit.
func WithCallLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// Run validates n against the catalog and simulates the algorithm.
func Run(alg schema.Algorithm, n int, opts ...Option) (*Trace, error) {
	p, err := LookupProblem(alg)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(n); err != nil {
		return nil, err
	}
	return Simulate(alg, n, opts...)
}

// Simulate runs the instrumented recursion without applying the catalog's
// input range. When the call ceiling is crossed the whole pass is discarded
// and only the error is returned.
func Simulate(alg schema.Algorithm, n int, opts ...Option) (*Trace, error) {
	sim, ok := simulations[alg]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown algorithm %q", alg)
	}
	if n < 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "input must be non-negative").
			WithDetails(map[string]any{"input": n})
	}

	o := options{limit: DefaultCallLimit}
	for _, opt := range opts {
		opt(&o)
	}

	rec := newRecorder(alg, o.limit)
	if _, err := sim(rec, n); err != nil {
		var re *schema.RecvizError
		if errors.As(err, &re) && re.Details != nil {
			re.Details["input"] = n
		}
		return nil, err
	}

	t := &Trace{
		Algorithm: alg,
		Input:     n,
		Root:      rec.root,
		Events:    rec.events,
		Calls:     rec.calls,
		Limit:     o.limit,
		nodes:     rec.nodes,
		index:     make(map[string]*Node, len(rec.nodes)),
	}
	for _, node := range rec.nodes {
		t.index[node.ID] = node
	}
	return t, nil
}

// Node returns the node with the given id, or nil.
func (t *Trace) Node(id string) *Node {
	return t.index[id]
}

// Nodes returns every node in id (call) order.
func (t *Trace) Nodes() []*Node {
	return t.nodes
}

// Walk visits the tree in pre-order. Returning false from fn skips the
// visited node's subtree.
func (t *Trace) Walk(fn func(*Node) bool) {
	walk(t.Root, fn)
}

// Height is the number of levels of the call tree.
func (t *Trace) Height() int {
	return height(t.Root)
}

// Result is the root call's return value.
func (t *Trace) Result() int {
	if t.Root == nil || t.Root.Return == nil {
		return 0
	}
	return *t.Root.Return
}

// Signature renders the call string for a node of this trace.
func (t *Trace) Signature(n *Node) string {
	return Signature(t.Algorithm, n.Args)
}

func height(n *Node) int {
	if n == nil {
		return 0
	}
	h := 0
	for _, c := range n.Children {
		if ch := height(c); ch > h {
			h = ch
		}
	}
	return h + 1
}
