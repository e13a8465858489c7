// Package player derives what a renderer shows at one step of a recorded
// run. Every query rescans the full event log; nothing is carried over
// between steps, so stepping forward, backward or jumping anywhere always
// yields the same frame for the same step.
package player

import (
	"fmt"

	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// NodeView is the per-step state of one call node.
type NodeView struct {
	ID         string            `json:"id"`
	ParentID   string            `json:"parent_id,omitempty"`
	Label      string            `json:"label"`
	Call       string            `json:"call"`
	Depth      int               `json:"depth"`
	Visibility schema.Visibility `json:"visibility"`
	Return     *int              `json:"return,omitempty"` // set once the return event is at or before the step
	Coord      *trace.Point      `json:"coord,omitempty"`
	CallStep   int               `json:"call_step"`
	ReturnStep int               `json:"return_step"` // -1 if the log holds no return for the node
}

// Visible reports whether the node has been created by the step.
func (v NodeView) Visible() bool {
	return v.Visibility != schema.VisibilityHidden
}

// Window is the closed range of steps during which an edge is drawn.
type Window struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether step falls inside the window.
func (w Window) Contains(step int) bool {
	return step >= w.From && step <= w.To
}

// EdgeView is the per-step state of a parent->child edge. The call edge is
// drawn from the child's call to its return; the return edge from the
// child's return to the end of the log.
type EdgeView struct {
	From         string           `json:"from"`
	To           string           `json:"to"`
	Window       Window           `json:"window"`
	ReturnWindow Window           `json:"return_window"`
	Visible      bool             `json:"visible"`
	Phase        schema.EdgePhase `json:"phase"`
	ReturnValue  *int             `json:"return_value,omitempty"` // only on the child's return step
}

// Snapshot is everything a renderer needs for one step.
type Snapshot struct {
	Step    int                 `json:"step"`
	Total   int                 `json:"total"`
	Calls   int                 `json:"calls"`
	Nodes   map[string]NodeView `json:"nodes"`
	Order   []string            `json:"order"` // node ids, pre-order
	Edges   []EdgeView          `json:"edges"`
	Current *trace.Event        `json:"current,omitempty"`
	Stack   []trace.Frame       `json:"stack"`
	Final   *int                `json:"final,omitempty"` // root result, only on the last step
}

// Clamp limits step to [0, total-1]. An empty log clamps to 0.
func Clamp(step, total int) int {
	if step >= total {
		step = total - 1
	}
	if step < 0 {
		step = 0
	}
	return step
}

// Frame derives the snapshot of the run at step. step is clamped to the
// log; an empty log yields a snapshot with every node hidden.
func Frame(log []trace.Event, root *trace.Node, step int) *Snapshot {
	step = Clamp(step, len(log))
	s := &Snapshot{
		Step:  step,
		Total: len(log),
		Nodes: make(map[string]NodeView),
		Stack: []trace.Frame{},
	}

	callAt := make(map[string]int)
	returnAt := make(map[string]int)
	calls := make(map[string]string)
	for i, e := range log {
		switch e.Kind {
		case schema.EventCall:
			s.Calls++
			if _, seen := callAt[e.NodeID]; !seen {
				callAt[e.NodeID] = i
			}
			if k := len(e.Stack); k > 0 {
				calls[e.NodeID] = e.Stack[k-1].Call
			}
		case schema.EventReturn:
			if _, seen := returnAt[e.NodeID]; !seen {
				returnAt[e.NodeID] = i
			}
		}
	}

	if len(log) > 0 {
		cur := log[step]
		s.Current = &cur
		s.Stack = append(s.Stack, cur.Stack...)
		if step == len(log)-1 && root != nil && root.Return != nil {
			final := *root.Return
			s.Final = &final
		}
	}

	var visit func(n *trace.Node)
	visit = func(n *trace.Node) {
		s.Order = append(s.Order, n.ID)
		s.Nodes[n.ID] = nodeView(n, step, len(log) > 0, callAt, returnAt, calls)
		for _, c := range n.Children {
			s.Edges = append(s.Edges, edgeView(n, c, step, len(log), callAt, returnAt))
			visit(c)
		}
	}
	if root != nil {
		visit(root)
	}
	return s
}

func index(m map[string]int, id string, missing int) int {
	if i, ok := m[id]; ok {
		return i
	}
	return missing
}

func nodeView(n *trace.Node, step int, hasLog bool, callAt, returnAt map[string]int, calls map[string]string) NodeView {
	v := NodeView{
		ID:         n.ID,
		ParentID:   n.ParentID(),
		Label:      n.Label(),
		Call:       calls[n.ID],
		Depth:      n.Depth,
		Coord:      n.Coord,
		CallStep:   index(callAt, n.ID, -1),
		ReturnStep: index(returnAt, n.ID, -1),
	}

	switch {
	case !hasLog || v.CallStep < 0 || v.CallStep > step:
		v.Visibility = schema.VisibilityHidden
	case v.CallStep == step, v.ReturnStep == step:
		v.Visibility = schema.VisibilityActive
	case v.ReturnStep >= 0 && v.ReturnStep < step:
		v.Visibility = schema.VisibilityCompleted
	default:
		v.Visibility = schema.VisibilityPending
	}

	if v.ReturnStep >= 0 && v.ReturnStep <= step && n.Return != nil {
		r := *n.Return
		v.Return = &r
	}
	return v
}

func edgeView(parent, child *trace.Node, step, total int, callAt, returnAt map[string]int) EdgeView {
	w := Window{
		From: index(callAt, child.ID, total),
		To:   index(returnAt, child.ID, total),
	}
	rw := Window{From: w.To, To: total}
	e := EdgeView{
		From:         parent.ID,
		To:           child.ID,
		Window:       w,
		ReturnWindow: rw,
		Visible:      total > 0 && (w.Contains(step) || rw.Contains(step)),
		Phase:        schema.EdgePhaseCall,
	}
	if _, returned := returnAt[child.ID]; returned && step >= w.To {
		e.Phase = schema.EdgePhaseReturn
		if step == w.To && child.Return != nil {
			r := *child.Return
			e.ReturnValue = &r
		}
	}
	return e
}

// Node returns the view of a node, and whether it exists.
func (s *Snapshot) Node(id string) (NodeView, bool) {
	v, ok := s.Nodes[id]
	return v, ok
}

// VisibleNodes returns the ids of every node created by the step, pre-order.
func (s *Snapshot) VisibleNodes() []string {
	var out []string
	for _, id := range s.Order {
		if s.Nodes[id].Visible() {
			out = append(out, id)
		}
	}
	return out
}

// Last reports whether the snapshot is at the final step.
func (s *Snapshot) Last() bool {
	return s.Total > 0 && s.Step == s.Total-1
}

// Banner describes the current event, e.g. "CALLING fibonacci(3)" or
// "RETURNING fibonacci(3) -> 2".
func (s *Snapshot) Banner() string {
	if s.Current == nil {
		return ""
	}
	call := s.Nodes[s.Current.NodeID].Call
	if call == "" {
		call = s.Current.NodeID
	}
	if s.Current.IsCall() {
		return "CALLING " + call
	}
	if s.Current.Result != nil {
		return fmt.Sprintf("RETURNING %s -> %d", call, *s.Current.Result)
	}
	return "RETURNING " + call
}

// Progress renders the stats strip position, e.g. "4 / 10".
func (s *Snapshot) Progress() string {
	total := s.Total
	if total == 0 {
		total = 1
	}
	return fmt.Sprintf("%d / %d", s.Step+1, total)
}
