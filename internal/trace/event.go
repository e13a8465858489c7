package trace

import "github.com/rendis/recviz/pkg/schema"

// Frame is one entry of the live call stack: the node and its call string,
// e.g. "fibonacci(3)".
type Frame struct {
	NodeID string `json:"node_id"`
	Call   string `json:"call"`
}

// Event is one call or return in the execution log.
type Event struct {
	Step   int              `json:"step"`
	NodeID string           `json:"node_id"`
	Kind   schema.EventKind `json:"kind"`
	Args   []int            `json:"args,omitempty"`
	Result *int             `json:"result,omitempty"`
	Stack  []Frame          `json:"stack"`
}

// IsCall reports whether the event records a call.
func (e Event) IsCall() bool { return e.Kind == schema.EventCall }

// IsReturn reports whether the event records a return.
func (e Event) IsReturn() bool { return e.Kind == schema.EventReturn }

// StackIDs returns the node ids of the stack snapshot, outermost first.
func (e Event) StackIDs() []string {
	ids := make([]string, len(e.Stack))
	for i, f := range e.Stack {
		ids[i] = f.NodeID
	}
	return ids
}

// OnStack reports whether the node was live when the event was recorded.
func (e Event) OnStack(nodeID string) bool {
	for _, f := range e.Stack {
		if f.NodeID == nodeID {
			return true
		}
	}
	return false
}

func snapshot(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	copy(out, frames)
	return out
}
