package trace

import "github.com/rendis/recviz/pkg/schema"

// DefaultCallLimit is the ceiling on simulated calls per run.
const DefaultCallLimit = 256

// recorder accumulates the state of a single simulation pass: the call
// counter, the id sequence, the call-stack tracker, the node stack and the
// event log. A fresh recorder is created for every run and dropped with it.
type recorder struct {
	alg   schema.Algorithm
	limit int

	calls  int
	nextID int

	frames []Frame // call-stack tracker, outermost first
	stack  []*Node // live nodes, parallel to frames

	root   *Node
	nodes  []*Node
	events []Event
}

func newRecorder(alg schema.Algorithm, limit int) *recorder {
	return &recorder{alg: alg, limit: limit}
}

// enter instruments a call: it enforces the ceiling, allocates the node,
// records the call event and links the node under the caller.
func (r *recorder) enter(args ...int) (*Node, error) {
	r.calls++
	if r.calls > r.limit {
		return nil, schema.NewErrorf(schema.ErrCodeLimitExceeded,
			"maximum recursive calls (%d) exceeded: this would create too large a visualization", r.limit).
			WithDetails(map[string]any{"limit": r.limit, "algorithm": string(r.alg)})
	}

	r.nextID++
	node := &Node{
		ID:    nodeID(r.nextID),
		Args:  append([]int(nil), args...),
		State: schema.NodeStateActive,
	}
	r.frames = append(r.frames, Frame{NodeID: node.ID, Call: Signature(r.alg, args)})
	node.Depth = len(r.frames) - 1

	r.events = append(r.events, Event{
		Step:   len(r.events),
		NodeID: node.ID,
		Kind:   schema.EventCall,
		Args:   append([]int(nil), args...),
		Stack:  snapshot(r.frames),
	})

	if len(r.stack) > 0 {
		parent := r.stack[len(r.stack)-1]
		parent.Children = append(parent.Children, node)
		node.Parent = parent
	} else {
		node.State = schema.NodeStateCreated
		r.root = node
	}
	r.stack = append(r.stack, node)
	r.nodes = append(r.nodes, node)
	return node, nil
}

// exit records the return of the node on top of the stack.
func (r *recorder) exit(node *Node, result int) {
	v := result
	node.Return = &v
	node.State = schema.NodeStateCompleted

	r.stack = r.stack[:len(r.stack)-1]
	r.frames = r.frames[:len(r.frames)-1]

	res := result
	r.events = append(r.events, Event{
		Step:   len(r.events),
		NodeID: node.ID,
		Kind:   schema.EventReturn,
		Result: &res,
		Stack:  snapshot(r.frames),
	})
}
