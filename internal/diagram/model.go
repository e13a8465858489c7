package diagram

import (
	"github.com/rendis/recviz/internal/layout"
	"github.com/rendis/recviz/pkg/schema"
)

// Model is the intermediate representation used by all renderers: one
// frame of a run, with coordinates from the layout engine and visibility
// from the step player.
type Model struct {
	Title       string
	Algorithm   schema.Algorithm
	Orientation layout.Orientation
	Theme       schema.Theme
	Banner      string
	Progress    string
	Stack       []string // call strings, outermost first
	Final       *int
	Nodes       []*Node // pre-order
	Edges       []Edge
}

// Node is one call of the recursion tree.
type Node struct {
	ID         string
	ParentID   string
	Label      string // "n" or "n,rod"
	Call       string // e.g. "hanoi(3, 2)"
	Depth      int
	Level      int
	Visibility schema.Visibility
	Return     *int
	Point      layout.Point
}

// Visible reports whether the node has been created by the frame's step.
func (n *Node) Visible() bool {
	return n.Visibility != schema.VisibilityHidden
}

// Text is the node label with its return value once it is known.
func (n *Node) Text() string {
	if n.Return == nil {
		return n.Label
	}
	return n.Label + " -> " + itoa(*n.Return)
}

// Edge connects a parent call to a child call.
type Edge struct {
	From    string
	To      string
	Phase   schema.EdgePhase
	Visible bool
	Label   string // return value, only on the child's return step
}

// Node looks up a node by ID.
func (m *Model) Node(id string) *Node {
	for _, n := range m.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// VisibleNodes returns the nodes created by the frame's step, pre-order.
func (m *Model) VisibleNodes() []*Node {
	var out []*Node
	for _, n := range m.Nodes {
		if n.Visible() {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges returns the edges drawn at the frame's step.
func (m *Model) VisibleEdges() []Edge {
	var out []Edge
	for _, e := range m.Edges {
		if e.Visible {
			out = append(out, e)
		}
	}
	return out
}
