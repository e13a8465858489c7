package trace

import (
	"strconv"

	"github.com/rendis/recviz/pkg/schema"
)

// Point is a 2-D coordinate assigned by the layout engine.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one invocation of the simulated recursive function.
//
// Children is the owning collection, in call order. Parent is a back-pointer
// used for lookups only; it is never followed to order or visit the tree.
type Node struct {
	ID       string           `json:"id"`
	Args     []int            `json:"args"`
	Return   *int             `json:"return,omitempty"`
	State    schema.NodeState `json:"state"`
	Depth    int              `json:"depth"`
	Coord    *Point           `json:"coord,omitempty"`
	Parent   *Node            `json:"-"`
	Children []*Node          `json:"children,omitempty"`
}

// Completed reports whether the call has returned.
func (n *Node) Completed() bool {
	return n.Return != nil
}

// IsLeaf reports whether the call issued no recursive calls.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// ParentID returns the parent's id, or "" for the root.
func (n *Node) ParentID() string {
	if n.Parent == nil {
		return ""
	}
	return n.Parent.ID
}

// Label is the short text drawn inside a node: "n", or "n,rod" when the call
// carries a destination rod.
func (n *Node) Label() string {
	if len(n.Args) >= 2 {
		return strconv.Itoa(n.Args[0]) + "," + strconv.Itoa(n.Args[1])
	}
	if len(n.Args) == 1 {
		return strconv.Itoa(n.Args[0])
	}
	return ""
}

// walk visits n and its descendants in pre-order; fn returning false prunes
// the subtree below the visited node.
func walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		walk(c, fn)
	}
}

func nodeID(seq int) string {
	return "node_" + strconv.Itoa(seq)
}
