package layout

import (
	"math"

	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// Point is a screen coordinate.
type Point = trace.Point

// Compute lays out the tree rooted at root for the given algorithm.
//
// It runs four passes over a private copy of the tree: provisional
// placement from depth and sibling index, contour-based conflict
// resolution between adjacent sibling subtrees, centering of parents over
// their first and last child, and normalization of the cross axis to
// Margin. The input tree is not modified; use Apply to copy the result.
func Compute(root *trace.Node, alg schema.Algorithm) *Result {
	p := ParamsFor(alg)
	res := &Result{
		Algorithm:   alg,
		Orientation: p.Orientation,
		Scale:       1,
		Points:      make(map[string]Point),
		Levels:      make(map[string]int),
	}
	if root == nil {
		return res
	}

	w := clone(root)
	place(w, p, 0, 0)
	resolve(w, p.Gap)
	center(w)
	normalize(w)

	collect(w, p, res)
	return res
}

// clone builds the working copy of a call tree.
func clone(n *trace.Node) *lnode {
	w := &lnode{id: n.ID, children: make([]*lnode, 0, len(n.Children))}
	for _, c := range n.Children {
		w.children = append(w.children, clone(c))
	}
	return w
}

// place is pass 1: pre-order provisional placement. Children sit one Step
// further along the main axis and are spread around the parent's cross
// coordinate, ignoring how wide their subtrees are.
func place(n *lnode, p Params, main, cross float64) {
	n.main, n.cross = main, cross
	n.level = int(math.Floor(main / p.Step))

	k := len(n.children)
	if k == 0 {
		return
	}
	next := main + p.Step

	if p.Orientation == Diagonal && k <= 2 {
		if k == 1 {
			place(n.children[0], p, next, cross)
			return
		}
		place(n.children[0], p, next, cross-p.Spacing)
		place(n.children[1], p, next, cross+p.Spacing)
		return
	}

	start := cross - float64(k-1)*p.Spacing/2
	for i, c := range n.children {
		place(c, p, next, start+float64(i)*p.Spacing)
	}
}

// resolve is pass 2: post-order, so every subtree is already separated
// internally when its parent compares it against its siblings.
func resolve(n *lnode, gap float64) {
	for _, c := range n.children {
		resolve(c, gap)
	}
	if len(n.children) < 2 {
		return
	}
	for i := 1; i < len(n.children); i++ {
		sep := separation(farContour(n.children[i-1]), nearContour(n.children[i]), gap)
		if sep <= 0 {
			continue
		}
		for _, c := range n.children[i:] {
			shift(c, sep)
		}
	}
}

// center is pass 3: each parent moves to the midpoint of its first and
// last child. Leaves keep their coordinate.
func center(n *lnode) {
	for _, c := range n.children {
		center(c)
	}
	if k := len(n.children); k > 0 {
		n.cross = (n.children[0].cross + n.children[k-1].cross) / 2
	}
}

// normalize is pass 4.
func normalize(root *lnode) {
	if m := minCross(root); m < Margin {
		shift(root, Margin-m)
	}
}

func collect(n *lnode, p Params, res *Result) {
	res.Points[n.id] = p.point(n.main, n.cross)
	res.Levels[n.id] = n.level
	res.Order = append(res.Order, n.id)
	for _, c := range n.children {
		collect(c, p, res)
	}
}
