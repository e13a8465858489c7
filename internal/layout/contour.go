package layout

import "math"

// lnode is the private working copy a layout pass mutates. Coordinates are
// kept in (main, cross) form so the passes are orientation-agnostic.
type lnode struct {
	id       string
	main     float64
	cross    float64
	level    int
	children []*lnode
}

// contour returns the extreme cross-axis coordinate of the subtree at every
// depth below n, n itself at index 0. pick chooses the extreme.
func contour(n *lnode, pick func(a, b float64) float64) []float64 {
	var c []float64
	var visit func(*lnode, int)
	visit = func(n *lnode, depth int) {
		if len(c) <= depth {
			c = append(c, n.cross)
		} else {
			c[depth] = pick(c[depth], n.cross)
		}
		for _, ch := range n.children {
			visit(ch, depth+1)
		}
	}
	visit(n, 0)
	return c
}

// farContour is the right (or bottom) edge of a subtree.
func farContour(n *lnode) []float64 { return contour(n, math.Max) }

// nearContour is the left (or top) edge of a subtree.
func nearContour(n *lnode) []float64 { return contour(n, math.Min) }

// separation is the distance the right subtree must move so that, on every
// level both contours share, it sits at least gap beyond the left one.
func separation(left, right []float64, gap float64) float64 {
	sep := 0.0
	for i := 0; i < len(left) && i < len(right); i++ {
		sep = math.Max(sep, left[i]-right[i]+gap)
	}
	return sep
}

// shift translates a subtree rigidly along the cross axis.
func shift(n *lnode, amount float64) {
	n.cross += amount
	for _, c := range n.children {
		shift(c, amount)
	}
}

// minCross returns the smallest cross-axis coordinate of a subtree.
func minCross(n *lnode) float64 {
	m := n.cross
	for _, c := range n.children {
		m = math.Min(m, minCross(c))
	}
	return m
}
