package layout

import (
	"math"

	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// Result holds the coordinates computed for one tree.
type Result struct {
	Algorithm   schema.Algorithm `json:"algorithm"`
	Orientation Orientation      `json:"orientation"`
	Scale       float64          `json:"scale"`
	Points      map[string]Point `json:"points"`
	Levels      map[string]int   `json:"levels"`
	Order       []string         `json:"order"` // node ids, pre-order
}

// Point returns the coordinate of a node.
func (r *Result) Point(id string) (Point, bool) {
	p, ok := r.Points[id]
	return p, ok
}

// Level returns the layout level of a node: its provisional main-axis
// coordinate divided by the orientation's step, or -1 if the node is unknown.
func (r *Result) Level(id string) int {
	if l, ok := r.Levels[id]; ok {
		return l
	}
	return -1
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Bounds returns the bounding box of every point. An empty result has a
// zero box.
func (r *Result) Bounds() Bounds {
	return bounds(r.Points)
}

func bounds(points map[string]Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, p := range points {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// ScaleFor returns the shrink factor for a tree of the given call count:
// 1 - calls/limit*ScaleFactor, clamped to [MinScale, MaxScale].
func ScaleFor(calls, limit int) float64 {
	if limit <= 0 {
		return MaxScale
	}
	s := 1 - float64(calls)/float64(limit)*ScaleFactor
	return math.Min(MaxScale, math.Max(MinScale, s))
}

// Fit returns a copy of res scaled for the call count and translated onto
// Anchor. Relative positions are preserved.
func Fit(res *Result, calls, limit int) *Result {
	scale := ScaleFor(calls, limit)
	out := &Result{
		Algorithm:   res.Algorithm,
		Orientation: res.Orientation,
		Scale:       res.Scale * scale,
		Points:      make(map[string]Point, len(res.Points)),
		Levels:      make(map[string]int, len(res.Levels)),
		Order:       append([]string(nil), res.Order...),
	}
	for id, l := range res.Levels {
		out.Levels[id] = l
	}
	for id, p := range res.Points {
		out.Points[id] = Point{X: p.X * scale, Y: p.Y * scale}
	}

	b := bounds(out.Points)
	dx := Anchor.X - (b.MinX + b.Width()/2)
	dy := Anchor.Y - b.MinY
	for id, p := range out.Points {
		out.Points[id] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	return out
}

// Layout computes and fits the layout of a whole trace.
func Layout(t *trace.Trace) *Result {
	return Fit(Compute(t.Root, t.Algorithm), t.Calls, trace.DefaultCallLimit)
}

// Apply writes the coordinates of res into the tree. Nodes missing from
// res are left untouched.
func Apply(root *trace.Node, res *Result) {
	if root == nil {
		return
	}
	if p, ok := res.Points[root.ID]; ok {
		root.Coord = &Point{X: p.X, Y: p.Y}
	}
	for _, c := range root.Children {
		Apply(c, res)
	}
}
