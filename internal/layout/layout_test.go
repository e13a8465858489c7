package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// --- helpers ---

func mustTrace(t testing.TB, alg schema.Algorithm, n int) *trace.Trace {
	t.Helper()
	tr, err := trace.Run(alg, n)
	require.NoError(t, err)
	return tr
}

func num(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// crossOf returns the cross-axis coordinate of a point.
func crossOf(o Orientation, p Point) float64 {
	if o == Horizontal {
		return p.Y
	}
	return p.X
}

// subtreeContour mirrors contour over the final coordinates of a call tree.
func subtreeContour(n *trace.Node, res *Result, pick func(a, b float64) float64) []float64 {
	var c []float64
	var visit func(*trace.Node, int)
	visit = func(n *trace.Node, depth int) {
		v := crossOf(res.Orientation, res.Points[n.ID])
		if len(c) <= depth {
			c = append(c, v)
		} else {
			c[depth] = pick(c[depth], v)
		}
		for _, ch := range n.Children {
			visit(ch, depth+1)
		}
	}
	visit(n, 0)
	return c
}

func allValidInputs() []struct {
	alg schema.Algorithm
	n   int
} {
	var out []struct {
		alg schema.Algorithm
		n   int
	}
	for _, p := range trace.Problems() {
		for n := p.MinInput; n <= p.MaxInput; n++ {
			out = append(out, struct {
				alg schema.Algorithm
				n   int
			}{p.Algorithm, n})
		}
	}
	return out
}

// --- golden coordinates ---

func TestLayoutDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/layout", func(t *testing.T, d *datadriven.TestData) string {
		var name string
		var n int
		d.ScanArgs(t, "algorithm", &name)
		d.ScanArgs(t, "n", &n)
		alg, err := schema.ParseAlgorithm(name)
		require.NoError(t, err)
		tr := mustTrace(t, alg, n)

		var b strings.Builder
		switch d.Cmd {
		case "layout":
			res := Compute(tr.Root, alg)
			tr.Walk(func(node *trace.Node) bool {
				p := res.Points[node.ID]
				fmt.Fprintf(&b, "%s%s %s x=%s y=%s level=%d\n",
					strings.Repeat("  ", node.Depth), node.ID, tr.Signature(node),
					num(p.X), num(p.Y), res.Level(node.ID))
				return true
			})
		case "fit":
			res := Layout(tr)
			fmt.Fprintf(&b, "scale=%s\n", num(res.Scale))
			for _, id := range res.Order {
				p := res.Points[id]
				fmt.Fprintf(&b, "%s x=%s y=%s\n", id, num(p.X), num(p.Y))
			}
			bb := res.Bounds()
			fmt.Fprintf(&b, "bounds=[%s,%s]-[%s,%s]\n", num(bb.MinX), num(bb.MinY), num(bb.MaxX), num(bb.MaxY))
		default:
			d.Fatalf(t, "unknown command %q", d.Cmd)
		}
		return b.String()
	})
}

// --- properties ---

func TestSiblingSubtreesDoNotOverlap(t *testing.T) {
	for _, in := range allValidInputs() {
		tr := mustTrace(t, in.alg, in.n)
		res := Compute(tr.Root, in.alg)
		gap := ParamsFor(in.alg).Gap

		tr.Walk(func(node *trace.Node) bool {
			for i := 1; i < len(node.Children); i++ {
				left := subtreeContour(node.Children[i-1], res, math.Max)
				right := subtreeContour(node.Children[i], res, math.Min)
				for k := 0; k < len(left) && k < len(right); k++ {
					assert.GreaterOrEqual(t, right[k]-left[k], gap,
						"%s(%d): %s children %d/%d level %d", in.alg, in.n, node.ID, i-1, i, k)
				}
			}
			return true
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	for _, in := range allValidInputs() {
		tr := mustTrace(t, in.alg, in.n)
		first := Compute(tr.Root, in.alg)
		second := Compute(tr.Root, in.alg)
		assert.Equal(t, first, second, "%s(%d)", in.alg, in.n)
		assert.Equal(t, Layout(tr), Layout(tr), "%s(%d)", in.alg, in.n)
	}
}

func TestComputeDoesNotTouchTree(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFibonacci, 4)
	Compute(tr.Root, tr.Algorithm)
	for _, node := range tr.Nodes() {
		assert.Nil(t, node.Coord)
	}
}

func TestOneChildSitsOverChild(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFactorial, 6)
	res := Compute(tr.Root, tr.Algorithm)

	tr.Walk(func(node *trace.Node) bool {
		if len(node.Children) == 1 {
			parent := res.Points[node.ID]
			child := res.Points[node.Children[0].ID]
			assert.Equal(t, parent.Y, child.Y)
			assert.Equal(t, parent.X+80, child.X)
		}
		return true
	})
	assert.Equal(t, Margin, res.Points[tr.Root.ID].Y)
}

func TestParentsCenteredOverExtremeChildren(t *testing.T) {
	for _, alg := range []schema.Algorithm{schema.AlgorithmFibonacci, schema.AlgorithmHanoi} {
		tr := mustTrace(t, alg, 5)
		res := Compute(tr.Root, alg)
		tr.Walk(func(node *trace.Node) bool {
			if k := len(node.Children); k > 0 {
				first := res.Points[node.Children[0].ID].X
				last := res.Points[node.Children[k-1].ID].X
				assert.InDelta(t, (first+last)/2, res.Points[node.ID].X, 1e-9)
			}
			return true
		})
	}
}

func TestSiblingOrderPreserved(t *testing.T) {
	for _, in := range allValidInputs() {
		tr := mustTrace(t, in.alg, in.n)
		res := Compute(tr.Root, in.alg)
		tr.Walk(func(node *trace.Node) bool {
			for i := 1; i < len(node.Children); i++ {
				prev := crossOf(res.Orientation, res.Points[node.Children[i-1].ID])
				cur := crossOf(res.Orientation, res.Points[node.Children[i].ID])
				assert.Less(t, prev, cur)
			}
			return true
		})
	}
}

func TestNormalizedToMargin(t *testing.T) {
	for _, in := range allValidInputs() {
		tr := mustTrace(t, in.alg, in.n)
		res := Compute(tr.Root, in.alg)
		lowest := math.Inf(1)
		for _, p := range res.Points {
			lowest = math.Min(lowest, crossOf(res.Orientation, p))
		}
		assert.InDelta(t, Margin, lowest, 1e-9, "%s(%d)", in.alg, in.n)
	}
}

func TestLevelsFollowMainAxis(t *testing.T) {
	for _, alg := range schema.Algorithms {
		tr := mustTrace(t, alg, 4)
		res := Compute(tr.Root, alg)
		for _, node := range tr.Nodes() {
			assert.Equal(t, node.Depth, res.Level(node.ID))
		}
	}
	assert.Equal(t, -1, Compute(nil, schema.AlgorithmHanoi).Level("node_1"))
}

// --- contour helpers ---

func TestSeparation(t *testing.T) {
	assert.Equal(t, 0.0, separation([]float64{0, 10}, []float64{100, 200}, 60))
	assert.Equal(t, 80.0, separation([]float64{100, 140}, []float64{120, 140}, 80))
	// Only the shared depth counts.
	assert.Equal(t, 60.0, separation([]float64{0, 1000}, []float64{0}, 60))
}

func TestContourAndShift(t *testing.T) {
	tree := &lnode{cross: 10, children: []*lnode{
		{cross: 0, children: []*lnode{{cross: -5}}},
		{cross: 20},
	}}
	assert.Equal(t, []float64{10, 20, -5}, farContour(tree))
	assert.Equal(t, []float64{10, 0, -5}, nearContour(tree))

	shift(tree, 5)
	assert.Equal(t, []float64{15, 5, 0}, nearContour(tree))
	assert.Equal(t, 0.0, minCross(tree))
}

// --- fit ---

func TestScaleFor(t *testing.T) {
	assert.Equal(t, 1.0, ScaleFor(0, 256))
	assert.InDelta(t, 0.65, ScaleFor(128, 256), 1e-12)
	assert.InDelta(t, MinScale, ScaleFor(256, 256), 1e-12)
	assert.Equal(t, MinScale, ScaleFor(1000, 256))
	assert.Equal(t, MaxScale, ScaleFor(10, 0))
}

func TestFitAnchorsBoundingBox(t *testing.T) {
	for _, in := range allValidInputs() {
		tr := mustTrace(t, in.alg, in.n)
		raw := Compute(tr.Root, in.alg)
		fit := Fit(raw, tr.Calls, trace.DefaultCallLimit)

		b := fit.Bounds()
		assert.InDelta(t, Anchor.X, b.MinX+b.Width()/2, 1e-9)
		assert.InDelta(t, Anchor.Y, b.MinY, 1e-9)

		// Fit keeps proportions and does not mutate its input.
		rb := raw.Bounds()
		assert.InDelta(t, rb.Width()*fit.Scale, b.Width(), 1e-9)
		assert.Equal(t, 1.0, raw.Scale)
		assert.Equal(t, raw.Levels, fit.Levels)
	}
}

func TestApply(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmHanoi, 3)
	res := Layout(tr)
	Apply(tr.Root, res)

	for _, node := range tr.Nodes() {
		require.NotNil(t, node.Coord, node.ID)
		p, ok := res.Point(node.ID)
		require.True(t, ok)
		assert.Equal(t, p, *node.Coord)
	}
	_, ok := res.Point("node_404")
	assert.False(t, ok)
}

func TestParamsFor(t *testing.T) {
	assert.Equal(t, Horizontal, ParamsFor(schema.AlgorithmFactorial).Orientation)
	assert.Equal(t, Diagonal, ParamsFor(schema.AlgorithmFibonacci).Orientation)
	assert.Equal(t, Vertical, ParamsFor(schema.AlgorithmHanoi).Orientation)
	assert.Equal(t, defaultParams, ParamsFor(schema.Algorithm("ackermann")))
}

func TestComputeEmpty(t *testing.T) {
	res := Compute(nil, schema.AlgorithmFactorial)
	assert.Empty(t, res.Points)
	assert.Equal(t, Bounds{}, res.Bounds())
}
