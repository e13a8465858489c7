package player

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recviz/internal/layout"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

func mustTrace(t testing.TB, alg schema.Algorithm, n int) *trace.Trace {
	t.Helper()
	tr, err := trace.Run(alg, n)
	require.NoError(t, err)
	return tr
}

func formatSnapshot(s *Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %s calls=%d\n", s.Progress(), s.Calls)
	fmt.Fprintf(&b, "banner: %s\n", s.Banner())

	stack := "<empty>"
	if len(s.Stack) > 0 {
		calls := make([]string, len(s.Stack))
		for i, f := range s.Stack {
			calls[i] = f.Call
		}
		stack = strings.Join(calls, " > ")
	}
	fmt.Fprintf(&b, "stack: %s\n", stack)

	for _, id := range s.Order {
		v := s.Nodes[id]
		fmt.Fprintf(&b, "%s %s %s", v.ID, v.Call, v.Visibility)
		if v.Return != nil {
			fmt.Fprintf(&b, " -> %d", *v.Return)
		}
		b.WriteString("\n")
	}
	for _, e := range s.Edges {
		vis := "hidden"
		if e.Visible {
			vis = "visible"
		}
		fmt.Fprintf(&b, "edge %s->%s window=[%d,%d] return=[%d,%d] %s phase=%s",
			e.From, e.To, e.Window.From, e.Window.To, e.ReturnWindow.From, e.ReturnWindow.To, vis, e.Phase)
		if e.ReturnValue != nil {
			fmt.Fprintf(&b, " value=%d", *e.ReturnValue)
		}
		b.WriteString("\n")
	}
	if s.Final != nil {
		fmt.Fprintf(&b, "final=%d\n", *s.Final)
	}
	return b.String()
}

func TestFrameDataDriven(t *testing.T) {
	datadriven.RunTest(t, "testdata/frames", func(t *testing.T, d *datadriven.TestData) string {
		if d.Cmd != "frame" {
			d.Fatalf(t, "unknown command %q", d.Cmd)
		}
		var name string
		var n, step int
		d.ScanArgs(t, "algorithm", &name)
		d.ScanArgs(t, "n", &n)
		d.ScanArgs(t, "step", &step)
		alg, err := schema.ParseAlgorithm(name)
		require.NoError(t, err)

		tr := mustTrace(t, alg, n)
		return formatSnapshot(Frame(tr.Events, tr.Root, step))
	})
}

func TestFrameIsDeterministic(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFibonacci, 5)
	fresh := make([]*Snapshot, len(tr.Events))
	for k := range tr.Events {
		fresh[k] = Frame(tr.Events, tr.Root, k)
	}

	// Scrub backward, forward and at random; each step must match its
	// fresh frame.
	order := []int{9, 3, 27, 0, 29, 14, 9, 1, 28, 3}
	for k := len(tr.Events) - 1; k >= 0; k-- {
		order = append(order, k)
	}
	for _, k := range order {
		assert.Equal(t, fresh[k], Frame(tr.Events, tr.Root, k), "step %d", k)
	}
}

func TestFrameDoesNotMutateInput(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmHanoi, 3)
	before := make([]trace.Event, len(tr.Events))
	copy(before, tr.Events)

	for k := range tr.Events {
		s := Frame(tr.Events, tr.Root, k)
		s.Stack = append(s.Stack, trace.Frame{NodeID: "x"})
	}
	assert.Equal(t, before, tr.Events)
}

func TestVisibilityRules(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFibonacci, 6)
	callAt := map[string]int{}
	returnAt := map[string]int{}
	for i, e := range tr.Events {
		if e.IsCall() {
			callAt[e.NodeID] = i
		} else {
			returnAt[e.NodeID] = i
		}
	}

	for k := range tr.Events {
		s := Frame(tr.Events, tr.Root, k)
		require.Len(t, s.Nodes, tr.Calls)
		for id, v := range s.Nodes {
			c, r := callAt[id], returnAt[id]
			var want schema.Visibility
			switch {
			case c > k:
				want = schema.VisibilityHidden
			case c == k || r == k:
				want = schema.VisibilityActive
			case r < k:
				want = schema.VisibilityCompleted
			default:
				want = schema.VisibilityPending
			}
			assert.Equal(t, want, v.Visibility, "step %d node %s", k, id)
			assert.Equal(t, r <= k, v.Return != nil, "step %d node %s return", k, id)
		}

		active := 0
		for _, v := range s.Nodes {
			if v.Visibility == schema.VisibilityActive {
				active++
			}
		}
		assert.Equal(t, 1, active, "exactly one node is active at step %d", k)

		for _, e := range s.Edges {
			assert.Equal(t, callAt[e.To], e.Window.From)
			assert.Equal(t, returnAt[e.To], e.Window.To)
			assert.Equal(t, Window{From: returnAt[e.To], To: len(tr.Events)}, e.ReturnWindow)
			assert.Equal(t, k >= callAt[e.To], e.Visible, "step %d edge %s", k, e.To)
			assert.Equal(t, k >= returnAt[e.To], e.Phase == schema.EdgePhaseReturn, "step %d edge %s", k, e.To)
			assert.Equal(t, k == e.Window.To, e.ReturnValue != nil)
		}
	}
}

func TestFinishedTreeKeepsEdges(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFibonacci, 4)
	s := Frame(tr.Events, tr.Root, len(tr.Events)-1)

	require.Len(t, s.Edges, 8)
	for _, e := range s.Edges {
		assert.True(t, e.Visible, "edge %s->%s", e.From, e.To)
		assert.Equal(t, schema.EdgePhaseReturn, e.Phase, "edge %s->%s", e.From, e.To)
		assert.Nil(t, e.ReturnValue, "edge %s->%s", e.From, e.To)
	}

	// Midway, the finished left subtree keeps its edges while the right
	// subtree is still being built.
	s = Frame(tr.Events, tr.Root, 9)
	visible := 0
	for _, e := range s.Edges {
		if e.Visible {
			visible++
		}
	}
	assert.Equal(t, 5, visible)
}

func TestStackMatchesCurrentEvent(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFactorial, 5)
	for k, e := range tr.Events {
		s := Frame(tr.Events, tr.Root, k)
		require.NotNil(t, s.Current)
		assert.Equal(t, e.NodeID, s.Current.NodeID)
		assert.Equal(t, e.Stack, s.Stack)
		assert.Equal(t, k == len(tr.Events)-1, s.Final != nil)
		assert.Equal(t, k == len(tr.Events)-1, s.Last())
	}
	assert.Equal(t, 5, Frame(tr.Events, tr.Root, 0).Calls)
}

func TestFrameCarriesCoordinates(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmHanoi, 2)
	layout.Apply(tr.Root, layout.Layout(tr))

	s := Frame(tr.Events, tr.Root, 0)
	root, ok := s.Node(tr.Root.ID)
	require.True(t, ok)
	require.NotNil(t, root.Coord)
	assert.Equal(t, *tr.Root.Coord, *root.Coord)
	assert.Equal(t, []string{tr.Root.ID}, s.VisibleNodes())
	assert.Equal(t, "2,2", root.Label)
}

func TestFrameEmpty(t *testing.T) {
	s := Frame(nil, nil, 3)
	assert.Equal(t, 0, s.Step)
	assert.Equal(t, 0, s.Total)
	assert.Nil(t, s.Current)
	assert.Empty(t, s.Nodes)
	assert.Equal(t, "", s.Banner())
	assert.Equal(t, "1 / 1", s.Progress())
	assert.False(t, s.Last())

	tr := mustTrace(t, schema.AlgorithmFactorial, 2)
	s = Frame(nil, tr.Root, 0)
	for _, v := range s.Nodes {
		assert.Equal(t, schema.VisibilityHidden, v.Visibility)
	}
	for _, e := range s.Edges {
		assert.False(t, e.Visible)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-1, 10))
	assert.Equal(t, 9, Clamp(10, 10))
	assert.Equal(t, 4, Clamp(4, 10))
	assert.Equal(t, 0, Clamp(5, 0))
}
