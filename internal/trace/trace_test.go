package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recviz/pkg/schema"
)

// --- helpers ---

func mustRun(t *testing.T, alg schema.Algorithm, n int) *Trace {
	t.Helper()
	tr, err := Run(alg, n)
	require.NoError(t, err)
	require.NotNil(t, tr)
	return tr
}

func factorialOf(n int) int {
	if n <= 1 {
		return 1
	}
	return n * factorialOf(n-1)
}

func fibonacciOf(n int) int {
	a, b := 0, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	return a
}

// --- algorithm properties ---

func TestFactorialProperties(t *testing.T) {
	for n := 1; n <= 10; n++ {
		tr := mustRun(t, schema.AlgorithmFactorial, n)

		assert.Equal(t, n, tr.Calls, "n=%d", n)
		assert.Equal(t, factorialOf(n), tr.Result(), "n=%d", n)
		assert.Equal(t, n, tr.Height(), "n=%d", n)

		tr.Walk(func(node *Node) bool {
			if node.Args[0] > 1 {
				assert.Len(t, node.Children, 1)
			} else {
				assert.Empty(t, node.Children)
			}
			return true
		})
	}
}

func TestFibonacciProperties(t *testing.T) {
	for n := 1; n <= 8; n++ {
		tr := mustRun(t, schema.AlgorithmFibonacci, n)

		assert.Equal(t, fibonacciOf(n), tr.Result(), "n=%d", n)
		assert.Nil(t, tr.Root.Parent)

		roots := 0
		for _, node := range tr.Nodes() {
			if node.Parent == nil {
				roots++
			}
			if node.IsLeaf() {
				assert.LessOrEqual(t, node.Args[0], 1, "leaf %s", node.ID)
			} else {
				assert.Len(t, node.Children, 2, "internal %s", node.ID)
				assert.Equal(t, node.Args[0]-1, node.Children[0].Args[0])
				assert.Equal(t, node.Args[0]-2, node.Children[1].Args[0])
			}
		}
		assert.Equal(t, 1, roots)
	}
}

func TestHanoiProperties(t *testing.T) {
	for n := 1; n <= 6; n++ {
		tr := mustRun(t, schema.AlgorithmHanoi, n)
		want := 1<<n - 1

		assert.Equal(t, want, tr.Result(), "n=%d", n)
		assert.Equal(t, want, tr.Calls, "n=%d", n)
		assert.Len(t, tr.Nodes(), want)
		assert.Equal(t, n, tr.Height())

		// Perfectly balanced: every leaf sits at depth n-1.
		for _, node := range tr.Nodes() {
			if node.IsLeaf() {
				assert.Equal(t, n-1, node.Depth)
				assert.Equal(t, 1, node.Args[0])
			} else {
				require.Len(t, node.Children, 2)
				assert.Equal(t, AuxiliaryRod(node.Args[1]), node.Children[0].Args[1])
				assert.Equal(t, node.Args[1], node.Children[1].Args[1])
			}
		}
	}
}

func TestAuxiliaryRod(t *testing.T) {
	assert.Equal(t, 1, AuxiliaryRod(2))
	assert.Equal(t, 0, AuxiliaryRod(1))
	assert.Equal(t, 2, AuxiliaryRod(0))
}

// --- event log ---

func TestEventLogWellFormed(t *testing.T) {
	cases := []struct {
		alg schema.Algorithm
		n   int
	}{
		{schema.AlgorithmFactorial, 7},
		{schema.AlgorithmFibonacci, 6},
		{schema.AlgorithmHanoi, 4},
	}
	for _, tc := range cases {
		t.Run(string(tc.alg), func(t *testing.T) {
			tr := mustRun(t, tc.alg, tc.n)
			require.Len(t, tr.Events, 2*tr.Calls)

			callAt := map[string]int{}
			returnAt := map[string]int{}
			var live []string
			for i, e := range tr.Events {
				assert.Equal(t, i, e.Step)
				switch e.Kind {
				case schema.EventCall:
					_, dup := callAt[e.NodeID]
					assert.False(t, dup, "duplicate call for %s", e.NodeID)
					callAt[e.NodeID] = i
					live = append(live, e.NodeID)
					assert.Equal(t, live, e.StackIDs())
				case schema.EventReturn:
					_, dup := returnAt[e.NodeID]
					assert.False(t, dup, "duplicate return for %s", e.NodeID)
					returnAt[e.NodeID] = i
					require.NotEmpty(t, live)
					assert.Equal(t, e.NodeID, live[len(live)-1], "return must match innermost call")
					live = live[:len(live)-1]

					assert.False(t, e.OnStack(e.NodeID))
					assert.True(t, tr.Events[i-1].OnStack(e.NodeID))
					require.NotNil(t, e.Result)
					assert.Equal(t, *tr.Node(e.NodeID).Return, *e.Result)
				}
			}
			assert.Empty(t, live)

			for _, node := range tr.Nodes() {
				c, okc := callAt[node.ID]
				r, okr := returnAt[node.ID]
				require.True(t, okc && okr, "node %s needs one call and one return", node.ID)
				assert.Less(t, c, r)
			}
		})
	}
}

func TestFactorialFiveScenario(t *testing.T) {
	tr := mustRun(t, schema.AlgorithmFactorial, 5)

	assert.Len(t, tr.Events, 10)
	assert.Equal(t, 120, tr.Result())
	require.Len(t, tr.Nodes(), 5)

	node := tr.Root
	for i := 0; i < 4; i++ {
		require.Len(t, node.Children, 1)
		node = node.Children[0]
	}
	assert.True(t, node.IsLeaf())
}

func TestFibonacciFourScenario(t *testing.T) {
	tr := mustRun(t, schema.AlgorithmFibonacci, 4)

	assert.Equal(t, 9, tr.Calls)
	assert.Equal(t, 3, tr.Result())
	require.Len(t, tr.Root.Children, 2)
	left, right := tr.Root.Children[0], tr.Root.Children[1]
	assert.Equal(t, []int{3}, left.Args)
	assert.Equal(t, []int{2}, right.Args)

	leftIDs := map[string]bool{}
	walk(left, func(n *Node) bool {
		leftIDs[n.ID] = true
		return true
	})

	firstRightCall := -1
	lastLeftEvent := -1
	for i, e := range tr.Events {
		if e.NodeID == right.ID && e.IsCall() && firstRightCall < 0 {
			firstRightCall = i
		}
		if leftIDs[e.NodeID] {
			lastLeftEvent = i
		}
	}
	assert.Less(t, lastLeftEvent, firstRightCall)
}

func TestTreeLinks(t *testing.T) {
	tr := mustRun(t, schema.AlgorithmHanoi, 3)

	assert.Equal(t, schema.NodeStateCompleted, tr.Root.State)
	assert.Equal(t, "", tr.Root.ParentID())
	for _, node := range tr.Nodes() {
		assert.True(t, node.Completed())
		for _, c := range node.Children {
			assert.Same(t, node, c.Parent)
			assert.Equal(t, node.Depth+1, c.Depth)
		}
	}
	assert.Equal(t, "3,2", tr.Root.Label())
	assert.Equal(t, "hanoi(3, 2)", tr.Signature(tr.Root))
	assert.Nil(t, tr.Node("node_404"))
}

// --- failures ---

func TestRunRejectsOutOfRange(t *testing.T) {
	tr, err := Run(schema.AlgorithmFactorial, 11)
	require.Error(t, err)
	assert.Nil(t, tr)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
	assert.Contains(t, err.Error(), "between 1 and 10")

	_, err = Run(schema.AlgorithmFibonacci, 0)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))

	_, err = Run(schema.Algorithm("ackermann"), 2)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestSimulateLimitExceededDiscardsRun(t *testing.T) {
	tr, err := Simulate(schema.AlgorithmFibonacci, 8, WithCallLimit(20))
	require.Error(t, err)
	assert.Nil(t, tr)
	assert.True(t, schema.HasCode(err, schema.ErrCodeLimitExceeded))
	assert.Contains(t, err.Error(), "(20)")

	var re *schema.RecvizError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 20, re.Details["limit"])
	assert.Equal(t, 8, re.Details["input"])
}

func TestSimulateRejectsNegative(t *testing.T) {
	_, err := Simulate(schema.AlgorithmFactorial, -1)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestRunsAreIndependent(t *testing.T) {
	a := mustRun(t, schema.AlgorithmFibonacci, 5)
	b := mustRun(t, schema.AlgorithmFibonacci, 5)

	assert.Equal(t, "node_1", a.Root.ID)
	assert.Equal(t, "node_1", b.Root.ID)
	assert.NotSame(t, a.Root, b.Root)
	assert.Equal(t, a.Events, b.Events)
}

// --- catalog ---

func TestCatalog(t *testing.T) {
	ps := Problems()
	require.Len(t, ps, 3)
	assert.Equal(t, schema.AlgorithmFactorial, ps[0].Algorithm)

	p, err := LookupProblem(schema.AlgorithmHanoi)
	require.NoError(t, err)
	assert.Equal(t, 6, p.MaxInput)
	assert.Equal(t, []string{"n", "to"}, p.Params)
	assert.Equal(t, "hanoi(2, 1)", p.Signature([]int{2, 1}))
	assert.NoError(t, p.Validate(6))
	assert.Error(t, p.Validate(7))

	// Problems returns a copy.
	ps[0].MaxInput = 99
	again, _ := LookupProblem(schema.AlgorithmFactorial)
	assert.Equal(t, 10, again.MaxInput)
}
