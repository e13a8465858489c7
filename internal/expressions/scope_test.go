package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

func mustTrace(t *testing.T, alg schema.Algorithm, n int) *trace.Trace {
	t.Helper()
	tr, err := trace.Run(alg, n)
	require.NoError(t, err)
	return tr
}

func TestEventScope(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmHanoi, 2)

	call := EventScope(tr, tr.Events[1])[ScopeEvent].(map[string]any)
	assert.Equal(t, "call", call["kind"])
	assert.Equal(t, "hanoi(1, 1)", call["call"])
	assert.Equal(t, 1, call["n"])
	assert.Equal(t, 1, call["rod"])
	assert.Equal(t, 1, call["depth"])
	assert.Nil(t, call["result"])
	assert.Equal(t, []any{"hanoi(2, 2)", "hanoi(1, 1)"}, call["stack"])

	// Return events carry the node's arguments and depth even though the
	// stack has already been popped.
	ret := EventScope(tr, tr.Events[5])[ScopeEvent].(map[string]any)
	assert.Equal(t, "return", ret["kind"])
	assert.Equal(t, []any{2, 2}, ret["args"])
	assert.Equal(t, 0, ret["depth"])
	assert.Equal(t, 3, ret["result"])

	run := EventScope(tr, tr.Events[0])[ScopeRun].(map[string]any)
	assert.Equal(t, "hanoi", run["algorithm"])
	assert.Equal(t, 3, run["calls"])
	assert.Equal(t, 6, run["events"])
}

func TestEventScopeSingleArgument(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFactorial, 3)
	ev := EventScope(tr, tr.Events[0])[ScopeEvent].(map[string]any)
	assert.Equal(t, 3, ev["n"])
	assert.Equal(t, -1, ev["rod"])
}

func TestFilterEvents(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFibonacci, 4)

	leaves, err := FilterEvents(context.Background(), NewExprEngine(), `event.kind == "call" && event.n <= 1`, tr)
	require.NoError(t, err)
	assert.Len(t, leaves, 5)
	for _, ev := range leaves {
		assert.True(t, ev.IsCall())
		assert.LessOrEqual(t, ev.Args[0], 1)
	}

	_, err = FilterEvents(context.Background(), NewExprEngine(), `event.step`, tr)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}

func TestFirstMatch(t *testing.T) {
	tr := mustTrace(t, schema.AlgorithmFactorial, 5)
	cel, err := NewCELEngine()
	require.NoError(t, err)

	// factorial(5) returns 1, 2, 6, 24, 120 at steps 5..9.
	i, err := FirstMatch(context.Background(), cel, `event.result > 5`, tr, 0, len(tr.Events)-1)
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	i, err = FirstMatch(context.Background(), cel, `event.result > 5`, tr, 8, 99)
	require.NoError(t, err)
	assert.Equal(t, 8, i)

	i, err = FirstMatch(context.Background(), cel, `event.depth > 10`, tr, 0, 9)
	require.NoError(t, err)
	assert.Equal(t, -1, i)

	_, err = FirstMatch(context.Background(), cel, `event.kind ==`, tr, 0, 9)
	assert.True(t, schema.HasCode(err, schema.ErrCodeValidation))
}
