package expressions

import (
	"context"
	"fmt"
	"sync"

	"github.com/rendis/recviz/pkg/schema"
)

// Engine evaluates expressions over an event scope.
// Three implementations: CEL (breakpoints), Expr (event filters), GoJQ
// (projections over the trace document).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// EvaluateBool evaluates expression and requires a boolean result.
func EvaluateBool(ctx context.Context, e Engine, expression string, data map[string]any) (bool, error) {
	out, err := e.Evaluate(ctx, expression, data)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"%s expression %q must evaluate to a boolean, got %T", e.Name(), expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return b, nil
}

// programCache memoizes compiled programs by expression text. Safe for
// concurrent use.
type programCache[P any] struct {
	mu       sync.RWMutex
	programs map[string]P
}

func newProgramCache[P any]() *programCache[P] {
	return &programCache[P]{programs: make(map[string]P)}
}

// get returns the cached program for expression, compiling it on a miss.
func (c *programCache[P]) get(expression string, compile func(string) (P, error)) (P, error) {
	c.mu.RLock()
	p, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[expression]; ok {
		return p, nil
	}
	p, err := compile(expression)
	if err != nil {
		return p, err
	}
	c.programs[expression] = p
	return p, nil
}

// compileError builds the VALIDATION_ERROR returned for a bad expression.
func compileError(engine, stage, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s %s error in %q: %s", engine, stage, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

// evalError builds the EXECUTION_ERROR returned when evaluation fails.
func evalError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeExecution,
		"%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func emptyExpression(engine string) error {
	return schema.NewError(schema.ErrCodeValidation, fmt.Sprintf("empty %s expression", engine))
}

// isCompileError reports whether err rejects the expression itself rather
// than one evaluation of it.
func isCompileError(err error) bool {
	return schema.HasCode(err, schema.ErrCodeValidation)
}
