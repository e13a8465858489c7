package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEngine evaluates expr-lang expressions. The CLI and MCP server use it
// to filter event logs, e.g. `event.kind == "call" && event.depth >= 3`.
// Every key of the data map is a top-level variable.
type ExprEngine struct {
	cache *programCache[*vm.Program]
}

// NewExprEngine creates a new Expr engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: newProgramCache[*vm.Program]()}
}

// Name returns the engine identifier.
func (e *ExprEngine) Name() string {
	return "expr"
}

// Evaluate compiles (or reuses) expression and runs it against data.
func (e *ExprEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	if data == nil {
		data = map[string]any{}
	}

	prg, err := e.cache.get(expression, func(s string) (*vm.Program, error) {
		p, err := expr.Compile(s, expr.Env(data), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, compileError(e.Name(), "compile", s, err)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(prg, data)
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out, nil
}

var _ Engine = (*ExprEngine)(nil)
