package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// CELEngine evaluates Common Expression Language conditions. Sessions use it
// for breakpoints such as `event.kind == "return" && event.result > 10`.
// Compiled programs are cached and shared across goroutines.
type CELEngine struct {
	env   *cel.Env
	cache *programCache[cel.Program]
}

// NewCELEngine creates a CEL engine whose environment exposes the two
// variables built by EventScope:
//   - event: map(string, dyn), the event under evaluation
//   - run:   map(string, dyn), metadata of the run it belongs to
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)
	env, err := cel.NewEnv(
		cel.Variable(ScopeEvent, mapType),
		cel.Variable(ScopeRun, mapType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, cache: newProgramCache[cel.Program]()}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Check compiles expression without evaluating it and requires it to be
// boolean-typed or dynamic.
func (e *CELEngine) Check(expression string) error {
	if expression == "" {
		return emptyExpression(e.Name())
	}
	_, err := e.cache.get(expression, e.compile)
	return err
}

// Evaluate runs expression against data. Missing scope variables default to
// empty maps.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	prg, err := e.cache.get(expression, e.compile)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, activation(data))
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError(e.Name(), "compile", expression, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, compileError(e.Name(), "type", expression,
			fmt.Errorf("expression yields %s, want bool", t))
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, compileError(e.Name(), "program", expression, err)
	}
	return prg, nil
}

func activation(data map[string]any) map[string]any {
	act := make(map[string]any, 2)
	for _, key := range []string{ScopeEvent, ScopeRun} {
		if v, ok := data[key]; ok && v != nil {
			act[key] = v
		} else {
			act[key] = map[string]any{}
		}
	}
	return act
}

var _ Engine = (*CELEngine)(nil)
