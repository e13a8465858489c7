package expressions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// GoJQEngine evaluates jq programs. It projects the JSON form of a trace,
// e.g. `[.events[] | select(.kind == "return") | .result]`.
type GoJQEngine struct {
	cache *programCache[*gojq.Code]
}

// NewGoJQEngine creates a new GoJQ engine.
func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{cache: newProgramCache[*gojq.Code]()}
}

// Name returns the engine identifier.
func (e *GoJQEngine) Name() string {
	return "jq"
}

// Evaluate runs expression with data as input. A single output is returned
// as is, several outputs as []any, none as nil.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	results, err := e.run(ctx, expression, data)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// Project marshals v to its JSON form and evaluates expression against it,
// always returning every output.
func (e *GoJQEngine) Project(ctx context.Context, expression string, v any) ([]any, error) {
	doc, err := toJSONValue(v)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, doc)
}

func (e *GoJQEngine) run(ctx context.Context, expression string, input any) ([]any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	code, err := e.cache.get(expression, e.compile)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, evalError(e.Name(), expression, err)
		}
		results = append(results, v)
	}
	return results, nil
}

func (e *GoJQEngine) compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, compileError(e.Name(), "parse", expression, err)
	}
	// No $ENV: programs only see the document they are given.
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, compileError(e.Name(), "compile", expression, err)
	}
	return code, nil
}

// toJSONValue converts v into the generic form gojq accepts: maps, slices,
// strings, float64, bool and nil.
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jq input: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode jq input: %w", err)
	}
	return out, nil
}

var _ Engine = (*GoJQEngine)(nil)
