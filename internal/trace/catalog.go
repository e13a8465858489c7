package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rendis/recviz/pkg/schema"
)

// Problem describes one algorithm of the catalog and its input bounds.
type Problem struct {
	Algorithm   schema.Algorithm `json:"algorithm"`
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Complexity  string           `json:"complexity"`
	Concepts    []string         `json:"concepts"`
	Params      []string         `json:"params"`
	MinInput    int              `json:"min_input"`
	MaxInput    int              `json:"max_input"`
}

var problems = []Problem{
	{
		Algorithm:   schema.AlgorithmFactorial,
		Name:        "Factorial",
		Title:       "Factorial Calculation",
		Description: "Calculate n! = n x (n-1) x ... x 1. The factorial of n is the product of all positive integers less than or equal to n.",
		Complexity:  "Beginner",
		Concepts:    []string{"Base case", "Recursive case", "Mathematical induction"},
		Params:      []string{"n"},
		MinInput:    1,
		MaxInput:    10,
	},
	{
		Algorithm:   schema.AlgorithmFibonacci,
		Name:        "Fibonacci",
		Title:       "Fibonacci Sequence",
		Description: "F(n) = F(n-1) + F(n-2). Each number is the sum of the two preceding ones, starting from 0 and 1.",
		Complexity:  "Intermediate",
		Concepts:    []string{"Multiple recursive calls", "Tree recursion", "Exponential time complexity"},
		Params:      []string{"n"},
		MinInput:    1,
		MaxInput:    8,
	},
	{
		Algorithm:   schema.AlgorithmHanoi,
		Name:        "Tower of Hanoi",
		Title:       "Tower of Hanoi",
		Description: "Move n disks between 3 rods, never placing a larger disk on a smaller one. Returns the number of moves.",
		Complexity:  "Advanced",
		Concepts:    []string{"Divide and conquer", "Recursive problem decomposition", "State management"},
		Params:      []string{"n", "to"},
		MinInput:    1,
		MaxInput:    6,
	},
}

// Problems returns the catalog in display order.
func Problems() []Problem {
	out := make([]Problem, len(problems))
	copy(out, problems)
	return out
}

// LookupProblem returns the catalog entry for an algorithm.
func LookupProblem(alg schema.Algorithm) (Problem, error) {
	for _, p := range problems {
		if p.Algorithm == alg {
			return p, nil
		}
	}
	return Problem{}, schema.NewErrorf(schema.ErrCodeValidation, "unknown algorithm %q", alg)
}

// Validate checks n against the problem's input range.
func (p Problem) Validate(n int) error {
	if n < p.MinInput || n > p.MaxInput {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"%s input must be between %d and %d", p.Algorithm, p.MinInput, p.MaxInput).
			WithDetails(map[string]any{
				"algorithm": string(p.Algorithm),
				"input":     n,
				"min":       p.MinInput,
				"max":       p.MaxInput,
			})
	}
	return nil
}

// Signature renders a call string such as "hanoi(3, 2)".
func (p Problem) Signature(args []int) string {
	return Signature(p.Algorithm, args)
}

// Signature renders the call string for an algorithm and argument list.
func Signature(alg schema.Algorithm, args []int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strconv.Itoa(a)
	}
	return fmt.Sprintf("%s(%s)", alg, strings.Join(parts, ", "))
}
