package trace

import "github.com/rendis/recviz/pkg/schema"

// HanoiTarget is the destination rod of the initial Hanoi call.
const HanoiTarget = 2

// simulation runs one algorithm from its entry argument.
type simulation func(r *recorder, n int) (int, error)

var simulations = map[schema.Algorithm]simulation{
	schema.AlgorithmFactorial: factorial,
	schema.AlgorithmFibonacci: fibonacci,
	schema.AlgorithmHanoi: func(r *recorder, n int) (int, error) {
		return hanoi(r, n, HanoiTarget)
	},
}

func factorial(r *recorder, n int) (int, error) {
	node, err := r.enter(n)
	if err != nil {
		return 0, err
	}
	result := 1
	if n > 1 {
		sub, err := factorial(r, n-1)
		if err != nil {
			return 0, err
		}
		result = n * sub
	}
	r.exit(node, result)
	return result, nil
}

func fibonacci(r *recorder, n int) (int, error) {
	node, err := r.enter(n)
	if err != nil {
		return 0, err
	}
	result := n
	if n > 1 {
		// n-1 runs to completion, return event included, before n-2 is called.
		left, err := fibonacci(r, n-1)
		if err != nil {
			return 0, err
		}
		right, err := fibonacci(r, n-2)
		if err != nil {
			return 0, err
		}
		result = left + right
	}
	r.exit(node, result)
	return result, nil
}

func hanoi(r *recorder, n, to int) (int, error) {
	node, err := r.enter(n, to)
	if err != nil {
		return 0, err
	}
	result := 1
	if n != 1 {
		left, err := hanoi(r, n-1, AuxiliaryRod(to))
		if err != nil {
			return 0, err
		}
		right, err := hanoi(r, n-1, to)
		if err != nil {
			return 0, err
		}
		result = left + 1 + right
	}
	r.exit(node, result)
	return result, nil
}

// AuxiliaryRod returns the rod the first Hanoi subcall moves n-1 disks to,
// given the destination rod of the current call. The table covers exactly
// three rods.
func AuxiliaryRod(to int) int {
	switch to {
	case 2:
		return 1
	case 1:
		return 0
	default:
		return 2
	}
}
