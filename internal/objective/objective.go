// Package objective ships a small set of synthetic objective functions used
// to exercise search algorithms end to end without training anything real.
package objective

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"hypertune/internal/param"
)

// Func evaluates one configuration at one iteration and returns the
// objective value. Implementations may be noisy but must be cheap.
type Func func(values map[string]any, iteration int) float64

// Objective bundles a benchmark problem: its tunable parameters, the
// optimization direction, and the evaluation function.
type Objective struct {
	Name          string
	Parameters    []param.Parameter
	LowerIsBetter bool
	Eval          Func
}

// ByName constructs a registered benchmark objective. The seed only
// matters for noisy objectives.
func ByName(name string, seed int64) (Objective, error) {
	builder, ok := registry[name]
	if !ok {
		return Objective{}, fmt.Errorf("unknown objective: %s (known: %v)", name, Names())
	}
	return builder(seed)
}

// Names lists the registered objectives in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var registry = map[string]func(seed int64) (Objective, error){
	"sphere":         newSphere,
	"decay":          newDecay,
	"noisy-parabola": newNoisyParabola,
}

// newSphere minimizes x^2 + y^2 over [-5, 5]^2; the value tightens as
// iterations progress, mimicking a converging training curve.
func newSphere(int64) (Objective, error) {
	x, err := param.NewContinuous("x", -5, 5, param.ScaleLinear)
	if err != nil {
		return Objective{}, err
	}
	y, err := param.NewContinuous("y", -5, 5, param.ScaleLinear)
	if err != nil {
		return Objective{}, err
	}
	return Objective{
		Name:          "sphere",
		Parameters:    []param.Parameter{x, y},
		LowerIsBetter: true,
		Eval: func(values map[string]any, iteration int) float64 {
			vx, _ := param.AsFloat(values["x"])
			vy, _ := param.AsFloat(values["y"])
			return (vx*vx + vy*vy) * (1 + 1/float64(iteration+1))
		},
	}, nil
}

// newDecay reproduces the canonical fixture loss a/(iteration+1)*b.
func newDecay(int64) (Objective, error) {
	a, err := param.NewChoice("param_a", []any{1, 2, 3})
	if err != nil {
		return Objective{}, err
	}
	b, err := param.NewContinuous("param_b", 0, 1, param.ScaleLinear)
	if err != nil {
		return Objective{}, err
	}
	return Objective{
		Name:          "decay",
		Parameters:    []param.Parameter{a, b},
		LowerIsBetter: true,
		Eval: func(values map[string]any, iteration int) float64 {
			va, _ := param.AsFloat(values["param_a"])
			vb, _ := param.AsFloat(values["param_b"])
			return va / float64(iteration+1) * vb
		},
	}, nil
}

// newNoisyParabola minimizes (lr-0.3)^2 with gaussian observation noise,
// the standard case for Repeat-style averaging.
func newNoisyParabola(seed int64) (Objective, error) {
	lr, err := param.NewContinuous("lr", 0.01, 1, param.ScaleLinear)
	if err != nil {
		return Objective{}, err
	}
	rng := rand.New(rand.NewSource(seed))
	return Objective{
		Name:          "noisy-parabola",
		Parameters:    []param.Parameter{lr},
		LowerIsBetter: true,
		Eval: func(values map[string]any, _ int) float64 {
			v, _ := param.AsFloat(values["lr"])
			d := v - 0.3
			return d*d + rng.NormFloat64()*0.01
		},
	}, nil
}

// Distance reports how far a configuration is from the sphere optimum,
// used by convergence tests.
func Distance(values map[string]any) float64 {
	vx, _ := param.AsFloat(values["x"])
	vy, _ := param.AsFloat(values["y"])
	return math.Hypot(vx, vy)
}
