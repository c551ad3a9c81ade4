package param

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"
)

// Kind identifies one of the closed set of parameter variants.
type Kind int

const (
	Choice Kind = iota
	Continuous
	Discrete
	Ordinal
)

func (k Kind) String() string {
	switch k {
	case Choice:
		return "choice"
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Ordinal:
		return "ordinal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Scale controls how numeric ranges are traversed when sampling or gridding.
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleLog    Scale = "log"
)

// Parameter declares one tunable dimension of a study. Choice and Ordinal
// carry an explicit value list; Continuous and Discrete carry numeric
// bounds. A Parameter is immutable after construction.
type Parameter struct {
	Name   string
	Kind   Kind
	Values []any   // Choice, Ordinal
	Min    float64 // Continuous, Discrete
	Max    float64
	Scale  Scale
}

// NewChoice declares an unordered categorical parameter.
func NewChoice(name string, values []any) (Parameter, error) {
	if name == "" {
		return Parameter{}, fmt.Errorf("parameter name is required")
	}
	if len(values) == 0 {
		return Parameter{}, fmt.Errorf("choice parameter %s requires at least one value", name)
	}
	return Parameter{Name: name, Kind: Choice, Values: append([]any(nil), values...)}, nil
}

// NewOrdinal declares an ordered categorical parameter. The value order is
// the rank order used by perturbation.
func NewOrdinal(name string, values []any) (Parameter, error) {
	if name == "" {
		return Parameter{}, fmt.Errorf("parameter name is required")
	}
	if len(values) == 0 {
		return Parameter{}, fmt.Errorf("ordinal parameter %s requires at least one value", name)
	}
	return Parameter{Name: name, Kind: Ordinal, Values: append([]any(nil), values...)}, nil
}

// NewContinuous declares a float-valued parameter over [min, max].
func NewContinuous(name string, min, max float64, scale Scale) (Parameter, error) {
	if err := validateBounds(name, min, max, scale); err != nil {
		return Parameter{}, err
	}
	return Parameter{Name: name, Kind: Continuous, Min: min, Max: max, Scale: normalizeScale(scale)}, nil
}

// NewDiscrete declares an integer-valued parameter over [min, max].
func NewDiscrete(name string, min, max int, scale Scale) (Parameter, error) {
	if err := validateBounds(name, float64(min), float64(max), scale); err != nil {
		return Parameter{}, err
	}
	return Parameter{Name: name, Kind: Discrete, Min: float64(min), Max: float64(max), Scale: normalizeScale(scale)}, nil
}

func normalizeScale(s Scale) Scale {
	if s == "" {
		return ScaleLinear
	}
	return s
}

func validateBounds(name string, min, max float64, scale Scale) error {
	if name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if min > max {
		return fmt.Errorf("parameter %s: min %v exceeds max %v", name, min, max)
	}
	if scale == ScaleLog && min <= 0 {
		return fmt.Errorf("parameter %s: log scale requires positive bounds, got min %v", name, min)
	}
	if scale != "" && scale != ScaleLinear && scale != ScaleLog {
		return fmt.Errorf("parameter %s: unknown scale %q", name, scale)
	}
	return nil
}

// Sample draws one value consistent with the parameter's kind and range.
func (p Parameter) Sample(rng *rand.Rand) any {
	switch p.Kind {
	case Choice, Ordinal:
		return p.Values[rng.Intn(len(p.Values))]
	case Continuous:
		if p.Scale == ScaleLog {
			lo, hi := math.Log10(p.Min), math.Log10(p.Max)
			return math.Pow(10, lo+rng.Float64()*(hi-lo))
		}
		return p.Min + rng.Float64()*(p.Max-p.Min)
	case Discrete:
		if p.Scale == ScaleLog {
			lo, hi := math.Log10(p.Min), math.Log10(p.Max)
			return int(math.Pow(10, lo+rng.Float64()*(hi-lo)))
		}
		return int(p.Min) + rng.Intn(int(p.Max)-int(p.Min)+1)
	default:
		panic(fmt.Sprintf("unrecognized parameter kind %v", p.Kind))
	}
}

// GridCandidates returns the candidate values GridSearch evaluates for this
// parameter. Categorical parameters contribute their full declared range.
// Numeric parameters contribute numPoints values placed at fractional
// positions i/(numPoints+1) between the bounds, on log10 scale when the
// parameter is log-scaled, truncated to integer for Discrete.
func (p Parameter) GridCandidates(numPoints int) []any {
	switch p.Kind {
	case Choice, Ordinal:
		return append([]any(nil), p.Values...)
	case Continuous, Discrete:
		values := make([]any, 0, numPoints)
		for i := 1; i <= numPoints; i++ {
			frac := float64(i) / float64(numPoints+1)
			var v float64
			if p.Scale == ScaleLog {
				lo, hi := math.Log10(p.Min), math.Log10(p.Max)
				v = math.Pow(10, lo+(hi-lo)*frac)
			} else {
				v = p.Min + (p.Max-p.Min)*frac
			}
			if p.Kind == Discrete {
				values = append(values, int(v))
			} else {
				values = append(values, v)
			}
		}
		return values
	default:
		panic(fmt.Sprintf("unrecognized parameter kind %v", p.Kind))
	}
}

// Clamp restricts a numeric value to the parameter's declared bounds and
// truncates it to integer for Discrete parameters.
func (p Parameter) Clamp(v float64) any {
	if v < p.Min {
		v = p.Min
	}
	if v > p.Max {
		v = p.Max
	}
	if p.Kind == Discrete {
		return int(v)
	}
	return v
}

// Names returns the parameter names in declaration order.
func Names(parameters []Parameter) []string {
	names := make([]string, len(parameters))
	for i, p := range parameters {
		names[i] = p.Name
	}
	return names
}

// IndexOf locates a value in an ordered value list by linear scan so that
// values without a defined equality operator still resolve. Numeric cells
// are compared by value, not representation: an integer declared in the
// range still matches after a storage round trip decoded it as float64.
func IndexOf(values []any, v any) int {
	target, numeric := AsFloat(v)
	for i, candidate := range values {
		if c, ok := AsFloat(candidate); ok && numeric {
			if c == target {
				return i
			}
			continue
		}
		if reflect.DeepEqual(candidate, v) {
			return i
		}
	}
	return -1
}

// AsFloat coerces the numeric cell representations that appear in results
// rows (int from discrete sampling, float64 otherwise).
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
