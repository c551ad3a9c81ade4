package algo

import (
	"fmt"
	"sort"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

// Iterate walks a pre-supplied ordered list of fully specified
// configurations and returns Stop once the list is exhausted.
type Iterate struct {
	configs []map[string]any
	cursor  int
}

// NewIterate validates that every configuration carries every key of the
// first one; the derived parameter list is checked eagerly so a malformed
// list fails at construction rather than mid-study.
func NewIterate(configs []map[string]any) (*Iterate, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one configuration is required")
	}
	if _, err := DeriveParameters(configs); err != nil {
		return nil, err
	}
	return &Iterate{configs: configs}, nil
}

func (a *Iterate) Name() string { return "iterate" }

func (a *Iterate) GetSuggestion(_ []param.Parameter, _ *table.Table, _ bool) (Suggestion, error) {
	if a.cursor >= len(a.configs) {
		return Stop, nil
	}
	values := a.configs[a.cursor]
	a.cursor++
	return NewSuggestion(values), nil
}

// Load positions the consumption cursor at numTrials.
func (a *Iterate) Load(numTrials int) {
	a.cursor = numTrials
}

// Parameters returns the parameter list derived from the enumerated
// configurations, for study initialization.
func (a *Iterate) Parameters() ([]param.Parameter, error) {
	return DeriveParameters(a.configs)
}

// DeriveParameters builds a categorical Parameter per key of the first
// configuration. Each parameter's range is the ordered set of distinct
// values seen across all configurations, preserving first-seen order;
// values without a defined equality are matched by linear scan. A
// configuration missing a key fails, naming the key and the index.
func DeriveParameters(configs []map[string]any) ([]param.Parameter, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one configuration is required")
	}

	names := make([]string, 0, len(configs[0]))
	for name := range configs[0] {
		names = append(names, name)
	}
	sort.Strings(names)

	parameters := make([]param.Parameter, 0, len(names))
	for _, name := range names {
		var values []any
		for i, cfg := range configs {
			v, ok := cfg[name]
			if !ok {
				return nil, fmt.Errorf("parameter %s not found in configuration at index %d", name, i)
			}
			if param.IndexOf(values, v) < 0 {
				values = append(values, v)
			}
		}
		p, err := param.NewChoice(name, values)
		if err != nil {
			return nil, err
		}
		parameters = append(parameters, p)
	}
	return parameters, nil
}
