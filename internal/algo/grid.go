package algo

import (
	"sort"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

// GridSearchConfig configures a GridSearch instance.
type GridSearchConfig struct {
	// NumGridPoints is the number of candidate values per numeric
	// parameter. Zero means two.
	NumGridPoints int
	// Repeat returns each grid point this many consecutive times. Zero
	// means once.
	Repeat int
}

// GridSearch lazily builds the cartesian product of per-parameter candidate
// lists on the first call and traverses it with the same repeat semantics
// as RandomSearch. After the last repeat of the last grid point it returns
// Stop.
type GridSearch struct {
	numGridPoints int
	repeat        int

	grid     []map[string]any
	idx      int
	repeated int
}

func NewGridSearch(cfg GridSearchConfig) *GridSearch {
	numPoints := cfg.NumGridPoints
	if numPoints <= 0 {
		numPoints = 2
	}
	repeat := cfg.Repeat
	if repeat <= 0 {
		repeat = 1
	}
	return &GridSearch{numGridPoints: numPoints, repeat: repeat}
}

func (a *GridSearch) Name() string { return "grid_search" }

func (a *GridSearch) GetSuggestion(parameters []param.Parameter, _ *table.Table, _ bool) (Suggestion, error) {
	if a.grid == nil {
		a.grid = buildGrid(parameters, a.numGridPoints)
	}

	if a.repeated == a.repeat {
		a.repeated = 0
		a.idx++
	}
	if a.idx >= len(a.grid) {
		return Stop, nil
	}
	a.repeated++
	return NewSuggestion(a.grid[a.idx]), nil
}

// Load derives the traversal position from the number of previously issued
// suggestions; the grid itself is rebuilt on the next call.
func (a *GridSearch) Load(numTrials int) {
	a.grid = nil
	a.idx = numTrials / a.repeat
	a.repeated = numTrials % a.repeat
	if a.repeated == 0 && numTrials > 0 {
		a.idx--
		a.repeated = a.repeat
	}
}

// buildGrid expands the cartesian product over sorted parameter names, the
// last name varying fastest.
func buildGrid(parameters []param.Parameter, numPoints int) []map[string]any {
	ordered := make([]param.Parameter, len(parameters))
	copy(ordered, parameters)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	candidates := make([][]any, len(ordered))
	total := 1
	for i, p := range ordered {
		candidates[i] = p.GridCandidates(numPoints)
		total *= len(candidates[i])
	}

	grid := make([]map[string]any, 0, total)
	indices := make([]int, len(ordered))
	for n := 0; n < total; n++ {
		point := make(map[string]any, len(ordered))
		for i, p := range ordered {
			point[p.Name] = candidates[i][indices[i]]
		}
		grid = append(grid, point)

		for i := len(indices) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(candidates[i]) {
				break
			}
			indices[i] = 0
		}
	}
	return grid
}
