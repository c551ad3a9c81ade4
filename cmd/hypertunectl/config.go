package main

import (
	"encoding/json"
	"fmt"
	"os"

	hyperapi "hypertune/pkg/hypertune"
)

// loadOrDefaultRunRequest reads a study config JSON file when a path is
// given; an empty path yields the zero request so flag values apply.
func loadOrDefaultRunRequest(path string) (hyperapi.RunRequest, error) {
	if path == "" {
		return hyperapi.RunRequest{}, nil
	}
	return loadRunRequestFromConfig(path)
}

func loadRunRequestFromConfig(path string) (hyperapi.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hyperapi.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return hyperapi.RunRequest{}, err
	}

	var req hyperapi.RunRequest
	if v, ok := asString(raw["objective"]); ok {
		req.Objective = v
	}
	if v, ok := asString(raw["algorithm"]); ok {
		req.Algorithm = v
	}
	if v, ok := asString(raw["resume_id"]); ok {
		req.ResumeID = v
	}
	if v, ok := asInt(raw["max_trials"]); ok {
		req.MaxTrials = v
	}
	if v, ok := asInt(raw["iterations"]); ok {
		req.Iterations = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["grid_points"]); ok {
		req.GridPoints = v
	}
	if v, ok := asInt(raw["population_size"]); ok {
		req.PopulationSize = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = &v
	}
	if v, ok := asInt(raw["repeat"]); ok {
		req.Repeat = v
	}
	if v, ok := asBool(raw["median_stop"]); ok {
		req.MedianStop = v
	}
	if v, ok := asInt(raw["min_iterations"]); ok {
		req.MinIterations = v
	}
	if v, ok := asInt(raw["min_trials"]); ok {
		req.MinTrials = v
	}
	if raw["configurations"] != nil {
		configs, err := asConfigurations(raw["configurations"])
		if err != nil {
			return hyperapi.RunRequest{}, fmt.Errorf("%s: %w", path, err)
		}
		req.Configurations = configs
	}
	return req, nil
}

func asConfigurations(v any) ([]map[string]any, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("configurations must be a list of objects")
	}
	configs := make([]map[string]any, 0, len(list))
	for i, entry := range list {
		cfg, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("configuration at index %d is not an object", i)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
