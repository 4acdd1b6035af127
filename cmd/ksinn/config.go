package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"ksinn/pkg/ksinn"
)

func loadTrainRequestFromConfig(path string) (ksinn.TrainRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ksinn.TrainRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ksinn.TrainRequest{}, err
	}

	var req ksinn.TrainRequest
	if v, ok := raw["layers"]; ok {
		layers, err := layersFromConfig(v)
		if err != nil {
			return ksinn.TrainRequest{}, err
		}
		req.InputNodes, req.HiddenNodes, req.OutputNodes = layers[0], layers[1], layers[2]
	}
	for key, dst := range map[string]*int{
		"input_nodes":  &req.InputNodes,
		"hidden_nodes": &req.HiddenNodes,
		"output_nodes": &req.OutputNodes,
	} {
		v, ok := asInt(raw[key])
		if !ok {
			continue
		}
		if err := requirePositive(key, v); err != nil {
			return ksinn.TrainRequest{}, err
		}
		*dst = v
	}
	if v, ok := asFloat64(raw["learning_rate"]); ok {
		if err := requirePositiveRate("learning_rate", v); err != nil {
			return ksinn.TrainRequest{}, err
		}
		req.LearningRate = &v
	}
	if v, ok := raw["melody_length"]; ok {
		s, isString := asString(v)
		if !isString {
			return ksinn.TrainRequest{}, fmt.Errorf("melody_length must be a \"min,max\" string, got %T", v)
		}
		lo, hi, err := parseLengthRange(s)
		if err != nil {
			return ksinn.TrainRequest{}, err
		}
		req.MinMelodyLength, req.MaxMelodyLength = lo, hi
	}
	if v, ok := asInt(raw["max_iterations"]); ok {
		if err := requirePositive("max_iterations", v); err != nil {
			return ksinn.TrainRequest{}, err
		}
		req.MaxIterations = v
	}
	if v, ok := asInt(raw["reset_rate"]); ok {
		if err := requirePositive("reset_rate", v); err != nil {
			return ksinn.TrainRequest{}, err
		}
		req.ResetRate = v
	}
	if v, ok := asBool(raw["verbose"]); ok {
		req.Verbose = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloat64(raw["snapshot_threshold"]); ok {
		req.SnapshotThreshold = &v
	}
	return req, nil
}

func loadOrDefaultTrainRequest(configPath string) (ksinn.TrainRequest, error) {
	if configPath == "" {
		return ksinn.TrainRequest{}, nil
	}
	req, err := loadTrainRequestFromConfig(configPath)
	if err != nil {
		return ksinn.TrainRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func layersFromConfig(v any) ([3]int, error) {
	if s, ok := asString(v); ok {
		return parseLayers(s)
	}
	switch x := v.(type) {
	case []any:
		if len(x) != 3 {
			return [3]int{}, fmt.Errorf("layers must have 3 sizes, got %d", len(x))
		}
		var out [3]int
		for i, item := range x {
			n, ok := asInt(item)
			if !ok || n <= 0 {
				return [3]int{}, fmt.Errorf("invalid layer size: %v", item)
			}
			out[i] = n
		}
		return out, nil
	default:
		return [3]int{}, fmt.Errorf("layers must be a list or string, got %T", v)
	}
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
		if math.Trunc(x) != x {
			return 0, false
		}
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

// overrideFromFlags applies only the flags that were set on the command line,
// leaving values read from the config file in place otherwise.
func overrideFromFlags(req *ksinn.TrainRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "v", "verbose":
			req.Verbose = v.(bool)
		case "layers":
			layers, err := parseLayers(v.(string))
			if err != nil {
				return err
			}
			req.InputNodes, req.HiddenNodes, req.OutputNodes = layers[0], layers[1], layers[2]
		case "learning-rate":
			learningRate := v.(float64)
			if err := requirePositiveRate(name, learningRate); err != nil {
				return err
			}
			req.LearningRate = &learningRate
		case "melody-length":
			lo, hi, err := parseLengthRange(v.(string))
			if err != nil {
				return err
			}
			req.MinMelodyLength, req.MaxMelodyLength = lo, hi
		case "max-iterations":
			if err := requirePositive(name, v.(int)); err != nil {
				return err
			}
			req.MaxIterations = v.(int)
		case "reset-rate":
			if err := requirePositive(name, v.(int)); err != nil {
				return err
			}
			req.ResetRate = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "threshold":
			threshold := v.(float64)
			req.SnapshotThreshold = &threshold
		}
	}
	return nil
}

// parseLayers reads "input,hidden,output" node counts.
func parseLayers(s string) ([3]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("layers must have 3 comma-separated sizes, got %q", s)
	}
	var out [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return [3]int{}, fmt.Errorf("invalid layer size %q: %w", part, err)
		}
		if n <= 0 {
			return [3]int{}, fmt.Errorf("layer size must be > 0, got %d", n)
		}
		out[i] = n
	}
	return out, nil
}

// parseLengthRange reads an inclusive "min,max" melody length range.
func parseLengthRange(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("melody length must be \"min,max\", got %q", s)
	}
	var bounds [2]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid melody length %q: %w", part, err)
		}
		bounds[i] = n
	}
	if bounds[0] < 1 || bounds[0] > bounds[1] {
		return 0, 0, fmt.Errorf("melody length range must satisfy 1 <= min <= max, got %d,%d", bounds[0], bounds[1])
	}
	return bounds[0], bounds[1], nil
}

func parseSeeds(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	seeds := make([]int64, 0, len(parts))
	for _, part := range parts {
		seed, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q: %w", part, err)
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func requirePositive(name string, v int) error {
	if v <= 0 {
		return fmt.Errorf("%s must be > 0, got %d", name, v)
	}
	return nil
}

func requirePositiveRate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be finite and > 0, got %v", name, v)
	}
	return nil
}
