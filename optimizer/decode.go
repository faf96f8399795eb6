package optimizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/normalize"
)

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode optimizer request: %w", err)
	}
	return data, nil
}

// decodeResult validates a timing answer. Required fields are
// optimized_green_times (exactly channels integers) and estimated_delay_time.
// A value given as a numeric string is converted once; anything else is
// rejected as a whole.
func decodeResult(body []byte, channels int) (*models.OptimizationResult, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrMalformedResponse)
	}

	green, ok := raw["optimized_green_times"]
	if !ok {
		return nil, fmt.Errorf("%w: missing optimized_green_times", ErrMalformedResponse)
	}
	greenTimes, err := intArray(green, channels)
	if err != nil {
		return nil, fmt.Errorf("%w: optimized_green_times: %v", ErrMalformedResponse, err)
	}

	delay, ok := toFloat(raw["estimated_delay_time"])
	if !ok {
		return nil, fmt.Errorf("%w: missing or non-numeric estimated_delay_time", ErrMalformedResponse)
	}

	result := &models.OptimizationResult{
		OptimizedGreenTimes: greenTimes,
		EstimatedDelayTime:  delay,
	}

	if v, ok := raw["optimized_red_times"]; ok && v != nil {
		if result.OptimizedRedTimes, err = intArray(v, channels); err != nil {
			return nil, fmt.Errorf("%w: optimized_red_times: %v", ErrMalformedResponse, err)
		}
	}
	if result.EstimatedQueueLength, err = optionalFloat(raw, "estimated_queue_length"); err != nil {
		return nil, err
	}
	if result.OptimizedTravelTime, err = optionalFloat(raw, "optimized_travel_time"); err != nil {
		return nil, err
	}
	if s, ok := raw["intersection_type"].(string); ok {
		result.IntersectionType = s
	}
	return result, nil
}

func intArray(v any, want int) ([]int, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(items) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(items))
	}
	out := make([]int, len(items))
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("value %d is not an integer", i+1)
		}
		out[i] = int(f)
	}
	return out, nil
}

func optionalFloat(raw map[string]any, key string) (*float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not numeric", ErrMalformedResponse, key)
	}
	return &f, nil
}

func toFloat(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// decodeDataset reads a dataset answer, which is JSON rows when the body looks
// like JSON and CSV text otherwise.
func decodeDataset(body []byte, topology models.Topology) ([]models.OptimizationRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return normalize.FromJSON(trimmed, topology)
	}

	table, err := csvcodec.Parse(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !slices.ContainsFunc(table.Headers, normalize.IsSchemaColumn) {
		return nil, fmt.Errorf("%w: csv has no known columns", ErrMalformedResponse)
	}
	return normalize.FromTable(table, topology)
}
