package models

import (
	"errors"
	"fmt"
	"strings"
)

// Weekdays in the order the optimizer emits them.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// NormalizeWeekday returns the canonical weekday name, or false when s is not
// a weekday.
func NormalizeWeekday(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays {
		if strings.EqualFold(d, s) {
			return d, true
		}
	}
	return "", false
}

type TrafficCondition string

const (
	ConditionRed    TrafficCondition = "red"
	ConditionYellow TrafficCondition = "yellow"
	ConditionGreen  TrafficCondition = "green"
)

func ParseTrafficCondition(s string) (TrafficCondition, error) {
	switch TrafficCondition(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ConditionRed, nil
	case ConditionRed:
		return ConditionRed, nil
	case ConditionYellow:
		return ConditionYellow, nil
	case ConditionGreen:
		return ConditionGreen, nil
	}
	return "", fmt.Errorf("unknown traffic condition %q", s)
}

// Source tags where a result came from. Mock results are synthesized locally
// when the optimizer is unreachable.
type Source string

const (
	SourceOptimizer Source = "optimizer"
	SourceMock      Source = "mock"
)

var ErrInvalidRequest = errors.New("invalid optimization request")

// OptimizationRequest is built per user action and never persisted.
type OptimizationRequest struct {
	Topology          Topology         `json:"intersection_type"`
	Condition         TrafficCondition `json:"color"`
	GreenTimes        []int            `json:"green_times"`
	RedTimes          []int            `json:"red_times,omitempty"`
	CurrentHour       *int             `json:"current_hour,omitempty"`
	CurrentTravelTime *float64         `json:"current_travel_time,omitempty"`
	CurrentDistance   string           `json:"current_distance,omitempty"`
}

// Validate checks the request shape against the topology. Values are seconds;
// no upper bound is enforced here.
func (r OptimizationRequest) Validate() error {
	if !r.Topology.Valid() {
		return fmt.Errorf("%w: unknown intersection type %q", ErrInvalidRequest, r.Topology)
	}
	want := r.Topology.ChannelCount()
	if len(r.GreenTimes) != want {
		return fmt.Errorf("%w: %s expects %d green times, got %d", ErrInvalidRequest, r.Topology, want, len(r.GreenTimes))
	}
	for i, g := range r.GreenTimes {
		if g < 0 {
			return fmt.Errorf("%w: green time %d is negative", ErrInvalidRequest, i+1)
		}
	}
	if len(r.RedTimes) > 0 {
		if len(r.RedTimes) != want {
			return fmt.Errorf("%w: %s expects %d red times, got %d", ErrInvalidRequest, r.Topology, want, len(r.RedTimes))
		}
		for i, v := range r.RedTimes {
			if v < 0 {
				return fmt.Errorf("%w: red time %d is negative", ErrInvalidRequest, i+1)
			}
		}
	}
	return nil
}

// ChannelMetrics is one signal channel of an OptimizationRecord. Original*
// fields carry the pre-optimization baseline when the source had one.
type ChannelMetrics struct {
	Vehicles      float64  `json:"vehicles"`
	Timing        float64  `json:"timing"`
	Green         float64  `json:"green"`
	Red           float64  `json:"red"`
	OriginalGreen *float64 `json:"original_green,omitempty"`
	OriginalRed   *float64 `json:"original_red,omitempty"`
}

// OptimizationRecord is the canonical per-day, per-hour result row. Channels
// holds exactly the channels present in the source, never more than the
// topology's channel count.
type OptimizationRecord struct {
	Day                 string                 `json:"day"`
	Hour                int                    `json:"hour"`
	TotalVehicles       float64                `json:"total_vehicles"`
	Channels            map[int]ChannelMetrics `json:"channels"`
	AvgQueueLength      float64                `json:"avg_queue_length"`
	AvgDelayTime        float64                `json:"avg_delay_time"`
	OriginalQueueLength *float64               `json:"original_queue_length,omitempty"`
	OriginalDelayTime   *float64               `json:"original_delay_time,omitempty"`
}

// RadarPoint is a chart view derived from records. SyntheticBaseline is set
// when Before was scaled from After rather than measured.
type RadarPoint struct {
	Parameter         string  `json:"parameter"`
	Before            float64 `json:"before"`
	After             float64 `json:"after"`
	SyntheticBaseline bool    `json:"synthetic_baseline"`
}

// ComparisonRow is one row recovered from a CSV of unknown layout.
type ComparisonRow struct {
	Label  string  `json:"label"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// OptimizationResult is the optimizer's answer to a timing request.
type OptimizationResult struct {
	OptimizedGreenTimes  []int    `json:"optimized_green_times"`
	OptimizedRedTimes    []int    `json:"optimized_red_times,omitempty"`
	EstimatedDelayTime   float64  `json:"estimated_delay_time"`
	EstimatedQueueLength *float64 `json:"estimated_queue_length,omitempty"`
	IntersectionType     string   `json:"intersection_type,omitempty"`
	OptimizedTravelTime  *float64 `json:"optimized_travel_time,omitempty"`
	Source               Source   `json:"source"`
}

// FileDescriptor describes an uploaded file. The bytes are never stored.
type FileDescriptor struct {
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Type         string `json:"type"`
	LastModified int64  `json:"last_modified,omitempty"`
}
