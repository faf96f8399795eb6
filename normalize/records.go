// Package normalize turns optimizer output of varying shape into
// OptimizationRecords, derives chart views from them and encodes them back
// into the download CSV layout.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

var (
	// ErrNoValidData means every row of the input was dropped as unusable.
	ErrNoValidData = errors.New("no valid data found")
	// ErrMalformedResponse means an optimizer answer did not have the
	// expected shape. No partial result accompanies it.
	ErrMalformedResponse = errors.New("malformed optimizer response")
)

// DefaultDay is used when the source has no Day column.
const DefaultDay = "Monday"

// Dataset is the outcome of normalizing a CSV of any layout. Exactly one of
// Records or Comparisons is populated.
type Dataset struct {
	Records     []models.OptimizationRecord `json:"records,omitempty"`
	Comparisons []models.ComparisonRow      `json:"comparisons,omitempty"`
}

// Auto normalizes table in schema mode when it carries any canonical column
// and falls back to heuristic column matching otherwise.
func Auto(table *csvcodec.Table, topology models.Topology) (*Dataset, error) {
	for _, h := range table.Headers {
		if IsSchemaColumn(h) {
			records, err := FromTable(table, topology)
			if err != nil {
				return nil, err
			}
			return &Dataset{Records: records}, nil
		}
	}
	rows, err := Heuristic(table, DefaultMatchers)
	if err != nil {
		return nil, err
	}
	return &Dataset{Comparisons: rows}, nil
}

// FromTable maps a CSV table in the canonical schema to records, one per
// usable row, preserving row order.
func FromTable(table *csvcodec.Table, topology models.Topology) ([]models.OptimizationRecord, error) {
	if !topology.Valid() {
		return nil, fmt.Errorf("unknown intersection type %q", topology)
	}

	cols := columnIndex(table)
	channels := presentChannels(table.Headers, topology.ChannelCount())

	records := make([]models.OptimizationRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		r := tableRow{cols: cols, row: row}
		if r.blank() {
			continue
		}
		rec, ok := buildRecord(r, channels)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoValidData
	}
	return records, nil
}

// FromJSON accepts either {"status":"success","data":[...]} or a bare array
// of row objects using the canonical field names. Values may be numbers or
// numeric strings.
func FromJSON(body []byte, topology models.Topology) ([]models.OptimizationRecord, error) {
	if !topology.Valid() {
		return nil, fmt.Errorf("unknown intersection type %q", topology)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if status, _ := v["status"].(string); status != "" && status != "success" {
			msg, _ := v["message"].(string)
			return nil, fmt.Errorf("%w: status %q: %s", ErrMalformedResponse, status, msg)
		}
		data, ok := v["data"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: missing data array", ErrMalformedResponse)
		}
		items = data
	default:
		return nil, fmt.Errorf("%w: unexpected %T body", ErrMalformedResponse, raw)
	}

	limit := topology.ChannelCount()
	records := make([]models.OptimizationRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		rec, ok := buildRecord(jsonRow(obj), presentChannels(keys, limit))
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoValidData
	}
	return records, nil
}

// presentChannels returns the sorted channel numbers that have at least one
// Signal_<n>_* column, capped at limit.
func presentChannels(names []string, limit int) []int {
	seen := make(map[int]bool)
	for _, name := range names {
		if n, ok := channelOf(name); ok && n <= limit {
			seen[n] = true
		}
	}
	channels := make([]int, 0, len(seen))
	for n := range seen {
		channels = append(channels, n)
	}
	sort.Ints(channels)
	return channels
}

func buildRecord(f fields, channels []int) (models.OptimizationRecord, bool) {
	day := DefaultDay
	if s, ok := f.text(ColDay); ok && s != "" {
		d, valid := models.NormalizeWeekday(s)
		if !valid {
			return models.OptimizationRecord{}, false
		}
		day = d
	}

	// An empty Hour defaults to 0 like other numeric fields.
	hour := 0
	if s, ok := f.text(ColHour); ok && s != "" {
		h, valid := parseHour(s)
		if !valid {
			return models.OptimizationRecord{}, false
		}
		hour = h
	}

	rec := models.OptimizationRecord{
		Day:            day,
		Hour:           hour,
		TotalVehicles:  number(f, ColTotalVehicles),
		Channels:       make(map[int]models.ChannelMetrics, len(channels)),
		AvgQueueLength: number(f, ColAvgQueueLength),
		AvgDelayTime:   number(f, ColAvgDelayTime),
	}
	rec.OriginalQueueLength, _ = optional(f, ColOriginalQueueLength)
	rec.OriginalDelayTime, _ = optional(f, ColOriginalDelayTime)

	for _, n := range channels {
		ch := models.ChannelMetrics{
			Vehicles: number(f, SignalColumn(n, SuffixVehicles)),
			Timing:   number(f, SignalColumn(n, SuffixTimings)),
			Green:    number(f, SignalColumn(n, SuffixGreen)),
			Red:      number(f, SignalColumn(n, SuffixRed)),
		}
		ch.OriginalGreen, _ = optional(f, SignalColumn(n, SuffixOriginalGreen))
		ch.OriginalRed, _ = optional(f, SignalColumn(n, SuffixOriginalRed))
		rec.Channels[n] = ch
	}
	return rec, true
}

// parseHour accepts "8" and "8.0" style values in 0..23.
func parseHour(s string) (int, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || v < 0 || v > 23 {
		return 0, false
	}
	return int(v), true
}
