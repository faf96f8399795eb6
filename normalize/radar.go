package normalize

import (
	"sort"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// Synthetic baseline factors used when a record has no measured baseline.
// They are display approximations only and are never derived from the
// optimizer.
const (
	SyntheticVehicleFactor = 0.85
	SyntheticTimingFactor  = 1.25
)

// RepresentativeHour is the hour preferred when picking the record to chart.
const RepresentativeHour = 12

// Representative picks the record at RepresentativeHour, else the first one.
func Representative(records []models.OptimizationRecord) (models.OptimizationRecord, bool) {
	if len(records) == 0 {
		return models.OptimizationRecord{}, false
	}
	for _, r := range records {
		if r.Hour == RepresentativeHour {
			return r, true
		}
	}
	return records[0], true
}

// RadarPoints reduces records to before/after chart points. Points whose
// Before is scaled rather than measured carry SyntheticBaseline.
func RadarPoints(records []models.OptimizationRecord) []models.RadarPoint {
	rec, ok := Representative(records)
	if !ok {
		return nil
	}

	channels := make([]int, 0, len(rec.Channels))
	for n := range rec.Channels {
		channels = append(channels, n)
	}
	sort.Ints(channels)

	points := make([]models.RadarPoint, 0, 3+2*len(channels))
	points = append(points, synthetic(ColTotalVehicles, rec.TotalVehicles, SyntheticVehicleFactor))
	for _, n := range channels {
		points = append(points, synthetic(SignalColumn(n, SuffixVehicles), rec.Channels[n].Vehicles, SyntheticVehicleFactor))
	}
	for _, n := range channels {
		ch := rec.Channels[n]
		points = append(points, withBaseline(SignalColumn(n, SuffixGreen), ch.Green, ch.OriginalGreen))
	}
	points = append(points,
		withBaseline(ColAvgQueueLength, rec.AvgQueueLength, rec.OriginalQueueLength),
		withBaseline(ColAvgDelayTime, rec.AvgDelayTime, rec.OriginalDelayTime),
	)
	return points
}

// withBaseline uses a measured baseline when one exists. A zero baseline is
// treated as unknown.
func withBaseline(param string, after float64, baseline *float64) models.RadarPoint {
	if baseline != nil && *baseline > 0 {
		return models.RadarPoint{Parameter: param, Before: *baseline, After: after}
	}
	return synthetic(param, after, SyntheticTimingFactor)
}

func synthetic(param string, after, factor float64) models.RadarPoint {
	return models.RadarPoint{Parameter: param, Before: after * factor, After: after, SyntheticBaseline: true}
}

// ComparisonPoints converts heuristic rows to chart points. Their baselines
// come from the source file.
func ComparisonPoints(rows []models.ComparisonRow) []models.RadarPoint {
	points := make([]models.RadarPoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, models.RadarPoint{Parameter: r.Label, Before: r.Before, After: r.After})
	}
	return points
}
