// Package summary derives dashboard statistics from normalized records.
package summary

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// PeakQuantile is the share of a day's hours a peak hour must exceed.
const PeakQuantile = 0.75

type DayStats struct {
	Day            string  `json:"day"`
	Hours          int     `json:"hours"`
	AvgVehicles    float64 `json:"avg_vehicles"`
	AvgQueueLength float64 `json:"avg_queue_length"`
	AvgDelayTime   float64 `json:"avg_delay_time"`
}

// Daily averages vehicles, queue and delay per weekday, in weekday order.
// Days without records are left out.
func Daily(records []models.OptimizationRecord) []DayStats {
	byDay := make(map[string][]models.OptimizationRecord)
	for _, r := range records {
		byDay[r.Day] = append(byDay[r.Day], r)
	}

	out := make([]DayStats, 0, len(byDay))
	for _, day := range models.Weekdays {
		rs := byDay[day]
		if len(rs) == 0 {
			continue
		}
		vehicles := make([]float64, len(rs))
		queue := make([]float64, len(rs))
		delay := make([]float64, len(rs))
		for i, r := range rs {
			vehicles[i] = totalVehicles(r)
			queue[i] = r.AvgQueueLength
			delay[i] = r.AvgDelayTime
		}
		out = append(out, DayStats{
			Day:            day,
			Hours:          len(rs),
			AvgVehicles:    stat.Mean(vehicles, nil),
			AvgQueueLength: stat.Mean(queue, nil),
			AvgDelayTime:   stat.Mean(delay, nil),
		})
	}
	return out
}

// Improvement is the mean percent improvement over points with a non-zero
// baseline. Vehicle counts improve when they rise, everything else when it
// falls. ok is false when no point qualifies.
func Improvement(points []models.RadarPoint) (float64, bool) {
	var pct []float64
	for _, p := range points {
		if p.Before == 0 {
			continue
		}
		change := (p.Before - p.After) / p.Before * 100
		if higherIsBetter(p.Parameter) {
			change = -change
		}
		pct = append(pct, change)
	}
	if len(pct) == 0 {
		return 0, false
	}
	return stat.Mean(pct, nil), true
}

func higherIsBetter(param string) bool {
	return strings.HasSuffix(param, "Vehicles")
}

// PeakHours returns, in ascending order, the hours of day whose vehicle count
// is above the day's 75th percentile.
func PeakHours(records []models.OptimizationRecord, day string) []int {
	type hourCount struct {
		hour     int
		vehicles float64
	}
	var hours []hourCount
	for _, r := range records {
		if r.Day == day {
			hours = append(hours, hourCount{r.Hour, totalVehicles(r)})
		}
	}
	if len(hours) == 0 {
		return nil
	}

	counts := make([]float64, len(hours))
	for i, h := range hours {
		counts[i] = h.vehicles
	}
	sort.Float64s(counts)
	threshold := stat.Quantile(PeakQuantile, stat.LinInterp, counts, nil)

	var peaks []int
	for _, h := range hours {
		if h.vehicles > threshold {
			peaks = append(peaks, h.hour)
		}
	}
	sort.Ints(peaks)
	return peaks
}

// totalVehicles falls back to the channel sum when the source had no total.
func totalVehicles(r models.OptimizationRecord) float64 {
	if r.TotalVehicles > 0 {
		return r.TotalVehicles
	}
	var sum float64
	for _, ch := range r.Channels {
		sum += ch.Vehicles
	}
	return sum
}
