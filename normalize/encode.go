package normalize

import (
	"sort"
	"strconv"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// Encode lays records out in the download CSV column order. Baseline columns
// are only emitted when at least one record carries them; a field a record
// lacks is written empty.
func Encode(records []models.OptimizationRecord, topology models.Topology) ([]string, [][]string) {
	limit := topology.ChannelCount()
	seen := make(map[int]bool)
	var hasOrigQueue, hasOrigDelay, hasOrigGreen, hasOrigRed bool
	for _, r := range records {
		for n, ch := range r.Channels {
			if n <= limit {
				seen[n] = true
			}
			hasOrigGreen = hasOrigGreen || ch.OriginalGreen != nil
			hasOrigRed = hasOrigRed || ch.OriginalRed != nil
		}
		hasOrigQueue = hasOrigQueue || r.OriginalQueueLength != nil
		hasOrigDelay = hasOrigDelay || r.OriginalDelayTime != nil
	}
	channels := make([]int, 0, len(seen))
	for n := range seen {
		channels = append(channels, n)
	}
	sort.Ints(channels)

	type column struct {
		name  string
		value func(models.OptimizationRecord) string
	}
	var cols []column
	add := func(name string, value func(models.OptimizationRecord) string) {
		cols = append(cols, column{name: name, value: value})
	}
	perChannel := func(suffix string, pick func(models.ChannelMetrics) *float64) {
		for _, n := range channels {
			add(SignalColumn(n, suffix), func(r models.OptimizationRecord) string {
				ch, ok := r.Channels[n]
				if !ok {
					return ""
				}
				return formatOptional(pick(ch))
			})
		}
	}

	add(ColDay, func(r models.OptimizationRecord) string { return r.Day })
	add(ColHour, func(r models.OptimizationRecord) string { return strconv.Itoa(r.Hour) })
	add(ColTotalVehicles, func(r models.OptimizationRecord) string { return formatFloat(r.TotalVehicles) })
	perChannel(SuffixVehicles, func(ch models.ChannelMetrics) *float64 { return &ch.Vehicles })
	perChannel(SuffixTimings, func(ch models.ChannelMetrics) *float64 { return &ch.Timing })
	add(ColAvgQueueLength, func(r models.OptimizationRecord) string { return formatFloat(r.AvgQueueLength) })
	add(ColAvgDelayTime, func(r models.OptimizationRecord) string { return formatFloat(r.AvgDelayTime) })
	for _, n := range channels {
		for _, suffix := range []string{SuffixGreen, SuffixRed} {
			add(SignalColumn(n, suffix), func(r models.OptimizationRecord) string {
				ch, ok := r.Channels[n]
				if !ok {
					return ""
				}
				if suffix == SuffixGreen {
					return formatFloat(ch.Green)
				}
				return formatFloat(ch.Red)
			})
		}
	}
	if hasOrigQueue {
		add(ColOriginalQueueLength, func(r models.OptimizationRecord) string { return formatOptional(r.OriginalQueueLength) })
	}
	if hasOrigDelay {
		add(ColOriginalDelayTime, func(r models.OptimizationRecord) string { return formatOptional(r.OriginalDelayTime) })
	}
	if hasOrigGreen {
		perChannel(SuffixOriginalGreen, func(ch models.ChannelMetrics) *float64 { return ch.OriginalGreen })
	}
	if hasOrigRed {
		perChannel(SuffixOriginalRed, func(ch models.ChannelMetrics) *float64 { return ch.OriginalRed })
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.name
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.value(r)
		}
		rows[i] = row
	}
	return headers, rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
