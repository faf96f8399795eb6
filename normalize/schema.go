package normalize

import (
	"fmt"
	"regexp"
	"strconv"
)

// Canonical column names of the optimizer's CSV and JSON row schema. Matching
// is case-sensitive.
const (
	ColDay                 = "Day"
	ColHour                = "Hour"
	ColTotalVehicles       = "Total_Vehicles"
	ColAvgQueueLength      = "Avg_Queue_Length"
	ColAvgDelayTime        = "Avg_Delay_Time"
	ColOriginalQueueLength = "Original_Queue_Length"
	ColOriginalDelayTime   = "Original_Delay_Time"
)

// Per-channel column suffixes, as in Signal_<n>_<suffix>.
const (
	SuffixVehicles      = "Vehicles"
	SuffixTimings       = "Timings"
	SuffixGreen         = "Green"
	SuffixRed           = "Red"
	SuffixOriginalGreen = "Original_Green"
	SuffixOriginalRed   = "Original_Red"
)

var channelSuffixes = []string{
	SuffixVehicles, SuffixTimings, SuffixGreen, SuffixRed, SuffixOriginalGreen, SuffixOriginalRed,
}

var (
	signalColumn = regexp.MustCompile(`^Signal_([0-9]+)_(Vehicles|Timings|Green|Red|Original_Green|Original_Red)$`)

	scalarColumns = map[string]bool{
		ColDay:                 true,
		ColHour:                true,
		ColTotalVehicles:       true,
		ColAvgQueueLength:      true,
		ColAvgDelayTime:        true,
		ColOriginalQueueLength: true,
		ColOriginalDelayTime:   true,
	}
)

// SignalColumn returns the column name for channel n, e.g. Signal_2_Green.
func SignalColumn(n int, suffix string) string {
	return fmt.Sprintf("Signal_%d_%s", n, suffix)
}

// channelOf reports which channel a column belongs to.
func channelOf(name string) (int, bool) {
	m := signalColumn.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// IsSchemaColumn reports whether name is part of the canonical schema.
func IsSchemaColumn(name string) bool {
	if scalarColumns[name] {
		return true
	}
	_, ok := channelOf(name)
	return ok
}
