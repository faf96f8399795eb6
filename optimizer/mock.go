package optimizer

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// Placeholder ranges for demo results. They are not derived from any traffic
// model and must not feed a real computation.
const (
	MockGreenScaleMin = 0.85
	MockGreenScaleMax = 1.15
	MockDelayMin      = 45.0
	MockDelayMax      = 75.0
)

// Mock synthesizes results while the optimizer is down. Everything it returns
// is tagged models.SourceMock.
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMock(src rand.Source) *Mock {
	return &Mock{rnd: rand.New(src)}
}

func (m *Mock) uniform(lo, hi float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo + m.rnd.Float64()*(hi-lo)
}

// Timings scales each requested time by its own random factor and invents a
// delay. The output always has one entry per requested channel.
func (m *Mock) Timings(req models.OptimizationRequest) *models.OptimizationResult {
	result := &models.OptimizationResult{
		OptimizedGreenTimes: m.scale(req.GreenTimes),
		EstimatedDelayTime:  math.Round(m.uniform(MockDelayMin, MockDelayMax)),
		IntersectionType:    req.Topology.String(),
		Source:              models.SourceMock,
	}
	if len(req.RedTimes) > 0 {
		result.OptimizedRedTimes = m.scale(req.RedTimes)
	}
	return result
}

func (m *Mock) scale(times []int) []int {
	out := make([]int, len(times))
	for i, t := range times {
		out[i] = int(math.Round(float64(t) * m.uniform(MockGreenScaleMin, MockGreenScaleMax)))
	}
	return out
}

// Sample is a canned two-row dataset (Monday 08:00 and 09:00) covering every
// channel of the topology.
func (m *Mock) Sample(topology models.Topology) []models.OptimizationRecord {
	records := make([]models.OptimizationRecord, 0, 2)
	for i, hour := range []int{8, 9} {
		rec := models.OptimizationRecord{
			Day:            "Monday",
			Hour:           hour,
			Channels:       make(map[int]models.ChannelMetrics, topology.ChannelCount()),
			AvgQueueLength: 12.5 + float64(i)*2,
			AvgDelayTime:   math.Round(m.uniform(MockDelayMin, MockDelayMax)),
		}
		for n := 1; n <= topology.ChannelCount(); n++ {
			vehicles := float64(80 + 10*n + 15*i)
			green := float64(30 + 5*n)
			rec.Channels[n] = models.ChannelMetrics{
				Vehicles: vehicles,
				Timing:   green + 5,
				Green:    green,
				Red:      float64(90 - 5*n),
			}
			rec.TotalVehicles += vehicles
		}
		records = append(records, rec)
	}
	return records
}
