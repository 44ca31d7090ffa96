package classifier

import (
	"sort"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// Clipping thresholds: flat out, not gaining speed, on a fast straight
const (
	ClipThrottle = 95.0  // percent, exclusive
	ClipAccel    = 0.0   // km/h per sample, inclusive
	ClipSpeed    = 250.0 // km/h, exclusive
)

// rankLabels names the clusters ordered by ascending mean throttle
var rankLabels = []telemetry.Mode{
	telemetry.ModeHarvesting,
	telemetry.ModeNeutral,
	telemetry.ModeDeployment,
}

// RankByThrottle maps cluster indices to modes. Clusters are ranked by the
// mean throttle of their members, ascending, and named Harvesting, Neutral and
// Deployment in that order. Equal means keep the cluster index order; a
// cluster without members ranks with a mean of 0.
func RankByThrottle(labels []int, throttle []float64, k int) []telemetry.Mode {
	sums := make([]float64, k)
	counts := make([]int, k)
	for i, c := range labels {
		sums[c] += throttle[i]
		counts[c]++
	}

	means := make([]float64, k)
	order := make([]int, k)
	for c := range means {
		if counts[c] > 0 {
			means[c] = sums[c] / float64(counts[c])
		}
		order[c] = c
	}
	sort.SliceStable(order, func(i, j int) bool {
		return means[order[i]] < means[order[j]]
	})

	modes := make([]telemetry.Mode, k)
	for rank, c := range order {
		if rank < len(rankLabels) {
			modes[c] = rankLabels[rank]
		} else {
			modes[c] = rankLabels[len(rankLabels)-1]
		}
	}
	return modes
}

// IsClipping reports whether a sample matches the energy-depletion rule.
func IsClipping(s *telemetry.Sample) bool {
	return s.ThrottleValue() > ClipThrottle && s.Accel <= ClipAccel && s.SpeedValue() > ClipSpeed
}

// ApplyClipping relabels every sample matching the depletion rule as Clipping,
// whatever its cluster, and returns how many samples were relabelled.
func ApplyClipping(samples []telemetry.Sample) int {
	var n int
	for i := range samples {
		if IsClipping(&samples[i]) {
			samples[i].Mode = telemetry.ModeClipping
			n++
		}
	}
	return n
}
