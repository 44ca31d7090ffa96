package telemetry

import (
	"fmt"
	"sort"
	"time"
)

// DefaultAlignTolerance is the widest gap between a car data reading and the
// location reading it is joined with.
const DefaultAlignTolerance = time.Second

// ValidateOrder fails fast on a sequence that is not sorted by timestamp.
// Equal timestamps are allowed, they produce a zero time step.
func ValidateOrder(samples []Sample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.Before(samples[i-1].Timestamp) {
			return &PreconditionError{
				Precondition: "ordering",
				Detail:       fmt.Sprintf("sample %d at %s precedes sample %d", i, samples[i].Timestamp.Format(time.RFC3339Nano), i-1),
				Err:          ErrInvalidOrdering,
			}
		}
	}
	return nil
}

// DeriveAcceleration sets Accel to the speed difference with the previous
// sample. The first sample has no predecessor and gets 0.
func DeriveAcceleration(samples []Sample) {
	for i := range samples {
		if i == 0 {
			samples[i].Accel = 0
			continue
		}
		samples[i].Accel = samples[i].SpeedValue() - samples[i-1].SpeedValue()
	}
}

// Align joins every car data reading with the location reading nearest in
// time, as long as it is within tolerance. Readings without a match keep nil
// coordinates. Both inputs are sorted by timestamp on a copy before joining,
// the result is ordered by the car data timestamps.
func Align(car []CarData, loc []Location, tolerance time.Duration) []Sample {
	cd := make([]CarData, len(car))
	copy(cd, car)
	sort.SliceStable(cd, func(i, j int) bool { return cd[i].Timestamp.Before(cd[j].Timestamp) })

	ld := make([]Location, len(loc))
	copy(ld, loc)
	sort.SliceStable(ld, func(i, j int) bool { return ld[i].Timestamp.Before(ld[j].Timestamp) })

	samples := make([]Sample, len(cd))
	j := 0
	for i, c := range cd {
		samples[i] = Sample{CarData: c}
		if len(ld) == 0 {
			continue
		}

		// advance while the next location is at least as close
		for j+1 < len(ld) && absDuration(ld[j+1].Timestamp.Sub(c.Timestamp)) <= absDuration(ld[j].Timestamp.Sub(c.Timestamp)) {
			j++
		}

		if absDuration(ld[j].Timestamp.Sub(c.Timestamp)) <= tolerance {
			x, y := ld[j].X, ld[j].Y
			samples[i].X = &x
			samples[i].Y = &y
		}
	}
	return samples
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// DropUnlocated removes samples that could not be matched to a location.
func DropUnlocated(samples []Sample) []Sample {
	out := samples[:0:0]
	for _, s := range samples {
		if s.Located() {
			out = append(out, s)
		}
	}
	return out
}

// FilterMinSpeed keeps samples with a speed of at least minSpeed km/h.
// A non-positive threshold keeps everything.
func FilterMinSpeed(samples []Sample, minSpeed float64) []Sample {
	if minSpeed <= 0 {
		return samples
	}
	out := samples[:0:0]
	for _, s := range samples {
		if s.Speed != nil && *s.Speed >= minSpeed {
			out = append(out, s)
		}
	}
	return out
}

// Downsample keeps every nth sample starting with the first one.
func Downsample(samples []Sample, n int) []Sample {
	if n <= 1 {
		return samples
	}
	out := make([]Sample, 0, len(samples)/n+1)
	for i := 0; i < len(samples); i += n {
		out = append(out, samples[i])
	}
	return out
}
