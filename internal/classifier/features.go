package classifier

import (
	"math"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// Feature columns, in order
const (
	FeatureSpeed = iota
	FeatureThrottle
	FeatureBrake
	FeatureAccel
)

// Features builds the (speed, throttle, brake, accel) vector of every sample.
// Missing and NaN readings become 0.
func Features(samples []telemetry.Sample) [][]float64 {
	out := make([][]float64, len(samples))
	for i := range samples {
		s := &samples[i]
		accel := s.Accel
		if math.IsNaN(accel) {
			accel = 0
		}
		out[i] = []float64{s.SpeedValue(), s.ThrottleValue(), s.BrakeValue(), accel}
	}
	return out
}

// Standardize scales every column to zero mean and unit variance using the
// population standard deviation. Constant columns are only centred.
func Standardize(points [][]float64) [][]float64 {
	if len(points) == 0 {
		return nil
	}
	dims := len(points[0])
	n := float64(len(points))

	mean := make([]float64, dims)
	for _, p := range points {
		for d, v := range p {
			mean[d] += v
		}
	}
	for d := range mean {
		mean[d] /= n
	}

	scale := make([]float64, dims)
	for _, p := range points {
		for d, v := range p {
			diff := v - mean[d]
			scale[d] += diff * diff
		}
	}
	for d := range scale {
		scale[d] = math.Sqrt(scale[d] / n)
		if scale[d] == 0 {
			scale[d] = 1
		}
	}

	out := make([][]float64, len(points))
	for i, p := range points {
		row := make([]float64, dims)
		for d, v := range p {
			row[d] = (v - mean[d]) / scale[d]
		}
		out[i] = row
	}
	return out
}
