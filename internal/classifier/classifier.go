// Package classifier assigns an operating mode to every telemetry sample of a
// lap. Samples are partitioned into three clusters over standardised
// speed, throttle, brake and acceleration features, the clusters are named by
// their mean throttle and a deterministic rule marks energy-limit clipping on
// top of the statistical assignment.
package classifier

import (
	"errors"
	"fmt"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

const (
	// DefaultMinSamples is the shortest sequence that is classified
	DefaultMinSamples = 10

	// DefaultClusters is the number of statistical groups, one per rank label
	DefaultClusters = 3

	// DefaultRestarts is the number of k-means runs, the lowest inertia wins
	DefaultRestarts = 10

	// DefaultSeed makes repeated runs over the same input identical
	DefaultSeed uint64 = 42

	DefaultMaxIterations = 300
	DefaultTolerance     = 1e-4
)

var (
	// ErrInsufficientData is returned when a sequence is too short to classify.
	// It is not fatal: the samples are left untouched with ModeUnknown and the
	// caller should report the modes as unavailable.
	ErrInsufficientData = errors.New("insufficient data for classification")

	// ErrMissingChannel is returned when a channel required for clustering is
	// absent from every sample of the sequence.
	ErrMissingChannel = errors.New("required channel missing")
)

// ConfigError is returned for an invalid classifier configuration
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return "classifier.Config: " + e.msg
}

// Config holds the clustering parameters. They are passed explicitly to every
// call so the classification is a pure function of its input.
type Config struct {
	MinSamples    int     // Sequences shorter than this are not classified
	Clusters      int     // Number of k-means clusters, must match the rank labels
	Restarts      int     // Number of k-means runs, at least 3
	Seed          uint64  // Random seed for centroid initialisation
	MaxIterations int     // Upper bound of Lloyd iterations per run
	Tolerance     float64 // Convergence threshold on squared centroid movement
}

// DefaultConfig returns the fixed configuration used for every lap.
func DefaultConfig() Config {
	return Config{
		MinSamples:    DefaultMinSamples,
		Clusters:      DefaultClusters,
		Restarts:      DefaultRestarts,
		Seed:          DefaultSeed,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Validate checks the configuration for consistency
func (c Config) Validate() error {
	if c.MinSamples < c.Clusters {
		return &ConfigError{fmt.Sprintf("minimum samples %d below cluster count %d", c.MinSamples, c.Clusters)}
	}
	if c.Clusters != len(rankLabels) {
		return &ConfigError{fmt.Sprintf("cluster count must be %d: %d given", len(rankLabels), c.Clusters)}
	}
	if c.Restarts < 3 {
		return &ConfigError{fmt.Sprintf("at least 3 restarts required: %d given", c.Restarts)}
	}
	if c.MaxIterations <= 0 {
		return &ConfigError{"max iterations must be positive"}
	}
	if c.Tolerance < 0 {
		return &ConfigError{"tolerance must not be negative"}
	}
	return nil
}

// Classify sets the Mode of every sample in place. Accel must already be
// derived. For sequences shorter than the configured minimum the samples are
// left untouched and ErrInsufficientData is returned.
func Classify(samples []telemetry.Sample, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(samples) < cfg.MinSamples {
		return fmt.Errorf("%d samples, %d required: %w", len(samples), cfg.MinSamples, ErrInsufficientData)
	}
	if err := checkChannels(samples); err != nil {
		return err
	}

	features := Standardize(Features(samples))
	assign := KMeans(features, cfg).Labels

	throttle := make([]float64, len(samples))
	for i := range samples {
		throttle[i] = samples[i].ThrottleValue()
	}

	modes := RankByThrottle(assign, throttle, cfg.Clusters)
	for i := range samples {
		samples[i].Mode = modes[assign[i]]
	}

	ApplyClipping(samples)
	return nil
}

func checkChannels(samples []telemetry.Sample) error {
	channels := []struct {
		name string
		get  func(*telemetry.Sample) *float64
	}{
		{"speed", func(s *telemetry.Sample) *float64 { return s.Speed }},
		{"throttle", func(s *telemetry.Sample) *float64 { return s.Throttle }},
		{"brake", func(s *telemetry.Sample) *float64 { return s.Brake }},
	}

	for _, ch := range channels {
		present := false
		for i := range samples {
			if ch.get(&samples[i]) != nil {
				present = true
				break
			}
		}
		if !present {
			return &telemetry.PreconditionError{
				Precondition: "channel",
				Detail:       ch.name,
				Err:          ErrMissingChannel,
			}
		}
	}
	return nil
}
