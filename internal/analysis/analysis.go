// Package analysis runs the lap pipeline: acceleration is derived from the
// aligned samples, modes are classified, power and energy are simulated and
// the result is aggregated into the lap ledger.
package analysis

import (
	"errors"
	"fmt"

	"github.com/roman-kulish/lap-energy/internal/classifier"
	"github.com/roman-kulish/lap-energy/internal/energy"
	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// LapResult is the outcome of analysing one lap
type LapResult struct {
	Samples []telemetry.Sample `json:"samples"`

	// ModesAvailable is false when the lap had too few samples to classify.
	// Samples then carry ModeUnknown and Ledger is nil.
	ModesAvailable bool           `json:"modesAvailable"`
	Ledger         *energy.Ledger `json:"ledger,omitempty"`
	Clipped        int            `json:"clipped"` // Samples relabelled by the clipping rule
}

// ModeCounts returns how many samples fall in every mode.
func (r *LapResult) ModeCounts() map[telemetry.Mode]int {
	counts := make(map[telemetry.Mode]int, len(telemetry.Modes))
	for i := range r.Samples {
		counts[r.Samples[i].Mode]++
	}
	return counts
}

// Analyzer holds the fixed parameters of the pipeline. It carries no state
// between calls and can analyse laps from multiple goroutines.
type Analyzer struct {
	classifier classifier.Config
	simulator  *energy.Simulator
	limitMJ    float64
}

// New creates an Analyzer checking the lap ledger against limitMJ
func New(cfg classifier.Config, unit energy.PowerUnit, limitMJ float64) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sim, err := energy.NewSimulator(unit)
	if err != nil {
		return nil, err
	}
	if limitMJ <= 0 {
		return nil, fmt.Errorf("energy limit must be positive: %g given", limitMJ)
	}
	return &Analyzer{classifier: cfg, simulator: sim, limitMJ: limitMJ}, nil
}

// Analyze runs the pipeline over a copy of the samples, which must be sorted
// by timestamp. A lap too short to classify is not an error: the result has
// ModesAvailable set to false.
func (a *Analyzer) Analyze(samples []telemetry.Sample) (*LapResult, error) {
	if err := telemetry.ValidateOrder(samples); err != nil {
		return nil, err
	}

	out := make([]telemetry.Sample, len(samples))
	copy(out, samples)
	for i := range out {
		out[i].Mode = telemetry.ModeUnknown
	}
	telemetry.DeriveAcceleration(out)

	result := &LapResult{Samples: out}
	if err := classifier.Classify(out, a.classifier); err != nil {
		if errors.Is(err, classifier.ErrInsufficientData) {
			return result, nil
		}
		return nil, fmt.Errorf("classifying samples: %w", err)
	}
	result.ModesAvailable = true
	for i := range out {
		if out[i].Mode == telemetry.ModeClipping {
			result.Clipped++
		}
	}

	if err := a.simulator.Simulate(out); err != nil {
		return nil, fmt.Errorf("simulating energy flow: %w", err)
	}

	ledger := energy.Aggregate(out, a.limitMJ)
	result.Ledger = &ledger
	return result, nil
}
