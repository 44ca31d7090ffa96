package energy

import (
	"errors"
	"fmt"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// ErrModesUnassigned is returned when a sequence reaches the simulator
// without a classified mode on every sample.
var ErrModesUnassigned = errors.New("samples without an assigned mode")

// Simulator turns a mode-labelled lap into per-sample power and energy
type Simulator struct {
	unit PowerUnit
}

// NewSimulator creates a simulator for the given power unit model
func NewSimulator(unit PowerUnit) (*Simulator, error) {
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{unit: unit}, nil
}

// PowerUnit returns the model the simulator runs with
func (s *Simulator) PowerUnit() PowerUnit {
	return s.unit
}

// Simulate annotates every sample with DT, Power, Energy and StreakID. The
// samples must be sorted by timestamp and classified.
func (s *Simulator) Simulate(samples []telemetry.Sample) error {
	if err := telemetry.ValidateOrder(samples); err != nil {
		return err
	}
	for i := range samples {
		if !samples[i].Mode.Assigned() {
			return fmt.Errorf("sample %d: %w", i, ErrModesUnassigned)
		}
	}

	s.timeSteps(samples)

	// every sample is evaluated together with its successor, the last one
	// has none
	for i := range samples {
		cur := &samples[i]
		var next *telemetry.Sample
		if i+1 < len(samples) {
			next = &samples[i+1]
		}
		cur.Power = s.power(cur, next)
		cur.Energy = cur.Power * cur.DT
	}

	AssignStreaks(samples)
	return nil
}

// timeSteps sets DT to the time since the previous sample, bounded by the
// model's maximum step. The first sample has no elapsed time.
func (s *Simulator) timeSteps(samples []telemetry.Sample) {
	maxStep := s.unit.MaxTimeStep.Seconds()
	for i := range samples {
		if i == 0 {
			samples[i].DT = 0
			continue
		}
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		samples[i].DT = min(max(dt, 0), maxStep)
	}
}

func (s *Simulator) power(cur, next *telemetry.Sample) float64 {
	switch cur.Mode {
	case telemetry.ModeDeployment:
		return s.unit.DeploymentPower(cur.SpeedValue(), cur.ThrottleValue())

	case telemetry.ModeHarvesting:
		if next == nil {
			return s.unit.FinalHarvestPower
		}
		return s.unit.HarvestingPower(cur.SpeedValue(), next.SpeedValue(), cur.DT, cur.BrakeValue())

	default: // neutral and clipping: no electrical push
		return 0
	}
}
