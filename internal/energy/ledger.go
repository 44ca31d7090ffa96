package energy

import (
	"math"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

const joulesPerMJ = 1e6

// Ledger is the energy summary of one lap. All values are in MJ.
type Ledger struct {
	DeployedMJ  float64 `json:"deployedMJ"`  // Energy sent to the wheels
	RecoveredMJ float64 `json:"recoveredMJ"` // Energy recovered under braking and lift-off
	LimitMJ     float64 `json:"limitMJ"`     // Regulatory per-lap budget
	ExcessMJ    float64 `json:"excessMJ"`    // Deployment above the budget, never negative
	BalanceMJ   float64 `json:"balanceMJ"`   // Deployed minus recovered, positive is a deficit

	Streaks []Streak `json:"streaks,omitempty"`
}

// NewLedger builds a ledger from the summed deployment and harvesting streak
// energies in J. The harvesting sum is counted by magnitude.
func NewLedger(deployedJ, harvestedJ, limitMJ float64) Ledger {
	deployed := deployedJ / joulesPerMJ
	recovered := math.Abs(harvestedJ / joulesPerMJ)
	return Ledger{
		DeployedMJ:  deployed,
		RecoveredMJ: recovered,
		LimitMJ:     limitMJ,
		ExcessMJ:    math.Max(0, deployed-limitMJ),
		BalanceMJ:   deployed - recovered,
	}
}

// Aggregate groups simulated samples into streaks and sums the deployment
// and harvesting streak energies into a ledger.
func Aggregate(samples []telemetry.Sample, limitMJ float64) Ledger {
	streaks := Streaks(samples)

	var deployed, harvested float64
	for _, s := range streaks {
		switch s.Mode {
		case telemetry.ModeDeployment:
			deployed += s.Energy
		case telemetry.ModeHarvesting:
			harvested += s.Energy
		}
	}

	l := NewLedger(deployed, harvested, limitMJ)
	l.Streaks = streaks
	return l
}

// Clipped reports whether deployment went over the budget.
func (l Ledger) Clipped() bool {
	return l.ExcessMJ > 0
}

// Deficit reports whether more energy was deployed than recovered.
func (l Ledger) Deficit() bool {
	return l.BalanceMJ > 0
}

// LimitPct is the share of the deployed energy covered by the budget, in
// percent [0-100].
func (l Ledger) LimitPct() float64 {
	return math.Min(l.LimitMJ/math.Max(l.DeployedMJ, 0.01), 1) * 100
}

// RegenPct is the recovered energy relative to the budget, in percent [0-100].
func (l Ledger) RegenPct() float64 {
	if l.LimitMJ <= 0 {
		return 0
	}
	return math.Min(l.RecoveredMJ/l.LimitMJ, 1) * 100
}

// DeployShare is the deployed share of all energy moved, in percent [0-100].
func (l Ledger) DeployShare() float64 {
	return math.Min(l.DeployedMJ/math.Max(l.DeployedMJ+l.RecoveredMJ, 0.01), 1) * 100
}
