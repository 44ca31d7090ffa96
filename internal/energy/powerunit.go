// Package energy simulates the electrical power flow of the hybrid power unit
// over a mode-labelled lap and aggregates it into a lap energy ledger.
package energy

import (
	"fmt"
	"math"
	"time"
)

const kmhToMS = 1 / 3.6

// ConfigError is returned for an invalid power unit model
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string {
	return "energy.PowerUnit: " + e.msg
}

// PowerUnit is the generic power unit model. The curves are empirical linear
// approximations and are reproduced as they are.
type PowerUnit struct {
	Mass       float64 // Car and driver in kg
	Efficiency float64 // MGU-K conversion efficiency [0-1]

	MaxDeployPower  float64 // W
	MaxHarvestPower float64 // W, magnitude

	MaxTimeStep time.Duration // Longer gaps are telemetry dropouts, not drive time

	DerateSpeed float64 // km/h above which deployment is derated
	DerateSpan  float64 // km/h over which the derating falls to zero
	DerateFloor float64 // Lowest fraction of rated power

	RegenBrakeThreshold float64 // Brake percent above which braking counts as active
	RegenFloor          float64 // Lowest regeneration fraction under braking
	RegenDivisor        float64 // Slope of the regeneration curve over brake percent
	LiftCoastRegen      float64 // Regeneration fraction without active braking

	FinalHarvestPower float64 // W, harvesting power of a last sample with no successor
}

// DefaultPowerUnit returns the model used for every analysis.
func DefaultPowerUnit() PowerUnit {
	return PowerUnit{
		Mass:                800,
		Efficiency:          0.75,
		MaxDeployPower:      350_000,
		MaxHarvestPower:     350_000,
		MaxTimeStep:         120 * time.Millisecond,
		DerateSpeed:         290,
		DerateSpan:          100,
		DerateFloor:         0.3,
		RegenBrakeThreshold: 5,
		RegenFloor:          0.2,
		RegenDivisor:        150,
		LiftCoastRegen:      0.3,
		FinalHarvestPower:   -40_000,
	}
}

// Validate checks that every physical parameter is in range
func (u PowerUnit) Validate() error {
	switch {
	case u.Mass <= 0:
		return &ConfigError{fmt.Sprintf("mass must be positive: %g given", u.Mass)}
	case u.Efficiency <= 0 || u.Efficiency > 1:
		return &ConfigError{fmt.Sprintf("efficiency must be in (0, 1]: %g given", u.Efficiency)}
	case u.MaxDeployPower <= 0 || u.MaxHarvestPower <= 0:
		return &ConfigError{"power limits must be positive"}
	case u.MaxTimeStep <= 0:
		return &ConfigError{"time step bound must be positive"}
	case u.DerateSpan <= 0 || u.RegenDivisor <= 0:
		return &ConfigError{"curve divisors must be positive"}
	}
	return nil
}

// DerateFactor returns the fraction of rated deployment power available at
// the given speed in km/h.
func (u PowerUnit) DerateFactor(speed float64) float64 {
	if speed <= u.DerateSpeed {
		return 1
	}
	return math.Max(u.DerateFloor, 1-(speed-u.DerateSpeed)/u.DerateSpan)
}

// DeploymentPower returns the deployed power in W for a speed in km/h and a
// throttle in percent.
func (u PowerUnit) DeploymentPower(speed, throttle float64) float64 {
	return u.MaxDeployPower * u.DerateFactor(speed) * (throttle / 100)
}

// RegenFactor returns the share of the kinetic energy drop that reaches the
// motor. Heavier braking diverts more energy to the mechanical brakes.
func (u PowerUnit) RegenFactor(brake float64) float64 {
	b := clampBrake(brake)
	if b > u.RegenBrakeThreshold {
		return math.Max(u.RegenFloor, 1-b/u.RegenDivisor)
	}
	return u.LiftCoastRegen
}

// HarvestingPower returns the power flowing into storage, as a negative value
// in W, while the car slows from speed to nextSpeed (km/h) over dt seconds.
// A zero time step yields no power.
func (u PowerUnit) HarvestingPower(speed, nextSpeed, dt, brake float64) float64 {
	if dt <= 0 {
		return 0
	}
	v, vNext := speed*kmhToMS, nextSpeed*kmhToMS
	deltaKinetic := 0.5 * u.Mass * (v*v - vNext*vNext)
	recoverable := deltaKinetic * u.Efficiency * u.RegenFactor(brake)
	return -math.Min(recoverable/dt, u.MaxHarvestPower)
}

func clampBrake(brake float64) float64 {
	if math.IsNaN(brake) || brake < 0 {
		return 0
	}
	return math.Min(brake, 100)
}
