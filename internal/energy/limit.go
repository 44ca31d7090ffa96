package energy

import (
	"fmt"
	"strings"
)

// CircuitCategory selects the regulatory per-lap energy budget
type CircuitCategory string

const (
	CircuitNormal    CircuitCategory = "normal"    // Conventional braking zones
	CircuitLimited   CircuitCategory = "limited"   // Moderate braking, limited recovery
	CircuitHighSpeed CircuitCategory = "highspeed" // High speed, minimal braking
)

var circuitLimits = map[CircuitCategory]float64{
	CircuitNormal:    8.5,
	CircuitLimited:   8.0,
	CircuitHighSpeed: 5.0,
}

func (c CircuitCategory) String() string {
	return string(c)
}

// Limit returns the per-lap budget in MJ, 0 for an unknown category.
func (c CircuitCategory) Limit() float64 {
	return circuitLimits[c]
}

// ParseCircuitCategory returns the category for its name, case insensitive.
func ParseCircuitCategory(s string) (CircuitCategory, error) {
	c := CircuitCategory(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := circuitLimits[c]; !ok {
		return "", fmt.Errorf("invalid circuit category: %s", s)
	}
	return c, nil
}
