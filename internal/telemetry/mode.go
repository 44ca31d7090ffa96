package telemetry

import "fmt"

// Mode is the operating mode of the hybrid power unit at a sample. The string
// form is a stable machine key, display text belongs to the presentation layer.
type Mode uint8

const (
	ModeUnknown Mode = iota // not classified, e.g. too few samples
	ModeHarvesting
	ModeNeutral
	ModeDeployment
	ModeClipping
)

var modeKeys = map[Mode]string{
	ModeUnknown:    "unknown",
	ModeHarvesting: "harvesting",
	ModeNeutral:    "neutral",
	ModeDeployment: "deployment",
	ModeClipping:   "clipping",
}

// Modes lists the assignable modes in display order.
var Modes = []Mode{ModeHarvesting, ModeNeutral, ModeDeployment, ModeClipping}

func (m Mode) String() string {
	if k, ok := modeKeys[m]; ok {
		return k
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Assigned reports whether m is one of the four classified modes.
func (m Mode) Assigned() bool {
	return m >= ModeHarvesting && m <= ModeClipping
}

// ParseMode returns the Mode for a machine key.
func ParseMode(key string) (Mode, error) {
	for m, k := range modeKeys {
		if k == key {
			return m, nil
		}
	}
	return ModeUnknown, fmt.Errorf("telemetry.Mode: unknown key: %s", key)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
