package telemetry

import (
	"math"
	"time"
)

// CarData is a single reading of the car data stream
type CarData struct {
	Timestamp time.Time `json:"date"`               // Timestamp of the reading
	Speed     *float64  `json:"speed,omitempty"`    // Speed in km/h
	Throttle  *float64  `json:"throttle,omitempty"` // Throttle pedal in percent [0-100]
	Brake     *float64  `json:"brake,omitempty"`    // Brake signal, percent-like, not bounded upstream
	RPM       *float64  `json:"rpm,omitempty"`      // Engine revolutions per minute
	Gear      *int      `json:"n_gear,omitempty"`   // Selected gear
	DRS       *int      `json:"drs,omitempty"`      // DRS status code
}

// Location is a single reading of the location stream
type Location struct {
	Timestamp time.Time `json:"date"` // Timestamp of the reading
	X         float64   `json:"x"`    // Track position X
	Y         float64   `json:"y"`    // Track position Y
}

// Sample is one time-ordered observation within a lap: the car data reading
// joined with the nearest location, plus the values derived by the classifier
// and the energy simulator.
type Sample struct {
	CarData

	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	Accel    float64 `json:"accel"`    // Speed delta to the previous sample, km/h
	Mode     Mode    `json:"mode"`     // Operating mode, ModeUnknown until classified
	DT       float64 `json:"dt"`       // Integrated time step in seconds
	Power    float64 `json:"power"`    // Electrical power in W, negative flows into storage
	Energy   float64 `json:"energy"`   // Power * DT in J
	StreakID int     `json:"streakID"` // Run of consecutive same-mode samples, starts at 1
}

// SpeedValue returns the speed with nil and NaN read as 0.
func (s *Sample) SpeedValue() float64 { return Value(s.Speed) }

// ThrottleValue returns the throttle with nil and NaN read as 0.
func (s *Sample) ThrottleValue() float64 { return Value(s.Throttle) }

// BrakeValue returns the brake signal with nil and NaN read as 0.
func (s *Sample) BrakeValue() float64 { return Value(s.Brake) }

// Located reports whether the sample was matched to a location reading.
func (s *Sample) Located() bool {
	return s.X != nil && s.Y != nil
}

// Value dereferences an optional channel value. Missing and NaN readings are
// treated as 0, the physical floor of an unpowered sample.
func Value(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	return *v
}

// Session describes a timing session of a race weekend
type Session struct {
	Key         int64     `json:"session_key"`
	MeetingKey  int64     `json:"meeting_key"`
	Name        string    `json:"session_name"`
	Type        string    `json:"session_type"`
	CircuitName string    `json:"circuit_short_name"`
	Year        int       `json:"year"`
	DateStart   time.Time `json:"date_start"`
	DateEnd     time.Time `json:"date_end"`
}

// Driver is a car entry in a session
type Driver struct {
	Number   int    `json:"driver_number"`
	Acronym  string `json:"name_acronym"`
	FullName string `json:"full_name"`
	LastName string `json:"last_name"`
	TeamName string `json:"team_name"`
}

// Lap holds the timing of a single lap. DateStart and Duration are nil for
// laps the timing system could not time (out laps, red flags).
type Lap struct {
	DriverNumber int        `json:"driver_number"`
	Number       int        `json:"lap_number"`
	DateStart    *time.Time `json:"date_start,omitempty"`
	Duration     *float64   `json:"lap_duration,omitempty"` // seconds
	IsPitOutLap  bool       `json:"is_pit_out_lap"`
}

// lapWindowPadding extends the lap window so the last samples of the lap are
// not lost to stream jitter.
const lapWindowPadding = 800 * time.Millisecond

// Timed reports whether the lap has both a start time and a duration.
func (l *Lap) Timed() bool {
	return l.DateStart != nil && l.Duration != nil
}

// Window returns the time range of car data that belongs to the lap.
func (l *Lap) Window() (start, end time.Time, ok bool) {
	if !l.Timed() {
		return time.Time{}, time.Time{}, false
	}
	start = l.DateStart.UTC()
	end = start.Add(time.Duration(*l.Duration*float64(time.Second)) + lapWindowPadding)
	return start, end, true
}
