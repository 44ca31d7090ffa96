package app

import (
	"image"
	"math"
	"time"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// TrackData is the located part of a lap projected onto an image area
type TrackData struct {
	XMin, XMax                   float64
	YMin, YMax                   float64
	TimestampStart, TimestampEnd time.Time

	Samples []telemetry.Sample // located samples, in time order
	Points  []image.Point      // pixel position of each sample
}

// NewTrackData collects the located samples and their coordinate ranges.
func NewTrackData(samples []telemetry.Sample) *TrackData {
	t := &TrackData{
		XMin: math.MaxFloat64, XMax: -math.MaxFloat64,
		YMin: math.MaxFloat64, YMax: -math.MaxFloat64,
	}
	for _, s := range samples {
		t.Update(s)
	}
	return t
}

func (t *TrackData) Update(s telemetry.Sample) {
	if !s.Located() {
		return
	}

	t.XMin = min(t.XMin, *s.X)
	t.XMax = max(t.XMax, *s.X)
	t.YMin = min(t.YMin, *s.Y)
	t.YMax = max(t.YMax, *s.Y)

	if t.TimestampStart.IsZero() || t.TimestampStart.After(s.Timestamp) {
		t.TimestampStart = s.Timestamp
	}
	if t.TimestampEnd.IsZero() || t.TimestampEnd.Before(s.Timestamp) {
		t.TimestampEnd = s.Timestamp
	}

	t.Samples = append(t.Samples, s)
}

// Project fits the track into area keeping its aspect ratio. The Y axis is
// flipped so the map reads like the circuit seen from above.
func (t *TrackData) Project(area image.Rectangle) {
	t.Points = make([]image.Point, len(t.Samples))
	if len(t.Samples) == 0 {
		return
	}

	spanX := math.Max(t.XMax-t.XMin, 1)
	spanY := math.Max(t.YMax-t.YMin, 1)
	scale := math.Min(float64(area.Dx()-1)/spanX, float64(area.Dy()-1)/spanY)

	// centre the smaller dimension
	offX := (float64(area.Dx()-1) - spanX*scale) / 2
	offY := (float64(area.Dy()-1) - spanY*scale) / 2

	for i, s := range t.Samples {
		x := float64(area.Min.X) + offX + (*s.X-t.XMin)*scale
		y := float64(area.Max.Y-1) - offY - (*s.Y-t.YMin)*scale
		t.Points[i] = image.Pt(int(math.Round(x)), int(math.Round(y)))
	}
}
