package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// ColorBy selects what the track colour encodes
type ColorBy string

const (
	ColorByMode  ColorBy = "mode"  // Operating mode palette
	ColorBySpeed ColorBy = "speed" // Speed gradient
	ColorByPower ColorBy = "power" // Electrical power gradient

	DefaultColorMapSize = 256 // Default number of colors in the map
)

var validColorBy = map[ColorBy]struct{}{
	ColorByMode:  {},
	ColorBySpeed: {},
	ColorByPower: {},
}

// ModeStyle is the presentation of an operating mode
type ModeStyle struct {
	Label string
	Color color.Color
}

var (
	unknownModeStyle = ModeStyle{Label: "Unclassified", Color: mustHex("#666666")}

	modeStyles = map[telemetry.Mode]ModeStyle{
		telemetry.ModeHarvesting: {Label: "Harvesting", Color: mustHex("#00FF88")},
		telemetry.ModeNeutral:    {Label: "Neutral", Color: mustHex("#CCCCCC")},
		telemetry.ModeDeployment: {Label: "Deployment", Color: mustHex("#FF2200")},
		telemetry.ModeClipping:   {Label: "Clipping", Color: mustHex("#DD00FF")},
	}

	backgroundColor = mustHex("#15151E")
	foregroundColor = mustHex("#F0F0F5")
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// StyleOf returns the label and colour of a mode.
func StyleOf(m telemetry.Mode) ModeStyle {
	if s, ok := modeStyles[m]; ok {
		return s
	}
	return unknownModeStyle
}

// ColorTheme represents a predefined gradient for speed and power maps.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"   // Blue to red transition
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	GrayscaleTheme ColorTheme = "grayscale" // Black to white transition
)

var colorThemes = map[ColorTheme]func(float64) color.Color{
	ClassicTheme:   classicColor,
	ThermalTheme:   thermalColor,
	GrayscaleTheme: grayscaleColor,
}

const (
	hueStart = 236.0
	hueEnd   = 0.0
)

func classicColor(v float64) color.Color {
	hue := hueStart - v*(hueStart-hueEnd)
	hue = math.Min(math.Max(hue, hueEnd), hueStart)
	return colorful.Hsv(hue, 1, 0.90)
}

var thermalStops = []colorful.Color{
	mustHex("#000000"),
	mustHex("#B00000"),
	mustHex("#FFC000"),
	mustHex("#FFFFFF"),
}

func thermalColor(v float64) color.Color {
	segments := float64(len(thermalStops) - 1)
	pos := v * segments
	i := int(math.Min(math.Floor(pos), segments-1))
	return thermalStops[i].BlendLab(thermalStops[i+1], pos-float64(i)).Clamped()
}

func grayscaleColor(v float64) color.Color {
	return colorful.Color{R: v, G: v, B: v}
}

// GradientMapper maps a continuous value onto a pre-computed theme gradient
type GradientMapper struct {
	colorMap []color.Color
	bounds   ValueBounds
}

// NewGradientMapper creates a mapper with DefaultColorMapSize colours.
func NewGradientMapper(theme ColorTheme, bounds ValueBounds) *GradientMapper {
	return NewGradientMapperWithSize(theme, bounds, DefaultColorMapSize)
}

func NewGradientMapperWithSize(theme ColorTheme, bounds ValueBounds, size int) *GradientMapper {
	if size <= 1 {
		size = DefaultColorMapSize
	}
	fn, ok := colorThemes[theme]
	if !ok {
		fn = classicColor
	}

	gm := &GradientMapper{
		colorMap: make([]color.Color, size),
		bounds:   bounds,
	}
	for i := range gm.colorMap {
		gm.colorMap[i] = fn(float64(i) / float64(size-1))
	}
	return gm
}

// Color returns the gradient colour of v; values outside the bounds are
// clamped.
func (gm *GradientMapper) Color(v float64) color.Color {
	if math.IsNaN(v) {
		return unknownModeStyle.Color
	}
	index := int(gm.bounds.Normalize(v) * float64(len(gm.colorMap)-1))
	return gm.colorMap[index]
}

func (gm *GradientMapper) Bounds() ValueBounds {
	return gm.bounds
}

// trackColorer picks the colour of each sample for a lap
type trackColorer func(s *telemetry.Sample) color.Color

func newTrackColorer(by ColorBy, theme ColorTheme, samples []telemetry.Sample, modesAvailable bool) (trackColorer, *GradientMapper) {
	switch by {
	case ColorBySpeed:
		values := make([]float64, len(samples))
		for i := range samples {
			values[i] = samples[i].SpeedValue()
		}
		gm := NewGradientMapper(theme, PercentileBounds(values))
		return func(s *telemetry.Sample) color.Color { return gm.Color(s.SpeedValue()) }, gm

	case ColorByPower:
		if !modesAvailable {
			break
		}
		values := make([]float64, len(samples))
		for i := range samples {
			values[i] = samples[i].Power
		}
		gm := NewGradientMapper(theme, PercentileBounds(values))
		return func(s *telemetry.Sample) color.Color { return gm.Color(s.Power) }, gm
	}

	return func(s *telemetry.Sample) color.Color { return StyleOf(s.Mode).Color }, nil
}
