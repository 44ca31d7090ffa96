package app

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

func TestPercentileBounds(t *testing.T) {
	t.Parallel()

	t.Run("short series uses extremes", func(t *testing.T) {
		t.Parallel()
		b := PercentileBounds([]float64{5, math.NaN(), 1, 3})
		assert.Equal(t, ValueBounds{Min: 1, Max: 5}, b)
	})

	t.Run("outliers are cut", func(t *testing.T) {
		t.Parallel()
		values := make([]float64, 101)
		for i := range values {
			values[i] = float64(i)
		}
		values[100] = 10_000

		b := PercentileBounds(values)
		assert.InDelta(t, 5.0, b.Min, 1e-9)
		assert.InDelta(t, 95.0, b.Max, 1e-9)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, ValueBounds{Min: 0, Max: 1}, PercentileBounds(nil))
	})
}

func TestValueBounds_Normalize(t *testing.T) {
	t.Parallel()

	b := ValueBounds{Min: 100, Max: 300}
	assert.Equal(t, 0.0, b.Normalize(50))
	assert.Equal(t, 0.5, b.Normalize(200))
	assert.Equal(t, 1.0, b.Normalize(400))

	flat := ValueBounds{Min: 7, Max: 7}
	assert.Equal(t, 0.0, flat.Normalize(7))
}

func TestGradientMapper(t *testing.T) {
	t.Parallel()

	for theme := range colorThemes {
		gm := NewGradientMapper(theme, ValueBounds{Min: 0, Max: 100})
		assert.True(t, sameColor(gm.colorMap[0], gm.Color(-5)), "theme %s", theme)
		assert.True(t, sameColor(gm.colorMap[DefaultColorMapSize-1], gm.Color(250)), "theme %s", theme)
		assert.True(t, sameColor(unknownModeStyle.Color, gm.Color(math.NaN())), "theme %s", theme)
	}
}

func TestStyleOf(t *testing.T) {
	t.Parallel()

	tests := map[telemetry.Mode]string{
		telemetry.ModeDeployment: "#ff2200",
		telemetry.ModeClipping:   "#dd00ff",
		telemetry.ModeHarvesting: "#00ff88",
		telemetry.ModeNeutral:    "#cccccc",
		telemetry.ModeUnknown:    "#666666",
	}
	for mode, hex := range tests {
		assert.True(t, sameColor(mustHex(hex), StyleOf(mode).Color), "mode %s", mode)
	}
}
