package app

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/lap-energy/internal/analysis"
	"github.com/roman-kulish/lap-energy/internal/energy"
	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

func ptr[T any](v T) *T { return &v }

// circleSamples places n samples on a circle of the given radius.
func circleSamples(n int, radius float64, mode telemetry.Mode) []telemetry.Sample {
	start := time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC)
	samples := make([]telemetry.Sample, n)
	for i := range samples {
		a := 2 * math.Pi * float64(i) / float64(n)
		samples[i] = telemetry.Sample{
			CarData: telemetry.CarData{
				Timestamp: start.Add(time.Duration(i) * 250 * time.Millisecond),
				Speed:     ptr(150 + float64(i)),
			},
			X:     ptr(radius * math.Cos(a)),
			Y:     ptr(radius * math.Sin(a)),
			Mode:  mode,
			Power: float64(i) * 1000,
		}
	}
	return samples
}

func sameColor(a, b color.Color) bool {
	return color.RGBAModel.Convert(a) == color.RGBAModel.Convert(b)
}

func TestTrackRenderer_Render(t *testing.T) {
	t.Parallel()

	ledger := energy.NewLedger(6.2e6, -3.1e6, 8.5)
	res := &analysis.LapResult{
		Samples:        circleSamples(60, 500, telemetry.ModeDeployment),
		ModesAvailable: true,
		Ledger:         &ledger,
	}
	info := LapInfo{Driver: "PIA #81", Session: "Race", Circuit: "Melbourne", Lap: 12, Duration: 92500 * time.Millisecond}

	for _, by := range []ColorBy{ColorByMode, ColorBySpeed, ColorByPower} {
		t.Run(string(by), func(t *testing.T) {
			t.Parallel()

			r, err := NewTrackRenderer(RenderConfig{Width: 640, Height: 480, ColorBy: by})
			require.NoError(t, err)

			img, err := r.Render(info, res)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
		})
	}
}

func TestTrackRenderer_TrackColors(t *testing.T) {
	t.Parallel()

	res := &analysis.LapResult{
		Samples:        circleSamples(40, 200, telemetry.ModeClipping),
		ModesAvailable: true,
	}

	r, err := NewTrackRenderer(RenderConfig{Width: 400, Height: 300, NoAnnotations: true})
	require.NoError(t, err)

	img, err := r.Render(LapInfo{}, res)
	require.NoError(t, err)

	track := NewTrackData(res.Samples)
	track.Project(image.Rect(defaultLeftBorder, defaultTopBorder, 400-defaultRightBorder, 300-defaultBottomBorder))

	for i, p := range track.Points {
		assert.True(t, sameColor(StyleOf(telemetry.ModeClipping).Color, img.At(p.X, p.Y)), "point %d", i)
	}
	assert.True(t, sameColor(backgroundColor, img.At(1, 1)))
}

func TestTrackRenderer_ModesUnavailable(t *testing.T) {
	t.Parallel()

	res := &analysis.LapResult{Samples: circleSamples(5, 100, telemetry.ModeUnknown)}

	r, err := NewTrackRenderer(RenderConfig{Width: 320, Height: 240})
	require.NoError(t, err)

	img, err := r.Render(LapInfo{Lap: 3}, res)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestNewTrackRenderer_TooSmall(t *testing.T) {
	t.Parallel()

	_, err := NewTrackRenderer(RenderConfig{Width: 100, Height: 100})
	assert.Error(t, err)
}

func TestTrackData_Project(t *testing.T) {
	t.Parallel()

	samples := []telemetry.Sample{
		{X: ptr(0.0), Y: ptr(0.0)},
		{X: ptr(100.0), Y: ptr(50.0)},
		{X: nil, Y: nil},
	}
	track := NewTrackData(samples)
	require.Len(t, track.Samples, 2)

	track.Project(image.Rect(0, 0, 201, 201))
	// 100 x 50 scaled by 2 and centred vertically, Y flipped
	assert.Equal(t, image.Pt(0, 150), track.Points[0])
	assert.Equal(t, image.Pt(200, 50), track.Points[1])
}

func TestFormatLapTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1:32.500", formatLapTime(92500*time.Millisecond))
	assert.Equal(t, "0:59.999", formatLapTime(59999*time.Millisecond))
	assert.Equal(t, "6.20 MJ", formatMJ(6.2))
}
