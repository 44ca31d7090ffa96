package classifier

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

func ptr[T any](v T) *T { return &v }

type band struct {
	speed, throttle, brake float64
	mode                   telemetry.Mode
}

var (
	harvestBand = band{speed: 120, throttle: 2, brake: 80, mode: telemetry.ModeHarvesting}
	neutralBand = band{speed: 180, throttle: 45, brake: 0, mode: telemetry.ModeNeutral}
	deployBand  = band{speed: 235, throttle: 99, brake: 0, mode: telemetry.ModeDeployment}
)

// bandSamples builds n samples per band in the given order. Accel is set
// directly so band transitions do not produce outliers.
func bandSamples(n int, bands ...band) ([]telemetry.Sample, []telemetry.Mode) {
	start := time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC)
	var samples []telemetry.Sample
	var want []telemetry.Mode
	for _, b := range bands {
		for i := 0; i < n; i++ {
			jitter := float64(i%3) - 1
			samples = append(samples, telemetry.Sample{
				CarData: telemetry.CarData{
					Timestamp: start.Add(time.Duration(len(samples)) * 100 * time.Millisecond),
					Speed:     ptr(b.speed + 2*jitter),
					Throttle:  ptr(math.Max(0, b.throttle+jitter)),
					Brake:     ptr(math.Max(0, b.brake+jitter)),
				},
				Accel: jitter * 0.5,
			})
			want = append(want, b.mode)
		}
	}
	return samples, want
}

func modesOf(samples []telemetry.Sample) []telemetry.Mode {
	out := make([]telemetry.Mode, len(samples))
	for i := range samples {
		out[i] = samples[i].Mode
	}
	return out
}

func TestClassify_ThrottleRankIsMonotonic(t *testing.T) {
	t.Parallel()

	orders := map[string][]band{
		"harvest neutral deploy": {harvestBand, neutralBand, deployBand},
		"deploy harvest neutral": {deployBand, harvestBand, neutralBand},
		"neutral deploy harvest": {neutralBand, deployBand, harvestBand},
		"deploy neutral harvest": {deployBand, neutralBand, harvestBand},
	}

	for name, bands := range orders {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			samples, want := bandSamples(12, bands...)
			require.NoError(t, Classify(samples, DefaultConfig()))
			assert.Equal(t, want, modesOf(samples))
		})
	}
}

func TestClassify_EverySampleGetsOneMode(t *testing.T) {
	t.Parallel()

	samples, _ := bandSamples(5, harvestBand, neutralBand, deployBand)
	// noisy values, missing readings
	samples[3].Throttle = ptr(math.NaN())
	samples[7].Brake = nil
	samples[11].Speed = nil

	require.NoError(t, Classify(samples, DefaultConfig()))
	for i := range samples {
		assert.True(t, samples[i].Mode.Assigned(), "sample %d has mode %s", i, samples[i].Mode)
	}
}

func TestClassify_ClippingOverrideIsAbsolute(t *testing.T) {
	t.Parallel()

	samples, _ := bandSamples(12, harvestBand, neutralBand, deployBand)

	// one depletion sample inside every band; the clustering alone would put
	// them in the surrounding group
	for _, i := range []int{5, 17, 29} {
		samples[i].Throttle = ptr(96.0)
		samples[i].Speed = ptr(260.0)
		samples[i].Accel = 0
	}
	// just outside the rule on every threshold
	samples[30].Throttle, samples[30].Speed, samples[30].Accel = ptr(95.0), ptr(300.0), -1
	samples[31].Throttle, samples[31].Speed, samples[31].Accel = ptr(100.0), ptr(250.0), -1
	samples[32].Throttle, samples[32].Speed, samples[32].Accel = ptr(100.0), ptr(300.0), 0.1

	require.NoError(t, Classify(samples, DefaultConfig()))

	for _, i := range []int{5, 17, 29} {
		assert.Equal(t, telemetry.ModeClipping, samples[i].Mode, "sample %d", i)
	}
	for _, i := range []int{30, 31, 32} {
		assert.NotEqual(t, telemetry.ModeClipping, samples[i].Mode, "sample %d", i)
	}
}

func TestClassify_Reproducible(t *testing.T) {
	t.Parallel()

	a, _ := bandSamples(15, neutralBand, harvestBand, deployBand, harvestBand)
	b := append([]telemetry.Sample(nil), a...)

	require.NoError(t, Classify(a, DefaultConfig()))
	require.NoError(t, Classify(b, DefaultConfig()))
	assert.Equal(t, modesOf(a), modesOf(b))
}

func TestClassify_InsufficientData(t *testing.T) {
	t.Parallel()

	samples, _ := bandSamples(3, harvestBand, neutralBand, deployBand)
	require.Len(t, samples, 9)

	err := Classify(samples, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	for i := range samples {
		assert.Equal(t, telemetry.ModeUnknown, samples[i].Mode)
	}
}

func TestClassify_MissingChannel(t *testing.T) {
	t.Parallel()

	samples, _ := bandSamples(4, harvestBand, neutralBand, deployBand)
	for i := range samples {
		samples[i].Brake = nil
	}

	err := Classify(samples, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingChannel))

	var pErr *telemetry.PreconditionError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "brake", pErr.Detail)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"two clusters", func(c *Config) { c.Clusters = 2 }},
		{"single restart", func(c *Config) { c.Restarts = 1 }},
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }},
		{"min samples below clusters", func(c *Config) { c.MinSamples = 2 }},
	}

	assert.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(&cfg)

			var cErr *ConfigError
			assert.True(t, errors.As(cfg.Validate(), &cErr))
		})
	}
}

func TestRankByThrottle(t *testing.T) {
	t.Parallel()

	t.Run("ascending mean throttle", func(t *testing.T) {
		t.Parallel()
		labels := []int{2, 2, 0, 0, 1, 1}
		throttle := []float64{90, 100, 10, 0, 50, 50}

		modes := RankByThrottle(labels, throttle, 3)
		assert.Equal(t, []telemetry.Mode{
			telemetry.ModeHarvesting,
			telemetry.ModeNeutral,
			telemetry.ModeDeployment,
		}, []telemetry.Mode{modes[0], modes[1], modes[2]})
	})

	t.Run("independent of cluster index", func(t *testing.T) {
		t.Parallel()
		labels := []int{0, 1, 2}
		throttle := []float64{100, 0, 40}

		modes := RankByThrottle(labels, throttle, 3)
		assert.Equal(t, telemetry.ModeDeployment, modes[0])
		assert.Equal(t, telemetry.ModeHarvesting, modes[1])
		assert.Equal(t, telemetry.ModeNeutral, modes[2])
	})

	t.Run("ties keep index order", func(t *testing.T) {
		t.Parallel()
		modes := RankByThrottle([]int{0, 1, 2}, []float64{5, 5, 5}, 3)
		assert.Equal(t, []telemetry.Mode{
			telemetry.ModeHarvesting,
			telemetry.ModeNeutral,
			telemetry.ModeDeployment,
		}, modes)
	})
}

func TestApplyClipping(t *testing.T) {
	t.Parallel()

	samples := make([]telemetry.Sample, 0, 4)
	for _, m := range []telemetry.Mode{
		telemetry.ModeHarvesting, telemetry.ModeNeutral, telemetry.ModeDeployment, telemetry.ModeDeployment,
	} {
		samples = append(samples, telemetry.Sample{
			CarData: telemetry.CarData{Speed: ptr(300.0), Throttle: ptr(100.0), Brake: ptr(0.0)},
			Accel:   -0.5,
			Mode:    m,
		})
	}
	samples[3].Accel = 1

	assert.Equal(t, 3, ApplyClipping(samples))
	assert.Equal(t, []telemetry.Mode{
		telemetry.ModeClipping, telemetry.ModeClipping, telemetry.ModeClipping, telemetry.ModeDeployment,
	}, modesOf(samples))
}

func TestStandardize(t *testing.T) {
	t.Parallel()

	points := [][]float64{{1, 5}, {2, 5}, {3, 5}, {4, 5}}
	out := Standardize(points)
	require.Len(t, out, 4)

	var mean, variance float64
	for _, p := range out {
		mean += p[0]
		assert.Equal(t, 0.0, p[1], "constant column is centred only")
	}
	mean /= 4
	for _, p := range out {
		variance += (p[0] - mean) * (p[0] - mean)
	}
	variance /= 4

	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, variance, 1e-12)
	assert.Equal(t, 1.0, points[0][0], "input must not be modified")
}

func TestKMeans_SeparatedBlobs(t *testing.T) {
	t.Parallel()

	var points [][]float64
	for _, centre := range [][]float64{{0, 0}, {10, 10}, {-10, 10}} {
		for i := 0; i < 8; i++ {
			d := float64(i%4) * 0.1
			points = append(points, []float64{centre[0] + d, centre[1] - d})
		}
	}

	p := KMeans(points, DefaultConfig())
	require.Len(t, p.Labels, len(points))
	require.Len(t, p.Centroids, 3)

	seen := map[int]bool{}
	for blob := 0; blob < 3; blob++ {
		label := p.Labels[blob*8]
		for i := 1; i < 8; i++ {
			assert.Equal(t, label, p.Labels[blob*8+i])
		}
		assert.False(t, seen[label], "blobs share a cluster")
		seen[label] = true
	}
	assert.Less(t, p.Inertia, 1.0)
}
