package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/lap-energy/internal/storage"
	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

var sessionStart = time.Date(2026, 3, 8, 4, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu      sync.Mutex
	windows map[int][][2]time.Time
	failFor int
}

func (f *fakeSource) Session(_ context.Context, key int64) (*telemetry.Session, error) {
	return &telemetry.Session{
		Key:         key,
		MeetingKey:  1279,
		Name:        "Race",
		CircuitName: "Melbourne",
		Year:        2026,
		DateStart:   sessionStart,
		DateEnd:     sessionStart.Add(2 * time.Hour),
	}, nil
}

func (f *fakeSource) Drivers(context.Context, int64) ([]telemetry.Driver, error) {
	return []telemetry.Driver{{Number: 1, Acronym: "VER"}, {Number: 81, Acronym: "PIA"}}, nil
}

func (f *fakeSource) Laps(_ context.Context, _ int64, driver int) ([]telemetry.Lap, error) {
	start := sessionStart.Add(10 * time.Minute)
	duration := 90.0
	return []telemetry.Lap{
		{DriverNumber: driver, Number: 1, IsPitOutLap: true},
		{DriverNumber: driver, Number: 2, DateStart: &start, Duration: &duration},
	}, nil
}

func (f *fakeSource) CarData(_ context.Context, _ int64, driver int, start, end time.Time) ([]telemetry.CarData, error) {
	if driver == f.failFor {
		return nil, errors.New("upstream unavailable")
	}

	f.mu.Lock()
	f.windows[driver] = append(f.windows[driver], [2]time.Time{start, end})
	f.mu.Unlock()

	speed := 250.0
	data := make([]telemetry.CarData, 4)
	for i := range data {
		data[i] = telemetry.CarData{Timestamp: sessionStart.Add(time.Duration(i) * 250 * time.Millisecond), Speed: &speed}
	}
	return data, nil
}

func (f *fakeSource) Locations(_ context.Context, _ int64, _ int, _, _ time.Time) ([]telemetry.Location, error) {
	return []telemetry.Location{
		{Timestamp: sessionStart, X: 1, Y: 2},
		{Timestamp: sessionStart.Add(time.Second), X: 3, Y: 4},
	}, nil
}

func newImporterFixture(t *testing.T, options ...func(*Importer)) (*Importer, *fakeSource, *storage.SqliteStore) {
	t.Helper()

	store := storage.NewSqliteStore(filepath.Join(t.TempDir(), "ingest.sqlite"))
	t.Cleanup(func() { _ = store.Close() })

	source := &fakeSource{windows: make(map[int][][2]time.Time)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewImporter(source, store, logger, options...), source, store
}

func TestImporter_Run(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	importer, source, store := newImporterFixture(t)

	stats, err := importer.Run(ctx, 9693, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Drivers)
	assert.Equal(t, 4, stats.Laps)
	assert.Equal(t, int64(8), stats.CarData)
	assert.Equal(t, int64(4), stats.Locations)

	// whole session window per driver
	require.Len(t, source.windows[81], 1)
	assert.True(t, source.windows[81][0][0].Equal(sessionStart))

	drivers, err := store.Drivers(ctx, 9693)
	require.NoError(t, err)
	assert.Len(t, drivers, 2)

	laps, err := store.Laps(ctx, 9693, 81)
	require.NoError(t, err)
	assert.Len(t, laps, 2)

	data, err := store.CarData(ctx, 9693, 1, sessionStart, sessionStart.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, data, 4)

	// A second run stores nothing new.
	stats, err = importer.Run(ctx, 9693, []int{81})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Drivers)
	assert.Equal(t, int64(0), stats.CarData)
}

func TestImporter_LapWindows(t *testing.T) {
	t.Parallel()
	importer, source, _ := newImporterFixture(t, WithLaps([]int{1, 2}), WithConcurrency(1))

	_, err := importer.Run(context.Background(), 9693, []int{81, 44})
	require.NoError(t, err)

	// lap 1 has no timing, unknown driver 44 is skipped
	require.Len(t, source.windows[81], 1)
	assert.Empty(t, source.windows[44])

	w := source.windows[81][0]
	assert.True(t, w[0].Equal(sessionStart.Add(10*time.Minute)))
	assert.Equal(t, 90800*time.Millisecond, w[1].Sub(w[0]))
}

func TestImporter_DriverFailure(t *testing.T) {
	t.Parallel()
	importer, source, _ := newImporterFixture(t)
	source.failFor = 1

	stats, err := importer.Run(context.Background(), 9693, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver 1")
	assert.Equal(t, 1, stats.Drivers)
}
