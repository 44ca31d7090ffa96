package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/lap-energy/internal/storage"
	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// Source is the upstream the importer reads a session from.
type Source interface {
	telemetry.Provider

	Session(ctx context.Context, sessionKey int64) (*telemetry.Session, error)
	Drivers(ctx context.Context, sessionKey int64) ([]telemetry.Driver, error)
}

// WithConcurrency sets how many drivers are imported in parallel.
func WithConcurrency(n int) func(*Importer) {
	return func(i *Importer) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithLaps restricts the telemetry import to the windows of the given laps.
func WithLaps(laps []int) func(*Importer) {
	return func(i *Importer) {
		i.laps = slices.Clone(laps)
	}
}

// Importer copies a session, its drivers, laps and raw telemetry streams from
// a Source into the store. Drivers are imported concurrently.
type Importer struct {
	source Source
	store  storage.Store
	logger *slog.Logger

	concurrency int
	laps        []int
}

// NewImporter creates a new Importer
func NewImporter(source Source, store storage.Store, logger *slog.Logger, options ...func(*Importer)) *Importer {
	i := Importer{
		source:      source,
		store:       store,
		logger:      logger,
		concurrency: defaultConcurrency,
	}

	for _, option := range options {
		option(&i)
	}

	return &i
}

// Stats summarises an import run.
type Stats struct {
	mu sync.Mutex

	Drivers   int
	Laps      int
	CarData   int64
	Locations int64
	Elapsed   time.Duration
}

func (s *Stats) add(laps int, carData, locations int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Drivers++
	s.Laps += laps
	s.CarData += carData
	s.Locations += locations
}

func (s *Stats) Attr() slog.Attr {
	return slog.Group("stats",
		slog.Int("drivers", s.Drivers),
		slog.Int("laps", s.Laps),
		slog.String("carData", humanize.Comma(s.CarData)),
		slog.String("locations", humanize.Comma(s.Locations)),
		slog.Duration("elapsed", s.Elapsed),
	)
}

// Run imports the session. An empty drivers list imports every driver of the
// session. Failures of individual drivers are joined into the returned error;
// the other drivers are still imported.
func (i *Importer) Run(ctx context.Context, sessionKey int64, drivers []int) (*Stats, error) {
	started := time.Now()

	session, err := i.source.Session(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	if err = i.store.StoreSession(ctx, session); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	entries, err := i.source.Drivers(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("fetching drivers: %w", err)
	}
	if err = i.store.StoreDrivers(ctx, sessionKey, entries); err != nil {
		return nil, fmt.Errorf("storing drivers: %w", err)
	}

	selected := i.selectDrivers(entries, drivers)
	if len(selected) == 0 {
		return nil, errors.New("no drivers to import")
	}

	i.logger.Info("importing session",
		slog.Int64("session", session.Key),
		slog.String("name", session.Name),
		slog.String("circuit", session.CircuitName),
		slog.Int("drivers", len(selected)),
	)

	var (
		stats Stats
		wg    sync.WaitGroup
		mu    sync.Mutex
		errs  []error
		sem   = make(chan struct{}, i.concurrency)
	)

	for _, number := range selected {
		select {
		case <-ctx.Done():
			mu.Lock()
			errs = append(errs, ctx.Err())
			mu.Unlock()
		case sem <- struct{}{}:
			wg.Add(1)
			go func(number int) {
				defer wg.Done()
				defer func() { <-sem }()

				if err := i.importDriver(ctx, session, number, &stats); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("driver %d: %w", number, err))
					mu.Unlock()
				}
			}(number)
		}
		if ctx.Err() != nil {
			break
		}
	}

	wg.Wait()

	stats.Elapsed = time.Since(started)
	return &stats, errors.Join(errs...)
}

func (i *Importer) selectDrivers(entries []telemetry.Driver, wanted []int) []int {
	known := make([]int, 0, len(entries))
	for _, d := range entries {
		known = append(known, d.Number)
	}
	if len(wanted) == 0 {
		return known
	}

	selected := make([]int, 0, len(wanted))
	for _, n := range wanted {
		if !slices.Contains(known, n) {
			i.logger.Warn("driver not entered in session, skipping", slog.Int("driver", n))
			continue
		}
		selected = append(selected, n)
	}
	return selected
}

func (i *Importer) importDriver(ctx context.Context, session *telemetry.Session, number int, stats *Stats) error {
	laps, err := i.source.Laps(ctx, session.Key, number)
	if err != nil {
		return fmt.Errorf("fetching laps: %w", err)
	}
	if err = i.store.StoreLaps(ctx, session.Key, laps); err != nil {
		return fmt.Errorf("storing laps: %w", err)
	}

	var carData, locations int64
	for _, w := range i.windows(session, laps, number) {
		cd, err := i.source.CarData(ctx, session.Key, number, w.start, w.end)
		if err != nil {
			return fmt.Errorf("fetching car data: %w", err)
		}
		n, err := i.store.StoreCarData(ctx, session.Key, number, cd)
		if err != nil {
			return fmt.Errorf("storing car data: %w", err)
		}
		carData += n

		locs, err := i.source.Locations(ctx, session.Key, number, w.start, w.end)
		if err != nil {
			return fmt.Errorf("fetching locations: %w", err)
		}
		if n, err = i.store.StoreLocations(ctx, session.Key, number, locs); err != nil {
			return fmt.Errorf("storing locations: %w", err)
		}
		locations += n
	}

	i.logger.Debug("driver imported",
		slog.Int("driver", number),
		slog.Int("laps", len(laps)),
		slog.String("carData", humanize.Comma(carData)),
		slog.String("locations", humanize.Comma(locations)),
	)

	stats.add(len(laps), carData, locations)
	return nil
}

type window struct {
	start, end time.Time
}

// windows returns the time ranges to import. Without a lap selection the
// whole session is a single window; zero bounds are open ended.
func (i *Importer) windows(session *telemetry.Session, laps []telemetry.Lap, number int) []window {
	if len(i.laps) == 0 {
		return []window{{start: session.DateStart, end: session.DateEnd}}
	}

	var windows []window
	for _, lap := range laps {
		if !slices.Contains(i.laps, lap.Number) {
			continue
		}
		start, end, ok := lap.Window()
		if !ok {
			i.logger.Warn("lap has no timing, skipping", slog.Int("driver", number), slog.Int("lap", lap.Number))
			continue
		}
		windows = append(windows, window{start: start, end: end})
	}
	return windows
}
