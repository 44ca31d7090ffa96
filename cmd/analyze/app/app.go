package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/lap-energy/internal/analysis"
	"github.com/roman-kulish/lap-energy/internal/classifier"
	"github.com/roman-kulish/lap-energy/internal/energy"
	"github.com/roman-kulish/lap-energy/internal/storage"
	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// errNoSamples marks a lap without located telemetry, it is skipped.
var errNoSamples = errors.New("no located samples in lap window")

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing storage", slog.String("error", err.Error()))
		}
	}()

	analyzer, err := analysis.New(classifier.DefaultConfig(), energy.DefaultPowerUnit(), config.Limit())
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	renderer, err := NewTrackRenderer(RenderConfig{
		Width:         config.Width,
		Height:        config.Height,
		ColorBy:       config.ColorBy,
		Theme:         config.Theme,
		NoAnnotations: config.NoAnnotations,
	})
	if err != nil {
		return fmt.Errorf("creating track renderer: %w", err)
	}

	job, err := newLapJob(ctx, store, analyzer, renderer, config, logger)
	if err != nil {
		return err
	}

	laps, err := job.selectLaps(ctx)
	if err != nil {
		return err
	}

	logger.Info("analysing laps",
		slog.Int64("session", config.SessionKey),
		slog.Int("driver", config.Driver),
		slog.Int("laps", len(laps)),
		slog.String("circuit", string(config.Circuit)),
		slog.Float64("limitMJ", config.Limit()),
		slog.Int("workers", config.Workers),
	)

	return job.run(ctx, laps)
}

// lapJob analyses and renders the laps of one driver
type lapJob struct {
	provider telemetry.Provider
	analyzer *analysis.Analyzer
	renderer *TrackRenderer
	config   *Config
	logger   *slog.Logger

	session *telemetry.Session
	driver  string
}

func newLapJob(ctx context.Context, store storage.Store, analyzer *analysis.Analyzer, renderer *TrackRenderer,
	config *Config, logger *slog.Logger,
) (*lapJob, error) {
	session, err := store.Session(ctx, config.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	drivers, err := store.Drivers(ctx, config.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("loading drivers: %w", err)
	}
	driver := fmt.Sprintf("#%d", config.Driver)
	for _, d := range drivers {
		if d.Number == config.Driver && d.Acronym != "" {
			driver = fmt.Sprintf("%s #%d", d.Acronym, d.Number)
		}
	}

	return &lapJob{
		provider: store,
		analyzer: analyzer,
		renderer: renderer,
		config:   config,
		logger:   logger,
		session:  session,
		driver:   driver,
	}, nil
}

// selectLaps returns the timed laps to analyse.
func (j *lapJob) selectLaps(ctx context.Context) ([]telemetry.Lap, error) {
	laps, err := j.provider.Laps(ctx, j.config.SessionKey, j.config.Driver)
	if err != nil {
		return nil, fmt.Errorf("loading laps: %w", err)
	}

	selected := make([]telemetry.Lap, 0, len(laps))
	for _, lap := range laps {
		if j.config.Lap > 0 && lap.Number != j.config.Lap {
			continue
		}
		if !lap.Timed() {
			j.logger.Debug("lap has no timing, skipping", slog.Int("lap", lap.Number))
			continue
		}
		selected = append(selected, lap)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no timed laps found for driver %d", j.config.Driver)
	}
	return selected, nil
}

// run fans the laps out to a bounded pool of workers. Laps without data are
// skipped with a warning; any other failure is returned once every started
// lap has finished.
func (j *lapJob) run(ctx context.Context, laps []telemetry.Lap) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		sem  = make(chan struct{}, j.config.Workers)
	)

	started := time.Now()

	for _, lap := range laps {
		select {
		case <-ctx.Done():
			mu.Lock()
			errs = append(errs, ctx.Err())
			mu.Unlock()
		case sem <- struct{}{}:
			wg.Add(1)
			go func(lap telemetry.Lap) {
				defer wg.Done()
				defer func() { <-sem }()

				err := j.processLap(ctx, lap)
				switch {
				case err == nil:
				case errors.Is(err, errNoSamples):
					j.logger.Warn("skipping lap", slog.Int("lap", lap.Number), slog.String("reason", err.Error()))
				default:
					mu.Lock()
					errs = append(errs, fmt.Errorf("lap %d: %w", lap.Number, err))
					mu.Unlock()
				}
			}(lap)
		}
		if ctx.Err() != nil {
			break
		}
	}

	wg.Wait()

	j.logger.Info("finished analysing laps", slog.Duration("elapsed", time.Since(started)))
	return errors.Join(errs...)
}

func (j *lapJob) processLap(ctx context.Context, lap telemetry.Lap) error {
	start, end, _ := lap.Window()

	car, err := j.provider.CarData(ctx, j.config.SessionKey, j.config.Driver, start, end)
	if err != nil {
		return fmt.Errorf("loading car data: %w", err)
	}
	locs, err := j.provider.Locations(ctx, j.config.SessionKey, j.config.Driver, start, end)
	if err != nil {
		return fmt.Errorf("loading locations: %w", err)
	}

	samples := prepareSamples(car, locs, j.config.MinSpeed, j.config.Sampling)
	if len(samples) == 0 {
		return errNoSamples
	}

	res, err := j.analyzer.Analyze(samples)
	if err != nil {
		return fmt.Errorf("analysing: %w", err)
	}

	j.logLap(lap, res)

	info := LapInfo{
		Driver:   j.driver,
		Session:  j.session.Name,
		Circuit:  j.session.CircuitName,
		Lap:      lap.Number,
		Duration: time.Duration(*lap.Duration * float64(time.Second)),
	}

	img, err := j.renderer.Render(info, res)
	if err != nil {
		return fmt.Errorf("rendering track: %w", err)
	}

	dest := j.outputPath(lap, string(j.config.Format))
	if err = writeImage(dest, j.config.Format, img); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	if j.config.JSON {
		if err = writeJSON(j.outputPath(lap, "json"), res); err != nil {
			return fmt.Errorf("writing json: %w", err)
		}
	}

	j.logger.Debug("lap rendered", slog.Int("lap", lap.Number), slog.String("destination", dest))
	return nil
}

// prepareSamples joins the raw streams and applies the sample policy: the
// speed filter, then the down-sampling, then rows without a position are
// dropped.
func prepareSamples(car []telemetry.CarData, locs []telemetry.Location, minSpeed float64, sampling int) []telemetry.Sample {
	samples := telemetry.Align(car, locs, telemetry.DefaultAlignTolerance)
	samples = telemetry.FilterMinSpeed(samples, minSpeed)
	samples = telemetry.Downsample(samples, sampling)
	return telemetry.DropUnlocated(samples)
}

func (j *lapJob) logLap(lap telemetry.Lap, res *analysis.LapResult) {
	if !res.ModesAvailable {
		j.logger.Warn("too few samples to classify modes",
			slog.Int("lap", lap.Number),
			slog.Int("samples", len(res.Samples)))
		return
	}

	counts := res.ModeCounts()
	modes := make([]any, 0, len(telemetry.Modes))
	for _, m := range telemetry.Modes {
		modes = append(modes, slog.Int(m.String(), counts[m]))
	}

	l := res.Ledger
	j.logger.Info("lap analysed",
		slog.Int("lap", lap.Number),
		slog.Int("samples", len(res.Samples)),
		slog.Group("modes", modes...),
		slog.Group("ledger",
			slog.String("deployed", formatMJ(l.DeployedMJ)),
			slog.String("recovered", formatMJ(l.RecoveredMJ)),
			slog.String("balance", formatMJ(l.BalanceMJ)),
			slog.String("limitUsed", fmt.Sprintf("%.1f%%", l.LimitPct())),
			slog.String("regen", fmt.Sprintf("%.1f%%", l.RegenPct())),
			slog.Bool("overBudget", l.Clipped()),
			slog.String("streaks", humanize.Comma(int64(len(l.Streaks)))),
		),
	)
}

func (j *lapJob) outputPath(lap telemetry.Lap, ext string) string {
	return fmt.Sprintf("%s_%d_lap%02d.%s", j.config.OutputFile, j.config.Driver, lap.Number, ext)
}

func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	switch format {
	case ImageJPEG:
		return jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	default:
		return png.Encode(out, img)
	}
}

func writeJSON(path string, res *analysis.LapResult) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := out.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
