package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// ErrNoData indicates that no telemetry exists for the given parameters.
var ErrNoData = errors.New("no data available")

// Record is a constraint for the raw telemetry streams kept in the store.
type Record interface {
	telemetry.CarData | telemetry.Location
}

// Reader provides an iterator-based interface for reading one telemetry
// stream of a driver in timestamp order.
type Reader[T Record] interface {
	// Next advances the iterator and returns true if there is another record
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current record in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *T

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}

var (
	_ Reader[telemetry.CarData]  = (*SqliteReader[telemetry.CarData])(nil)
	_ Reader[telemetry.Location] = (*SqliteReader[telemetry.Location])(nil)
)

// ReaderOption configures a Reader with specific filtering criteria.
type ReaderOption[T Record] func(*SqliteReader[T])

// WithStartTime excludes records with timestamps before t.
func WithStartTime[T Record](t time.Time) ReaderOption[T] {
	return func(r *SqliteReader[T]) {
		t = t.UTC()
		r.startTime = &t
	}
}

// WithEndTime excludes records with timestamps after t.
func WithEndTime[T Record](t time.Time) ReaderOption[T] {
	return func(r *SqliteReader[T]) {
		t = t.UTC()
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange[T Record](startTime, endTime time.Time) ReaderOption[T] {
	return func(r *SqliteReader[T]) {
		WithStartTime[T](startTime)(r)
		WithEndTime[T](endTime)(r)
	}
}

// streamQuery binds a record type to its table queries.
type streamQuery[T Record] struct {
	bounds string
	rows   string
	scan   func(*sql.Rows) (T, error)
}

var carDataQuery = streamQuery[telemetry.CarData]{
	bounds: selectCarDataBoundsSQL,
	rows:   selectCarDataSQL,
	scan: func(rows *sql.Rows) (telemetry.CarData, error) {
		var row carDataRow
		err := rows.Scan(&row.Timestamp, &row.Speed, &row.Throttle, &row.Brake, &row.RPM, &row.Gear, &row.DRS)
		if err != nil {
			return telemetry.CarData{}, err
		}
		return row.toCarData(), nil
	},
}

var locationQuery = streamQuery[telemetry.Location]{
	bounds: selectLocationBoundsSQL,
	rows:   selectLocationsSQL,
	scan: func(rows *sql.Rows) (telemetry.Location, error) {
		var loc telemetry.Location
		if err := rows.Scan(&loc.Timestamp, &loc.X, &loc.Y); err != nil {
			return telemetry.Location{}, err
		}
		loc.Timestamp = loc.Timestamp.UTC()
		return loc, nil
	},
}

func newSqliteReader[T Record](ctx context.Context, db *sql.DB, query streamQuery[T], sessionKey int64, driverNumber int,
	opts ...ReaderOption[T],
) (*SqliteReader[T], error) {
	r := &SqliteReader[T]{
		db:           db,
		query:        query,
		sessionKey:   sessionKey,
		driverNumber: driverNumber,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

// SqliteReader implements Reader for the SQLite database backend.
type SqliteReader[T Record] struct {
	db    *sql.DB
	query streamQuery[T]

	sessionKey   int64
	driverNumber int

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	current *T
	rows    *sql.Rows
	err     error
}

func (r *SqliteReader[T]) init(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.sessionKey <= 0 {
		return errors.New("session key required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "initializing filters", fn: r.initFilters},
		{msg: "initializing query", fn: r.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (r *SqliteReader[T]) initFilters(ctx context.Context) (err error) {
	if r.startTime != nil && r.endTime != nil {
		if r.startTime.After(*r.endTime) {
			return fmt.Errorf("start time %s is after end time %s", r.startTime, r.endTime)
		}
		return nil
	}

	stmt, err := r.db.PrepareContext(ctx, r.query.bounds)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var startTime, endTime sqliteDatetime
	if err = stmt.QueryRowContext(ctx, r.sessionKey, r.driverNumber).Scan(&startTime, &endTime); err != nil {
		return fmt.Errorf("scanning time bounds: %w", err)
	}
	if !startTime.Valid || !endTime.Valid {
		return ErrNoData
	}

	if r.startTime == nil {
		r.startTime = &startTime.Datetime
	}
	if r.endTime == nil {
		r.endTime = &endTime.Datetime
	}
	return nil
}

func (r *SqliteReader[T]) initQuery(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, r.query.rows)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	r.rows, err = stmt.QueryContext(ctx, r.sessionKey, r.driverNumber, *r.startTime, *r.endTime)
	return err
}

func (r *SqliteReader[T]) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		r.err = ctx.Err()
		return false
	default:
	}

	if !r.rows.Next() {
		return false
	}

	record, err := r.query.scan(r.rows)
	if err != nil {
		r.err = fmt.Errorf("scanning record: %w", err)
		return false
	}
	r.current = &record
	return true
}

func (r *SqliteReader[T]) Current() *T {
	return r.current
}

func (r *SqliteReader[T]) Error() error {
	if r.err != nil {
		return r.err
	}
	if r.rows != nil {
		return r.rows.Err()
	}
	return nil
}

func (r *SqliteReader[T]) Close() error {
	if r.rows != nil {
		err := r.rows.Close()
		r.current = nil
		r.rows = nil
		return err
	}
	return nil
}

// collect drains and closes the reader.
func collect[T Record](ctx context.Context, r Reader[T]) (records []T, err error) {
	defer closeWithError(r, &err)

	for r.Next(ctx) {
		records = append(records, *r.Current())
	}
	if err = r.Error(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return records, nil
}
