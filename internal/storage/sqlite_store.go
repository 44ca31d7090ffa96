package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// DefaultMaxBatchSize is the number of rows written by a single multi-row
// INSERT. It keeps the statement well below the SQLite bound parameter limit.
const DefaultMaxBatchSize = 500

// StoreOption configures a SqliteStore.
type StoreOption func(*SqliteStore)

// WithMaxBatchSize sets the number of rows per batch insert. Non-positive
// values keep the default.
func WithMaxBatchSize(n int) StoreOption {
	return func(s *SqliteStore) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath       string
	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath.
// Connections are opened lazily; the schema is created with the first write.
func NewSqliteStore(dbPath string, opts ...StoreOption) *SqliteStore {
	s := &SqliteStore{dbPath: dbPath, maxBatchSize: DefaultMaxBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		// Sqlite serialises writers anyway.
		db.SetMaxOpenConns(1)

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) StoreSession(ctx context.Context, session *telemetry.Session) (err error) {
	if session == nil || session.Key <= 0 {
		return errors.New("session key required")
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	_, err = stmt.ExecContext(ctx,
		session.Key,
		session.MeetingKey,
		session.Name,
		sql.NullString{String: session.Type, Valid: session.Type != ""},
		sql.NullString{String: session.CircuitName, Valid: session.CircuitName != ""},
		sql.NullInt64{Int64: int64(session.Year), Valid: session.Year > 0},
		nullTime(nonZero(session.DateStart)),
		nullTime(nonZero(session.DateEnd)),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanSession(sc interface{ Scan(...any) error }) (*telemetry.Session, error) {
	var row sessionRow
	err := sc.Scan(
		&row.SessionKey,
		&row.MeetingKey,
		&row.SessionName,
		&row.SessionType,
		&row.CircuitShortName,
		&row.Year,
		&row.DateStart,
		&row.DateEnd,
	)
	if err != nil {
		return nil, err
	}
	return row.toSession(), nil
}

func (s *SqliteStore) Session(ctx context.Context, sessionKey int64) (session *telemetry.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if session, err = scanSession(stmt.QueryRowContext(ctx, sessionKey)); err != nil {
		err = fmt.Errorf("scanning session %d: %w", sessionKey, err)
		return
	}
	return
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*telemetry.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *telemetry.Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreDrivers(ctx context.Context, sessionKey int64, drivers []telemetry.Driver) (err error) {
	if len(drivers) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertDriverSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, d := range drivers {
		if _, err = stmt.ExecContext(ctx, sessionKey, d.Number, d.Acronym, d.FullName, d.LastName, d.TeamName); err != nil {
			return fmt.Errorf("inserting driver %d: %w", d.Number, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SqliteStore) Drivers(ctx context.Context, sessionKey int64) (drivers []telemetry.Driver, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectDriversSQL, sessionKey)
	if err != nil {
		err = fmt.Errorf("querying drivers: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var d telemetry.Driver
		var acronym, fullName, lastName, team sql.NullString
		if err = rows.Scan(&d.Number, &acronym, &fullName, &lastName, &team); err != nil {
			err = fmt.Errorf("scanning driver: %w", err)
			return
		}
		d.Acronym, d.FullName, d.LastName, d.TeamName = acronym.String, fullName.String, lastName.String, team.String
		drivers = append(drivers, d)
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreLaps(ctx context.Context, sessionKey int64, laps []telemetry.Lap) (err error) {
	if len(laps) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertLapSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, l := range laps {
		_, err = stmt.ExecContext(ctx,
			sessionKey,
			l.DriverNumber,
			l.Number,
			nullTime(l.DateStart),
			nullFloat(l.Duration),
			l.IsPitOutLap,
		)
		if err != nil {
			return fmt.Errorf("inserting lap %d of driver %d: %w", l.Number, l.DriverNumber, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Laps returns the laps of a driver ordered by lap number.
func (s *SqliteStore) Laps(ctx context.Context, sessionKey int64, driverNumber int) (laps []telemetry.Lap, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectLapsSQL, sessionKey, driverNumber)
	if err != nil {
		err = fmt.Errorf("querying laps: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var row lapRow
		if err = rows.Scan(&row.DriverNumber, &row.LapNumber, &row.DateStart, &row.LapDuration, &row.IsPitOutLap); err != nil {
			err = fmt.Errorf("scanning lap: %w", err)
			return
		}
		laps = append(laps, row.toLap())
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreCarData(ctx context.Context, sessionKey int64, driverNumber int, data []telemetry.CarData) (int64, error) {
	return batchInsert(ctx, s, insertCarDataSQL, "(?, ?, ?, ?, ?, ?, ?, ?, ?)", data,
		func(values []any, cd *telemetry.CarData) []any {
			row := toCarDataRow(sessionKey, driverNumber, cd)
			return append(values,
				row.SessionKey,
				row.DriverNumber,
				row.Timestamp,
				row.Speed,
				row.Throttle,
				row.Brake,
				row.RPM,
				row.Gear,
				row.DRS,
			)
		})
}

func (s *SqliteStore) StoreLocations(ctx context.Context, sessionKey int64, driverNumber int, locs []telemetry.Location) (int64, error) {
	return batchInsert(ctx, s, insertLocationSQL, "(?, ?, ?, ?, ?)", locs,
		func(values []any, l *telemetry.Location) []any {
			return append(values, sessionKey, driverNumber, l.Timestamp.UTC(), l.X, l.Y)
		})
}

// batchInsert writes records with multi-row INSERT statements of at most
// maxBatchSize rows, all inside one transaction.
func batchInsert[T any](ctx context.Context, s *SqliteStore, insertSQL, placeholder string, records []T,
	appendValues func([]any, *T) []any,
) (stored int64, err error) {
	if len(records) == 0 {
		return 0, nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	columns := strings.Count(placeholder, "?")

	for start := 0; start < len(records); start += s.maxBatchSize {
		end := min(start+s.maxBatchSize, len(records))

		values := make([]any, 0, (end-start)*columns)

		var sb strings.Builder
		sb.WriteString(insertSQL)

		for i := start; i < end; i++ {
			values = appendValues(values, &records[i])
			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
		}

		var res sql.Result
		if res, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return 0, fmt.Errorf("batch inserting rows %d-%d: %w", start, end, err)
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return 0, fmt.Errorf("counting inserted rows: %w", err)
		}
		stored += n
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return stored, nil
}

// CarData returns the car telemetry of a driver within [start, end] ordered
// by timestamp.
func (s *SqliteStore) CarData(ctx context.Context, sessionKey int64, driverNumber int, start, end time.Time) ([]telemetry.CarData, error) {
	r, err := s.ReadCarData(ctx, sessionKey, driverNumber, WithTimeRange[telemetry.CarData](start, end))
	if err != nil {
		return nil, err
	}
	return collect(ctx, r)
}

// Locations returns the track positions of a driver within [start, end]
// ordered by timestamp.
func (s *SqliteStore) Locations(ctx context.Context, sessionKey int64, driverNumber int, start, end time.Time) ([]telemetry.Location, error) {
	r, err := s.ReadLocations(ctx, sessionKey, driverNumber, WithTimeRange[telemetry.Location](start, end))
	if err != nil {
		return nil, err
	}
	return collect(ctx, r)
}

// ReadCarData creates a reader over the car telemetry of a driver. Without
// time options the whole stored stream is read.
//
// The returned reader must be closed after use to release database resources.
func (s *SqliteStore) ReadCarData(ctx context.Context, sessionKey int64, driverNumber int, opts ...ReaderOption[telemetry.CarData]) (*SqliteReader[telemetry.CarData], error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteReader(ctx, db, carDataQuery, sessionKey, driverNumber, opts...)
}

// ReadLocations creates a reader over the track positions of a driver.
//
// The returned reader must be closed after use to release database resources.
func (s *SqliteStore) ReadLocations(ctx context.Context, sessionKey int64, driverNumber int, opts ...ReaderOption[telemetry.Location]) (*SqliteReader[telemetry.Location], error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteReader(ctx, db, locationQuery, sessionKey, driverNumber, opts...)
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
