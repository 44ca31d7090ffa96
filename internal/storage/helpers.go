package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError is deferred after BeginTx; a committed transaction reports
// sql.ErrTxDone which is not an error for the caller.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) && *err == nil {
		*err = rErr
	}
}

func toSQLNullType[T float64 | int64, Y float64 | int | int64](f *Y) T {
	if f == nil {
		return 0
	}
	return T(*f)
}

func nullFloat(f *float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: toSQLNullType[float64](f), Valid: f != nil}
}

func nullInt(i *int) sql.NullInt64 {
	return sql.NullInt64{Int64: toSQLNullType[int64](i), Valid: i != nil}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func fromNullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func toCarDataRow(sessionKey int64, driverNumber int, cd *telemetry.CarData) *carDataRow {
	return &carDataRow{
		SessionKey:   sessionKey,
		DriverNumber: int64(driverNumber),
		Timestamp:    cd.Timestamp.UTC(),
		Speed:        nullFloat(cd.Speed),
		Throttle:     nullFloat(cd.Throttle),
		Brake:        nullFloat(cd.Brake),
		RPM:          nullFloat(cd.RPM),
		Gear:         nullInt(cd.Gear),
		DRS:          nullInt(cd.DRS),
	}
}

func (r *carDataRow) toCarData() telemetry.CarData {
	return telemetry.CarData{
		Timestamp: r.Timestamp.UTC(),
		Speed:     fromNullFloat(r.Speed),
		Throttle:  fromNullFloat(r.Throttle),
		Brake:     fromNullFloat(r.Brake),
		RPM:       fromNullFloat(r.RPM),
		Gear:      fromNullInt(r.Gear),
		DRS:       fromNullInt(r.DRS),
	}
}

// sqliteDatetime scans aggregate results such as MIN(timestamp), which the
// driver returns as text because they carry no declared column type.
type sqliteDatetime struct {
	Datetime time.Time
	Valid    bool
}

func (d *sqliteDatetime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Datetime, d.Valid = time.Time{}, false
		return nil
	case time.Time:
		d.Datetime, d.Valid = v.UTC(), true
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("unsupported datetime type %T", src)
	}
}

func (d *sqliteDatetime) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, format := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			d.Datetime, d.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("parsing datetime %q", s)
}
