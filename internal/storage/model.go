package storage

import (
	"database/sql"
	"time"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

type sessionRow struct {
	SessionKey       int64
	MeetingKey       int64
	SessionName      string
	SessionType      sql.NullString
	CircuitShortName sql.NullString
	Year             sql.NullInt64
	DateStart        sql.NullTime
	DateEnd          sql.NullTime
}

type lapRow struct {
	DriverNumber int64
	LapNumber    int64
	DateStart    sql.NullTime
	LapDuration  sql.NullFloat64
	IsPitOutLap  bool
}

// carDataRow mirrors a car_data record; every channel may be NULL.
type carDataRow struct {
	SessionKey   int64
	DriverNumber int64
	Timestamp    time.Time
	Speed        sql.NullFloat64
	Throttle     sql.NullFloat64
	Brake        sql.NullFloat64
	RPM          sql.NullFloat64
	Gear         sql.NullInt64
	DRS          sql.NullInt64
}

func (r *sessionRow) toSession() *telemetry.Session {
	s := &telemetry.Session{
		Key:         r.SessionKey,
		MeetingKey:  r.MeetingKey,
		Name:        r.SessionName,
		Type:        r.SessionType.String,
		CircuitName: r.CircuitShortName.String,
		Year:        int(r.Year.Int64),
	}
	if r.DateStart.Valid {
		s.DateStart = r.DateStart.Time.UTC()
	}
	if r.DateEnd.Valid {
		s.DateEnd = r.DateEnd.Time.UTC()
	}
	return s
}

func (r *lapRow) toLap() telemetry.Lap {
	return telemetry.Lap{
		DriverNumber: int(r.DriverNumber),
		Number:       int(r.LapNumber),
		DateStart:    fromNullTime(r.DateStart),
		Duration:     fromNullFloat(r.LapDuration),
		IsPitOutLap:  r.IsPitOutLap,
	}
}
