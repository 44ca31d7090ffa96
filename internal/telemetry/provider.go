package telemetry

import (
	"context"
	"time"
)

// Provider supplies the raw telemetry streams for a driver within a session.
// Both streams are returned sorted by timestamp.
type Provider interface {
	Laps(ctx context.Context, sessionKey int64, driverNumber int) ([]Lap, error)
	CarData(ctx context.Context, sessionKey int64, driverNumber int, start, end time.Time) ([]CarData, error)
	Locations(ctx context.Context, sessionKey int64, driverNumber int, start, end time.Time) ([]Location, error)
}
