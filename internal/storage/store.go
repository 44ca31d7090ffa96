package storage

import (
	"context"

	"github.com/roman-kulish/lap-energy/internal/telemetry"
)

// Store persists imported race sessions and the raw telemetry streams the
// energy analysis is computed from. Writes of a stream batch are atomic.
type Store interface {
	telemetry.Provider

	// StoreSession inserts or replaces the session metadata.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - session: Session metadata, keyed by Session.Key
	//
	// Returns:
	//   - error: If storage fails or context is cancelled
	StoreSession(ctx context.Context, session *telemetry.Session) error

	// Session retrieves a session by its key.
	//
	// Returns:
	//   - session: Session metadata
	//   - error: sql.ErrNoRows (wrapped) if the session is unknown
	Session(ctx context.Context, sessionKey int64) (*telemetry.Session, error)

	// Sessions returns every stored session ordered by start date.
	Sessions(ctx context.Context) ([]*telemetry.Session, error)

	// StoreDrivers inserts or replaces the drivers of a session.
	StoreDrivers(ctx context.Context, sessionKey int64, drivers []telemetry.Driver) error

	// Drivers returns the drivers of a session ordered by car number.
	Drivers(ctx context.Context, sessionKey int64) ([]telemetry.Driver, error)

	// StoreLaps inserts or replaces lap records of a session.
	StoreLaps(ctx context.Context, sessionKey int64, laps []telemetry.Lap) error

	// StoreCarData saves car telemetry of one driver. Records already stored
	// for the same timestamp are kept and the duplicates ignored, so an
	// import can be repeated safely.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - sessionKey: Session the records belong to
	//   - driverNumber: Car number
	//   - data: Records in any order
	//
	// Returns:
	//   - stored: Number of newly inserted rows
	//   - error: If storage fails or context is cancelled
	StoreCarData(ctx context.Context, sessionKey int64, driverNumber int, data []telemetry.CarData) (stored int64, err error)

	// StoreLocations saves track positions of one driver with the same
	// duplicate handling as StoreCarData.
	StoreLocations(ctx context.Context, sessionKey int64, driverNumber int, locs []telemetry.Location) (stored int64, err error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)

