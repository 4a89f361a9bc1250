// Package store owns the durable per-client state the UI depends on across
// page loads: the theme choice, the authenticated vehicle session, and the
// last optimization result. Each is a single named slot, JSON-encoded and
// overwritten wholesale on update. Last write wins; concurrent tabs are not
// coordinated.
package store

import (
	"context"
	"errors"

	"github.com/voltroute/voltroute/internal/models"
)

// ErrNotFound is returned when a slot or record is absent.
var ErrNotFound = errors.New("not found")

// Store is the state-store contract. Two implementations exist: Postgres
// for durable storage and Memory as the degraded fallback when no database
// is configured or reachable.
type Store interface {
	// Theme resolves to a valid value, defaulting to light when unset.
	Theme(ctx context.Context, clientID string) (models.Theme, error)
	SetTheme(ctx context.Context, clientID string, theme models.Theme) error

	Session(ctx context.Context, clientID string) (*models.Session, error)
	SetSession(ctx context.Context, clientID string, session *models.Session) error
	// ClearSession removes the session and any derived optimization result.
	ClearSession(ctx context.Context, clientID string) error

	Result(ctx context.Context, clientID string) (*models.OptimizeResult, error)
	SetResult(ctx context.Context, clientID string, result *models.OptimizeResult) error
	ClearResult(ctx context.Context, clientID string) error

	// Route history keeps every successful optimization per vehicle.
	SaveRoute(ctx context.Context, vehicleNumber string, result *models.OptimizeResult) (int64, error)
	ListRoutes(ctx context.Context, vehicleNumber string, limit, offset int) ([]models.RouteRecord, error)
	RouteByID(ctx context.Context, id int64) (*models.RouteRecord, error)

	Close()
}

// Slot names for the per-client key-value records.
const (
	slotTheme   = "theme"
	slotSession = "session"
	slotResult  = "result"
)
