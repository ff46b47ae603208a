package db

import (
	"context"
	"errors"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// VehicleCollection defines the interface for vehicle registry operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListVehicleIDs(ctx context.Context) ([]string, error)
}

// StateCollection stores per-vehicle maintenance state. There is at most
// one state document per vehicle; SaveState upserts it.
type StateCollection interface {
	FindStateByVehicle(ctx context.Context, vehicleID string) (*models.MaintenanceState, error)
	SaveState(ctx context.Context, state *models.MaintenanceState) error
}

// MaintenanceRecordCollection is the append-only service history ledger.
type MaintenanceRecordCollection interface {
	InsertRecord(ctx context.Context, record *models.MaintenanceRecord) error
	FindRecordsByVehicle(ctx context.Context, vehicleID string) ([]models.MaintenanceRecord, error)
}

// NotificationCollection stores due-reminder notifications.
type NotificationCollection interface {
	InsertNotification(ctx context.Context, n *models.MaintenanceNotification) error
	UpdateNotification(ctx context.Context, n *models.MaintenanceNotification) error
	FindNotificationByID(ctx context.Context, id string) (*models.MaintenanceNotification, error)
	FindNotificationsByVehicle(ctx context.Context, vehicleID string) ([]models.MaintenanceNotification, error)
	// FindOpenNotification returns the unactioned notification for a
	// (vehicle, component) pair, or ErrNotFound.
	FindOpenNotification(ctx context.Context, vehicleID string, component catalog.Component) (*models.MaintenanceNotification, error)
	// FindLatestActioned returns the most recently actioned notification
	// for a (vehicle, component) pair, or ErrNotFound.
	FindLatestActioned(ctx context.Context, vehicleID string, component catalog.Component) (*models.MaintenanceNotification, error)
}

// UserCollection defines the interface for user data operations.
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	UpdateLastLogin(ctx context.Context, id string) error
}
