package models

import (
	"time"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Priority levels for maintenance notifications.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// MaintenanceNotification is a stateful due-reminder for one vehicle
// component. At most one notification per (vehicle, component) is open at
// a time; a new maintenance record actions it rather than deleting it.
type MaintenanceNotification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID string             `bson:"vehicle_id" json:"vehicle_id"`
	Component catalog.Component  `bson:"component" json:"component"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Priority  Priority           `bson:"priority" json:"priority"`

	DueDate      *time.Time `bson:"due_date,omitempty" json:"due_date,omitempty"`
	DueMileageKm *int       `bson:"due_mileage_km,omitempty" json:"due_mileage_km,omitempty"`

	IsRead bool       `bson:"is_read" json:"is_read"`
	ReadAt *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`

	// IsSent records whether outbound delivery succeeded when the
	// notification first became pending. A failed delivery does not roll
	// back the notification.
	IsSent bool `bson:"is_sent" json:"is_sent"`

	IsRecurring        bool          `bson:"is_recurring" json:"is_recurring"`
	RecurringInterval  time.Duration `bson:"recurring_interval,omitempty" json:"recurring_interval,omitempty"`
	NextNotificationAt *time.Time    `bson:"next_notification_at,omitempty" json:"next_notification_at,omitempty"`

	ActionTaken   bool       `bson:"action_taken" json:"action_taken"`
	ActionTakenAt *time.Time `bson:"action_taken_at,omitempty" json:"action_taken_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Open reports whether the notification still represents an outstanding
// obligation (pending or read, but not yet actioned).
func (n *MaintenanceNotification) Open() bool {
	return !n.ActionTaken
}
