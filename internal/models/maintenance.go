package models

import (
	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

// MaintenanceRecord is an append-only entry in a vehicle's service history.
// Creating one is the only way MaintenanceState advances for its component.
type MaintenanceRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleID        string             `bson:"vehicle_id" json:"vehicle_id"`
	Component        catalog.Component  `bson:"component" json:"component"`
	ServiceDate      time.Time          `bson:"service_date" json:"service_date"`
	ServiceMileageKm int                `bson:"service_mileage_km" json:"service_mileage_km"`
	Cost             float64            `bson:"cost,omitempty" json:"cost,omitempty"`
	Currency         string             `bson:"currency,omitempty" json:"currency,omitempty"`
	Provider         string             `bson:"provider,omitempty" json:"provider,omitempty"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}
