package models

import (
	"time"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComponentState records when a single component was last serviced.
// Fields are sparse: absent until the first maintenance record.
type ComponentState struct {
	LastServicedAt *time.Time `bson:"last_serviced_at,omitempty" json:"last_serviced_at,omitempty"`
	LastServicedKm *int       `bson:"last_serviced_km,omitempty" json:"last_serviced_km,omitempty"`
}

// MaintenanceState is the per-vehicle service bookkeeping the engine owns.
// CurrentMileageKm is monotonically non-decreasing, and every recorded
// per-component mileage stays <= CurrentMileageKm.
type MaintenanceState struct {
	ID                   primitive.ObjectID                            `bson:"_id,omitempty" json:"id"`
	VehicleID            string                                        `bson:"vehicle_id" json:"vehicle_id"`
	CurrentMileageKm     int                                           `bson:"current_mileage_km" json:"current_mileage_km"`
	LastServiceDate      *time.Time                                    `bson:"last_service_date,omitempty" json:"last_service_date,omitempty"`
	LastServiceMileageKm *int                                          `bson:"last_service_mileage_km,omitempty" json:"last_service_mileage_km,omitempty"`
	Components           map[catalog.Component]ComponentState          `bson:"components" json:"components"`
	UpdatedAt            time.Time                                     `bson:"updated_at" json:"updated_at"`
}

// NewMaintenanceState returns a fresh state for a vehicle with no history.
func NewMaintenanceState(vehicleID string) *MaintenanceState {
	return &MaintenanceState{
		VehicleID:  vehicleID,
		Components: make(map[catalog.Component]ComponentState),
	}
}

// Component returns the recorded state for a component; the zero value
// means it has never been serviced.
func (s *MaintenanceState) Component(c catalog.Component) ComponentState {
	if s.Components == nil {
		return ComponentState{}
	}
	return s.Components[c]
}

// RecordService advances the per-component and generic service markers.
// It does not touch CurrentMileageKm; the caller owns that invariant.
func (s *MaintenanceState) RecordService(c catalog.Component, at time.Time, km int) {
	if s.Components == nil {
		s.Components = make(map[catalog.Component]ComponentState)
	}
	serviceDate := at
	serviceKm := km
	s.Components[c] = ComponentState{LastServicedAt: &serviceDate, LastServicedKm: &serviceKm}
	s.LastServiceDate = &serviceDate
	s.LastServiceMileageKm = &serviceKm
}
