package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/notify"
)

// Engine owns per-vehicle maintenance state and its notification set.
// All reads and writes for one vehicle are serialized behind a per-vehicle
// mutex; vehicles are fully independent.
type Engine struct {
	vehicles      db.VehicleCollection
	states        db.StateCollection
	records       db.MaintenanceRecordCollection
	notifications db.NotificationCollection
	cat           catalog.Catalog
	notifier      notify.Notifier
	clock         clockz.Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a maintenance engine. A nil notifier falls back to logging
// and a nil clock to wall time.
func New(vehicles db.VehicleCollection, states db.StateCollection, records db.MaintenanceRecordCollection,
	notifications db.NotificationCollection, cat catalog.Catalog, notifier notify.Notifier, clock clockz.Clock) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Engine{
		vehicles:      vehicles,
		states:        states,
		records:       records,
		notifications: notifications,
		cat:           cat,
		notifier:      notifier,
		clock:         clock,
		locks:         make(map[string]*sync.Mutex),
	}
}

// vehicleLock returns the mutex serializing one vehicle's critical section.
func (e *Engine) vehicleLock(vehicleID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[vehicleID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[vehicleID] = l
	}
	return l
}

// RecordInput is a validated maintenance event.
type RecordInput struct {
	Component        catalog.Component `json:"component"`
	ServiceDate      time.Time         `json:"service_date"`
	ServiceMileageKm int               `json:"service_mileage_km"`
	Cost             float64           `json:"cost,omitempty"`
	Currency         string            `json:"currency,omitempty"`
	Provider         string            `json:"provider,omitempty"`
	Notes            string            `json:"notes,omitempty"`
}

// Summary is the aggregate view returned by mutating operations.
type Summary struct {
	OverallStatus Status     `json:"overall_status"`
	NextDue       *DueStatus `json:"next_due,omitempty"`
}

// Snapshot is the full read-only maintenance view for one vehicle.
type Snapshot struct {
	VehicleID     string                           `json:"vehicle_id"`
	Statuses      []DueStatus                      `json:"statuses"`
	OverallStatus Status                           `json:"overall_status"`
	NextDue       *DueStatus                       `json:"next_due,omitempty"`
	Notifications []models.MaintenanceNotification `json:"notifications"`
}

// RecordMaintenance appends a service event to the history ledger,
// advances the vehicle's maintenance state and reconciles notifications.
// The record, the state update and the reconciliation happen as one
// logical unit under the vehicle lock.
func (e *Engine) RecordMaintenance(ctx context.Context, vehicleID string, in RecordInput) (*models.MaintenanceRecord, error) {
	if !in.Component.Valid() {
		return nil, &ValidationError{Field: "component", Reason: fmt.Sprintf("unknown component %q", in.Component)}
	}
	if _, ok := e.cat[in.Component]; !ok {
		return nil, &ValidationError{Field: "component", Reason: fmt.Sprintf("component %q is not in the interval catalog", in.Component)}
	}
	if in.ServiceMileageKm < 0 {
		return nil, &ValidationError{Field: "service_mileage_km", Reason: "must not be negative"}
	}
	now := e.clock.Now()
	if in.ServiceDate.IsZero() {
		in.ServiceDate = now
	}

	l := e.vehicleLock(vehicleID)
	l.Lock()
	defer l.Unlock()

	if _, err := e.findVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	state, err := e.loadOrInitState(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	if in.ServiceMileageKm < state.CurrentMileageKm {
		return nil, &InvariantViolationError{Reason: fmt.Sprintf(
			"service mileage %d km is below the recorded odometer %d km",
			in.ServiceMileageKm, state.CurrentMileageKm)}
	}

	record := &models.MaintenanceRecord{
		VehicleID:        vehicleID,
		Component:        in.Component,
		ServiceDate:      in.ServiceDate,
		ServiceMileageKm: in.ServiceMileageKm,
		Cost:             in.Cost,
		Currency:         in.Currency,
		Provider:         in.Provider,
		Notes:            in.Notes,
		CreatedAt:        now,
	}
	if err := e.records.InsertRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to append maintenance record: %w", err)
	}

	state.RecordService(in.Component, in.ServiceDate, in.ServiceMileageKm)
	// The workshop odometer reading may be ahead of the last telemetry
	// update; advancing here keeps last-serviced <= current.
	if in.ServiceMileageKm > state.CurrentMileageKm {
		state.CurrentMileageKm = in.ServiceMileageKm
	}
	if err := e.states.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save maintenance state: %w", err)
	}

	if err := e.actionOpenNotification(ctx, vehicleID, in.Component, now); err != nil {
		return nil, err
	}
	if err := e.reconcile(ctx, state, e.computeAll(state, now), now); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vehicle_id": vehicleID,
		"component":  in.Component,
		"mileage_km": in.ServiceMileageKm,
	}).Info("Recorded maintenance")
	return record, nil
}

// UpdateOdometer sets a new odometer reading and reconciles notifications.
// The odometer never decreases; a lower value is rejected unchanged.
func (e *Engine) UpdateOdometer(ctx context.Context, vehicleID string, newMileageKm int) (*Summary, error) {
	if newMileageKm < 0 {
		return nil, &ValidationError{Field: "mileage_km", Reason: "must not be negative"}
	}

	l := e.vehicleLock(vehicleID)
	l.Lock()
	defer l.Unlock()

	if _, err := e.findVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	state, err := e.loadOrInitState(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if newMileageKm < state.CurrentMileageKm {
		return nil, &ValidationError{Field: "mileage_km", Reason: fmt.Sprintf(
			"odometer cannot decrease from %d to %d", state.CurrentMileageKm, newMileageKm)}
	}

	state.CurrentMileageKm = newMileageKm
	if err := e.states.SaveState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save maintenance state: %w", err)
	}

	now := e.clock.Now()
	statuses := e.computeAll(state, now)
	if err := e.reconcile(ctx, state, statuses, now); err != nil {
		return nil, err
	}
	overall, next := Aggregate(statuses)
	return &Summary{OverallStatus: overall, NextDue: next}, nil
}

// GetMaintenanceSnapshot returns statuses, the aggregate view and the
// notification set for one vehicle. Read-only and safe to poll.
func (e *Engine) GetMaintenanceSnapshot(ctx context.Context, vehicleID string) (*Snapshot, error) {
	l := e.vehicleLock(vehicleID)
	l.Lock()
	defer l.Unlock()

	if _, err := e.findVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	state, err := e.loadOrInitState(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	statuses := e.computeAll(state, e.clock.Now())
	overall, next := Aggregate(statuses)

	notifications, err := e.notifications.FindNotificationsByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		VehicleID:     vehicleID,
		Statuses:      statuses,
		OverallStatus: overall,
		NextDue:       next,
		Notifications: notifications,
	}, nil
}

// Recompute re-evaluates one vehicle and reconciles its notifications.
// This is the entry point for the periodic sweep that catches mileage and
// calendar drift happening without a new maintenance record.
func (e *Engine) Recompute(ctx context.Context, vehicleID string) error {
	l := e.vehicleLock(vehicleID)
	l.Lock()
	defer l.Unlock()

	state, err := e.loadOrInitState(ctx, vehicleID)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	return e.reconcile(ctx, state, e.computeAll(state, now), now)
}

// GetHistory returns the vehicle's append-only service ledger.
func (e *Engine) GetHistory(ctx context.Context, vehicleID string) ([]models.MaintenanceRecord, error) {
	if _, err := e.findVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	return e.records.FindRecordsByVehicle(ctx, vehicleID)
}

// MarkNotificationRead flags a notification as read. Reading does not end
// the obligation; the component can still worsen and update it in place.
func (e *Engine) MarkNotificationRead(ctx context.Context, notificationID string) (*models.MaintenanceNotification, error) {
	n, err := e.notifications.FindNotificationByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	l := e.vehicleLock(n.VehicleID)
	l.Lock()
	defer l.Unlock()

	if n.IsRead {
		return n, nil
	}
	now := e.clock.Now()
	n.IsRead = true
	n.ReadAt = &now
	n.UpdatedAt = now
	if err := e.notifications.UpdateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// computeAll derives statuses for every cataloged component in canonical
// order. Components without a catalog interval are skipped entirely; one
// unconfigured component must not block the rest of the vehicle.
func (e *Engine) computeAll(state *models.MaintenanceState, asOf time.Time) []DueStatus {
	statuses := make([]DueStatus, 0, len(e.cat))
	for _, c := range catalog.Components() {
		ds, err := ComputeDueStatus(state, e.cat, c, asOf)
		if err != nil {
			if IsConfigurationGap(err) {
				log.WithFields(log.Fields{
					"vehicle_id": state.VehicleID,
					"component":  c,
				}).Debug("Component has no catalog interval; skipping")
				continue
			}
			log.WithError(err).WithFields(log.Fields{
				"vehicle_id": state.VehicleID,
				"component":  c,
			}).Warn("Failed to compute due status; skipping component")
			continue
		}
		statuses = append(statuses, ds)
	}
	return statuses
}

func (e *Engine) findVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	v, err := e.vehicles.FindVehicleByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return v, nil
}

func (e *Engine) loadOrInitState(ctx context.Context, vehicleID string) (*models.MaintenanceState, error) {
	state, err := e.states.FindStateByVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.NewMaintenanceState(vehicleID), nil
		}
		return nil, err
	}
	return state, nil
}
