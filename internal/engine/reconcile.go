package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// reconcile compares freshly computed due statuses against the persisted
// notification set and applies the minimal set of creates and updates.
// Running it twice with no intervening state change produces no writes.
func (e *Engine) reconcile(ctx context.Context, state *models.MaintenanceState, statuses []DueStatus, now time.Time) error {
	for _, ds := range statuses {
		if ds.Status == StatusOK {
			continue
		}
		if err := e.reconcileComponent(ctx, state, ds, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) reconcileComponent(ctx context.Context, state *models.MaintenanceState, ds DueStatus, now time.Time) error {
	iv, ok := e.cat[ds.Component]
	if !ok {
		// Cannot happen for statuses produced by computeAll, but a bad
		// catalog must not block the rest of the vehicle.
		log.WithField("component", ds.Component).Warn("Skipping component with no catalog interval")
		return nil
	}

	desired := e.buildNotification(state, ds, iv, now)

	open, err := e.notifications.FindOpenNotification(ctx, state.VehicleID, ds.Component)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}

	if open != nil {
		// Update in place while the obligation persists; never duplicate.
		if open.Priority == desired.Priority &&
			equalTimePtr(open.DueDate, desired.DueDate) &&
			equalIntPtr(open.DueMileageKm, desired.DueMileageKm) {
			return nil
		}
		open.Priority = desired.Priority
		open.Title = desired.Title
		open.Message = desired.Message
		open.DueDate = desired.DueDate
		open.DueMileageKm = desired.DueMileageKm
		open.UpdatedAt = now
		return e.notifications.UpdateNotification(ctx, open)
	}

	// Anti-flood gate: an actioned recurring notification suppresses
	// re-creation until its next_notification_at passes.
	last, err := e.notifications.FindLatestActioned(ctx, state.VehicleID, ds.Component)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	if last != nil && last.IsRecurring && last.NextNotificationAt != nil && now.Before(*last.NextNotificationAt) {
		log.WithFields(log.Fields{
			"vehicle_id": state.VehicleID,
			"component":  ds.Component,
			"until":      last.NextNotificationAt,
		}).Debug("Suppressing recurring notification")
		return nil
	}

	if err := e.notifications.InsertNotification(ctx, desired); err != nil {
		return err
	}

	// Delivery is attempted once, on first transition into pending. A
	// failed delivery leaves the notification pending with is_sent=false.
	if err := e.notifier.Send(ctx, *desired); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"vehicle_id": state.VehicleID,
			"component":  ds.Component,
		}).Warn("Notification delivery failed")
		return nil
	}
	desired.IsSent = true
	desired.UpdatedAt = now
	return e.notifications.UpdateNotification(ctx, desired)
}

// buildNotification derives the notification a due status calls for.
func (e *Engine) buildNotification(state *models.MaintenanceState, ds DueStatus, iv catalog.Interval, now time.Time) *models.MaintenanceNotification {
	cs := state.Component(ds.Component)

	n := &models.MaintenanceNotification{
		VehicleID: state.VehicleID,
		Component: ds.Component,
		Priority:  priorityFor(ds, iv),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if iv.TracksDistance() {
		dueKm := iv.DistanceKm
		if cs.LastServicedKm != nil {
			dueKm = *cs.LastServicedKm + iv.DistanceKm
		}
		n.DueMileageKm = &dueKm
	}
	if iv.TracksTime() && cs.LastServicedAt != nil {
		dueDate := cs.LastServicedAt.Add(iv.Duration)
		n.DueDate = &dueDate
	}

	// Routine calendar-governed items recur; gate re-creation for the
	// length of the warning window after each completed service.
	if iv.TracksTime() && iv.Duration > 0 {
		n.IsRecurring = true
		n.RecurringInterval = iv.DueSoonDuration()
	}

	n.Title, n.Message = notificationText(ds)
	return n
}

// priorityFor assigns urgency: overdue past the warning window is urgent,
// freshly overdue is high, due-soon is normal.
func priorityFor(ds DueStatus, iv catalog.Interval) models.Priority {
	if ds.Status == StatusDueSoon {
		return models.PriorityNormal
	}
	switch ds.Basis {
	case BasisDistance:
		if ds.RemainingKm != nil && -*ds.RemainingKm > iv.DueSoonDistance() {
			return models.PriorityUrgent
		}
	case BasisTime:
		if ds.RemainingTime != nil && -*ds.RemainingTime > iv.DueSoonDuration() {
			return models.PriorityUrgent
		}
	}
	return models.PriorityHigh
}

func notificationText(ds DueStatus) (title, message string) {
	name := displayName(ds.Component)
	if ds.Status == StatusOverdue {
		title = fmt.Sprintf("%s overdue", name)
		switch ds.Basis {
		case BasisDistance:
			message = fmt.Sprintf("%s is overdue by %d km.", name, -*ds.RemainingKm)
		case BasisTime:
			message = fmt.Sprintf("%s is overdue by %d days.", name, int(-ds.RemainingTime.Hours()/24))
		}
		return title, message
	}
	title = fmt.Sprintf("%s due soon", name)
	switch ds.Basis {
	case BasisDistance:
		message = fmt.Sprintf("%s is due in %d km.", name, *ds.RemainingKm)
	case BasisTime:
		message = fmt.Sprintf("%s is due in %d days.", name, int(ds.RemainingTime.Hours()/24))
	}
	return title, message
}

func displayName(c catalog.Component) string {
	name := strings.ReplaceAll(string(c), "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// actionOpenNotification marks the open notification for a component as
// actioned, regardless of read state. Recurring notifications get their
// suppression window scheduled.
func (e *Engine) actionOpenNotification(ctx context.Context, vehicleID string, c catalog.Component, now time.Time) error {
	open, err := e.notifications.FindOpenNotification(ctx, vehicleID, c)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return err
	}
	open.ActionTaken = true
	at := now
	open.ActionTakenAt = &at
	if open.IsRecurring && open.RecurringInterval > 0 {
		next := now.Add(open.RecurringInterval)
		open.NextNotificationAt = &next
	}
	open.UpdatedAt = now
	return e.notifications.UpdateNotification(ctx, open)
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
