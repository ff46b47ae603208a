package engine

import (
	"time"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Status is the computed due-ness of a component.
type Status string

const (
	StatusOK      Status = "ok"
	StatusDueSoon Status = "due_soon"
	StatusOverdue Status = "overdue"
)

var statusRank = map[Status]int{StatusOK: 0, StatusDueSoon: 1, StatusOverdue: 2}

// Worse returns the more urgent of two statuses.
func Worse(a, b Status) Status {
	if statusRank[b] > statusRank[a] {
		return b
	}
	return a
}

// Basis says which dimension drove a component's status.
type Basis string

const (
	BasisDistance Basis = "distance"
	BasisTime     Basis = "time"
)

// DueStatus is the derived due-ness of one component. It is recomputed on
// demand and never persisted. Negative remainders are reported, not
// clamped, so callers can show "N over" and the aggregator keeps ordering.
type DueStatus struct {
	Component     catalog.Component `json:"component"`
	Status        Status            `json:"status"`
	RemainingKm   *int              `json:"remaining_km,omitempty"`
	RemainingTime *time.Duration    `json:"remaining_time,omitempty"`
	Basis         Basis             `json:"basis"`
}

// ComputeDueStatus derives the due status for one component from the
// vehicle's maintenance state and the interval catalog. Pure and
// deterministic; returns a ConfigurationGapError for components the
// catalog does not cover.
func ComputeDueStatus(state *models.MaintenanceState, cat catalog.Catalog, c catalog.Component, asOf time.Time) (DueStatus, error) {
	iv, ok := cat[c]
	if !ok {
		return DueStatus{}, &ConfigurationGapError{Component: c}
	}

	ds := DueStatus{Component: c, Status: StatusOK}
	cs := state.Component(c)

	var distStatus Status
	var remainingKm *int
	if iv.TracksDistance() {
		distStatus, remainingKm = distanceDue(state.CurrentMileageKm, cs.LastServicedKm, iv)
	}

	var timeStatus Status
	var remainingTime *time.Duration
	if iv.TracksTime() {
		timeStatus, remainingTime = timeDue(cs.LastServicedAt, iv, asOf)
	}

	switch iv.Mode {
	case catalog.ModeMileage:
		ds.Status = distStatus
		ds.RemainingKm = remainingKm
		ds.Basis = BasisDistance
	case catalog.ModeTime:
		ds.Status = timeStatus
		ds.RemainingTime = remainingTime
		ds.Basis = BasisTime
	case catalog.ModeMileageOrTime:
		// Whichever dimension crosses first triggers real-world wear, so
		// the worse of the two wins.
		ds.RemainingKm = remainingKm
		ds.RemainingTime = remainingTime
		if remainingTime == nil || statusRank[distStatus] > statusRank[timeStatus] {
			ds.Status = distStatus
			ds.Basis = BasisDistance
		} else if statusRank[timeStatus] > statusRank[distStatus] {
			ds.Status = timeStatus
			ds.Basis = BasisTime
		} else {
			ds.Status = distStatus
			ds.Basis = tighterBasis(remainingKm, remainingTime)
		}
	}
	return ds, nil
}

// distanceDue computes the mileage-governed status. A component that has
// never been serviced is overdue once the odometer exceeds the full
// interval and due-soon past half of it.
func distanceDue(currentKm int, lastServicedKm *int, iv catalog.Interval) (Status, *int) {
	if lastServicedKm == nil {
		remaining := iv.DistanceKm - currentKm
		switch {
		case remaining <= 0:
			return StatusOverdue, &remaining
		case currentKm >= iv.DistanceKm/2:
			return StatusDueSoon, &remaining
		default:
			return StatusOK, &remaining
		}
	}
	traveled := currentKm - *lastServicedKm
	remaining := iv.DistanceKm - traveled
	switch {
	case remaining <= 0:
		return StatusOverdue, &remaining
	case remaining <= iv.DueSoonDistance():
		return StatusDueSoon, &remaining
	default:
		return StatusOK, &remaining
	}
}

// timeDue computes the calendar-governed status. With no recorded service
// or installation date there is no baseline, so the component reports ok
// with an unknown remainder.
func timeDue(lastServicedAt *time.Time, iv catalog.Interval, asOf time.Time) (Status, *time.Duration) {
	if lastServicedAt == nil {
		return StatusOK, nil
	}
	elapsed := asOf.Sub(*lastServicedAt)
	remaining := iv.Duration - elapsed
	switch {
	case remaining <= 0:
		return StatusOverdue, &remaining
	case remaining <= iv.DueSoonDuration():
		return StatusDueSoon, &remaining
	default:
		return StatusOK, &remaining
	}
}

// tighterBasis breaks a status tie between dimensions by whichever has
// less normalized headroom.
func tighterBasis(remainingKm *int, remainingTime *time.Duration) Basis {
	if remainingKm == nil {
		return BasisTime
	}
	if remainingTime == nil {
		return BasisDistance
	}
	if normalizeTime(*remainingTime) < float64(*remainingKm) {
		return BasisTime
	}
	return BasisDistance
}

// normalizeTime converts a remaining duration into comparable distance
// using the average annual mileage constant.
func normalizeTime(d time.Duration) float64 {
	years := d.Hours() / (365 * 24)
	return years * catalog.AvgAnnualDistanceKm
}
