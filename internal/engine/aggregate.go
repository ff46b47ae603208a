package engine

import (
	"github.com/ukydev/fleet-maintenance/internal/catalog"
)

// Aggregate reduces per-component statuses to an overall vehicle status
// and the single next-due item. The overall status is the worst across
// components (ok for an empty list). Next-due is the component with the
// least normalized headroom; mileage items compare by remaining km and
// calendar items are converted via the average annual distance constant.
// Ties go to the earlier component in canonical catalog order so results
// are deterministic.
func Aggregate(statuses []DueStatus) (Status, *DueStatus) {
	overall := StatusOK
	var next *DueStatus
	var nextScore float64

	for i := range statuses {
		ds := statuses[i]
		overall = Worse(overall, ds.Status)

		score, ok := headroom(ds)
		if !ok {
			continue
		}
		if next == nil || score < nextScore ||
			(score == nextScore && catalog.Index(ds.Component) < catalog.Index(next.Component)) {
			next = &statuses[i]
			nextScore = score
		}
	}
	return overall, next
}

// headroom returns the normalized distance-to-due for ranking. Statuses
// with no usable remainder (time-tracked components that were never
// serviced) are excluded from ranking.
func headroom(ds DueStatus) (float64, bool) {
	switch ds.Basis {
	case BasisDistance:
		if ds.RemainingKm == nil {
			return 0, false
		}
		return float64(*ds.RemainingKm), true
	case BasisTime:
		if ds.RemainingTime == nil {
			return 0, false
		}
		return normalizeTime(*ds.RemainingTime), true
	default:
		return 0, false
	}
}
