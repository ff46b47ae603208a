package engine

import (
	"errors"
	"fmt"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
)

var (
	// ErrVehicleNotFound means the vehicle id is unknown.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrNotificationNotFound means the notification id is unknown.
	ErrNotificationNotFound = errors.New("notification not found")
)

// ValidationError is a caller fault: bad input shape or range. Never
// retried automatically; the caller corrects the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvariantViolationError means applying the input would break the
// monotonic-mileage or last-serviced-<=-current invariants. Rejected,
// never silently coerced.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Reason
}

// ConfigurationGapError means a component has no catalog interval. It is
// swallowed per component inside the recomputation loop so the rest of
// the vehicle still gets evaluated.
type ConfigurationGapError struct {
	Component catalog.Component
}

func (e *ConfigurationGapError) Error() string {
	return fmt.Sprintf("component %s has no configured interval", e.Component)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvariantViolation reports whether err is an InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var ie *InvariantViolationError
	return errors.As(err, &ie)
}

// IsConfigurationGap reports whether err is a ConfigurationGapError.
func IsConfigurationGap(err error) bool {
	var ce *ConfigurationGapError
	return errors.As(err, &ce)
}
