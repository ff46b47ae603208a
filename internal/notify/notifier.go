package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// Notifier delivers a maintenance notification to an outbound channel
// (push, email, MQTT). The engine calls Send exactly once, when a
// notification first becomes pending; delivery failures are reported but
// never roll back the notification itself.
type Notifier interface {
	Send(ctx context.Context, n models.MaintenanceNotification) error
}

// LogNotifier writes notifications to the application log. Used as the
// default channel when no broker is configured.
type LogNotifier struct{}

// Send logs the notification.
func (LogNotifier) Send(_ context.Context, n models.MaintenanceNotification) error {
	log.WithFields(log.Fields{
		"vehicle_id": n.VehicleID,
		"component":  n.Component,
		"priority":   n.Priority,
	}).Info(n.Title)
	return nil
}
