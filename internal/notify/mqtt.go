package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

const publishTimeout = 5 * time.Second

// MQTTNotifier publishes maintenance notifications to an MQTT broker.
// Downstream consumers (mobile push gateway, dashboard) subscribe to
// fleet/notifications/<vehicle_id>.
type MQTTNotifier struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTNotifier connects to the broker and returns a notifier.
func NewMQTTNotifier(brokerURL, clientID, topicPrefix string) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetConnectTimeout(10 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect error: %w", token.Error())
	}
	if topicPrefix == "" {
		topicPrefix = "fleet/notifications"
	}
	return &MQTTNotifier{client: client, topicPrefix: topicPrefix}, nil
}

// Send publishes the notification as JSON.
func (m *MQTTNotifier) Send(_ context.Context, n models.MaintenanceNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	topic := fmt.Sprintf("%s/%s", m.topicPrefix, n.VehicleID)
	token := m.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish timed out on %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish error: %w", token.Error())
	}
	log.WithFields(log.Fields{
		"topic":     topic,
		"component": n.Component,
		"priority":  n.Priority,
	}).Debug("Published maintenance notification")
	return nil
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() {
	m.client.Disconnect(250)
}
