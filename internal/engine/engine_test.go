package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// In-memory fakes over the db collection interfaces. Write counters let
// tests assert idempotence.

type fakeVehicles struct {
	vehicles map[string]models.Vehicle
}

func newFakeVehicles(ids ...string) *fakeVehicles {
	f := &fakeVehicles{vehicles: make(map[string]models.Vehicle)}
	for _, id := range ids {
		f.vehicles[id] = models.Vehicle{Make: "Test", Model: "Car", Year: 2020, Status: "active"}
	}
	return f
}

func (f *fakeVehicles) InsertVehicle(_ context.Context, v *models.Vehicle) error {
	v.ID = primitive.NewObjectID()
	f.vehicles[v.ID.Hex()] = *v
	return nil
}

func (f *fakeVehicles) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

func (f *fakeVehicles) FindVehicles(_ context.Context) ([]models.Vehicle, error) {
	out := make([]models.Vehicle, 0, len(f.vehicles))
	for _, v := range f.vehicles {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeVehicles) ListVehicleIDs(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(f.vehicles))
	for id := range f.vehicles {
		out = append(out, id)
	}
	return out, nil
}

type fakeStates struct {
	states map[string]models.MaintenanceState
	saves  int
}

func newFakeStates() *fakeStates {
	return &fakeStates{states: make(map[string]models.MaintenanceState)}
}

func (f *fakeStates) FindStateByVehicle(_ context.Context, vehicleID string) (*models.MaintenanceState, error) {
	s, ok := f.states[vehicleID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := s
	copied.Components = make(map[catalog.Component]models.ComponentState, len(s.Components))
	for k, v := range s.Components {
		copied.Components[k] = v
	}
	return &copied, nil
}

func (f *fakeStates) SaveState(_ context.Context, state *models.MaintenanceState) error {
	f.states[state.VehicleID] = *state
	f.saves++
	return nil
}

type fakeRecords struct {
	records []models.MaintenanceRecord
}

func (f *fakeRecords) InsertRecord(_ context.Context, record *models.MaintenanceRecord) error {
	record.ID = primitive.NewObjectID()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeRecords) FindRecordsByVehicle(_ context.Context, vehicleID string) ([]models.MaintenanceRecord, error) {
	var out []models.MaintenanceRecord
	for _, r := range f.records {
		if r.VehicleID == vehicleID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	items   map[string]models.MaintenanceNotification
	inserts int
	updates int
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{items: make(map[string]models.MaintenanceNotification)}
}

func (f *fakeNotifications) InsertNotification(_ context.Context, n *models.MaintenanceNotification) error {
	n.ID = primitive.NewObjectID()
	f.items[n.ID.Hex()] = *n
	f.inserts++
	return nil
}

func (f *fakeNotifications) UpdateNotification(_ context.Context, n *models.MaintenanceNotification) error {
	if _, ok := f.items[n.ID.Hex()]; !ok {
		return db.ErrNotFound
	}
	f.items[n.ID.Hex()] = *n
	f.updates++
	return nil
}

func (f *fakeNotifications) FindNotificationByID(_ context.Context, id string) (*models.MaintenanceNotification, error) {
	n, ok := f.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &n, nil
}

func (f *fakeNotifications) FindNotificationsByVehicle(_ context.Context, vehicleID string) ([]models.MaintenanceNotification, error) {
	var out []models.MaintenanceNotification
	for _, n := range f.items {
		if n.VehicleID == vehicleID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) FindOpenNotification(_ context.Context, vehicleID string, component catalog.Component) (*models.MaintenanceNotification, error) {
	for _, n := range f.items {
		if n.VehicleID == vehicleID && n.Component == component && !n.ActionTaken {
			found := n
			return &found, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeNotifications) FindLatestActioned(_ context.Context, vehicleID string, component catalog.Component) (*models.MaintenanceNotification, error) {
	var latest *models.MaintenanceNotification
	for _, n := range f.items {
		if n.VehicleID != vehicleID || n.Component != component || !n.ActionTaken {
			continue
		}
		found := n
		if latest == nil || (found.ActionTakenAt != nil && latest.ActionTakenAt != nil && found.ActionTakenAt.After(*latest.ActionTakenAt)) {
			latest = &found
		}
	}
	if latest == nil {
		return nil, db.ErrNotFound
	}
	return latest, nil
}

func (f *fakeNotifications) open(vehicleID string) []models.MaintenanceNotification {
	var out []models.MaintenanceNotification
	for _, n := range f.items {
		if n.VehicleID == vehicleID && !n.ActionTaken {
			out = append(out, n)
		}
	}
	return out
}

type fakeNotifier struct {
	sent []models.MaintenanceNotification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n models.MaintenanceNotification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

type testEnv struct {
	engine        *Engine
	vehicles      *fakeVehicles
	states        *fakeStates
	records       *fakeRecords
	notifications *fakeNotifications
	notifier      *fakeNotifier
	clock         *clockz.FakeClock
}

func newTestEnv(t *testing.T, cat catalog.Catalog, vehicleIDs ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		vehicles:      newFakeVehicles(vehicleIDs...),
		states:        newFakeStates(),
		records:       &fakeRecords{},
		notifications: newFakeNotifications(),
		notifier:      &fakeNotifier{},
		clock:         clockz.NewFakeClock(),
	}
	env.engine = New(env.vehicles, env.states, env.records, env.notifications, cat, env.notifier, env.clock)
	return env
}

func oilOnlyCatalog() catalog.Catalog {
	return catalog.Catalog{
		catalog.OilChange: {Mode: catalog.ModeMileage, DistanceKm: 15000},
	}
}

func TestOilChangeLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	// First oil change at mileage 0.
	_, err := env.engine.RecordMaintenance(ctx, "veh1", RecordInput{
		Component:        catalog.OilChange,
		ServiceMileageKm: 0,
	})
	require.NoError(t, err)

	// 13600 km: inside the 1500 km warning window.
	summary, err := env.engine.UpdateOdometer(ctx, "veh1", 13600)
	require.NoError(t, err)
	assert.Equal(t, StatusDueSoon, summary.OverallStatus)
	require.NotNil(t, summary.NextDue)
	require.NotNil(t, summary.NextDue.RemainingKm)
	assert.Equal(t, 1400, *summary.NextDue.RemainingKm)

	open := env.notifications.open("veh1")
	require.Len(t, open, 1)
	assert.Equal(t, models.PriorityNormal, open[0].Priority)
	assert.False(t, open[0].IsRead)
	require.NotNil(t, open[0].DueMileageKm)
	assert.Equal(t, 15000, *open[0].DueMileageKm)

	// 15200 km: overdue by 200, the open notification escalates in place.
	summary, err = env.engine.UpdateOdometer(ctx, "veh1", 15200)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, summary.OverallStatus)
	require.NotNil(t, summary.NextDue.RemainingKm)
	assert.Equal(t, -200, *summary.NextDue.RemainingKm)

	open = env.notifications.open("veh1")
	require.Len(t, open, 1)
	assert.Equal(t, models.PriorityHigh, open[0].Priority)
	assert.Equal(t, 1, env.notifications.inserts)

	// Servicing resets the component and actions the notification.
	_, err = env.engine.RecordMaintenance(ctx, "veh1", RecordInput{
		Component:        catalog.OilChange,
		ServiceMileageKm: 15200,
	})
	require.NoError(t, err)

	assert.Empty(t, env.notifications.open("veh1"))
	snapshot, err := env.engine.GetMaintenanceSnapshot(ctx, "veh1")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, snapshot.OverallStatus)
	require.Len(t, snapshot.Statuses, 1)
	require.NotNil(t, snapshot.Statuses[0].RemainingKm)
	assert.Equal(t, 15000, *snapshot.Statuses[0].RemainingKm)

	actioned, err := env.notifications.FindLatestActioned(ctx, "veh1", catalog.OilChange)
	require.NoError(t, err)
	assert.True(t, actioned.ActionTaken)
	assert.NotNil(t, actioned.ActionTakenAt)
}

func TestUpdateOdometerRejectsRegression(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 1000)
	require.NoError(t, err)
	savesBefore := env.states.saves

	_, err = env.engine.UpdateOdometer(ctx, "veh1", 500)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, savesBefore, env.states.saves, "failed update must not write state")

	snapshot, err := env.engine.GetMaintenanceSnapshot(ctx, "veh1")
	require.NoError(t, err)
	require.NotNil(t, snapshot.Statuses[0].RemainingKm)
	assert.Equal(t, 14000, *snapshot.Statuses[0].RemainingKm)
}

func TestRecordMaintenanceValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.RecordMaintenance(ctx, "veh1", RecordInput{Component: "flux_capacitor"})
	assert.True(t, IsValidation(err))

	// Valid component, but absent from this deployment's catalog.
	_, err = env.engine.RecordMaintenance(ctx, "veh1", RecordInput{Component: catalog.BrakePad})
	assert.True(t, IsValidation(err))

	_, err = env.engine.RecordMaintenance(ctx, "missing", RecordInput{Component: catalog.OilChange})
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestRecordMaintenanceRejectsMileageRollback(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 10000)
	require.NoError(t, err)

	_, err = env.engine.RecordMaintenance(ctx, "veh1", RecordInput{
		Component:        catalog.OilChange,
		ServiceMileageKm: 5000,
	})
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
	assert.Empty(t, env.records.records, "rejected record must not reach the ledger")
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 16000)
	require.NoError(t, err)
	first, err := env.engine.GetMaintenanceSnapshot(ctx, "veh1")
	require.NoError(t, err)

	inserts, updates := env.notifications.inserts, env.notifications.updates
	require.NoError(t, env.engine.Recompute(ctx, "veh1"))
	require.NoError(t, env.engine.Recompute(ctx, "veh1"))

	assert.Equal(t, inserts, env.notifications.inserts, "idempotent recompute must not insert")
	assert.Equal(t, updates, env.notifications.updates, "idempotent recompute must not update")

	second, err := env.engine.GetMaintenanceSnapshot(ctx, "veh1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNoDuplicateOpenNotifications(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.RecordMaintenance(ctx, "veh1", RecordInput{Component: catalog.OilChange})
	require.NoError(t, err)

	// Repeated worsening: due_soon, freshly overdue, deep overdue.
	for _, km := range []int{14000, 15500, 31000} {
		_, err := env.engine.UpdateOdometer(ctx, "veh1", km)
		require.NoError(t, err)
	}

	open := env.notifications.open("veh1")
	require.Len(t, open, 1)
	assert.Equal(t, models.PriorityUrgent, open[0].Priority)
	assert.Equal(t, 1, env.notifications.inserts)
}

func TestDeliveryFailureKeepsNotificationPending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")
	env.notifier.err = errors.New("broker down")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 16000)
	require.NoError(t, err)

	open := env.notifications.open("veh1")
	require.Len(t, open, 1)
	assert.False(t, open[0].IsSent)
}

func TestDeliveryHappensOnceOnFirstPending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 16000)
	require.NoError(t, err)
	require.Len(t, env.notifier.sent, 1)

	// Worsening updates in place; no re-delivery.
	_, err = env.engine.UpdateOdometer(ctx, "veh1", 40000)
	require.NoError(t, err)
	assert.Len(t, env.notifier.sent, 1)
}

func TestMarkNotificationRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 14000)
	require.NoError(t, err)
	open := env.notifications.open("veh1")
	require.Len(t, open, 1)

	n, err := env.engine.MarkNotificationRead(ctx, open[0].ID.Hex())
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.NotNil(t, n.ReadAt)

	// Reading does not end the obligation: worsening still escalates the
	// same notification.
	_, err = env.engine.UpdateOdometer(ctx, "veh1", 16000)
	require.NoError(t, err)
	open = env.notifications.open("veh1")
	require.Len(t, open, 1)
	assert.True(t, open[0].IsRead)
	assert.Equal(t, models.PriorityHigh, open[0].Priority)
	assert.Equal(t, 1, env.notifications.inserts)

	_, err = env.engine.MarkNotificationRead(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestRecurringGateSuppressesRecreation(t *testing.T) {
	ctx := context.Background()
	cat := catalog.Catalog{
		catalog.SeasonalTire: {Mode: catalog.ModeTime, Duration: 10 * 24 * time.Hour},
	}
	env := newTestEnv(t, cat, "veh1")
	now := env.clock.Now()

	// Serviced 20 days ago: overdue, a notification is created.
	_, err := env.engine.RecordMaintenance(ctx, "veh1", RecordInput{
		Component:   catalog.SeasonalTire,
		ServiceDate: now.Add(-20 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.notifications.inserts)

	// Another back-dated service: still overdue afterwards, but the
	// actioned recurring notification gates re-creation.
	_, err = env.engine.RecordMaintenance(ctx, "veh1", RecordInput{
		Component:   catalog.SeasonalTire,
		ServiceDate: now.Add(-15 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.notifications.inserts)
	assert.Empty(t, env.notifications.open("veh1"))

	// Once the gate passes, the still-due component notifies again.
	env.clock.Advance(2 * 24 * time.Hour)
	require.NoError(t, env.engine.Recompute(ctx, "veh1"))
	assert.Equal(t, 2, env.notifications.inserts)
	assert.Len(t, env.notifications.open("veh1"), 1)
}

func TestSnapshotIsReadOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 16000)
	require.NoError(t, err)

	saves := env.states.saves
	inserts := env.notifications.inserts
	updates := env.notifications.updates
	for i := 0; i < 3; i++ {
		_, err := env.engine.GetMaintenanceSnapshot(ctx, "veh1")
		require.NoError(t, err)
	}
	assert.Equal(t, saves, env.states.saves)
	assert.Equal(t, inserts, env.notifications.inserts)
	assert.Equal(t, updates, env.notifications.updates)
}

func TestUnconfiguredComponentIsSkipped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, oilOnlyCatalog(), "veh1")

	_, err := env.engine.UpdateOdometer(ctx, "veh1", 16000)
	require.NoError(t, err)

	snapshot, err := env.engine.GetMaintenanceSnapshot(ctx, "veh1")
	require.NoError(t, err)
	require.Len(t, snapshot.Statuses, 1, "only cataloged components produce statuses")
	assert.Equal(t, catalog.OilChange, snapshot.Statuses[0].Component)
}
