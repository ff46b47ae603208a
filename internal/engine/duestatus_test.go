package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-maintenance/internal/catalog"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func stateWith(currentKm int, c catalog.Component, servicedAt *time.Time, servicedKm *int) *models.MaintenanceState {
	s := models.NewMaintenanceState("veh1")
	s.CurrentMileageKm = currentKm
	s.Components[c] = models.ComponentState{LastServicedAt: servicedAt, LastServicedKm: servicedKm}
	return s
}

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func TestComputeDueStatusOilChangeByMileage(t *testing.T) {
	cat := catalog.Default()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	serviced := asOf.Add(-30 * 24 * time.Hour)

	// Serviced at 0 km a month ago, now at 13600: 1400 km left, inside the
	// 1500 km warning window.
	s := stateWith(13600, catalog.OilChange, timePtr(serviced), intPtr(0))
	ds, err := ComputeDueStatus(s, cat, catalog.OilChange, asOf)
	require.NoError(t, err)
	assert.Equal(t, StatusDueSoon, ds.Status)
	assert.Equal(t, BasisDistance, ds.Basis)
	require.NotNil(t, ds.RemainingKm)
	assert.Equal(t, 1400, *ds.RemainingKm)

	// 15200 km: overdue by 200, remainder reported negative.
	s = stateWith(15200, catalog.OilChange, timePtr(serviced), intPtr(0))
	ds, err = ComputeDueStatus(s, cat, catalog.OilChange, asOf)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, ds.Status)
	require.NotNil(t, ds.RemainingKm)
	assert.Equal(t, -200, *ds.RemainingKm)
}

func TestComputeDueStatusBatteryByCalendar(t *testing.T) {
	cat := catalog.Default()
	installed := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	s := stateWith(50000, catalog.Battery, timePtr(installed), nil)

	// Four-year interval ends around 2024-12-31. A month before, due soon.
	ds, err := ComputeDueStatus(s, cat, catalog.Battery, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusDueSoon, ds.Status)
	assert.Equal(t, BasisTime, ds.Basis)
	require.NotNil(t, ds.RemainingTime)
	assert.Positive(t, *ds.RemainingTime)

	// Past the mark, overdue with a negative remainder.
	ds, err = ComputeDueStatus(s, cat, catalog.Battery, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, ds.Status)
	require.NotNil(t, ds.RemainingTime)
	assert.Negative(t, *ds.RemainingTime)
}

func TestComputeDueStatusNeverServicedByMileage(t *testing.T) {
	cat := catalog.Default()
	asOf := time.Now()

	cases := []struct {
		currentKm int
		want      Status
	}{
		{2000, StatusOK},       // below half of the 15000 interval
		{8000, StatusDueSoon},  // past half, assume service is approaching
		{16000, StatusOverdue}, // past the full interval
	}
	for _, tc := range cases {
		s := stateWith(tc.currentKm, catalog.AirFilter, nil, nil)
		ds, err := ComputeDueStatus(s, cat, catalog.AirFilter, asOf)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ds.Status, "at %d km", tc.currentKm)
	}
}

func TestComputeDueStatusNeverServicedByCalendar(t *testing.T) {
	// No installation date means no baseline: ok with an unknown remainder.
	s := stateWith(120000, catalog.Battery, nil, nil)
	ds, err := ComputeDueStatus(s, catalog.Default(), catalog.Battery, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusOK, ds.Status)
	assert.Nil(t, ds.RemainingTime)
}

func TestComputeDueStatusWorseDimensionWins(t *testing.T) {
	cat := catalog.Default()
	// Oil changed 13 months ago at the current odometer: distance is fine,
	// the calendar year has lapsed.
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	serviced := asOf.Add(-13 * 30 * 24 * time.Hour)
	s := stateWith(20000, catalog.OilChange, timePtr(serviced), intPtr(20000))

	ds, err := ComputeDueStatus(s, cat, catalog.OilChange, asOf)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, ds.Status)
	assert.Equal(t, BasisTime, ds.Basis)
	require.NotNil(t, ds.RemainingKm)
	assert.Equal(t, 15000, *ds.RemainingKm)
}

func TestComputeDueStatusTieBreaksOnTighterDimension(t *testing.T) {
	cat := catalog.Default()
	// Both dimensions ok; the calendar side has far less headroom than
	// 14000 km of distance, so it is the reported basis.
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	serviced := asOf.Add(-300 * 24 * time.Hour)
	s := stateWith(1000, catalog.OilChange, timePtr(serviced), intPtr(0))

	ds, err := ComputeDueStatus(s, cat, catalog.OilChange, asOf)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, ds.Status)
	assert.Equal(t, BasisTime, ds.Basis)
}

func TestComputeDueStatusConfigurationGap(t *testing.T) {
	s := models.NewMaintenanceState("veh1")
	_, err := ComputeDueStatus(s, catalog.Catalog{}, catalog.OilChange, time.Now())
	require.Error(t, err)
	assert.True(t, IsConfigurationGap(err))
}

func TestWorse(t *testing.T) {
	assert.Equal(t, StatusOverdue, Worse(StatusOK, StatusOverdue))
	assert.Equal(t, StatusOverdue, Worse(StatusOverdue, StatusDueSoon))
	assert.Equal(t, StatusDueSoon, Worse(StatusDueSoon, StatusOK))
	assert.Equal(t, StatusOK, Worse(StatusOK, StatusOK))
}
