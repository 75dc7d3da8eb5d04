package services

import (
	"context"
	"testing"
	"time"

	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/tests/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOverdueSweeperRejectsBadSchedule(t *testing.T) {
	sweeper, err := NewOverdueSweeper(NewMaintenanceService(testutil.NewTestDB(t), nil), "every now and then")
	assert.Error(t, err)
	assert.Nil(t, sweeper)
}

func TestOverdueSweeperRunOnce(t *testing.T) {
	db := testutil.NewTestDB(t)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	for i, scheduled := range []time.Time{
		time.Now().UTC().Add(-2 * time.Hour),
		time.Now().UTC().Add(-time.Minute),
		testutil.Tomorrow(),
	} {
		require.NoError(t, db.Create(&models.PreventiveMaintenance{
			PMID:          []string{"PM-A", "PM-B", "PM-C"}[i],
			PMTitle:       "Filter change",
			ScheduledDate: scheduled,
			Frequency:     models.FrequencyMonthly,
			Status:        models.MaintenanceStatusPending,
			PropertyRefID: property.ID,
		}).Error)
	}

	sweeper, err := NewOverdueSweeper(NewMaintenanceService(db, nil), "@hourly")
	require.NoError(t, err)

	before := promtestutil.ToFloat64(MaintenanceMarkedOverdue)
	n, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, before+2, promtestutil.ToFloat64(MaintenanceMarkedOverdue))

	var overdue int64
	db.Model(&models.PreventiveMaintenance{}).Where("status = ?", models.MaintenanceStatusOverdue).Count(&overdue)
	assert.EqualValues(t, 2, overdue)

	n, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOverdueSweeperStartStop(t *testing.T) {
	sweeper, err := NewOverdueSweeper(NewMaintenanceService(testutil.NewTestDB(t), nil), "*/5 * * * *")
	require.NoError(t, err)

	sweeper.Start()
	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
