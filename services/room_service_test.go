package services

import (
	"context"
	"testing"

	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomService_Create(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.SeedProperty(t, db, "P-1", "Riverside")
	service := NewRoomService(db)
	ctx := context.Background()

	room, err := service.Create(ctx, CreateRoomInput{
		RoomID: "R-1", Name: "Boiler Room", Floor: "B1", PropertyID: "P-1",
		Area: ptr(decimal.RequireFromString("42.50")),
	})
	require.NoError(t, err)
	assert.True(t, room.IsActive)
	require.NotNil(t, room.Property)
	assert.Equal(t, "P-1", room.Property.PropertyID)

	_, err = service.Create(ctx, CreateRoomInput{RoomID: "R-2", Name: "Bad", PropertyID: "P-1", Area: ptr(decimal.NewFromInt(-1))})
	assertFieldError(t, err, "area")

	_, err = service.Create(ctx, CreateRoomInput{RoomID: "R-3", Name: "Orphan", PropertyID: "P-404"})
	assertNotFound(t, err)

	_, err = service.Create(ctx, CreateRoomInput{RoomID: "R-1", Name: "Again", PropertyID: "P-1"})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestRoomService_ListByProperty(t *testing.T) {
	db := testutil.NewTestDB(t)
	p1 := testutil.SeedProperty(t, db, "P-1", "Riverside")
	p2 := testutil.SeedProperty(t, db, "P-2", "Hillside")
	testutil.SeedRoom(t, db, p1, "R-1", "Lobby")
	testutil.SeedRoom(t, db, p1, "R-2", "Kitchen")
	testutil.SeedRoom(t, db, p2, "R-3", "Lobby")

	page, err := NewRoomService(db).List(context.Background(), ParseListParams(map[string][]string{"property_id": {"P-1"}}))
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	page, err = NewRoomService(db).List(context.Background(), ParseListParams(map[string][]string{"search": {"lobby"}, "ordering": {"room_id"}}))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "R-1", page.Items[0].RoomID)
}

func TestRoomService_RenameRefreshesJobSnapshot(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "manager", true)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	room := testutil.SeedRoom(t, db, property, "R-1", "Lobby")
	jobs := NewJobService(db, nil)

	job, err := jobs.Create(ctx, user.ID, CreateJobInput{Title: "Fix", PropertyID: "P-1", RoomID: &room.RoomID, ScheduledDate: ptr(testutil.Tomorrow())})
	require.NoError(t, err)

	_, err = NewRoomService(db).Update(ctx, "R-1", UpdateRoomInput{Name: ptr("Grand Lobby")})
	require.NoError(t, err)

	reloaded, err := jobs.Get(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Grand Lobby", *reloaded.RoomName)
}

func TestRoomService_MoveToAnotherProperty(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "manager", true)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	testutil.SeedProperty(t, db, "P-2", "Hillside")
	busy := testutil.SeedRoom(t, db, property, "R-1", "Lobby")
	testutil.SeedRoom(t, db, property, "R-2", "Storage")
	jobs := NewJobService(db, nil)
	service := NewRoomService(db)

	job, err := jobs.Create(ctx, user.ID, CreateJobInput{Title: "Fix", PropertyID: "P-1", RoomID: &busy.RoomID, ScheduledDate: ptr(testutil.Tomorrow())})
	require.NoError(t, err)

	_, err = service.Update(ctx, "R-1", UpdateRoomInput{PropertyID: ptr("P-2")})
	assertFieldError(t, err, "property_id")

	// The job keeps a consistent property and room and can still be edited
	updated, err := jobs.Update(ctx, job.JobID, user.ID, UpdateJobInput{Title: ptr("Fix door")})
	require.NoError(t, err)
	assert.Equal(t, "Fix door", updated.Title)
	require.NotNil(t, updated.Room)
	require.NotNil(t, updated.Property)
	assert.Equal(t, "P-1", updated.Property.PropertyID)

	// Same property is not a move
	_, err = service.Update(ctx, "R-1", UpdateRoomInput{PropertyID: ptr("P-1"), Floor: ptr("2")})
	require.NoError(t, err)

	moved, err := service.Update(ctx, "R-2", UpdateRoomInput{PropertyID: ptr("P-2")})
	require.NoError(t, err)
	require.NotNil(t, moved.Property)
	assert.Equal(t, "P-2", moved.Property.PropertyID)
}

func TestRoomService_DeleteNullifiesReferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "manager", true)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	room := testutil.SeedRoom(t, db, property, "R-1", "Lobby")
	machine := testutil.SeedMachine(t, db, property, room, "M-1")

	job, err := NewJobService(db, nil).Create(ctx, user.ID, CreateJobInput{Title: "Fix", PropertyID: "P-1", RoomID: &room.RoomID, ScheduledDate: ptr(testutil.Tomorrow())})
	require.NoError(t, err)
	pm, err := NewMaintenanceService(db, nil).Create(ctx, CreateMaintenanceInput{
		PMTitle: "Check", ScheduledDate: ptr(testutil.Tomorrow()), Frequency: models.FrequencyWeekly,
		PropertyID: "P-1", RoomID: &room.RoomID,
	})
	require.NoError(t, err)

	require.NoError(t, NewRoomService(db).Delete(ctx, "R-1"))

	var reloadedJob models.Job
	require.NoError(t, db.First(&reloadedJob, job.ID).Error)
	assert.Nil(t, reloadedJob.RoomRefID)
	assert.Nil(t, reloadedJob.RoomName)

	var reloadedMachine models.Machine
	require.NoError(t, db.First(&reloadedMachine, machine.ID).Error)
	assert.Nil(t, reloadedMachine.RoomRefID)

	var reloadedPM models.PreventiveMaintenance
	require.NoError(t, db.First(&reloadedPM, pm.ID).Error)
	assert.Nil(t, reloadedPM.RoomRefID)
}

func TestRoomService_Statistics(t *testing.T) {
	db := testutil.NewTestDB(t)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	room := testutil.SeedRoom(t, db, property, "R-1", "Lobby")
	testutil.SeedMachine(t, db, property, room, "M-1")

	stats, err := NewRoomService(db).Statistics(context.Background(), "R-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalMachines)
	assert.EqualValues(t, 1, stats.ActiveMachines)
	assert.Equal(t, float64(0), stats.JobCompletionRate)

	_, err = NewRoomService(db).Statistics(context.Background(), "R-404")
	assertNotFound(t, err)
}
