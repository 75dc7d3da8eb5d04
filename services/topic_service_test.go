package services

import (
	"context"
	"testing"

	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicService_CRUD(t *testing.T) {
	db := testutil.NewTestDB(t)
	service := NewTopicService(db)
	ctx := context.Background()

	topic, err := service.Create(ctx, TopicInput{Title: "HVAC"})
	require.NoError(t, err)

	_, err = service.Create(ctx, TopicInput{})
	assertFieldError(t, err, "title")

	updated, err := service.Update(ctx, topic.ID, UpdateTopicInput{Description: ptr("Heating and cooling")})
	require.NoError(t, err)
	assert.Equal(t, "HVAC", updated.Title)
	assert.Equal(t, "Heating and cooling", *updated.Description)

	_, err = service.Update(ctx, topic.ID, UpdateTopicInput{Title: ptr("")})
	assertFieldError(t, err, "title")

	page, err := service.List(ctx, ParseListParams(map[string][]string{"search": {"hvac"}}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	_, err = service.Get(ctx, 9999)
	assertNotFound(t, err)
}

func TestTopicService_DeleteUnlinksMaintenance(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.SeedProperty(t, db, "P-1", "Riverside")
	topic, err := NewTopicService(db).Create(ctx, TopicInput{Title: "Electrical"})
	require.NoError(t, err)

	pm, err := NewMaintenanceService(db, nil).Create(ctx, CreateMaintenanceInput{
		PMTitle: "Panel check", ScheduledDate: ptr(testutil.Tomorrow()), Frequency: models.FrequencyQuarterly,
		PropertyID: "P-1", TopicIDs: []uint{topic.ID},
	})
	require.NoError(t, err)
	require.Len(t, pm.Topics, 1)

	require.NoError(t, NewTopicService(db).Delete(ctx, topic.ID))

	reloaded, err := NewMaintenanceService(db, nil).Get(ctx, pm.PMID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Topics)
	assertNotFound(t, NewTopicService(db).Delete(ctx, topic.ID))
}
