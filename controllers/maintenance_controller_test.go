package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/services"
	"github.com/lastnext/maintenance-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maintenanceRouter() *gin.Engine {
	router, api := setupTestRouter(testutil.MockAuthMiddleware("auth0|manager", "", ""))
	pm := api.Group("/preventive-maintenance")
	pm.GET("", ListMaintenance)
	pm.POST("", CreateMaintenance)
	pm.GET("/statistics", GetMaintenanceStatistics)
	pm.GET("/:pm_id", GetMaintenance)
	pm.PATCH("/:pm_id", UpdateMaintenance)
	pm.DELETE("/:pm_id", DeleteMaintenance)
	pm.POST("/:pm_id/complete", CompleteMaintenance)
	pm.POST("/:pm_id/images", UploadMaintenanceImages)
	return router
}

func createMaintenance(t *testing.T, router *gin.Engine, frequency string, scheduled time.Time) models.PreventiveMaintenance {
	t.Helper()
	w, env := performRequest(t, router, http.MethodPost, "/api/v1/preventive-maintenance", map[string]interface{}{
		"pmtitle":        "Chiller inspection",
		"scheduled_date": scheduled.Format(time.RFC3339),
		"frequency":      frequency,
		"property_id":    "P-1",
		"machine_ids":    []string{"M-1"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pm models.PreventiveMaintenance
	decodeData(t, env, &pm)
	return pm
}

func TestMaintenanceCRUD(t *testing.T) {
	db, _ := setupTestDB(t)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	testutil.SeedMachine(t, db, property, nil, "M-1")
	testutil.SeedMachine(t, db, property, nil, "M-2")
	router := maintenanceRouter()

	pm := createMaintenance(t, router, models.FrequencyMonthly, testutil.Tomorrow())
	assert.Regexp(t, `^PM-`, pm.PMID)
	assert.Len(t, pm.Machines, 1)

	w, env := performRequest(t, router, http.MethodPost, "/api/v1/preventive-maintenance", map[string]interface{}{
		"pmtitle": "Custom", "scheduled_date": testutil.Tomorrow().Format(time.RFC3339),
		"frequency": "custom", "property_id": "P-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "custom_days")

	w, env = performRequest(t, router, http.MethodPatch, "/api/v1/preventive-maintenance/"+pm.PMID, map[string]interface{}{
		"machine_ids": []string{"M-1", "M-2"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.PreventiveMaintenance
	decodeData(t, env, &updated)
	assert.Len(t, updated.Machines, 2)

	w, env = performRequest(t, router, http.MethodGet, "/api/v1/preventive-maintenance?machine_id=M-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, env.Pagination.Total)

	w, _ = performRequest(t, router, http.MethodDelete, "/api/v1/preventive-maintenance/"+pm.PMID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = performRequest(t, router, http.MethodGet, "/api/v1/preventive-maintenance/"+pm.PMID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MAINTENANCE_NOT_FOUND", env.Error.Code)
}

func TestCompleteMaintenance_Multipart(t *testing.T) {
	db, storage := setupTestDB(t)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	testutil.SeedMachine(t, db, property, nil, "M-1")
	router := maintenanceRouter()
	pm := createMaintenance(t, router, models.FrequencyDaily, testutil.Tomorrow())
	path := "/api/v1/preventive-maintenance/" + pm.PMID + "/complete"

	w, env := performMultipart(t, router, path, map[string]string{"completed_date": "yesterday"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "completed_date")

	w, env = performMultipart(t, router, path, map[string]string{
		"completed_date": "2030-06-01",
		"notes":          "Belts replaced",
	}, map[string][2]string{"after_image": {"after.png", "png bytes"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var completed models.PreventiveMaintenance
	decodeData(t, env, &completed)
	assert.Equal(t, models.MaintenanceStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedDate)
	assert.True(t, time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC).Equal(*completed.CompletedDate))
	require.NotNil(t, completed.NextDueDate)
	assert.True(t, time.Date(2030, 6, 2, 0, 0, 0, 0, time.UTC).Equal(*completed.NextDueDate))
	require.NotNil(t, completed.Notes)
	assert.Equal(t, "Belts replaced", *completed.Notes)
	require.NotNil(t, completed.AfterImageURL)
	assert.Len(t, storage.Files(), 1)

	w, env = performRequest(t, router, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "status")
}

func TestUploadMaintenanceImages(t *testing.T) {
	db, storage := setupTestDB(t)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	testutil.SeedMachine(t, db, property, nil, "M-1")
	router := maintenanceRouter()
	pm := createMaintenance(t, router, models.FrequencyWeekly, testutil.Tomorrow())
	path := "/api/v1/preventive-maintenance/" + pm.PMID + "/images"

	w, env := performMultipart(t, router, path, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "images")

	w, env = performMultipart(t, router, path, nil, map[string][2]string{"before_image": {"before.gif", "gif"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var withImage models.PreventiveMaintenance
	decodeData(t, env, &withImage)
	assert.NotNil(t, withImage.BeforeImageURL)
	assert.Nil(t, withImage.AfterImageURL)

	w, env = performMultipart(t, router, path, nil, map[string][2]string{"after_image": {"after.exe", "nope"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "after_image")
	assert.Len(t, storage.Files(), 1)
}

func TestMaintenanceStatistics(t *testing.T) {
	db, _ := setupTestDB(t)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")
	testutil.SeedMachine(t, db, property, nil, "M-1")
	router := maintenanceRouter()
	createMaintenance(t, router, models.FrequencyWeekly, testutil.Tomorrow())
	createMaintenance(t, router, models.FrequencyWeekly, time.Now().UTC().Add(-24*time.Hour))

	w, env := performRequest(t, router, http.MethodGet, "/api/v1/preventive-maintenance/statistics", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats services.MaintenanceStatistics
	decodeData(t, env, &stats)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Pending)
	assert.EqualValues(t, 1, stats.Overdue)
	require.Len(t, stats.MachineDistribution, 1)
	assert.EqualValues(t, 2, stats.MachineDistribution[0].Count)
}
