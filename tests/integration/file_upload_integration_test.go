package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/controllers"
	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/services"
	"github.com/lastnext/maintenance-api/tests/testutil"
	"github.com/lastnext/maintenance-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// FileUploadIntegrationTestSuite stores uploads on local disk and serves them back through the uploads route
type FileUploadIntegrationTestSuite struct {
	suite.Suite
	router    *gin.Engine
	uploadDir string
	job       *models.Job
	pm        *models.PreventiveMaintenance
}

func (suite *FileUploadIntegrationTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	t := suite.T()

	suite.uploadDir = t.TempDir()
	original := utils.UploadDir
	utils.UploadDir = suite.uploadDir
	t.Cleanup(func() { utils.UploadDir = original })

	previous := services.GetFileService()
	services.InitFileService(services.NewLocalStorage(suite.uploadDir))
	t.Cleanup(func() { services.SetFileService(previous) })

	db := testutil.NewTestDB(t)
	config.SetDB(db)
	tech := testutil.SeedUser(t, db, "tech", false)
	property := testutil.SeedProperty(t, db, "P-1", "Riverside")

	suite.job = &models.Job{
		JobID:         "JOB-UPLOAD",
		Title:         "Leaking valve",
		Status:        models.JobStatusPending,
		Priority:      models.JobPriorityMedium,
		Type:          models.JobTypeRepair,
		CreatedByID:   tech.ID,
		PropertyRefID: property.ID,
		ScheduledDate: testutil.Tomorrow(),
	}
	suite.Require().NoError(db.Create(suite.job).Error)

	suite.pm = &models.PreventiveMaintenance{
		PMID:          "PM-UPLOAD",
		PMTitle:       "Valve check",
		ScheduledDate: testutil.Tomorrow(),
		Frequency:     models.FrequencyMonthly,
		Status:        models.MaintenanceStatusPending,
		PropertyRefID: property.ID,
	}
	suite.Require().NoError(db.Create(suite.pm).Error)

	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1", testutil.MockAuthMiddleware("auth0|tech", "", ""))
	v1.GET("/uploads/:filename", controllers.GetUploadedFile)
	v1.POST("/jobs/:job_id/attachments/upload", controllers.UploadJobAttachment)
	v1.DELETE("/jobs/:job_id", controllers.DeleteJob)
	v1.POST("/preventive-maintenance/:pm_id/images", controllers.UploadMaintenanceImages)
}

func (suite *FileUploadIntegrationTestSuite) upload(path, field, filename string, content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	suite.Require().NoError(err)
	_, err = part.Write(content)
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *FileUploadIntegrationTestSuite) fetch(url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

// TestAttachmentRoundTrip uploads an attachment and downloads it from the returned URL
func (suite *FileUploadIntegrationTestSuite) TestAttachmentRoundTrip() {
	content := []byte("%PDF-1.4 service report")
	w := suite.upload("/api/v1/jobs/JOB-UPLOAD/attachments/upload", "file", "report.pdf", content)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		Data models.JobAttachment `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.Regexp(suite.T(), `^/api/v1/uploads/jobs_JOB-UPLOAD_.+_report\.pdf$`, response.Data.FileURL)
	assert.EqualValues(suite.T(), len(content), response.Data.FileSize)

	download := suite.fetch(response.Data.FileURL)
	assert.Equal(suite.T(), http.StatusOK, download.Code)
	assert.Equal(suite.T(), content, download.Body.Bytes())

	// Deleting the job removes the stored file
	del := httptest.NewRecorder()
	suite.router.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/JOB-UPLOAD", nil))
	assert.Equal(suite.T(), http.StatusNoContent, del.Code)

	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), entries)
	assert.Equal(suite.T(), http.StatusNotFound, suite.fetch(response.Data.FileURL).Code)
}

// TestMaintenanceImageRoundTrip uploads a before image and serves it back
func (suite *FileUploadIntegrationTestSuite) TestMaintenanceImageRoundTrip() {
	content := []byte("\x89PNG fake image")
	w := suite.upload("/api/v1/preventive-maintenance/PM-UPLOAD/images", "before_image", "valve.png", content)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response struct {
		Data models.PreventiveMaintenance `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Require().NotNil(response.Data.BeforeImageURL)

	download := suite.fetch(*response.Data.BeforeImageURL)
	assert.Equal(suite.T(), http.StatusOK, download.Code)
	assert.Equal(suite.T(), "image/png", download.Header().Get("Content-Type"))
	assert.Equal(suite.T(), content, download.Body.Bytes())

	matches, err := filepath.Glob(filepath.Join(suite.uploadDir, "maintenance_PM-UPLOAD_before_*_valve.png"))
	suite.Require().NoError(err)
	assert.Len(suite.T(), matches, 1)
}

// TestRejectedUploadsLeaveNoFiles checks validation happens before anything is written
func (suite *FileUploadIntegrationTestSuite) TestRejectedUploadsLeaveNoFiles() {
	w := suite.upload("/api/v1/preventive-maintenance/PM-UPLOAD/images", "before_image", "valve.bmp", []byte("bmp"))
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.upload("/api/v1/jobs/JOB-MISSING/attachments/upload", "file", "report.pdf", []byte("pdf"))
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	entries, err := os.ReadDir(suite.uploadDir)
	suite.Require().NoError(err)
	assert.Empty(suite.T(), entries)
}

func TestFileUploadIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(FileUploadIntegrationTestSuite))
}
