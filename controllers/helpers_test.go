package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
	"github.com/lastnext/maintenance-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// envelope is the decoded standard response body
type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Pagination services.Pagination `json:"pagination"`
	Error      struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

// setupTestDB installs a fresh in-memory database and mock storage as the globals used by the handlers
func setupTestDB(t *testing.T) (*gorm.DB, *services.MockStorage) {
	t.Helper()

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	storage := services.NewMockStorage()
	previous := services.GetFileService()
	storage.SetAsMockForTesting()
	t.Cleanup(func() { services.SetFileService(previous) })
	return db, storage
}

func setupTestRouter(auth gin.HandlerFunc) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router, router.Group("/api/v1", auth)
}

func performRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// performMultipart posts form fields and files; files maps field name to file name and content
func performMultipart(t *testing.T, router http.Handler, path string, fields map[string]string, files map[string][2]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for field, file := range files {
		part, err := writer.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}
