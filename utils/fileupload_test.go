package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a mock multipart.FileHeader for testing
func createTestFileHeader(filename, contentType string, size int64, content []byte) *multipart.FileHeader {
	// Create a buffer to write our multipart form
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	// Create form file
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, _ := writer.CreatePart(h)
	part.Write(content)
	writer.Close()

	// Parse the multipart form
	reader := multipart.NewReader(body, writer.Boundary())
	form, _ := reader.ReadForm(int64(len(content)) + 1024)
	defer form.RemoveAll()

	if len(form.File["file"]) > 0 {
		fileHeader := form.File["file"][0]
		// Override size for testing purposes
		fileHeader.Size = size
		return fileHeader
	}

	return nil
}

func TestValidateFileSize_Boundary(t *testing.T) {
	assert.NoError(t, ValidateFileSize(0))
	assert.NoError(t, ValidateFileSize(MaxFileSize), "exactly 10 MiB is accepted")

	err := ValidateFileSize(MaxFileSize + 1)
	require.Error(t, err)
	uploadErr, ok := err.(*FileUploadError)
	require.True(t, ok)
	assert.Equal(t, "FILE_TOO_LARGE", uploadErr.Code)

	err = ValidateFileSize(-1)
	require.Error(t, err)
	assert.Equal(t, "INVALID_FILE_SIZE", err.(*FileUploadError).Code)
}

func TestValidateImageFile_Success(t *testing.T) {
	content := []byte("fake png content")
	for _, name := range []string{"test.png", "photo.jpg", "photo.JPEG", "anim.gif", "pic.webp"} {
		fileHeader := createTestFileHeader(name, "image/png", int64(len(content)), content)
		require.NotNil(t, fileHeader)
		assert.NoError(t, ValidateImageFile(fileHeader), name)
	}
}

func TestValidateImageFile_FileTooLarge(t *testing.T) {
	content := []byte("fake png content")
	fileHeader := createTestFileHeader("large.png", "image/png", 11*1024*1024, content)
	require.NotNil(t, fileHeader)

	err := ValidateImageFile(fileHeader)
	require.Error(t, err)
	assert.Equal(t, "FILE_TOO_LARGE", err.(*FileUploadError).Code)
}

func TestValidateImageFile_InvalidFormat(t *testing.T) {
	content := []byte("not an image")
	for _, name := range []string{"report.pdf", "noextension", "script.sh"} {
		fileHeader := createTestFileHeader(name, "", int64(len(content)), content)
		require.NotNil(t, fileHeader)

		err := ValidateImageFile(fileHeader)
		require.Error(t, err, name)
		assert.Equal(t, "INVALID_FILE_FORMAT", err.(*FileUploadError).Code)
	}
}

func TestValidateAttachmentFile(t *testing.T) {
	err := ValidateAttachmentFile(nil)
	require.Error(t, err)
	assert.Equal(t, "MISSING_FILE", err.(*FileUploadError).Code)

	content := []byte("%PDF-1.4")
	fileHeader := createTestFileHeader("manual.pdf", "application/pdf", int64(len(content)), content)
	assert.NoError(t, ValidateAttachmentFile(fileHeader), "any file type is allowed for attachments")
}

func TestDetectContentType(t *testing.T) {
	content := []byte("x")

	declared := createTestFileHeader("a.bin", "text/csv", 1, content)
	assert.Equal(t, "text/csv", DetectContentType(declared))

	tests := map[string]string{
		"a.png":  "image/png",
		"a.JPG":  "image/jpeg",
		"a.gif":  "image/gif",
		"a.webp": "image/webp",
		"a.pdf":  "application/pdf",
		"a.zip":  "application/octet-stream",
	}
	for name, expected := range tests {
		fh := createTestFileHeader(name, "", 1, content)
		fh.Header.Del("Content-Type")
		assert.Equal(t, expected, DetectContentType(fh), name)
	}
}

func TestStorageKey(t *testing.T) {
	key := StorageKey("/jobs/JOB-1/", "../../etc/passwd")

	assert.True(t, strings.HasPrefix(key, "jobs/JOB-1/"), key)
	assert.True(t, strings.HasSuffix(key, "_passwd"), key)
	assert.NotEqual(t, key, StorageKey("jobs/JOB-1", "passwd"), "keys are unique per call")
}

func TestSaveFileAndLocalFileName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	name, err := SaveFile(strings.NewReader("hello"), "jobs/JOB-1/abc_note.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, "jobs_JOB-1_abc_note.txt", name)
	assert.Equal(t, name, LocalFileName("/jobs/JOB-1/abc_note.txt"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestIsSafeFilename(t *testing.T) {
	assert.True(t, IsSafeFilename("jobs_JOB-1_abc.png"))
	assert.False(t, IsSafeFilename(""))
	assert.False(t, IsSafeFilename("../secret"))
	assert.False(t, IsSafeFilename("a/b"))
	assert.False(t, IsSafeFilename(`a\b`))
}

func TestGetFileURL(t *testing.T) {
	assert.Equal(t, "/api/v1/uploads/file.png", GetFileURL("file.png"))
	assert.Equal(t, "", GetFileURL(""))
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{Code: "TEST_ERROR", Message: "Test error message"}
	assert.Equal(t, "Test error message", err.Error())
}
