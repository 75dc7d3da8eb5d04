package services

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileHeader builds a multipart.FileHeader holding content; size overrides the reported size when > 0
func newFileHeader(t *testing.T, filename, contentType string, content []byte, size int64) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.NotEmpty(t, form.File["file"])
	fh := form.File["file"][0]
	if size > 0 {
		fh.Size = size
	}
	return fh
}

// assertFieldError checks err is a ValidationError that names field
func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()

	var verr *ValidationError
	if assert.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err) {
		assert.Contains(t, verr.Fields, field)
	}
}

func assertNotFound(t *testing.T, err error) {
	t.Helper()

	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf), "expected a NotFoundError, got %v", err)
}

func ptr[T any](v T) *T {
	return &v
}
