package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

var (
	// UploadDir is the directory where uploaded files are stored when S3 is not configured
	// Can be overridden for testing
	UploadDir = "./uploads"

	// AllowedImageFormats are the extensions accepted for maintenance images
	AllowedImageFormats = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateFileSize rejects payloads larger than MaxFileSize. Exactly MaxFileSize is accepted.
func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	if size < 0 {
		return &FileUploadError{
			Code:    "INVALID_FILE_SIZE",
			Message: "File size cannot be negative",
		}
	}
	return nil
}

// ValidateAttachmentFile validates an uploaded job attachment. Any file type is allowed.
func ValidateAttachmentFile(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return &FileUploadError{Code: "MISSING_FILE", Message: "No file was provided"}
	}
	return ValidateFileSize(fileHeader.Size)
}

// ValidateImageFile validates the uploaded image format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if err := ValidateAttachmentFile(fileHeader); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	for _, allowed := range AllowedImageFormats {
		if ext == allowed {
			return nil
		}
	}

	return &FileUploadError{
		Code:    "INVALID_FILE_FORMAT",
		Message: fmt.Sprintf("Only %s files are allowed", strings.Join(AllowedImageFormats, ", ")),
	}
}

// DetectContentType returns the declared content type of an upload, falling back to its extension
func DetectContentType(fileHeader *multipart.FileHeader) string {
	if ct := fileHeader.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// StorageKey builds a collision-free key for an upload under prefix
func StorageKey(prefix, filename string) string {
	name := filepath.Base(filename)
	return fmt.Sprintf("%s/%s_%s", strings.Trim(prefix, "/"), uuid.NewString(), name)
}

// SaveFile writes content to uploadDir under the flattened key
// Returns the file name relative to uploadDir
func SaveFile(r io.Reader, key, uploadDir string) (filename string, err error) {
	// Create uploads directory if it doesn't exist
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename = LocalFileName(key)
	fullPath := filepath.Join(uploadDir, filename)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, nil
}

// LocalFileName flattens a storage key into a single file name
func LocalFileName(key string) string {
	return strings.ReplaceAll(strings.Trim(key, "/"), "/", "_")
}

// IsSafeFilename reports whether name can be served from the upload directory
func IsSafeFilename(name string) bool {
	return name != "" && !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

// GetFileURL returns the URL path for accessing a locally stored file
func GetFileURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}
