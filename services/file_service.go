package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"

	"github.com/lastnext/maintenance-api/utils"
)

// StoredFile describes an upload after it reached storage
type StoredFile struct {
	Key         string
	URL         string
	Name        string
	ContentType string
	Size        int64
}

// FileService handles uploads of job attachments and maintenance images
type FileService interface {
	// UploadAttachment validates and stores any file up to the size limit
	UploadAttachment(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (*StoredFile, error)

	// UploadImage validates the image format and size, then stores it
	UploadImage(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (*StoredFile, error)

	// URL returns a retrievable URL for a stored key
	URL(ctx context.Context, key string) (string, error)

	// Delete removes a stored file
	Delete(ctx context.Context, key string) error
}

// StorageFileService implements FileService on top of a Storage backend
type StorageFileService struct {
	storage Storage
}

var fileServiceInstance FileService

// InitFileService initializes the global file service with the given backend
func InitFileService(storage Storage) FileService {
	fileServiceInstance = &StorageFileService{storage: storage}
	return fileServiceInstance
}

// GetFileService returns the initialized file service instance
func GetFileService() FileService {
	return fileServiceInstance
}

// SetFileService sets the file service instance (primarily for testing)
func SetFileService(service FileService) {
	fileServiceInstance = service
}

// UploadAttachment validates and stores an attachment
func (s *StorageFileService) UploadAttachment(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (*StoredFile, error) {
	if err := utils.ValidateAttachmentFile(fileHeader); err != nil {
		return nil, err
	}
	return s.store(ctx, prefix, fileHeader)
}

// UploadImage validates and stores an image
func (s *StorageFileService) UploadImage(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (*StoredFile, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return nil, err
	}
	return s.store(ctx, prefix, fileHeader)
}

func (s *StorageFileService) store(ctx context.Context, prefix string, fileHeader *multipart.FileHeader) (*StoredFile, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("warning: failed to close file: %v", closeErr)
		}
	}()

	key := utils.StorageKey(prefix, fileHeader.Filename)
	contentType := utils.DetectContentType(fileHeader)
	if err := s.storage.Put(ctx, key, file, fileHeader.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	url, err := s.storage.URL(ctx, key)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		Key:         key,
		URL:         url,
		Name:        filepath.Base(fileHeader.Filename),
		ContentType: contentType,
		Size:        fileHeader.Size,
	}, nil
}

// URL returns a retrievable URL for key
func (s *StorageFileService) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.storage.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate file URL: %w", err)
	}
	return url, nil
}

// Delete removes a stored file
func (s *StorageFileService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
