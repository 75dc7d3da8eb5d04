package controllers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/utils"
)

// GetUploadedFile handles GET /api/v1/uploads/:filename - serves locally stored attachments and images
func GetUploadedFile(c *gin.Context) {
	filename := c.Param("filename")

	// Validate filename is not empty
	if filename == "" {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required", nil)
		return
	}

	// Security: Prevent directory traversal attacks
	if !utils.IsSafeFilename(filename) {
		errorResponse(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename", nil)
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		errorResponse(c, http.StatusNotFound, "FILE_NOT_FOUND", "File not found", nil)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
	c.File(filePath)
}
