package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
)

func maintenanceService() *services.MaintenanceService {
	return services.NewMaintenanceService(config.GetDB(), services.GetFileService())
}

// ListMaintenance handles GET /api/v1/preventive-maintenance
func ListMaintenance(c *gin.Context) {
	page, err := maintenanceService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateMaintenance handles POST /api/v1/preventive-maintenance
func CreateMaintenance(c *gin.Context) {
	var req services.CreateMaintenanceInput
	if !bindJSON(c, &req) {
		return
	}
	pm, err := maintenanceService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, pm)
}

// GetMaintenance handles GET /api/v1/preventive-maintenance/:pm_id
func GetMaintenance(c *gin.Context) {
	pm, err := maintenanceService().Get(c.Request.Context(), c.Param("pm_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pm)
}

// UpdateMaintenance handles PUT/PATCH /api/v1/preventive-maintenance/:pm_id
func UpdateMaintenance(c *gin.Context) {
	var req services.UpdateMaintenanceInput
	if !bindJSON(c, &req) {
		return
	}
	pm, err := maintenanceService().Update(c.Request.Context(), c.Param("pm_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pm)
}

// DeleteMaintenance handles DELETE /api/v1/preventive-maintenance/:pm_id
func DeleteMaintenance(c *gin.Context) {
	if err := maintenanceService().Delete(c.Request.Context(), c.Param("pm_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CompleteMaintenance handles POST /api/v1/preventive-maintenance/:pm_id/complete.
// Accepts JSON, or multipart with completed_date, notes and an after_image file.
func CompleteMaintenance(c *gin.Context) {
	var req services.CompleteMaintenanceInput
	var afterImage *multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if raw := c.PostForm("completed_date"); raw != "" {
			t, err := services.ParseDateParam(raw, false)
			if err != nil {
				respondError(c, services.NewValidationError("completed_date", "Enter a valid date (YYYY-MM-DD)"))
				return
			}
			req.CompletedDate = &t
		}
		if notes, ok := c.GetPostForm("notes"); ok {
			req.Notes = &notes
		}
		afterImage = optionalFormFile(c, "after_image")
	} else if !bindOptionalJSON(c, &req) {
		return
	}

	pm, err := maintenanceService().Complete(c.Request.Context(), c.Param("pm_id"), req, afterImage)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pm)
}

// UploadMaintenanceImages handles POST /api/v1/preventive-maintenance/:pm_id/images - multipart before_image/after_image
func UploadMaintenanceImages(c *gin.Context) {
	before := optionalFormFile(c, "before_image")
	after := optionalFormFile(c, "after_image")

	pm, err := maintenanceService().UploadImages(c.Request.Context(), c.Param("pm_id"), before, after)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pm)
}

// GetMaintenanceStatistics handles GET /api/v1/preventive-maintenance/statistics
func GetMaintenanceStatistics(c *gin.Context) {
	stats, err := maintenanceService().Statistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func optionalFormFile(c *gin.Context, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return fh
}
