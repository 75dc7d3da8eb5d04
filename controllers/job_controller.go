package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
)

// AssignJobRequest is the request body for assigning a job
type AssignJobRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// ReplaceChecklistRequest is the request body for replacing a job checklist
type ReplaceChecklistRequest struct {
	Items []services.ChecklistItemInput `json:"items"`
}

func jobService() *services.JobService {
	return services.NewJobService(config.GetDB(), services.GetFileService())
}

// ListJobs handles GET /api/v1/jobs
func ListJobs(c *gin.Context) {
	page, err := jobService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateJob handles POST /api/v1/jobs - the caller becomes created_by
func CreateJob(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.CreateJobInput
	if !bindJSON(c, &req) {
		return
	}
	job, err := jobService().Create(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/:job_id - embeds attachments, checklist and history
func GetJob(c *gin.Context) {
	job, err := jobService().Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, job)
}

// UpdateJob handles PUT/PATCH /api/v1/jobs/:job_id
func UpdateJob(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.UpdateJobInput
	if !bindJSON(c, &req) {
		return
	}
	job, err := jobService().Update(c.Request.Context(), c.Param("job_id"), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, job)
}

// DeleteJob handles DELETE /api/v1/jobs/:job_id
func DeleteJob(c *gin.Context) {
	if err := jobService().Delete(c.Request.Context(), c.Param("job_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignJob handles POST /api/v1/jobs/:job_id/assign
func AssignJob(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req AssignJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data",
			map[string]string{"user_id": "This field is required"})
		return
	}
	job, err := jobService().Assign(c.Request.Context(), c.Param("job_id"), user.ID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, job)
}

// CompleteJob handles POST /api/v1/jobs/:job_id/complete - the body is optional
func CompleteJob(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.CompleteJobInput
	if !bindOptionalJSON(c, &req) {
		return
	}
	job, err := jobService().Complete(c.Request.Context(), c.Param("job_id"), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, job)
}

// AddJobAttachment handles POST /api/v1/jobs/:job_id/attachments - records metadata of an external file
func AddJobAttachment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.AttachmentInput
	if !bindJSON(c, &req) {
		return
	}
	attachment, err := jobService().AddAttachment(c.Request.Context(), c.Param("job_id"), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, attachment)
}

// UploadJobAttachment handles POST /api/v1/jobs/:job_id/attachments/upload - multipart field "file"
func UploadJobAttachment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "MISSING_FILE", "No file was provided", nil)
		return
	}
	attachment, err := jobService().UploadAttachment(c.Request.Context(), c.Param("job_id"), user.ID, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, attachment)
}

// ReplaceJobChecklist handles PUT /api/v1/jobs/:job_id/checklist
func ReplaceJobChecklist(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req ReplaceChecklistRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := jobService().ReplaceChecklist(c.Request.Context(), c.Param("job_id"), user.ID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

// UpdateJobChecklistItem handles PATCH /api/v1/jobs/:job_id/checklist/:item_id
func UpdateJobChecklistItem(c *gin.Context) {
	itemID, ok := uintParam(c, "item_id")
	if !ok {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.ChecklistItemUpdate
	if !bindJSON(c, &req) {
		return
	}
	item, err := jobService().UpdateChecklistItem(c.Request.Context(), c.Param("job_id"), itemID, user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

// GetJobHistory handles GET /api/v1/jobs/:job_id/history
func GetJobHistory(c *gin.Context) {
	history, err := jobService().History(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, history)
}
