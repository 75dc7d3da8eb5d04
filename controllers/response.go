package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/middleware"
	"github.com/lastnext/maintenance-api/models"
	"github.com/lastnext/maintenance-api/services"
	"github.com/lastnext/maintenance-api/utils"
)

// errorResponse writes the standard error envelope
func errorResponse(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondError maps a service error onto its HTTP status and error code.
// Unexpected errors are logged and reported without their cause.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		conflictErr   *services.ConflictError
		forbiddenErr  *services.ForbiddenError
		uploadErr     *utils.FileUploadError
	)

	switch {
	case errors.As(err, &validationErr):
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", validationErr.Fields)
	case errors.As(err, &notFoundErr):
		errorResponse(c, http.StatusNotFound, resourceCode(notFoundErr.Resource)+"_NOT_FOUND", notFoundErr.Error(), nil)
	case errors.As(err, &conflictErr):
		errorResponse(c, http.StatusConflict, resourceCode(conflictErr.Resource)+"_EXISTS", conflictErr.Error(),
			map[string]string{conflictErr.Field: "already exists"})
	case errors.As(err, &forbiddenErr):
		errorResponse(c, http.StatusForbidden, "FORBIDDEN", forbiddenErr.Message, nil)
	case errors.As(err, &uploadErr):
		errorResponse(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
	default:
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

func resourceCode(resource string) string {
	return strings.ToUpper(strings.ReplaceAll(resource, " ", "_"))
}

// respond writes the success envelope
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondPage writes a list page with its pagination block
func respondPage[T any](c *gin.Context, page *services.Page[T]) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       page.Items,
		"pagination": page.Meta(),
	})
}

// bindJSON decodes the request body, answering 400 INVALID_REQUEST when it is malformed
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be empty
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// uintParam parses a numeric path parameter, answering 400 when it is not one
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", name+" must be a positive integer", nil)
		return 0, false
	}
	return uint(id), true
}

// listParams reads pagination, search, ordering and filters from the query string
func listParams(c *gin.Context) services.ListParams {
	return services.ParseListParams(c.Request.URL.Query())
}

// currentUser resolves the authenticated Auth0 subject to its user record
func currentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return nil, false
	}

	user, err := services.NewUserService(config.GetDB()).GetByAuth0ID(c.Request.Context(), auth0ID)
	if err != nil {
		var notFoundErr *services.NotFoundError
		if errors.As(err, &notFoundErr) {
			errorResponse(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.", nil)
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return user, true
}

// isStaff reports whether the caller has staff rights through the user record or the token role
func isStaff(c *gin.Context, user *models.User) bool {
	return user.IsStaff || middleware.HasStaffRole(c)
}
