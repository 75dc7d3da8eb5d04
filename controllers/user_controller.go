package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/middleware"
	"github.com/lastnext/maintenance-api/services"
)

func userService() *services.UserService {
	return services.NewUserService(config.GetDB())
}

// RegisterMe handles POST /api/v1/users/me - creates the caller's user from Auth0 userinfo
func RegisterMe(c *gin.Context) {
	// Get the Auth0 user ID from the validated JWT
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token", nil)
		return
	}

	// Get the access token to call Auth0's /userinfo endpoint
	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found", nil)
		return
	}

	auth0Service := services.NewAuth0Service(config.GetConfig())
	userInfo, err := auth0Service.GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0", nil)
		return
	}

	if userInfo.Email == "" {
		errorResponse(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0", nil)
		return
	}

	user, err := userService().RegisterIdentity(c.Request.Context(), auth0ID, userInfo.Email, userInfo.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// GetMe handles GET /api/v1/users/me - returns the caller's user and profile
func GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, user)
}

// ListUsers handles GET /api/v1/users
func ListUsers(c *gin.Context) {
	page, err := userService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateUser handles POST /api/v1/users - staff only
func CreateUser(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		return
	}
	if !isStaff(c, caller) {
		respondError(c, &services.ForbiddenError{Message: "Only staff can create users"})
		return
	}

	var req services.CreateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := userService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/users/:id
func GetUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	user, err := userService().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// UpdateUser handles PUT/PATCH /api/v1/users/:id - the user themself or staff.
// Only staff may change is_staff.
func UpdateUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	caller, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateUserInput
	if !bindJSON(c, &req) {
		return
	}

	staff := isStaff(c, caller)
	if caller.ID != id && !staff {
		respondError(c, &services.ForbiddenError{Message: "You can only update your own user"})
		return
	}
	if req.IsStaff != nil && !staff {
		respondError(c, &services.ForbiddenError{Message: "Only staff can change staff status"})
		return
	}

	user, err := userService().Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/users/:id - staff only
func DeleteUser(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	caller, ok := currentUser(c)
	if !ok {
		return
	}
	if !isStaff(c, caller) {
		respondError(c, &services.ForbiddenError{Message: "Only staff can delete users"})
		return
	}

	if err := userService().Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUserProfile handles GET /api/v1/users/:id/profile
func GetUserProfile(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	profile, err := userService().Profile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, profile)
}

// GetUserStatistics handles GET /api/v1/users/:id/statistics
func GetUserStatistics(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	stats, err := userService().Statistics(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
