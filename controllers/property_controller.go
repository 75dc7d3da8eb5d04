package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
)

func propertyService() *services.PropertyService {
	return services.NewPropertyService(config.GetDB())
}

// ListProperties handles GET /api/v1/properties
func ListProperties(c *gin.Context) {
	page, err := propertyService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateProperty handles POST /api/v1/properties
func CreateProperty(c *gin.Context) {
	var req services.CreatePropertyInput
	if !bindJSON(c, &req) {
		return
	}
	property, err := propertyService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, property)
}

// GetProperty handles GET /api/v1/properties/:property_id
func GetProperty(c *gin.Context) {
	property, err := propertyService().Get(c.Request.Context(), c.Param("property_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, property)
}

// UpdateProperty handles PUT/PATCH /api/v1/properties/:property_id
func UpdateProperty(c *gin.Context) {
	var req services.UpdatePropertyInput
	if !bindJSON(c, &req) {
		return
	}
	property, err := propertyService().Update(c.Request.Context(), c.Param("property_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, property)
}

// DeleteProperty handles DELETE /api/v1/properties/:property_id
func DeleteProperty(c *gin.Context) {
	if err := propertyService().Delete(c.Request.Context(), c.Param("property_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPropertyStatistics handles GET /api/v1/properties/:property_id/statistics
func GetPropertyStatistics(c *gin.Context) {
	stats, err := propertyService().Statistics(c.Request.Context(), c.Param("property_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
