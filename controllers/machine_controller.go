package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
)

func machineService() *services.MachineService {
	return services.NewMachineService(config.GetDB())
}

// ListMachines handles GET /api/v1/machines
func ListMachines(c *gin.Context) {
	page, err := machineService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateMachine handles POST /api/v1/machines
func CreateMachine(c *gin.Context) {
	var req services.CreateMachineInput
	if !bindJSON(c, &req) {
		return
	}
	machine, err := machineService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, machine)
}

// GetMachine handles GET /api/v1/machines/:machine_id
func GetMachine(c *gin.Context) {
	machine, err := machineService().Get(c.Request.Context(), c.Param("machine_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, machine)
}

// UpdateMachine handles PUT/PATCH /api/v1/machines/:machine_id
func UpdateMachine(c *gin.Context) {
	var req services.UpdateMachineInput
	if !bindJSON(c, &req) {
		return
	}
	machine, err := machineService().Update(c.Request.Context(), c.Param("machine_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, machine)
}

// DeleteMachine handles DELETE /api/v1/machines/:machine_id
func DeleteMachine(c *gin.Context) {
	if err := machineService().Delete(c.Request.Context(), c.Param("machine_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
