package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
)

func roomService() *services.RoomService {
	return services.NewRoomService(config.GetDB())
}

// ListRooms handles GET /api/v1/rooms
func ListRooms(c *gin.Context) {
	page, err := roomService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateRoom handles POST /api/v1/rooms
func CreateRoom(c *gin.Context) {
	var req services.CreateRoomInput
	if !bindJSON(c, &req) {
		return
	}
	room, err := roomService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, room)
}

// GetRoom handles GET /api/v1/rooms/:room_id
func GetRoom(c *gin.Context) {
	room, err := roomService().Get(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, room)
}

// UpdateRoom handles PUT/PATCH /api/v1/rooms/:room_id
func UpdateRoom(c *gin.Context) {
	var req services.UpdateRoomInput
	if !bindJSON(c, &req) {
		return
	}
	room, err := roomService().Update(c.Request.Context(), c.Param("room_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, room)
}

// DeleteRoom handles DELETE /api/v1/rooms/:room_id
func DeleteRoom(c *gin.Context) {
	if err := roomService().Delete(c.Request.Context(), c.Param("room_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoomStatistics handles GET /api/v1/rooms/:room_id/statistics
func GetRoomStatistics(c *gin.Context) {
	stats, err := roomService().Statistics(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
