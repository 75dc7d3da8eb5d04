package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lastnext/maintenance-api/config"
	"github.com/lastnext/maintenance-api/services"
)

func topicService() *services.TopicService {
	return services.NewTopicService(config.GetDB())
}

// ListTopics handles GET /api/v1/topics
func ListTopics(c *gin.Context) {
	page, err := topicService().List(c.Request.Context(), listParams(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, page)
}

// CreateTopic handles POST /api/v1/topics
func CreateTopic(c *gin.Context) {
	var req services.TopicInput
	if !bindJSON(c, &req) {
		return
	}
	topic, err := topicService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, topic)
}

// GetTopic handles GET /api/v1/topics/:id
func GetTopic(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	topic, err := topicService().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, topic)
}

// UpdateTopic handles PUT/PATCH /api/v1/topics/:id
func UpdateTopic(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateTopicInput
	if !bindJSON(c, &req) {
		return
	}
	topic, err := topicService().Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, topic)
}

// DeleteTopic handles DELETE /api/v1/topics/:id
func DeleteTopic(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := topicService().Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
