package controllers

import (
	"net/http"
	"time"

	"loyalty-service/models"
	"loyalty-service/services"

	"github.com/gin-gonic/gin"
)

// EventController handles HTTP-delivered trigger events. The same
// payload also arrives asynchronously from the feedback queue.
type EventController struct {
	trigger *services.TriggerService
}

// NewEventController creates a new EventController.
func NewEventController(trigger *services.TriggerService) *EventController {
	return &EventController{trigger: trigger}
}

// HandleFeedback handles POST /events/feedback.
func (ec *EventController) HandleFeedback(ctx *gin.Context) {
	var event models.FeedbackEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	result, err := ec.trigger.HandleFeedbackEvent(ctx.Request.Context(), &event)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, result)
}
