package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeedbackEvent is the trigger payload evaluated against auto-apply
// rewards. It arrives either over HTTP or from the feedback events queue.
type FeedbackEvent struct {
	RestaurantID uuid.UUID `json:"restaurant_id" binding:"required"`
	CustomerID   uuid.UUID `json:"customer_id" binding:"required"`
	Rating       int       `json:"rating" binding:"gte=0,lte=5"`
	FeedbackType string    `json:"feedback_type"`
	Timestamp    time.Time `json:"timestamp"`
}

// Validate checks the fields the queue path cannot rely on gin binding
// to enforce.
func (e *FeedbackEvent) Validate() error {
	if e.RestaurantID == uuid.Nil {
		return errors.New("feedback event missing restaurant_id")
	}
	if e.CustomerID == uuid.Nil {
		return errors.New("feedback event missing customer_id")
	}
	if e.Rating < 0 || e.Rating > 5 {
		return fmt.Errorf("feedback event rating %d out of range", e.Rating)
	}
	return nil
}

// AutoApplyResult reports what a feedback event triggered: which rewards
// matched and which coupons were issued. Failures are isolated per
// reward, so a partial result is normal.
type AutoApplyResult struct {
	Evaluated int             `json:"evaluated"`
	Matched   int             `json:"matched"`
	Issued    []CouponSummary `json:"issued"`
}
