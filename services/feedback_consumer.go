package services

import (
	"context"
	"encoding/json"
	"fmt"

	"loyalty-service/models"

	"go.uber.org/zap"

	aws_pkg "loyalty-service/pkg/aws"
)

// snsEnvelope is the wrapper SNS puts around messages delivered to an
// SQS subscription without raw message delivery.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// FeedbackConsumer polls the feedback queue and feeds each event to the
// auto-apply trigger.
type FeedbackConsumer struct {
	consumer *aws_pkg.SQSConsumer
	trigger  *TriggerService
	logger   *zap.Logger
}

// NewFeedbackConsumer creates a FeedbackConsumer.
func NewFeedbackConsumer(consumer *aws_pkg.SQSConsumer, trigger *TriggerService, logger *zap.Logger) *FeedbackConsumer {
	return &FeedbackConsumer{
		consumer: consumer,
		trigger:  trigger,
		logger:   logger,
	}
}

// Start polls the queue until the context is cancelled.
func (c *FeedbackConsumer) Start(ctx context.Context) error {
	return c.consumer.StartPolling(ctx, c.handleMessage)
}

func (c *FeedbackConsumer) handleMessage(ctx context.Context, body string) error {
	payload := body

	// Messages routed through an SNS topic arrive wrapped in an envelope;
	// direct SQS sends do not.
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Type == "Notification" {
		payload = envelope.Message
	}

	var event models.FeedbackEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return fmt.Errorf("failed to parse feedback event: %w", err)
	}
	if err := event.Validate(); err != nil {
		// A malformed event will never become valid; drop it rather than
		// letting it cycle through the visibility timeout.
		c.logger.Warn("Dropping invalid feedback event", zap.Error(err))
		return nil
	}

	result, err := c.trigger.HandleFeedbackEvent(ctx, &event)
	if err != nil {
		return fmt.Errorf("failed to handle feedback event: %w", err)
	}

	c.logger.Info("Processed feedback event",
		zap.String("customer_id", event.CustomerID.String()),
		zap.Int("rewards_evaluated", result.Evaluated),
		zap.Int("rewards_matched", result.Matched),
		zap.Int("coupons_issued", len(result.Issued)),
	)
	return nil
}
