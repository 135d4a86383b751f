package services

import (
	"context"

	"loyalty-service/models"
	"loyalty-service/repository"

	"go.uber.org/zap"
)

// AnalyticsAggregator maintains the per-reward running aggregates. The
// counters are incremental (no running order-value sum is kept) and do
// not need to be linearized across concurrent updates; they only run
// after a successful issuance or redemption.
type AnalyticsAggregator struct {
	rewards repository.RewardRepository
	logger  *zap.Logger
}

// NewAnalyticsAggregator creates an AnalyticsAggregator.
func NewAnalyticsAggregator(rewards repository.RewardRepository, logger *zap.Logger) *AnalyticsAggregator {
	return &AnalyticsAggregator{rewards: rewards, logger: logger}
}

// RecordGeneration counts an issued coupon on the reward's aggregate.
func (a *AnalyticsAggregator) RecordGeneration(ctx context.Context, reward *models.Reward) error {
	analytics := reward.Analytics
	analytics.RecordGeneration()
	return a.persist(ctx, reward, analytics)
}

// RecordRedemption counts a redeemed coupon and folds a positive order
// value into the average order value.
func (a *AnalyticsAggregator) RecordRedemption(ctx context.Context, reward *models.Reward, orderValue float64) error {
	analytics := reward.Analytics
	analytics.RecordRedemption(orderValue)
	return a.persist(ctx, reward, analytics)
}

func (a *AnalyticsAggregator) persist(ctx context.Context, reward *models.Reward, analytics models.RewardAnalytics) error {
	if err := a.rewards.UpdateAnalytics(ctx, reward.ID, analytics); err != nil {
		a.logger.Warn("Failed to persist reward analytics",
			zap.String("reward_id", reward.ID.String()),
			zap.Error(err),
		)
		return err
	}
	reward.Analytics = analytics
	return nil
}
