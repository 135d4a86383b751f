package services

import (
	"context"
	"time"

	"loyalty-service/models"
	"loyalty-service/repository"

	"go.uber.org/zap"

	aws_pkg "loyalty-service/pkg/aws"
)

// MatchesTriggerConditions evaluates a reward's trigger predicates
// against a feedback event and its customer. A reward with no conditions
// always matches; configured predicates are conjunctive and nil fields
// are don't-care.
func MatchesTriggerConditions(conditions *models.TriggerConditions, event *models.FeedbackEvent, customer *models.Customer) bool {
	if conditions == nil {
		return true
	}
	if conditions.MinRating != nil && event.Rating < *conditions.MinRating {
		return false
	}
	if conditions.FeedbackType != nil && event.FeedbackType != *conditions.FeedbackType {
		return false
	}
	if conditions.VisitCount != nil && customer.TotalVisits < *conditions.VisitCount {
		return false
	}
	if conditions.TotalSpent != nil && customer.TotalSpent < *conditions.TotalSpent {
		return false
	}
	if conditions.CustomerSegment != nil && customer.CustomerSegment != *conditions.CustomerSegment {
		return false
	}
	return true
}

// TriggerService runs the auto-apply driver: it evaluates every
// candidate reward of the restaurant against an incoming feedback event
// and issues a coupon for each match.
type TriggerService struct {
	rewards   repository.RewardRepository
	customers repository.CustomerRepository
	issuer    RewardService
	metrics   *aws_pkg.MetricsClient
	logger    *zap.Logger
}

// NewTriggerService creates a TriggerService. metrics may be nil.
func NewTriggerService(
	rewards repository.RewardRepository,
	customers repository.CustomerRepository,
	issuer RewardService,
	metrics *aws_pkg.MetricsClient,
	logger *zap.Logger,
) *TriggerService {
	return &TriggerService{
		rewards:   rewards,
		customers: customers,
		issuer:    issuer,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleFeedbackEvent evaluates the restaurant's auto-apply rewards
// against the event. A failed issuance on one reward (exhausted,
// misconfigured wheel) is logged and does not stop the remaining rewards
// from firing.
func (s *TriggerService) HandleFeedbackEvent(ctx context.Context, event *models.FeedbackEvent) (*models.AutoApplyResult, error) {
	customer, err := s.customers.FindByID(ctx, event.CustomerID)
	if err != nil {
		return nil, ErrCustomerNotFound
	}

	rewards, err := s.rewards.FindAutoApply(ctx, event.RestaurantID, event.CustomerID)
	if err != nil {
		return nil, err
	}

	result := &models.AutoApplyResult{Evaluated: len(rewards)}
	for i := range rewards {
		reward := &rewards[i]
		if !MatchesTriggerConditions(reward.TriggerConditions, event, customer) {
			continue
		}
		result.Matched++

		issued, err := s.issuer.IssueCoupon(ctx, reward.ID, customer.ID, IssueOptions{})
		if err != nil {
			s.logger.Warn("Auto-apply coupon issuance failed",
				zap.String("reward_id", reward.ID.String()),
				zap.String("customer_id", customer.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Issued = append(result.Issued, issued.Coupon.Summary())
	}

	if result.Matched > 0 && s.metrics != nil && s.metrics.IsEnabled() {
		go func(matched int) {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.metrics.RecordValue(mctx, aws_pkg.MetricAutoApplyMatches, float64(matched),
				map[string]string{"Service": "loyalty-service"})
		}(result.Matched)
	}

	return result, nil
}
