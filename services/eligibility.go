package services

import (
	"context"
	"time"

	"loyalty-service/models"
	"loyalty-service/repository"
)

// EligibilityOptions tweak a single evaluation.
type EligibilityOptions struct {
	// BypassPerCustomerLimit skips the max_uses_per_customer check when the
	// caller has already enforced a distinct one-per-customer rule, such as
	// a visit-milestone reward verified at check-in.
	BypassPerCustomerLimit bool
	// Now overrides the evaluation time; zero means time.Now().
	Now time.Time
}

// EligibilityEvaluator decides whether a customer may redeem a reward
// right now. The verdict is advisory at display time and re-run at
// issuance, since time passes between check and act.
type EligibilityEvaluator struct {
	coupons repository.CouponRepository
}

// NewEligibilityEvaluator creates an EligibilityEvaluator.
func NewEligibilityEvaluator(coupons repository.CouponRepository) *EligibilityEvaluator {
	return &EligibilityEvaluator{coupons: coupons}
}

// Evaluate returns nil when the customer may redeem the reward, or an
// IneligibleError naming the first rule that failed. Checks run in a
// fixed order and short-circuit. No side effects.
func (e *EligibilityEvaluator) Evaluate(ctx context.Context, reward *models.Reward, customer *models.Customer, opts EligibilityOptions) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !reward.IsActive {
		return &IneligibleError{Rule: RuleInactive}
	}
	if reward.ValidFrom != nil && now.Before(*reward.ValidFrom) {
		return &IneligibleError{Rule: RuleNotStarted}
	}
	if reward.ValidUntil != nil && now.After(*reward.ValidUntil) {
		return &IneligibleError{Rule: RuleExpired}
	}
	if reward.TotalUsesLimit != nil && reward.CurrentUses >= *reward.TotalUsesLimit {
		return &IneligibleError{Rule: RuleExhausted}
	}
	if reward.CustomerID != nil && *reward.CustomerID != customer.ID {
		return &IneligibleError{Rule: RuleCustomerScope}
	}

	if !opts.BypassPerCustomerLimit && reward.MaxUsesPerCustomer != nil {
		count, err := e.coupons.CountByRewardAndCustomer(ctx, reward.ID, customer.ID)
		if err != nil {
			return err
		}
		if count >= int64(*reward.MaxUsesPerCustomer) {
			return &IneligibleError{Rule: RulePerCustomerLimit}
		}
	}

	return nil
}
