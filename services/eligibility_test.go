package services_test

import (
	"context"
	"testing"
	"time"

	"loyalty-service/models"
	"loyalty-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator() (*services.EligibilityEvaluator, *mockCouponRepo) {
	rewards := newMockRewardRepo()
	coupons := newMockCouponRepo(rewards)
	return services.NewEligibilityEvaluator(coupons), coupons
}

func assertRule(t *testing.T, err error, rule string) {
	t.Helper()
	var ineligible *services.IneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, rule, ineligible.Rule)
}

func TestEligibility_EligibleReward(t *testing.T) {
	evaluator, _ := newEvaluator()
	reward := activeReward(uuid.New())
	customer := testCustomer("Ana")

	err := evaluator.Evaluate(context.Background(), reward, customer, services.EligibilityOptions{})
	assert.NoError(t, err)
}

func TestEligibility_InactiveReward(t *testing.T) {
	evaluator, _ := newEvaluator()
	reward := activeReward(uuid.New())
	reward.IsActive = false

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{})
	assertRule(t, err, services.RuleInactive)
}

func TestEligibility_NotStarted(t *testing.T) {
	evaluator, _ := newEvaluator()
	reward := activeReward(uuid.New())
	reward.ValidFrom = timePtr(time.Now().Add(time.Hour))

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{})
	assertRule(t, err, services.RuleNotStarted)
}

func TestEligibility_Expired(t *testing.T) {
	evaluator, _ := newEvaluator()
	reward := activeReward(uuid.New())
	reward.ValidUntil = timePtr(time.Now().Add(-time.Hour))

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{})
	assertRule(t, err, services.RuleExpired)
}

func TestEligibility_WindowBoundsAreInclusive(t *testing.T) {
	evaluator, _ := newEvaluator()
	now := time.Now()
	reward := activeReward(uuid.New())
	reward.ValidFrom = timePtr(now)
	reward.ValidUntil = timePtr(now)

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{Now: now})
	assert.NoError(t, err, "Exactly at the window bounds is still valid")
}

func TestEligibility_Exhausted(t *testing.T) {
	evaluator, _ := newEvaluator()
	reward := activeReward(uuid.New())
	reward.TotalUsesLimit = intPtr(3)
	reward.CurrentUses = 3

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{})
	assertRule(t, err, services.RuleExhausted)
}

func TestEligibility_CustomerScope(t *testing.T) {
	evaluator, _ := newEvaluator()
	other := uuid.New()
	reward := activeReward(uuid.New())
	reward.CustomerID = &other

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{})
	assertRule(t, err, services.RuleCustomerScope)
}

func TestEligibility_PerCustomerLimit(t *testing.T) {
	evaluator, coupons := newEvaluator()
	reward := activeReward(uuid.New())
	reward.MaxUsesPerCustomer = intPtr(2)
	customer := testCustomer("Ana")

	for i := 0; i < 2; i++ {
		coupons.add(&models.Coupon{
			Code:         generatedCode(i),
			RestaurantID: reward.RestaurantID,
			RewardID:     reward.ID,
			CustomerID:   &customer.ID,
			Status:       models.CouponStatusActive,
		})
	}

	err := evaluator.Evaluate(context.Background(), reward, customer, services.EligibilityOptions{})
	assertRule(t, err, services.RulePerCustomerLimit)

	err = evaluator.Evaluate(context.Background(), reward, customer, services.EligibilityOptions{BypassPerCustomerLimit: true})
	assert.NoError(t, err, "Bypass skips the per-customer cap")
}

func TestEligibility_ChecksRunInOrder(t *testing.T) {
	// A reward failing several rules reports the first one in order.
	evaluator, _ := newEvaluator()
	reward := activeReward(uuid.New())
	reward.IsActive = false
	reward.ValidUntil = timePtr(time.Now().Add(-time.Hour))
	reward.TotalUsesLimit = intPtr(1)
	reward.CurrentUses = 1

	err := evaluator.Evaluate(context.Background(), reward, testCustomer("Ana"), services.EligibilityOptions{})
	assertRule(t, err, services.RuleInactive)
}

func generatedCode(i int) string {
	return string(rune('A'+i)) + "NA1000"
}
