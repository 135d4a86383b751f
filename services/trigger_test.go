package services_test

import (
	"context"
	"testing"

	"loyalty-service/models"
	"loyalty-service/repository"
	"loyalty-service/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func feedbackEvent(restaurantID, customerID uuid.UUID, rating int, feedbackType string) *models.FeedbackEvent {
	return &models.FeedbackEvent{
		RestaurantID: restaurantID,
		CustomerID:   customerID,
		Rating:       rating,
		FeedbackType: feedbackType,
	}
}

func TestMatchesTriggerConditions_NilConditionsAlwaysMatch(t *testing.T) {
	event := feedbackEvent(uuid.New(), uuid.New(), 1, "complaint")
	customer := testCustomer("Ana")

	assert.True(t, services.MatchesTriggerConditions(nil, event, customer))
}

func TestMatchesTriggerConditions_SinglePredicates(t *testing.T) {
	restaurantID := uuid.New()
	customer := testCustomer("Ana")
	customer.TotalVisits = 5
	customer.TotalSpent = 250
	customer.CustomerSegment = "regular"

	cases := []struct {
		name       string
		conditions models.TriggerConditions
		event      *models.FeedbackEvent
		want       bool
	}{
		{"min rating met", models.TriggerConditions{MinRating: intPtr(4)}, feedbackEvent(restaurantID, customer.ID, 5, ""), true},
		{"min rating not met", models.TriggerConditions{MinRating: intPtr(4)}, feedbackEvent(restaurantID, customer.ID, 3, ""), false},
		{"feedback type match", models.TriggerConditions{FeedbackType: strPtr("praise")}, feedbackEvent(restaurantID, customer.ID, 5, "praise"), true},
		{"feedback type mismatch", models.TriggerConditions{FeedbackType: strPtr("praise")}, feedbackEvent(restaurantID, customer.ID, 5, "complaint"), false},
		{"visit count met", models.TriggerConditions{VisitCount: intPtr(5)}, feedbackEvent(restaurantID, customer.ID, 5, ""), true},
		{"visit count not met", models.TriggerConditions{VisitCount: intPtr(6)}, feedbackEvent(restaurantID, customer.ID, 5, ""), false},
		{"total spent met", models.TriggerConditions{TotalSpent: floatPtr(200)}, feedbackEvent(restaurantID, customer.ID, 5, ""), true},
		{"total spent not met", models.TriggerConditions{TotalSpent: floatPtr(300)}, feedbackEvent(restaurantID, customer.ID, 5, ""), false},
		{"segment match", models.TriggerConditions{CustomerSegment: strPtr("regular")}, feedbackEvent(restaurantID, customer.ID, 5, ""), true},
		{"segment mismatch", models.TriggerConditions{CustomerSegment: strPtr("vip")}, feedbackEvent(restaurantID, customer.ID, 5, ""), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := services.MatchesTriggerConditions(&tc.conditions, tc.event, customer)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchesTriggerConditions_Conjunctive(t *testing.T) {
	customer := testCustomer("Ana")
	customer.TotalVisits = 10
	event := feedbackEvent(uuid.New(), customer.ID, 5, "praise")

	conditions := &models.TriggerConditions{
		MinRating:  intPtr(4),
		VisitCount: intPtr(5),
	}
	assert.True(t, services.MatchesTriggerConditions(conditions, event, customer))

	// One failing predicate fails the whole set.
	conditions.VisitCount = intPtr(20)
	assert.False(t, services.MatchesTriggerConditions(conditions, event, customer))
}

func newTriggerEnv(rand services.RandSource) (*testEnv, *services.TriggerService) {
	env := newTestEnv(rand)
	trigger := services.NewTriggerService(env.rewards, env.customers, env.svc, nil, zap.NewNop())
	return env, trigger
}

func TestTrigger_HandleFeedbackEvent_IssuesMatchingRewards(t *testing.T) {
	env, trigger := newTriggerEnv(services.NewLockedRand(3))
	restaurantID := uuid.New()

	customer := testCustomer("Paula")
	customer.TotalVisits = 8
	env.customers.add(customer)

	matching := activeReward(restaurantID)
	matching.AutoApply = true
	matching.TriggerConditions = &models.TriggerConditions{MinRating: intPtr(4)}
	env.rewards.add(matching)

	nonMatching := activeReward(restaurantID)
	nonMatching.AutoApply = true
	nonMatching.TriggerConditions = &models.TriggerConditions{VisitCount: intPtr(50)}
	env.rewards.add(nonMatching)

	notAutoApply := activeReward(restaurantID)
	env.rewards.add(notAutoApply)

	result, err := trigger.HandleFeedbackEvent(context.Background(), feedbackEvent(restaurantID, customer.ID, 5, "praise"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Evaluated, "Only auto-apply rewards are evaluated")
	assert.Equal(t, 1, result.Matched)
	require.Len(t, result.Issued, 1)
	assert.Equal(t, matching.Title, result.Issued[0].Title)
	assert.Equal(t, 1, env.coupons.count())
}

func TestTrigger_HandleFeedbackEvent_UnknownCustomer(t *testing.T) {
	_, trigger := newTriggerEnv(&stubRand{})

	_, err := trigger.HandleFeedbackEvent(context.Background(), feedbackEvent(uuid.New(), uuid.New(), 5, ""))
	assert.ErrorIs(t, err, services.ErrCustomerNotFound)
}

func TestTrigger_HandleFeedbackEvent_FailureIsolation(t *testing.T) {
	// An issuance failure on one reward must not stop the others.
	env, trigger := newTriggerEnv(services.NewLockedRand(9))
	restaurantID := uuid.New()

	customer := testCustomer("Paula")
	env.customers.add(customer)

	failing := activeReward(restaurantID)
	failing.AutoApply = true
	env.rewards.add(failing)
	env.coupons.issueErr = repository.ErrUsageExhausted
	env.coupons.issueErrReward = failing.ID

	healthy := activeReward(restaurantID)
	healthy.Title = "Still Works"
	healthy.AutoApply = true
	env.rewards.add(healthy)

	result, err := trigger.HandleFeedbackEvent(context.Background(), feedbackEvent(restaurantID, customer.ID, 5, ""))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Matched)
	require.Len(t, result.Issued, 1)
	assert.Equal(t, "Still Works", result.Issued[0].Title)
}

func TestTrigger_HandleFeedbackEvent_CustomerScopedReward(t *testing.T) {
	env, trigger := newTriggerEnv(services.NewLockedRand(11))
	restaurantID := uuid.New()

	customer := testCustomer("Paula")
	env.customers.add(customer)
	other := testCustomer("Bruno")
	env.customers.add(other)

	scoped := activeReward(restaurantID)
	scoped.AutoApply = true
	scoped.CustomerID = &customer.ID
	env.rewards.add(scoped)

	// Scoped to Paula: Bruno's feedback never sees it.
	result, err := trigger.HandleFeedbackEvent(context.Background(), feedbackEvent(restaurantID, other.ID, 5, ""))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Evaluated)

	result, err = trigger.HandleFeedbackEvent(context.Background(), feedbackEvent(restaurantID, customer.ID, 5, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Len(t, result.Issued, 1)
}
