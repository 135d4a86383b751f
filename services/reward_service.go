package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"loyalty-service/models"
	"loyalty-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aws_pkg "loyalty-service/pkg/aws"
)

const (
	// couponPrefixMaxLen bounds the customer-name prefix of a coupon code.
	couponPrefixMaxLen = 5
	// maxCodeAttempts bounds the regenerate-and-retry loop when a coupon
	// code collides with an existing one.
	maxCodeAttempts = 5
)

// IssueOptions tweak a single issuance.
type IssueOptions struct {
	// VisitMilestone marks issuances whose one-per-customer rule was
	// already enforced upstream; the generic per-customer cap is skipped.
	VisitMilestone bool
}

// IssueResult is what a successful issuance produced. WonItem and
// WinningIndex are set only for wheel rewards, so the caller can present
// "what you won" distinctly from the coupon that records it.
type IssueResult struct {
	Coupon       *models.Coupon
	WonItem      *models.WheelItem
	WinningIndex int
}

// RewardService is the redemption engine's public surface: reward
// definitions, eligibility, coupon issuance (manual and wheel) and
// redemption.
type RewardService interface {
	CreateReward(ctx context.Context, req *models.CreateRewardRequest, createdBy *uuid.UUID) (*models.Reward, error)
	ListRewards(ctx context.Context, restaurantID uuid.UUID, page, limit int) ([]models.Reward, int64, error)
	GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	DeactivateReward(ctx context.Context, id uuid.UUID) error
	GetRewardAnalytics(ctx context.Context, id uuid.UUID) (*models.RewardAnalytics, error)

	// CheckEligibility is the advisory "can this customer redeem?" check.
	// Issuance re-runs it; a nil result here is not a promise.
	CheckEligibility(ctx context.Context, rewardID, customerID uuid.UUID) error
	IssueCoupon(ctx context.Context, rewardID, customerID uuid.UUID, opts IssueOptions) (*IssueResult, error)
	SpinWheel(ctx context.Context, rewardID, customerID uuid.UUID) (*models.SpinWheelResponse, error)

	GetCoupon(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Coupon, error)
	RedeemCoupon(ctx context.Context, restaurantID uuid.UUID, code string, orderValue float64) (*models.Coupon, error)
}

// rewardServiceImpl implements RewardService.
type rewardServiceImpl struct {
	rewards   repository.RewardRepository
	coupons   repository.CouponRepository
	customers repository.CustomerRepository

	evaluator *EligibilityEvaluator
	selector  *PrizeSelector
	analytics *AnalyticsAggregator
	rand      RandSource

	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	metrics     *aws_pkg.MetricsClient
	logger      *zap.Logger
}

// NewRewardService creates a new RewardService.
func NewRewardService(
	rewards repository.RewardRepository,
	coupons repository.CouponRepository,
	customers repository.CustomerRepository,
	evaluator *EligibilityEvaluator,
	selector *PrizeSelector,
	analytics *AnalyticsAggregator,
	rand RandSource,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	metrics *aws_pkg.MetricsClient,
	logger *zap.Logger,
) RewardService {
	return &rewardServiceImpl{
		rewards:     rewards,
		coupons:     coupons,
		customers:   customers,
		evaluator:   evaluator,
		selector:    selector,
		analytics:   analytics,
		rand:        rand,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		metrics:     metrics,
		logger:      logger,
	}
}

// CreateReward builds, validates and persists a new reward definition.
func (s *rewardServiceImpl) CreateReward(ctx context.Context, req *models.CreateRewardRequest, createdBy *uuid.UUID) (*models.Reward, error) {
	reward := models.NewReward(req, createdBy)
	if err := reward.Validate(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	if err := s.rewards.Create(ctx, reward); err != nil {
		s.logger.Error("Failed to create reward", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Reward created",
		zap.String("reward_id", reward.ID.String()),
		zap.String("reward_type", string(reward.RewardType)),
	)
	return reward, nil
}

// ListRewards returns paginated rewards for a restaurant.
func (s *rewardServiceImpl) ListRewards(ctx context.Context, restaurantID uuid.UUID, page, limit int) ([]models.Reward, int64, error) {
	return s.rewards.FindAll(ctx, restaurantID, page, limit)
}

// GetReward retrieves a reward by id.
func (s *rewardServiceImpl) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	reward, err := s.rewards.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return reward, nil
}

// DeactivateReward sets is_active = false on a reward.
func (s *rewardServiceImpl) DeactivateReward(ctx context.Context, id uuid.UUID) error {
	if err := s.rewards.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRewardNotFound
		}
		return err
	}
	s.logger.Info("Reward deactivated", zap.String("reward_id", id.String()))
	return nil
}

// GetRewardAnalytics returns the running aggregate a reward maintains.
func (s *rewardServiceImpl) GetRewardAnalytics(ctx context.Context, id uuid.UUID) (*models.RewardAnalytics, error) {
	reward, err := s.GetReward(ctx, id)
	if err != nil {
		return nil, err
	}
	analytics := reward.Analytics
	return &analytics, nil
}

// CheckEligibility evaluates whether the customer may redeem the reward
// right now. Nil means eligible.
func (s *rewardServiceImpl) CheckEligibility(ctx context.Context, rewardID, customerID uuid.UUID) error {
	reward, customer, err := s.loadRewardAndCustomer(ctx, rewardID, customerID)
	if err != nil {
		return err
	}
	return s.evaluator.Evaluate(ctx, reward, customer, EligibilityOptions{})
}

// IssueCoupon runs the full issuance path: re-validate eligibility,
// resolve the effective prize fields (drawing the wheel when needed),
// generate a code, atomically reserve one usage unit and persist the
// coupon, then record analytics and publish the issued event.
func (s *rewardServiceImpl) IssueCoupon(ctx context.Context, rewardID, customerID uuid.UUID, opts IssueOptions) (*IssueResult, error) {
	reward, customer, err := s.loadRewardAndCustomer(ctx, rewardID, customerID)
	if err != nil {
		return nil, err
	}

	// Eligibility is re-run here regardless of any earlier advisory check;
	// time passes between check and act.
	evalOpts := EligibilityOptions{BypassPerCustomerLimit: opts.VisitMilestone}
	if err := s.evaluator.Evaluate(ctx, reward, customer, evalOpts); err != nil {
		return nil, err
	}

	// Resolve effective prize fields. For wheel rewards the winning item's
	// own fields become the coupon snapshot, and an item carrying its own
	// reward_id redirects the coupon at that reward definition.
	couponRewardID := reward.ID
	title := reward.Title
	description := reward.Description
	value := reward.Value
	rewardType := reward.RewardType

	var wonItem *models.WheelItem
	winningIndex := -1

	if reward.IsWheel() {
		item, index, err := s.selector.Draw(reward.WheelConfig)
		if err != nil {
			return nil, err
		}
		wonItem = &item
		winningIndex = index

		title = item.Title
		description = item.Description
		if description == "" {
			description = item.Title
		}
		value = item.Value
		rewardType = item.RewardType
		if rewardType == "" {
			rewardType = models.RewardTypeFreeItem
		}
		if item.RewardID != nil {
			couponRewardID = *item.RewardID
		}
	}

	now := time.Now()
	var expiresAt *time.Time
	if reward.DaysValid != nil {
		t := now.AddDate(0, 0, *reward.DaysValid)
		expiresAt = &t
	} else if reward.ValidUntil != nil {
		expiresAt = reward.ValidUntil
	}

	// Codes are generated client-side and uniqueness is enforced by the
	// storage index; a collision rolls back the usage reservation with the
	// rest of the transaction, so retrying with a fresh suffix is safe.
	var created *models.Coupon
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		coupon := &models.Coupon{
			Code:         generateCouponCode(customer.Name, s.rand),
			RestaurantID: reward.RestaurantID,
			RewardID:     couponRewardID,
			CustomerID:   &customer.ID,
			Title:        title,
			Description:  description,
			Value:        value,
			RewardType:   rewardType,
			Status:       models.CouponStatusActive,
			ExpiresAt:    expiresAt,
		}

		err := s.coupons.Issue(ctx, reward.ID, coupon)
		if err == nil {
			created = coupon
			break
		}
		if errors.Is(err, repository.ErrUsageExhausted) {
			s.recordMetric(aws_pkg.MetricIssueExhausted)
			return nil, ErrRewardExhausted
		}
		if errors.Is(err, repository.ErrDuplicateCode) {
			s.recordMetric(aws_pkg.MetricCodeConflicts)
			s.logger.Debug("Coupon code collision, retrying",
				zap.String("reward_id", reward.ID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, ErrCodeConflict
	}

	// Analytics runs only after the reservation and insert both landed; a
	// failure here never unwinds the issuance.
	_ = s.analytics.RecordGeneration(ctx, reward)

	s.logger.Info("Coupon issued",
		zap.String("coupon_code", created.Code),
		zap.String("reward_id", reward.ID.String()),
		zap.String("customer_id", customer.ID.String()),
	)

	s.recordMetric(aws_pkg.MetricCouponsIssued)
	s.publishCouponIssuedEvent(ctx, created)

	return &IssueResult{Coupon: created, WonItem: wonItem, WinningIndex: winningIndex}, nil
}

// SpinWheel performs a wheel redemption and reports the winning item
// alongside the issued coupon.
func (s *rewardServiceImpl) SpinWheel(ctx context.Context, rewardID, customerID uuid.UUID) (*models.SpinWheelResponse, error) {
	reward, err := s.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if !reward.IsWheel() {
		return nil, validationErrorf("reward %s is not a spin-the-wheel reward", rewardID)
	}

	result, err := s.IssueCoupon(ctx, rewardID, customerID, IssueOptions{})
	if err != nil {
		return nil, err
	}

	s.recordMetric(aws_pkg.MetricWheelSpins)
	return &models.SpinWheelResponse{
		WonItem:      *result.WonItem,
		WinningIndex: result.WinningIndex,
		Coupon:       result.Coupon.Summary(),
	}, nil
}

// GetCoupon retrieves a coupon by restaurant-scoped code.
func (s *rewardServiceImpl) GetCoupon(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Coupon, error) {
	coupon, err := s.coupons.FindByCode(ctx, restaurantID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return coupon, nil
}

// RedeemCoupon transitions an active coupon to redeemed and records the
// redemption on the reward's analytics. An expired coupon is marked
// expired instead and rejected.
func (s *rewardServiceImpl) RedeemCoupon(ctx context.Context, restaurantID uuid.UUID, code string, orderValue float64) (*models.Coupon, error) {
	coupon, err := s.GetCoupon(ctx, restaurantID, code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if coupon.IsExpired(now) {
		if err := s.coupons.MarkExpired(ctx, coupon.ID); err != nil && !errors.Is(err, repository.ErrCouponNotActive) {
			s.logger.Warn("Failed to mark coupon expired", zap.String("coupon_code", coupon.Code), zap.Error(err))
		}
		return nil, &IneligibleError{Rule: RuleCouponExpired}
	}

	if err := s.coupons.MarkRedeemed(ctx, coupon.ID, orderValue, now); err != nil {
		if errors.Is(err, repository.ErrCouponNotActive) {
			return nil, &IneligibleError{Rule: RuleCouponNotActive}
		}
		return nil, err
	}
	coupon.Status = models.CouponStatusRedeemed
	coupon.RedeemedAt = &now
	coupon.OrderValue = &orderValue

	if reward, err := s.rewards.FindByID(ctx, coupon.RewardID); err == nil {
		_ = s.analytics.RecordRedemption(ctx, reward, orderValue)
	} else {
		s.logger.Warn("Reward lookup failed after redemption",
			zap.String("reward_id", coupon.RewardID.String()),
			zap.Error(err),
		)
	}

	s.recordMetric(aws_pkg.MetricCouponsRedeemed)
	s.publishCouponRedeemedEvent(ctx, coupon, orderValue)

	s.logger.Info("Coupon redeemed",
		zap.String("coupon_code", coupon.Code),
		zap.Float64("order_value", orderValue),
	)
	return coupon, nil
}

func (s *rewardServiceImpl) loadRewardAndCustomer(ctx context.Context, rewardID, customerID uuid.UUID) (*models.Reward, *models.Customer, error) {
	reward, err := s.GetReward(ctx, rewardID)
	if err != nil {
		return nil, nil, err
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCustomerNotFound
		}
		return nil, nil, err
	}
	return reward, customer, nil
}

// couponCodePrefix derives an uppercase alphanumeric prefix of bounded
// length from a customer display name.
func couponCodePrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == couponPrefixMaxLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "GUEST"
	}
	return b.String()
}

// generateCouponCode appends a random 4-digit suffix to the name prefix.
func generateCouponCode(name string, rand RandSource) string {
	return fmt.Sprintf("%s%d", couponCodePrefix(name), 1000+rand.Intn(9000))
}

func (s *rewardServiceImpl) recordMetric(name string) {
	if s.metrics == nil || !s.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordCount(ctx, name, map[string]string{"Service": "loyalty-service"})
	}()
}

// publishCouponIssuedEvent publishes a coupon_issued event to SNS.
func (s *rewardServiceImpl) publishCouponIssuedEvent(ctx context.Context, coupon *models.Coupon) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}

	event := models.CouponIssuedEvent{
		EventType:    "coupon_issued",
		CouponID:     coupon.ID.String(),
		CouponCode:   coupon.Code,
		RewardID:     coupon.RewardID.String(),
		RestaurantID: coupon.RestaurantID.String(),
		RewardType:   string(coupon.RewardType),
		Value:        coupon.Value,
		Timestamp:    time.Now(),
	}
	if coupon.CustomerID != nil {
		event.CustomerID = coupon.CustomerID.String()
	}

	s.publishEvent(ctx, event, "coupon_issued")
}

// publishCouponRedeemedEvent publishes a coupon_redeemed event to SNS.
func (s *rewardServiceImpl) publishCouponRedeemedEvent(ctx context.Context, coupon *models.Coupon, orderValue float64) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}

	event := models.CouponRedeemedEvent{
		EventType:    "coupon_redeemed",
		CouponID:     coupon.ID.String(),
		CouponCode:   coupon.Code,
		RewardID:     coupon.RewardID.String(),
		RestaurantID: coupon.RestaurantID.String(),
		OrderValue:   orderValue,
		Timestamp:    time.Now(),
	}

	s.publishEvent(ctx, event, "coupon_redeemed")
}

func (s *rewardServiceImpl) publishEvent(ctx context.Context, event interface{}, eventType string) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, eventBytes); err != nil {
		s.logger.Error("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	s.logger.Info("Published event", zap.String("event_type", eventType))
}
