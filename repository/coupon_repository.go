package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"loyalty-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Storage-level outcomes the service layer translates into its own
// error taxonomy.
var (
	// ErrUsageExhausted means the conditional usage increment matched no
	// row: the reward is inactive or its total limit is already reached.
	ErrUsageExhausted = errors.New("reward usage limit reached")
	// ErrDuplicateCode means the coupon insert hit the per-restaurant
	// unique code index.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrCouponNotActive means a status transition found the coupon in a
	// state other than active.
	ErrCouponNotActive = errors.New("coupon is not active")
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	// Issue atomically reserves one usage unit on the reward and inserts
	// the coupon. Either both happen or neither: a failed insert rolls the
	// reservation back, and a failed reservation inserts nothing.
	Issue(ctx context.Context, rewardID uuid.UUID, coupon *models.Coupon) error
	FindByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Coupon, error)
	// CountByRewardAndCustomer counts the coupons a customer already holds
	// for a reward, feeding the per-customer cap.
	CountByRewardAndCustomer(ctx context.Context, rewardID, customerID uuid.UUID) (int64, error)
	// MarkRedeemed transitions active -> redeemed; only one concurrent
	// caller can win the transition.
	MarkRedeemed(ctx context.Context, id uuid.UUID, orderValue float64, at time.Time) error
	// MarkExpired transitions active -> expired.
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

// Issue reserves one usage unit and inserts the coupon in a single
// transaction. The reservation is a conditional increment: it only
// matches while the reward is active and under its total limit, so
// current_uses can never pass total_uses_limit no matter how many
// requests race. The insert relies on the (code, restaurant_id) unique
// index; a duplicate rolls the whole transaction back, releasing the
// reservation, so the caller can retry with a fresh code.
func (r *GormCouponRepository) Issue(ctx context.Context, rewardID uuid.UUID, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Reward{}).
			Where("id = ? AND is_active = ?", rewardID, true).
			Where("total_uses_limit IS NULL OR current_uses < total_uses_limit").
			UpdateColumn("current_uses", gorm.Expr("current_uses + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUsageExhausted
		}

		if err := tx.Create(coupon).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return err
		}
		return nil
	})
}

// FindByCode retrieves a coupon by its restaurant-scoped code.
func (r *GormCouponRepository) FindByCode(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND code = ?", restaurantID, strings.ToUpper(code)).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// CountByRewardAndCustomer counts a customer's coupons for a reward.
func (r *GormCouponRepository) CountByRewardAndCustomer(ctx context.Context, rewardID, customerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("reward_id = ? AND customer_id = ?", rewardID, customerID).
		Count(&count).Error
	return count, err
}

// MarkRedeemed transitions an active coupon to redeemed.
func (r *GormCouponRepository) MarkRedeemed(ctx context.Context, id uuid.UUID, orderValue float64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND status = ?", id, models.CouponStatusActive).
		Updates(map[string]interface{}{
			"status":      models.CouponStatusRedeemed,
			"redeemed_at": at,
			"order_value": orderValue,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCouponNotActive
	}
	return nil
}

// MarkExpired transitions an active coupon to expired.
func (r *GormCouponRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND status = ?", id, models.CouponStatusActive).
		Update("status", models.CouponStatusExpired)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCouponNotActive
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
