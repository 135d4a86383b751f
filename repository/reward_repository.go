package repository

import (
	"context"

	"loyalty-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardRepository defines the interface for reward data access.
type RewardRepository interface {
	Create(ctx context.Context, reward *models.Reward) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	FindAll(ctx context.Context, restaurantID uuid.UUID, page, limit int) ([]models.Reward, int64, error)
	// FindAutoApply returns the active auto-apply rewards of a restaurant
	// that are either unscoped or scoped to the given customer.
	FindAutoApply(ctx context.Context, restaurantID, customerID uuid.UUID) ([]models.Reward, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	// UpdateAnalytics overwrites the analytics aggregate of a reward.
	UpdateAnalytics(ctx context.Context, id uuid.UUID, analytics models.RewardAnalytics) error
}

// GormRewardRepository implements RewardRepository using GORM.
type GormRewardRepository struct {
	db *gorm.DB
}

// NewGormRewardRepository creates a new GormRewardRepository.
func NewGormRewardRepository(db *gorm.DB) RewardRepository {
	return &GormRewardRepository{db: db}
}

// Create inserts a new reward.
func (r *GormRewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

// FindByID retrieves a reward by id.
func (r *GormRewardRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// FindAll retrieves paginated rewards for a restaurant.
func (r *GormRewardRepository) FindAll(ctx context.Context, restaurantID uuid.UUID, page, limit int) ([]models.Reward, int64, error) {
	var rewards []models.Reward
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("restaurant_id = ?", restaurantID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&rewards).Error; err != nil {
		return nil, 0, err
	}

	return rewards, total, nil
}

// FindAutoApply retrieves active auto-apply rewards for trigger evaluation.
func (r *GormRewardRepository) FindAutoApply(ctx context.Context, restaurantID, customerID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_active = ? AND auto_apply = ?", restaurantID, true, true).
		Where("customer_id IS NULL OR customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

// Deactivate sets is_active = false on a reward.
func (r *GormRewardRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateAnalytics overwrites the analytics aggregate of a reward.
func (r *GormRewardRepository) UpdateAnalytics(ctx context.Context, id uuid.UUID, analytics models.RewardAnalytics) error {
	return r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ?", id).
		UpdateColumn("analytics", analytics).
		Error
}
