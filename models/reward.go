package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardType represents the kind of incentive a reward grants.
type RewardType string

const (
	RewardTypePercentageDiscount RewardType = "percentage_discount"
	RewardTypeFixedDiscount      RewardType = "fixed_discount"
	RewardTypeFreeItem           RewardType = "free_item"
	RewardTypePoints             RewardType = "points"
	RewardTypeCashback           RewardType = "cashback"
	RewardTypeGift               RewardType = "gift"
	RewardTypeSpinTheWheel       RewardType = "spin_the_wheel"
)

// WheelItem is one weighted option inside a spin-the-wheel configuration.
// Probabilities are relative weights; they do not need to sum to 1.
type WheelItem struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Value       float64    `json:"value"`
	RewardType  RewardType `json:"reward_type"`
	Probability float64    `json:"probability"`
	// RewardID points at a different underlying reward definition when the
	// wheel item is a stand-in for another reward.
	RewardID *uuid.UUID `json:"reward_id,omitempty"`
}

// WheelConfig holds the ordered wheel items for a spin-the-wheel reward.
// Stored as a jsonb column.
type WheelConfig struct {
	Items []WheelItem `json:"items"`
}

// TotalProbability returns the sum of all item weights.
func (w *WheelConfig) TotalProbability() float64 {
	var total float64
	for _, item := range w.Items {
		total += item.Probability
	}
	return total
}

func (w *WheelConfig) Scan(value interface{}) error {
	return scanJSON(value, w)
}

func (w WheelConfig) Value() (driver.Value, error) {
	return json.Marshal(w)
}

// TriggerConditions is the predicate set evaluated against a feedback
// event and its customer to decide automatic reward eligibility.
// Nil fields are don't-care; configured fields are conjunctive.
type TriggerConditions struct {
	MinRating       *int     `json:"min_rating,omitempty"`
	FeedbackType    *string  `json:"feedback_type,omitempty"`
	VisitCount      *int     `json:"visit_count,omitempty"`
	TotalSpent      *float64 `json:"total_spent,omitempty"`
	CustomerSegment *string  `json:"customer_segment,omitempty"`
}

func (t *TriggerConditions) Scan(value interface{}) error {
	return scanJSON(value, t)
}

func (t TriggerConditions) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// RewardAnalytics is the running aggregate a reward maintains about its
// own coupons. RedemptionRate is kept in [0, 1].
type RewardAnalytics struct {
	TotalGenerated    int64   `json:"total_generated"`
	TotalRedeemed     int64   `json:"total_redeemed"`
	RedemptionRate    float64 `json:"redemption_rate"`
	AverageOrderValue float64 `json:"average_order_value"`
}

// RecordGeneration counts one more issued coupon and refreshes the rate.
func (a *RewardAnalytics) RecordGeneration() {
	a.TotalGenerated++
	a.refreshRate()
}

// RecordRedemption counts one more redeemed coupon. A positive orderValue
// folds into the average order value incrementally, so no running sum is
// kept.
func (a *RewardAnalytics) RecordRedemption(orderValue float64) {
	a.TotalRedeemed++
	if orderValue > 0 {
		a.AverageOrderValue += (orderValue - a.AverageOrderValue) / float64(a.TotalRedeemed)
	}
	a.refreshRate()
}

func (a *RewardAnalytics) refreshRate() {
	if a.TotalGenerated == 0 {
		a.RedemptionRate = 0
		return
	}
	a.RedemptionRate = float64(a.TotalRedeemed) / float64(a.TotalGenerated)
}

func (a *RewardAnalytics) Scan(value interface{}) error {
	return scanJSON(value, a)
}

func (a RewardAnalytics) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Reward is a restaurant-defined incentive persisted in Postgres.
type Reward struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RestaurantID uuid.UUID  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	CustomerID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"` // set = single-customer reward

	Title       string     `gorm:"type:varchar(255)" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	RewardType  RewardType `gorm:"type:varchar(32);not null" json:"reward_type"`
	Value       float64    `json:"value"`

	WheelConfig    *WheelConfig `gorm:"type:jsonb" json:"wheel_config,omitempty"`
	PointsRequired int          `gorm:"not null;default:0" json:"points_required"`

	MaxUsesPerCustomer *int `json:"max_uses_per_customer,omitempty"`
	TotalUsesLimit     *int `json:"total_uses_limit,omitempty"`
	CurrentUses        int  `gorm:"not null;default:0" json:"current_uses"`

	MinimumPurchase float64    `gorm:"not null;default:0" json:"minimum_purchase"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	DaysValid       *int       `json:"days_valid,omitempty"`

	AutoApply         bool               `gorm:"not null;default:false" json:"auto_apply"`
	TriggerConditions *TriggerConditions `gorm:"type:jsonb" json:"trigger_conditions,omitempty"`

	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`
	Analytics RewardAnalytics `gorm:"type:jsonb" json:"analytics"`

	CreatedBy *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsWheel reports whether the reward is a spin-the-wheel reward.
func (r *Reward) IsWheel() bool {
	return r.RewardType == RewardTypeSpinTheWheel
}

// CreateRewardRequest is the payload for creating a new reward.
type CreateRewardRequest struct {
	RestaurantID       uuid.UUID          `json:"restaurant_id" binding:"required"`
	CustomerID         *uuid.UUID         `json:"customer_id"`
	Title              string             `json:"title" binding:"required,max=255"`
	Description        string             `json:"description" binding:"required"`
	RewardType         RewardType         `json:"reward_type" binding:"required,oneof=percentage_discount fixed_discount free_item points cashback gift spin_the_wheel"`
	Value              float64            `json:"value" binding:"gte=0"`
	WheelConfig        *WheelConfig       `json:"wheel_config"`
	PointsRequired     int                `json:"points_required" binding:"gte=0"`
	MaxUsesPerCustomer *int               `json:"max_uses_per_customer"`
	TotalUsesLimit     *int               `json:"total_uses_limit"`
	MinimumPurchase    float64            `json:"minimum_purchase" binding:"gte=0"`
	ValidFrom          *time.Time         `json:"valid_from"`
	ValidUntil         *time.Time         `json:"valid_until"`
	DaysValid          *int               `json:"days_valid"`
	AutoApply          bool               `json:"auto_apply"`
	TriggerConditions  *TriggerConditions `json:"trigger_conditions"`
}

// NewReward builds a Reward from a create request, applying the
// create-time derivations: valid_until is derived once from days_valid
// when absent, and wheel items are assigned ids when missing.
func NewReward(req *CreateRewardRequest, createdBy *uuid.UUID) *Reward {
	reward := &Reward{
		RestaurantID:       req.RestaurantID,
		CustomerID:         req.CustomerID,
		Title:              req.Title,
		Description:        req.Description,
		RewardType:         req.RewardType,
		Value:              req.Value,
		WheelConfig:        req.WheelConfig,
		PointsRequired:     req.PointsRequired,
		MaxUsesPerCustomer: req.MaxUsesPerCustomer,
		TotalUsesLimit:     req.TotalUsesLimit,
		MinimumPurchase:    req.MinimumPurchase,
		ValidFrom:          req.ValidFrom,
		ValidUntil:         req.ValidUntil,
		DaysValid:          req.DaysValid,
		AutoApply:          req.AutoApply,
		TriggerConditions:  req.TriggerConditions,
		IsActive:           true,
		CreatedBy:          createdBy,
	}

	if reward.DaysValid != nil && reward.ValidUntil == nil {
		base := time.Now()
		if reward.ValidFrom != nil {
			base = *reward.ValidFrom
		}
		until := base.AddDate(0, 0, *reward.DaysValid)
		reward.ValidUntil = &until
	}

	if reward.IsWheel() && reward.WheelConfig != nil {
		for i := range reward.WheelConfig.Items {
			if reward.WheelConfig.Items[i].ID == uuid.Nil {
				reward.WheelConfig.Items[i].ID = uuid.New()
			}
		}
	}

	return reward
}

// Validate rejects reward definitions that would break redemption:
// an active wheel reward must have items with positive total weight.
func (r *Reward) Validate() error {
	if !r.IsWheel() {
		return nil
	}
	if r.WheelConfig == nil || len(r.WheelConfig.Items) == 0 {
		return fmt.Errorf("wheel reward has no items")
	}
	if r.IsActive && r.WheelConfig.TotalProbability() <= 0 {
		return fmt.Errorf("wheel reward total probability must be positive")
	}
	return nil
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
