package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponStatus is the lifecycle state of an issued coupon.
type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusRedeemed CouponStatus = "redeemed"
	CouponStatusExpired  CouponStatus = "expired"
	CouponStatusInactive CouponStatus = "inactive"
)

// Coupon is an issued, customer-specific redemption of a reward. The
// title/description/value/reward_type fields are a snapshot taken at
// issuance time and never change afterwards; later edits to the reward
// do not touch issued coupons. Codes are unique per restaurant.
type Coupon struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_coupons_code_restaurant" json:"code"`
	RestaurantID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_coupons_code_restaurant" json:"restaurant_id"`
	RewardID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"reward_id"`
	CustomerID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`

	Title       string     `gorm:"type:varchar(255)" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Value       float64    `json:"value"`
	RewardType  RewardType `gorm:"type:varchar(32);not null" json:"reward_type"`

	Status     CouponStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	RedeemedAt *time.Time   `json:"redeemed_at,omitempty"`
	OrderValue *float64     `json:"order_value,omitempty"` // recorded at redemption

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsExpired reports whether the coupon's expiry has passed at the given time.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CouponSummary is the customer-facing slice of an issued coupon.
type CouponSummary struct {
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Value       float64    `json:"value"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Summary projects the coupon into its customer-facing form.
func (c *Coupon) Summary() CouponSummary {
	return CouponSummary{
		Code:        c.Code,
		Title:       c.Title,
		Description: c.Description,
		Value:       c.Value,
		ExpiresAt:   c.ExpiresAt,
	}
}

// IssueCouponRequest is the payload for manual coupon issuance.
type IssueCouponRequest struct {
	CustomerID uuid.UUID `json:"customer_id" binding:"required"`
	// VisitMilestone marks issuances whose one-per-visit rule was already
	// enforced upstream; the generic per-customer cap is skipped.
	VisitMilestone bool `json:"visit_milestone"`
}

// SpinWheelRequest is the payload for a wheel redemption.
type SpinWheelRequest struct {
	CustomerID uuid.UUID `json:"customer_id" binding:"required"`
}

// SpinWheelResponse tells the caller what was won separately from the
// coupon that records it.
type SpinWheelResponse struct {
	WonItem      WheelItem     `json:"won_item"`
	WinningIndex int           `json:"winning_index"`
	Coupon       CouponSummary `json:"coupon"`
}

// RedeemCouponRequest is the payload for redeeming a coupon.
type RedeemCouponRequest struct {
	RestaurantID uuid.UUID `json:"restaurant_id" binding:"required"`
	OrderValue   float64   `json:"order_value" binding:"gte=0"`
}

// CouponIssuedEvent is published to SNS when a coupon is issued.
type CouponIssuedEvent struct {
	EventType    string    `json:"event_type"`
	CouponID     string    `json:"coupon_id"`
	CouponCode   string    `json:"coupon_code"`
	RewardID     string    `json:"reward_id"`
	RestaurantID string    `json:"restaurant_id"`
	CustomerID   string    `json:"customer_id,omitempty"`
	RewardType   string    `json:"reward_type"`
	Value        float64   `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
}

// CouponRedeemedEvent is published to SNS when a coupon is redeemed.
type CouponRedeemedEvent struct {
	EventType    string    `json:"event_type"`
	CouponID     string    `json:"coupon_id"`
	CouponCode   string    `json:"coupon_code"`
	RewardID     string    `json:"reward_id"`
	RestaurantID string    `json:"restaurant_id"`
	OrderValue   float64   `json:"order_value"`
	Timestamp    time.Time `json:"timestamp"`
}
