package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a restaurant patron as the redemption engine sees them:
// identity, display name for coupon codes, and the running stats the
// trigger predicates read.
type Customer struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Email        string    `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone        string    `gorm:"type:varchar(32)" json:"phone,omitempty"`

	TotalVisits     int        `gorm:"not null;default:0" json:"total_visits"`
	TotalSpent      float64    `gorm:"not null;default:0" json:"total_spent"`
	CustomerSegment string     `gorm:"type:varchar(64)" json:"customer_segment,omitempty"`
	LoyaltyPoints   int        `gorm:"not null;default:0" json:"loyalty_points"`
	LastVisit       *time.Time `json:"last_visit,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
