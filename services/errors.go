package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the redemption engine. Controllers translate these
// into HTTP status codes.
var (
	ErrRewardNotFound   = errors.New("reward not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCouponNotFound   = errors.New("coupon not found")
	// ErrRewardExhausted means the usage reservation lost: the total uses
	// limit was reached, possibly by a concurrent issuance.
	ErrRewardExhausted = errors.New("reward usage limit exhausted")
	// ErrCodeConflict means every code-generation attempt collided with an
	// existing coupon code.
	ErrCodeConflict = errors.New("coupon code generation conflicts exhausted")
)

// IneligibleError reports which eligibility rule rejected the customer.
type IneligibleError struct {
	Rule string
}

func (e *IneligibleError) Error() string {
	return "customer not eligible for reward: " + e.Rule
}

// Eligibility rule names carried by IneligibleError.
const (
	RuleInactive         = "inactive"
	RuleNotStarted       = "not_started"
	RuleExpired          = "expired"
	RuleExhausted        = "exhausted"
	RuleCustomerScope    = "customer_scope"
	RulePerCustomerLimit = "per_customer_limit"
	RuleCouponNotActive  = "coupon_not_active"
	RuleCouponExpired    = "coupon_expired"
)

// ConfigError reports a reward definition that cannot be redeemed, such
// as a wheel with no items or non-positive total probability.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid reward configuration: " + e.Reason
}

// ValidationError reports malformed caller input rejected before any
// evaluation happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
