package controllers

import (
	"errors"
	"net/http"

	"loyalty-service/services"

	"github.com/gin-gonic/gin"
)

// respondError translates service-layer errors into HTTP responses.
// Anything unrecognized is a 500 with the detail withheld.
func respondError(ctx *gin.Context, err error) {
	var ineligible *services.IneligibleError
	var configErr *services.ConfigError
	var validationErr *services.ValidationError

	switch {
	case errors.Is(err, services.ErrRewardNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Reward not found"})
	case errors.Is(err, services.ErrCustomerNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
	case errors.Is(err, services.ErrCouponNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
	case errors.Is(err, services.ErrRewardExhausted):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Reward usage limit reached"})
	case errors.Is(err, services.ErrCodeConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": "Could not generate a unique coupon code"})
	case errors.As(err, &ineligible):
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Customer is not eligible", "rule": ineligible.Rule})
	case errors.As(err, &configErr):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Reward misconfigured", "details": configErr.Reason})
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
