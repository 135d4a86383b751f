package controllers

import (
	"net/http"

	"loyalty-service/models"
	"loyalty-service/services"

	"github.com/gin-gonic/gin"
)

// CouponController handles HTTP requests for issued-coupon operations.
type CouponController struct {
	rewardService services.RewardService
}

// NewCouponController creates a new CouponController.
func NewCouponController(rewardService services.RewardService) *CouponController {
	return &CouponController{rewardService: rewardService}
}

// GetCoupon handles GET /coupons/:code.
func (cc *CouponController) GetCoupon(ctx *gin.Context) {
	code := ctx.Param("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Coupon code is required"})
		return
	}
	restaurantID, ok := parseUUIDQuery(ctx, "restaurant_id")
	if !ok {
		return
	}

	coupon, err := cc.rewardService.GetCoupon(ctx.Request.Context(), restaurantID, code)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

// RedeemCoupon handles POST /coupons/:code/redeem (called at checkout).
func (cc *CouponController) RedeemCoupon(ctx *gin.Context) {
	code := ctx.Param("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Coupon code is required"})
		return
	}

	var req models.RedeemCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	coupon, err := cc.rewardService.RedeemCoupon(ctx.Request.Context(), req.RestaurantID, code, req.OrderValue)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"coupon": coupon})
}
