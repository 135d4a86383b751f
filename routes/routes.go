package routes

import (
	"loyalty-service/controllers"
	"loyalty-service/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRewardRoutes sets up all reward-related routes.
func RegisterRewardRoutes(r *gin.Engine, rc *controllers.RewardController) {
	rewardRoutes := r.Group("/rewards")

	// Public / internal routes (protected by auth middleware)
	rewardRoutes.Use(middleware.AuthMiddleware())
	rewardRoutes.GET("", rc.ListRewards)
	rewardRoutes.GET("/:id", rc.GetReward)
	rewardRoutes.GET("/:id/eligibility", rc.CheckEligibility)
	rewardRoutes.POST("/:id/issue", rc.IssueCoupon)
	rewardRoutes.POST("/:id/spin", rc.SpinWheel)

	// Admin-only routes
	adminRoutes := rewardRoutes.Group("")
	adminRoutes.Use(middleware.AdminOnly())
	adminRoutes.POST("", rc.CreateReward)
	adminRoutes.DELETE("/:id", rc.DeactivateReward)
	adminRoutes.GET("/:id/analytics", rc.GetRewardAnalytics)
}

// RegisterCouponRoutes sets up all coupon-related routes.
func RegisterCouponRoutes(r *gin.Engine, cc *controllers.CouponController) {
	couponRoutes := r.Group("/coupons")

	couponRoutes.Use(middleware.AuthMiddleware())
	couponRoutes.GET("/:code", cc.GetCoupon)
	couponRoutes.POST("/:code/redeem", cc.RedeemCoupon)
}

// RegisterEventRoutes sets up the trigger-event routes.
func RegisterEventRoutes(r *gin.Engine, ec *controllers.EventController) {
	eventRoutes := r.Group("/events")

	eventRoutes.Use(middleware.AuthMiddleware())
	eventRoutes.POST("/feedback", ec.HandleFeedback)
}
