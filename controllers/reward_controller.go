package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"loyalty-service/middleware"
	"loyalty-service/models"
	"loyalty-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RewardController handles HTTP requests for reward operations.
type RewardController struct {
	rewardService services.RewardService
}

// NewRewardController creates a new RewardController.
func NewRewardController(rewardService services.RewardService) *RewardController {
	return &RewardController{rewardService: rewardService}
}

// CreateReward handles POST /rewards (admin only).
func (rc *RewardController) CreateReward(ctx *gin.Context) {
	var req models.CreateRewardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	createdBy := middleware.GetUserID(ctx)
	reward, err := rc.rewardService.CreateReward(ctx.Request.Context(), &req, createdBy)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"reward": reward})
}

// ListRewards handles GET /rewards.
func (rc *RewardController) ListRewards(ctx *gin.Context) {
	restaurantID, ok := parseUUIDQuery(ctx, "restaurant_id")
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)

	rewards, total, err := rc.rewardService.ListRewards(ctx.Request.Context(), restaurantID, page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}

	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"rewards": rewards,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
			"has_more":    total > int64(page*limit),
		},
	})
}

// GetReward handles GET /rewards/:id.
func (rc *RewardController) GetReward(ctx *gin.Context) {
	id, ok := parseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	reward, err := rc.rewardService.GetReward(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"reward": reward})
}

// DeactivateReward handles DELETE /rewards/:id (admin only).
func (rc *RewardController) DeactivateReward(ctx *gin.Context) {
	id, ok := parseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := rc.rewardService.DeactivateReward(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Reward deactivated"})
}

// GetRewardAnalytics handles GET /rewards/:id/analytics (admin only).
func (rc *RewardController) GetRewardAnalytics(ctx *gin.Context) {
	id, ok := parseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	analytics, err := rc.rewardService.GetRewardAnalytics(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"analytics": analytics})
}

// CheckEligibility handles GET /rewards/:id/eligibility.
func (rc *RewardController) CheckEligibility(ctx *gin.Context) {
	id, ok := parseUUIDParam(ctx, "id")
	if !ok {
		return
	}
	customerID, ok := parseUUIDQuery(ctx, "customer_id")
	if !ok {
		return
	}

	err := rc.rewardService.CheckEligibility(ctx.Request.Context(), id, customerID)
	if err != nil {
		var ineligible *services.IneligibleError
		if errors.As(err, &ineligible) {
			ctx.JSON(http.StatusOK, gin.H{"eligible": false, "rule": ineligible.Rule})
			return
		}
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"eligible": true})
}

// IssueCoupon handles POST /rewards/:id/issue.
func (rc *RewardController) IssueCoupon(ctx *gin.Context) {
	id, ok := parseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	var req models.IssueCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	opts := services.IssueOptions{VisitMilestone: req.VisitMilestone}
	result, err := rc.rewardService.IssueCoupon(ctx.Request.Context(), id, req.CustomerID, opts)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"coupon": result.Coupon})
}

// SpinWheel handles POST /rewards/:id/spin.
func (rc *RewardController) SpinWheel(ctx *gin.Context) {
	id, ok := parseUUIDParam(ctx, "id")
	if !ok {
		return
	}

	var req models.SpinWheelRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, err := rc.rewardService.SpinWheel(ctx.Request.Context(), id, req.CustomerID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// parseUUIDParam parses a UUID path parameter, writing a 400 on failure.
func parseUUIDParam(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDQuery parses a required UUID query parameter, writing a 400 on
// failure.
func parseUUIDQuery(ctx *gin.Context, name string) (uuid.UUID, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	page := ctx.DefaultQuery("page", "1")
	limit := ctx.DefaultQuery("limit", "10")

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(page); err == nil && p > 0 {
		pageInt = p
	}

	if l, err := strconv.Atoi(limit); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}

	return pageInt, limitInt
}
