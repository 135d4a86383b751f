package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"loyalty-service/controllers"
	"loyalty-service/models"
	"loyalty-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock RewardService ---

type mockRewardService struct {
	createFn      func(ctx context.Context, req *models.CreateRewardRequest, createdBy *uuid.UUID) (*models.Reward, error)
	listFn        func(ctx context.Context, restaurantID uuid.UUID, page, limit int) ([]models.Reward, int64, error)
	getFn         func(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	deactivateFn  func(ctx context.Context, id uuid.UUID) error
	analyticsFn   func(ctx context.Context, id uuid.UUID) (*models.RewardAnalytics, error)
	eligibilityFn func(ctx context.Context, rewardID, customerID uuid.UUID) error
	issueFn       func(ctx context.Context, rewardID, customerID uuid.UUID, opts services.IssueOptions) (*services.IssueResult, error)
	spinFn        func(ctx context.Context, rewardID, customerID uuid.UUID) (*models.SpinWheelResponse, error)
	getCouponFn   func(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Coupon, error)
	redeemFn      func(ctx context.Context, restaurantID uuid.UUID, code string, orderValue float64) (*models.Coupon, error)
}

func (m *mockRewardService) CreateReward(ctx context.Context, req *models.CreateRewardRequest, createdBy *uuid.UUID) (*models.Reward, error) {
	return m.createFn(ctx, req, createdBy)
}
func (m *mockRewardService) ListRewards(ctx context.Context, restaurantID uuid.UUID, page, limit int) ([]models.Reward, int64, error) {
	return m.listFn(ctx, restaurantID, page, limit)
}
func (m *mockRewardService) GetReward(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	return m.getFn(ctx, id)
}
func (m *mockRewardService) DeactivateReward(ctx context.Context, id uuid.UUID) error {
	return m.deactivateFn(ctx, id)
}
func (m *mockRewardService) GetRewardAnalytics(ctx context.Context, id uuid.UUID) (*models.RewardAnalytics, error) {
	return m.analyticsFn(ctx, id)
}
func (m *mockRewardService) CheckEligibility(ctx context.Context, rewardID, customerID uuid.UUID) error {
	return m.eligibilityFn(ctx, rewardID, customerID)
}
func (m *mockRewardService) IssueCoupon(ctx context.Context, rewardID, customerID uuid.UUID, opts services.IssueOptions) (*services.IssueResult, error) {
	return m.issueFn(ctx, rewardID, customerID, opts)
}
func (m *mockRewardService) SpinWheel(ctx context.Context, rewardID, customerID uuid.UUID) (*models.SpinWheelResponse, error) {
	return m.spinFn(ctx, rewardID, customerID)
}
func (m *mockRewardService) GetCoupon(ctx context.Context, restaurantID uuid.UUID, code string) (*models.Coupon, error) {
	return m.getCouponFn(ctx, restaurantID, code)
}
func (m *mockRewardService) RedeemCoupon(ctx context.Context, restaurantID uuid.UUID, code string, orderValue float64) (*models.Coupon, error) {
	return m.redeemFn(ctx, restaurantID, code, orderValue)
}

// --- Helpers ---

// newTestRouter registers the handlers without the auth middleware so
// tests exercise the controller layer alone.
func newTestRouter(svc services.RewardService) *gin.Engine {
	r := gin.New()
	rc := controllers.NewRewardController(svc)
	cc := controllers.NewCouponController(svc)

	r.POST("/rewards", rc.CreateReward)
	r.GET("/rewards/:id", rc.GetReward)
	r.GET("/rewards/:id/eligibility", rc.CheckEligibility)
	r.POST("/rewards/:id/issue", rc.IssueCoupon)
	r.POST("/rewards/:id/spin", rc.SpinWheel)
	r.GET("/coupons/:code", cc.GetCoupon)
	r.POST("/coupons/:code/redeem", cc.RedeemCoupon)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestController_IssueCoupon_Created(t *testing.T) {
	rewardID := uuid.New()
	customerID := uuid.New()
	svc := &mockRewardService{
		issueFn: func(_ context.Context, rid, cid uuid.UUID, opts services.IssueOptions) (*services.IssueResult, error) {
			assert.Equal(t, rewardID, rid)
			assert.Equal(t, customerID, cid)
			assert.True(t, opts.VisitMilestone)
			return &services.IssueResult{Coupon: &models.Coupon{Code: "ANA1234"}}, nil
		},
	}

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/rewards/"+rewardID.String()+"/issue",
		models.IssueCouponRequest{CustomerID: customerID, VisitMilestone: true})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "ANA1234")
}

func TestController_IssueCoupon_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"reward not found", services.ErrRewardNotFound, http.StatusNotFound},
		{"customer not found", services.ErrCustomerNotFound, http.StatusNotFound},
		{"ineligible", &services.IneligibleError{Rule: services.RulePerCustomerLimit}, http.StatusForbidden},
		{"exhausted", services.ErrRewardExhausted, http.StatusConflict},
		{"code conflict", services.ErrCodeConflict, http.StatusConflict},
		{"misconfigured", &services.ConfigError{Reason: "wheel has no items"}, http.StatusUnprocessableEntity},
		{"validation", &services.ValidationError{Message: "bad input"}, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRewardService{
				issueFn: func(_ context.Context, _, _ uuid.UUID, _ services.IssueOptions) (*services.IssueResult, error) {
					return nil, tc.err
				},
			}

			w := doJSON(t, newTestRouter(svc), http.MethodPost, "/rewards/"+uuid.NewString()+"/issue",
				models.IssueCouponRequest{CustomerID: uuid.New()})
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestController_IssueCoupon_InvalidBody(t *testing.T) {
	svc := &mockRewardService{}
	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/rewards/"+uuid.NewString()+"/issue",
		map[string]string{"customer_id": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_IssueCoupon_InvalidRewardID(t *testing.T) {
	svc := &mockRewardService{}
	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/rewards/not-a-uuid/issue",
		models.IssueCouponRequest{CustomerID: uuid.New()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_CheckEligibility_IneligibleIsStillOK(t *testing.T) {
	svc := &mockRewardService{
		eligibilityFn: func(_ context.Context, _, _ uuid.UUID) error {
			return &services.IneligibleError{Rule: services.RuleExpired}
		},
	}

	path := "/rewards/" + uuid.NewString() + "/eligibility?customer_id=" + uuid.NewString()
	w := doJSON(t, newTestRouter(svc), http.MethodGet, path, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["eligible"])
	assert.Equal(t, services.RuleExpired, body["rule"])
}

func TestController_CheckEligibility_MissingCustomerID(t *testing.T) {
	svc := &mockRewardService{}
	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/rewards/"+uuid.NewString()+"/eligibility", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_SpinWheel_ReturnsWinningIndex(t *testing.T) {
	svc := &mockRewardService{
		spinFn: func(_ context.Context, _, _ uuid.UUID) (*models.SpinWheelResponse, error) {
			return &models.SpinWheelResponse{
				WonItem:      models.WheelItem{Title: "Free Coffee"},
				WinningIndex: 2,
				Coupon:       models.CouponSummary{Code: "ANA1234"},
			}, nil
		},
	}

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/rewards/"+uuid.NewString()+"/spin",
		models.SpinWheelRequest{CustomerID: uuid.New()})

	assert.Equal(t, http.StatusCreated, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["winning_index"])
}

func TestController_RedeemCoupon_OK(t *testing.T) {
	restaurantID := uuid.New()
	svc := &mockRewardService{
		redeemFn: func(_ context.Context, rid uuid.UUID, code string, orderValue float64) (*models.Coupon, error) {
			assert.Equal(t, restaurantID, rid)
			assert.Equal(t, "ANA1234", code)
			assert.Equal(t, 55.0, orderValue)
			return &models.Coupon{Code: code, Status: models.CouponStatusRedeemed}, nil
		},
	}

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/coupons/ANA1234/redeem",
		models.RedeemCouponRequest{RestaurantID: restaurantID, OrderValue: 55})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "redeemed")
}

func TestController_GetCoupon_RequiresRestaurantID(t *testing.T) {
	svc := &mockRewardService{}
	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/coupons/ANA1234", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_GetCoupon_NotFound(t *testing.T) {
	svc := &mockRewardService{
		getCouponFn: func(_ context.Context, _ uuid.UUID, _ string) (*models.Coupon, error) {
			return nil, services.ErrCouponNotFound
		},
	}

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/coupons/NOPE?restaurant_id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
