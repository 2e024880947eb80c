package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
)

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

type selectPlanRequest struct {
	EmployerID string                 `json:"employerId"`
	PlanSlug   string                 `json:"planSlug"`
	Contact    *billingdomain.Contact `json:"contact"`
}

// SelectPlan is the third onboarding step.
func (s *Server) SelectPlan(c *gin.Context) {
	var req selectPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, invalidRequestError(), "employerId & planSlug required")
		return
	}

	employerID, err := snowflake.ParseString(strings.TrimSpace(req.EmployerID))
	if err != nil || employerID == 0 || strings.TrimSpace(req.PlanSlug) == "" {
		respondMessage(c, http.StatusBadRequest, ErrInvalidRequest, "employerId & planSlug required")
		return
	}

	result, err := s.billingSvc.SelectPlan(c.Request.Context(), billingdomain.SelectPlanRequest{
		EmployerID: employerID,
		PlanSlug:   req.PlanSlug,
		Contact:    req.Contact,
	})
	if err != nil {
		switch {
		case errors.Is(err, billingdomain.ErrEmployerNotFound):
			respondMessage(c, http.StatusNotFound, err, "Employer not found")
		case errors.Is(err, billingdomain.ErrPlanUnavailable):
			respondMessage(c, http.StatusBadRequest, err, "Plan not available")
		default:
			AbortWithError(c, err)
		}
		return
	}

	resp := gin.H{"ok": true, "mode": result.Mode}
	if result.TrialEndsAt != nil {
		resp["trialEndsAt"] = result.TrialEndsAt
	}
	if result.PremiumUntil != nil {
		resp["premiumUntil"] = result.PremiumUntil
	}
	c.JSON(http.StatusOK, resp)
}

type checkoutRequest struct {
	PlanID          string                  `json:"planId"`
	EmployerID      *string                 `json:"employerId"`
	UserID          string                  `json:"userId"`
	Customer        *paymentdomain.Customer `json:"customer"`
	EnabledPayments []string                `json:"enabledPayments"`
	Provider        string                  `json:"provider"`
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, invalidRequestError(), "Invalid params: planId required")
		return
	}

	checkout := paymentdomain.CheckoutRequest{
		PlanID:          strings.TrimSpace(req.PlanID),
		UserID:          strings.TrimSpace(req.UserID),
		Customer:        req.Customer,
		EnabledPayments: req.EnabledPayments,
		Provider:        req.Provider,
	}
	if req.EmployerID != nil && strings.TrimSpace(*req.EmployerID) != "" {
		employerID, err := snowflake.ParseString(strings.TrimSpace(*req.EmployerID))
		if err != nil || employerID == 0 {
			respondMessage(c, http.StatusBadRequest, paymentdomain.ErrInvalidEmployerID, "Invalid params: employerId")
			return
		}
		checkout.EmployerID = &employerID
	}

	result, err := s.paymentSvc.CreateCheckout(c.Request.Context(), checkout)
	if err != nil {
		var gwErr *paymentdomain.GatewayError
		switch {
		case errors.Is(err, paymentdomain.ErrInvalidPlan):
			respondMessage(c, http.StatusBadRequest, err, "Invalid params: planId required")
		case errors.Is(err, paymentdomain.ErrPlanNotFound):
			respondMessage(c, http.StatusBadRequest, err, "Plan not available")
		case errors.Is(err, paymentdomain.ErrFreePlan):
			respondMessage(c, http.StatusBadRequest, err, "Free plan does not require checkout")
		case errors.Is(err, paymentdomain.ErrProviderNotFound):
			respondMessage(c, http.StatusBadRequest, err, "Payment provider not available")
		case errors.As(err, &gwErr):
			respondMessage(c, http.StatusInternalServerError, err, gwErr.Error())
		default:
			respondMessage(c, http.StatusInternalServerError, err, "Internal error")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) GetPayment(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("orderId"))
	if orderID == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	detail, err := s.paymentSvc.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (s *Server) ListPayments(c *gin.Context) {
	take := 0
	if raw := strings.TrimSpace(c.Query("take")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, newValidationError("take", "invalid_take", "take must be a number"))
			return
		}
		take = parsed
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListRequest{
		Status: strings.TrimSpace(c.Query("status")),
		Cursor: strings.TrimSpace(c.Query("cursor")),
		Take:   take,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
