package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/member-portal/internal/api/metrics"
	"github.com/99minutos/member-portal/internal/core/domain"
	"github.com/99minutos/member-portal/internal/core/ports"
)

// BillingHandler serves the pricing checkout.
type BillingHandler struct {
	billingService ports.BillingService
}

func NewBillingHandler(billingService ports.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// Config returns what the checkout widget needs to initialise.
//
// @Summary      Checkout configuration
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  billingConfigResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/billing/config [get]
func (h *BillingHandler) Config(c echo.Context) error {
	cfg := h.billingService.Config()

	prices := make(map[string]string, len(cfg.Plans))
	for tier, id := range cfg.Plans {
		prices[string(tier)] = id
	}
	return c.JSON(http.StatusOK, billingConfigResponse{
		ClientToken: cfg.ClientToken,
		Environment: cfg.Environment,
		Prices:      prices,
	})
}

// Checkout opens a transaction for the selected plan and billing period.
//
// @Summary      Open checkout
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      checkoutRequest  true  "Plan and period"
// @Success      201   {object}  checkoutResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/billing/checkout [post]
func (h *BillingHandler) Checkout(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req checkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.billingService.Checkout(c.Request().Context(), me.Email, req.Plan, domain.BillingPeriod(req.Period))
	if err != nil {
		return err
	}

	metrics.CheckoutsTotal.Inc()
	return c.JSON(http.StatusCreated, checkoutResponse{
		TransactionID: session.TransactionID,
		PriceID:       session.PriceID,
		PaymentType:   string(session.Tier),
	})
}

// Confirm applies the purchased tier once the provider reports payment and
// returns a refreshed session.
//
// @Summary      Confirm checkout
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      confirmRequest  true  "Transaction"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  errorResponse
// @Failure      402   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/billing/confirm [post]
func (h *BillingHandler) Confirm(c echo.Context) error {
	me, err := currentUser(c)
	if err != nil {
		return err
	}
	var req confirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.billingService.Confirm(c.Request().Context(), me.Email, req.TransactionID)
	if err != nil {
		return err
	}

	metrics.TierChangesTotal.WithLabelValues(string(res.User.Tier), "checkout").Inc()
	return c.JSON(http.StatusOK, sessionResponse{User: res.User, Token: res.Token})
}
