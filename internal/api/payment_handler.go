// Package api exposes the engine's three commands over HTTP, plus the
// health, ping and version endpoints the platform expects.
package api

import (
	"context"
	"errors"

	"github.com/LerianStudio/payment-engine/internal/payment"
	"github.com/LerianStudio/payment-engine/pkg/log"
	libHTTP "github.com/LerianStudio/payment-engine/pkg/net/http"
	"github.com/LerianStudio/payment-engine/pkg/pointers"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// PaymentService is the engine surface the routing layer consumes.
type PaymentService interface {
	Create(ctx context.Context, input payment.CreateInput) (payment.Payment, error)
	Get(ctx context.Context, id string) (payment.Payment, error)
	List(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error)
}

// CreatePaymentRequest is the wire shape of a payment creation call.
type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,positive_decimal"`
	Currency    string          `json:"currency" validate:"omitempty,max=8"`
	Method      string          `json:"method" validate:"required,oneof=card bank_transfer ussd qr_code"`
	CustomerID  string          `json:"customer_id" validate:"required,max=255"`
	MerchantID  string          `json:"merchant_id" validate:"required,max=255"`
	Description string          `json:"description" validate:"omitempty,max=1024"`
	CallbackURL string          `json:"callback_url" validate:"omitempty,url"`
}

// ListPaymentsResponse wraps a listing with the count of returned records.
type ListPaymentsResponse struct {
	Payments []payment.Payment `json:"payments"`
	Total    int               `json:"total"`
}

// PaymentHandler adapts HTTP requests onto the payment service.
type PaymentHandler struct {
	service PaymentService
}

// NewPaymentHandler wires the handler to the engine.
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Create handles POST /payments. The full record is returned synchronously,
// including fraud_detected admissions; the caller never waits on settlement.
func (h *PaymentHandler) Create(c *fiber.Ctx) error {
	var req CreatePaymentRequest

	if err := libHTTP.ParseBodyAndValidate(c, &req); err != nil {
		return libHTTP.BadRequestError(c, "validation_error", err.Error())
	}

	pmt, err := h.service.Create(c.UserContext(), payment.CreateInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Method:      payment.Method(req.Method),
		CustomerID:  req.CustomerID,
		MerchantID:  req.MerchantID,
		Description: req.Description,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return h.renderServiceError(c, err)
	}

	return libHTTP.Created(c, pmt)
}

// GetByID handles GET /payments/:id.
func (h *PaymentHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")

	pmt, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.renderServiceError(c, err)
	}

	return libHTTP.OK(c, pmt)
}

// List handles GET /payments with optional status, customer_id and limit
// query parameters. Total is the length of the truncated result.
func (h *PaymentHandler) List(c *fiber.Ctx) error {
	filter := payment.ListFilter{
		CustomerID: c.Query("customer_id"),
		Limit:      c.QueryInt("limit"),
	}

	if err := libHTTP.ValidateQueryParamLength(filter.CustomerID, "customer_id", libHTTP.MaxQueryParamLengthLong); err != nil {
		return libHTTP.BadRequestError(c, "validation_error", err.Error())
	}

	if raw := c.Query("status"); raw != "" {
		if err := libHTTP.ValidateQueryParamLength(raw, "status", libHTTP.MaxQueryParamLengthShort); err != nil {
			return libHTTP.BadRequestError(c, "validation_error", err.Error())
		}

		filter.Status = pointers.Ptr(payment.Status(raw))
	}

	payments, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return h.renderServiceError(c, err)
	}

	return libHTTP.OK(c, ListPaymentsResponse{
		Payments: payments,
		Total:    len(payments),
	})
}

// renderServiceError maps the engine's error taxonomy onto HTTP responses.
// Unknown errors get a generic 500 body; details go to the log only.
func (h *PaymentHandler) renderServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrValidation):
		return libHTTP.BadRequestError(c, "validation_error", err.Error())
	case errors.Is(err, payment.ErrNotFound):
		return libHTTP.NotFoundError(c, "payment_not_found", "Payment not found")
	case errors.Is(err, payment.ErrUnavailable):
		return libHTTP.ServiceUnavailableError(c, "service_unavailable", "Service temporarily unavailable")
	default:
		log.NewLoggerFromContext(c.UserContext()).Errorf("payment request failed: %v", err)

		return libHTTP.InternalServerError(c)
	}
}
