// Package payment implements the admission and settlement engine: the
// transaction model and state machine, the concurrent store, the circuit
// breaker guarded risk scorer and the settlement worker pool.
package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment.
type Status string

const (
	StatusPending       Status = "pending"
	StatusProcessing    Status = "processing"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
	StatusFraudDetected Status = "fraud_detected"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusFraudDetected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusFraudDetected:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next. Processing re-enters itself on every retry attempt; terminal states
// allow nothing.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFraudDetected
	case StatusProcessing:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Method is the payment instrument used by the customer.
type Method string

const (
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodUSSD         Method = "ussd"
	MethodQRCode       Method = "qr_code"
)

// Methods lists every supported payment method.
func Methods() []Method {
	return []Method{MethodCard, MethodBankTransfer, MethodUSSD, MethodQRCode}
}

// IsValid reports whether m is one of the supported methods.
func (m Method) IsValid() bool {
	switch m {
	case MethodCard, MethodBankTransfer, MethodUSSD, MethodQRCode:
		return true
	default:
		return false
	}
}

// DefaultCurrency is applied when a creation request omits the currency code.
const DefaultCurrency = "NGN"

// Payment is a transaction record. The ID is assigned once at admission and
// never reused; Status is the only field mutated after creation.
type Payment struct {
	ID                  string          `json:"transaction_id"`
	Status              Status          `json:"status"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Method              Method          `json:"method"`
	CustomerID          string          `json:"customer_id"`
	MerchantID          string          `json:"merchant_id"`
	Description         string          `json:"description,omitempty"`
	CallbackURL         string          `json:"callback_url,omitempty"`
	RiskScore           float64         `json:"risk_score"`
	CreatedAt           time.Time       `json:"created_at"`
	EstimatedCompletion *time.Time      `json:"estimated_completion,omitempty"`
}

// Sentinel errors of the engine. Callers classify failures with errors.Is;
// the HTTP layer maps them onto status codes.
var (
	// ErrValidation rejects malformed admission input before any state exists.
	ErrValidation = errors.New("invalid payment input")
	// ErrUnavailable surfaces a scorer failure or an open circuit breaker at
	// admission time. No record is created; the caller may retry.
	ErrUnavailable = errors.New("risk service unavailable")
	// ErrNotFound reports an unknown transaction id.
	ErrNotFound = errors.New("payment not found")
	// ErrAlreadyExists reports an id collision on create, which indicates an
	// invariant violation in id generation.
	ErrAlreadyExists = errors.New("payment already exists")
	// ErrInvalidTransition reports a status update the state machine forbids,
	// including any attempt to leave a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)
