package xendit

import (
	"errors"
	"fmt"
	"strings"
)

// InvoiceCustomer identifies the payer on the gateway-hosted invoice page.
type InvoiceCustomer struct {
	GivenNames   string `json:"given_names"`
	Email        string `json:"email,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

// CreateInvoiceParams is the invoice creation request body.
type CreateInvoiceParams struct {
	ExternalID         string          `json:"external_id"`
	Amount             int64           `json:"amount"`
	Description        string          `json:"description"`
	Customer           InvoiceCustomer `json:"customer"`
	SuccessRedirectURL string          `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string          `json:"failure_redirect_url,omitempty"`
	Currency           string          `json:"currency,omitempty"`
	ShouldSendEmail    bool            `json:"should_send_email,omitempty"`
}

// Invoice is the gateway's invoice resource. ID is the gateway-assigned
// invoice id that becomes the transaction's external reference.
type Invoice struct {
	ID             string `json:"id"`
	ExternalID     string `json:"external_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	InvoiceURL     string `json:"invoice_url"`
	ExpiryDate     string `json:"expiry_date"`
	Description    string `json:"description"`
	PaidAmount     int64  `json:"paid_amount,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty"`
	PaymentChannel string `json:"payment_channel,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// CallbackPayload is the webhook notification body the gateway posts on
// invoice settlement. ID is the gateway invoice id; ExternalID echoes the
// reference we supplied at creation.
type CallbackPayload struct {
	ID             string `json:"id"`
	ExternalID     string `json:"external_id"`
	Status         string `json:"status"`
	PaidAmount     int64  `json:"paid_amount"`
	PaymentMethod  string `json:"payment_method"`
	PaymentChannel string `json:"payment_channel"`
}

// IsPaid reports whether the callback status normalizes to a settled payment.
func (p *CallbackPayload) IsPaid() bool {
	switch strings.ToUpper(strings.TrimSpace(p.Status)) {
	case "PAID", "SETTLED":
		return true
	default:
		return false
	}
}

// ErrorKind distinguishes gateway failure classes.
type ErrorKind string

const (
	KindConnectivity   ErrorKind = "connectivity"
	KindAuthentication ErrorKind = "authentication"
	KindGateway        ErrorKind = "gateway"
)

// Error is the typed failure returned by every gateway operation.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("xendit %s: %s failed: status=%d %s", e.Kind, e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("xendit %s: %s failed: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("xendit %s: %s failed: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is a transport-level gateway failure.
func IsConnectivity(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConnectivity
}

// IsAuthentication reports whether err is an API credential failure.
func IsAuthentication(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindAuthentication
}
