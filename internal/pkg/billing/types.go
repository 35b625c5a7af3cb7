package billing

import (
	"context"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
)

// Gateway is the payment-processor surface the billing service depends on.
// *xendit.Client satisfies it; tests substitute fakes.
type Gateway interface {
	CreateInvoice(ctx context.Context, params xendit.CreateInvoiceParams) (*xendit.Invoice, error)
	VerifyCallbackToken(token string) bool
}

// DeviceAccount is one provisioning unit on the access device: service is
// models.ServiceTypePPPoE or models.ServiceTypeHotspot.
type DeviceAccount struct {
	Service  string `json:"service"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Profile  string `json:"profile"`
	Comment  string `json:"comment"`
}

// Provisioner ensures device accounts exist. Implementations must be safe to
// call twice with the same account name.
type Provisioner interface {
	EnsureAccount(ctx context.Context, account DeviceAccount) error
	DisableAccount(ctx context.Context, service, name string) error
}

// RetryEnqueuer parks a failed provisioning attempt on a durable queue for
// background retry. A nil enqueuer leaves only the operational log trail.
type RetryEnqueuer interface {
	EnqueueProvision(subscriptionID, userID uint, accounts []DeviceAccount) error
}

// CreateSubscriptionInput is the subscription purchase request.
type CreateSubscriptionInput struct {
	UserID        uint   `json:"user_id" validate:"required"`
	PackageID     uint   `json:"package_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=xendit"`
}

// Checkout is the creation-flow result: the pending records plus the invoice
// the caller should redirect the payer to.
type Checkout struct {
	Subscription *models.Subscription `json:"subscription"`
	Transaction  *models.Transaction  `json:"transaction"`
	InvoiceURL   string               `json:"invoice_url"`
	ExpiryDate   string               `json:"expiry_date"`
}

// CallbackResult describes what a webhook delivery actually did. The webhook
// handler acknowledges with 200 for every variant; the flags exist for logs
// and tests.
type CallbackResult struct {
	TransactionID     uint
	TransactionStatus string
	Duplicate         bool
	AlreadySettled    bool
	Provisioned       bool
	ProvisioningError error
}
