package models

import "time"

const (
	TransactionStatusPending = "pending"
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

const (
	TransactionTypeSubscription = "subscription"
	TransactionTypeTopup        = "topup"
)

const PaymentMethodXendit = "xendit"

// Transaction is one payment attempt. ExternalReference holds the payment
// gateway's invoice id once the invoice exists and is the idempotency key for
// reconciliation; it is unique and never reassigned. A transaction reaches a
// terminal status (success/failed) at most once.
type Transaction struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	SubscriptionID    *uint      `gorm:"index" json:"subscription_id,omitempty"`
	Type              string     `gorm:"type:varchar(30);not null;default:'subscription'" json:"type"`
	Amount            int64      `gorm:"not null" json:"amount"`
	Status            string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod     string     `gorm:"type:varchar(50)" json:"payment_method"`
	PaymentChannel    string     `gorm:"type:varchar(50)" json:"payment_channel"`
	ExternalReference string     `gorm:"type:varchar(191);default:null;uniqueIndex" json:"external_reference"`
	Description       string     `gorm:"type:varchar(255)" json:"description"`
	Metadata          string     `gorm:"type:longtext" json:"metadata,omitempty"`
	SettledAt         *time.Time `gorm:"type:timestamp;default:null" json:"settled_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"subscription,omitempty"`
}

// IsTerminal reports whether the transaction already reached a final status.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}
