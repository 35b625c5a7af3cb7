package models

import "time"

const (
	SubscriptionStatusPending = "pending"
	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"
)

// Subscription binds a user to a package for one billing period.
//
// RouterUsername/RouterPassword are the provisioning credentials allocated at
// subscription creation, before payment settles. They are immutable for the
// life of the subscription: reconciliation reuses them verbatim so that a
// retried paid invoice can never create a second, conflicting device account.
type Subscription struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"`
	PackageID      uint       `gorm:"not null;index" json:"package_id"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartDate      time.Time  `gorm:"not null" json:"start_date"`
	EndDate        time.Time  `gorm:"not null;index" json:"end_date"`
	LastRenewal    *time.Time `gorm:"type:timestamp;default:null" json:"last_renewal,omitempty"`
	RouterUsername string     `gorm:"type:varchar(100);not null;index" json:"router_username"`
	RouterPassword string     `gorm:"type:varchar(100);not null" json:"-"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Package *Package `gorm:"foreignKey:PackageID" json:"package,omitempty"`
}

// IsPending reports whether the subscription still awaits payment settlement.
// A subscription may stay pending forever if the invoice never settles.
func (s *Subscription) IsPending() bool {
	return s.Status == SubscriptionStatusPending
}

// IsExpiredAt reports whether an active subscription has passed its end date.
func (s *Subscription) IsExpiredAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && now.After(s.EndDate)
}
