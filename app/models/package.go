package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Service types a package can provision on the access device.
const (
	ServiceTypePPPoE   = "pppoe"
	ServiceTypeHotspot = "hotspot"
	ServiceTypeBoth    = "both"
)

// Package is a sellable internet access plan. Prices are whole IDR. Packages
// are immutable in normal operation; deactivate instead of editing.
type Package struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Description   string         `gorm:"type:text" json:"description"`
	ServiceType   string         `gorm:"type:varchar(20);not null;index" json:"service_type" validate:"oneof=pppoe hotspot both"`
	Price         int64          `gorm:"not null" json:"price" validate:"gt=0"`
	DurationDays  int            `gorm:"not null" json:"duration_days" validate:"gt=0"`
	DataLimitMB   *int64         `gorm:"default:null" json:"data_limit_mb,omitempty"`
	SpeedLimit    string         `gorm:"type:varchar(50)" json:"speed_limit"`
	RouterProfile string         `gorm:"type:varchar(100);not null;default:'default'" json:"router_profile"`
	IsActive      bool           `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Package) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// ProvisionsPPPoE reports whether the package implies a PPPoE account.
func (p *Package) ProvisionsPPPoE() bool {
	return p.ServiceType == ServiceTypePPPoE || p.ServiceType == ServiceTypeBoth
}

// ProvisionsHotspot reports whether the package implies a hotspot account.
func (p *Package) ProvisionsHotspot() bool {
	return p.ServiceType == ServiceTypeHotspot || p.ServiceType == ServiceTypeBoth
}
