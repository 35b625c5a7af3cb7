package models

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// RouterConfig holds connection settings for a RouterOS access device. At most
// one config is active; activating one deactivates the others and the cached
// device client must be invalidated so the next call re-resolves lazily.
type RouterConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name" validate:"required,min=2,max=100"`
	Host      string    `gorm:"type:varchar(255);not null" json:"host" validate:"required"`
	Port      int       `gorm:"not null;default:443" json:"port" validate:"gt=0,lte=65535"`
	Username  string    `gorm:"type:varchar(100);not null" json:"username" validate:"required"`
	Password  string    `gorm:"type:varchar(200);not null" json:"-" validate:"required"`
	UseSSL    bool      `gorm:"not null;default:true" json:"use_ssl"`
	IsActive  bool      `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *RouterConfig) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// BaseURL returns the REST endpoint root for this device.
func (c *RouterConfig) BaseURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.Host + ":" + strconv.Itoa(c.Port)
}
