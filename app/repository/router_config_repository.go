package repository

import (
	"github.com/ardikapras/netbill/app/models"
	"gorm.io/gorm"
)

// routerConfigRepository implements the RouterConfigRepository interface
type routerConfigRepository struct {
	db *gorm.DB
}

// NewRouterConfigRepository creates a new router config repository instance
func NewRouterConfigRepository(db *gorm.DB) RouterConfigRepository {
	return &routerConfigRepository{db: db}
}

func (r *routerConfigRepository) Create(cfg *models.RouterConfig) error {
	return r.db.Create(cfg).Error
}

func (r *routerConfigRepository) GetByID(id uint) (*models.RouterConfig, error) {
	var cfg models.RouterConfig
	if err := r.db.First(&cfg, id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *routerConfigRepository) GetAll() ([]models.RouterConfig, error) {
	var cfgs []models.RouterConfig
	err := r.db.Order("created_at ASC").Find(&cfgs).Error
	return cfgs, err
}

// GetActive returns the single device configuration provisioning runs
// against. At most one config is active at a time.
func (r *routerConfigRepository) GetActive() (*models.RouterConfig, error) {
	var cfg models.RouterConfig
	err := r.db.Where("is_active = ?", true).Order("updated_at DESC").First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *routerConfigRepository) Update(cfg *models.RouterConfig) error {
	return r.db.Save(cfg).Error
}

// SetActive marks one config active and all others inactive in a single
// transaction.
func (r *routerConfigRepository) SetActive(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RouterConfig{}).
			Where("id <> ?", id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&models.RouterConfig{}).
			Where("id = ?", id).
			Update("is_active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *routerConfigRepository) Delete(id uint) error {
	return r.db.Delete(&models.RouterConfig{}, id).Error
}
