package repository

import (
	"github.com/ardikapras/netbill/app/models"
	"gorm.io/gorm"
)

// packageRepository implements the PackageRepository interface
type packageRepository struct {
	db *gorm.DB
}

// NewPackageRepository creates a new package repository instance
func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(pkg *models.Package) error {
	return r.db.Create(pkg).Error
}

func (r *packageRepository) GetByID(id uint) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.First(&pkg, id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepository) GetAll() ([]models.Package, error) {
	var pkgs []models.Package
	err := r.db.Order("price ASC").Find(&pkgs).Error
	return pkgs, err
}

// GetActive returns the packages currently offered for sale
func (r *packageRepository) GetActive() ([]models.Package, error) {
	var pkgs []models.Package
	err := r.db.Where("is_active = ?", true).Order("price ASC").Find(&pkgs).Error
	return pkgs, err
}

func (r *packageRepository) Update(pkg *models.Package) error {
	return r.db.Save(pkg).Error
}

// Deactivate takes a package off sale without touching existing subscriptions
func (r *packageRepository) Deactivate(id uint) error {
	return r.db.Model(&models.Package{}).Where("id = ?", id).Update("is_active", false).Error
}

func (r *packageRepository) Delete(id uint) error {
	return r.db.Delete(&models.Package{}, id).Error
}
