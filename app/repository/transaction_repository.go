package repository

import (
	"time"

	"github.com/ardikapras/netbill/app/models"
	"gorm.io/gorm"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *transactionRepository) GetByID(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Preload("User").Preload("Subscription").First(&tx, id).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) GetByExternalReference(ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.Where("external_reference = ?", ref).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) GetByUserID(userID uint, offset, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) List(offset, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *transactionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).Count(&count).Error
	return count, err
}

// SumByStatusSince totals transaction amounts in one status since a point in
// time. Used for the admin revenue figures.
func (r *transactionRepository) SumByStatusSince(status string, since time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ? AND created_at >= ?", status, since).
		Scan(&total).Error
	return total, err
}
