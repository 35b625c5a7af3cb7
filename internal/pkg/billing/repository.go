package billing

import (
	"time"

	"github.com/ardikapras/netbill/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetUser(id uint) (*models.User, error)
	GetPackage(id uint) (*models.Package, error)

	CreateSubscription(sub *models.Subscription) error
	CreateTransaction(tx *models.Transaction) error
	AttachInvoice(txID uint, externalReference, metadata string) error
	DeleteSubscription(id uint) error
	DeleteTransaction(id uint) error

	GetTransactionByExternalReference(ref string) (*models.Transaction, error)
	SettleTransaction(txID uint, status, method, channel, metadata string) (bool, error)
	GetSubscription(id uint) (*models.Subscription, error)
	ActivateSubscription(subID uint, renewedAt time.Time) error
	SetUserRouterUsername(userID uint, name string) error

	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error

	ListOverdueActiveSubscriptions(now time.Time) ([]models.Subscription, error)
	ExpireSubscription(subID uint) error
	DeleteAbandonedPending(cutoff time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUser(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetPackage(id uint) (*models.Package, error) {
	var pkg models.Package
	if err := r.db.First(&pkg, id).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) CreateTransaction(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *gormRepository) AttachInvoice(txID uint, externalReference, metadata string) error {
	return r.db.Model(&models.Transaction{}).
		Where("id = ?", txID).
		Updates(map[string]interface{}{
			"external_reference": externalReference,
			"metadata":           metadata,
		}).Error
}

func (r *gormRepository) DeleteSubscription(id uint) error {
	return r.db.Delete(&models.Subscription{}, id).Error
}

func (r *gormRepository) DeleteTransaction(id uint) error {
	return r.db.Delete(&models.Transaction{}, id).Error
}

func (r *gormRepository) GetTransactionByExternalReference(ref string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.
		Preload("User").
		Preload("Subscription").
		Preload("Subscription.Package").
		Where("external_reference = ?", ref).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// SettleTransaction moves a pending transaction to a terminal status. The
// conditional WHERE is the per-transaction mutual exclusion: of N concurrent
// deliveries for one external reference, exactly one observes RowsAffected==1
// and proceeds to provision; the rest see false and no-op.
func (r *gormRepository) SettleTransaction(txID uint, status, method, channel, metadata string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txID, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":          status,
			"payment_method":  method,
			"payment_channel": channel,
			"metadata":        metadata,
			"settled_at":      &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) GetSubscription(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Preload("User").
		Preload("Package").
		First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ActivateSubscription(subID uint, renewedAt time.Time) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ?", subID).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionStatusActive,
			"last_renewal": &renewedAt,
		}).Error
}

func (r *gormRepository) SetUserRouterUsername(userID uint, name string) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("router_username", name).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListOverdueActiveSubscriptions(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Preload("Package").
		Where("status = ? AND end_date < ?", models.SubscriptionStatusActive, now).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ExpireSubscription(subID uint) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", subID, models.SubscriptionStatusActive).
		Update("status", models.SubscriptionStatusExpired).Error
}

// DeleteAbandonedPending garbage-collects pending subscription/transaction
// pairs that never got an invoice attached, which can remain after a crash
// between record creation and compensating cleanup.
func (r *gormRepository) DeleteAbandonedPending(cutoff time.Time) (int64, error) {
	var orphans []models.Transaction
	err := r.db.
		Where("status = ? AND (external_reference IS NULL OR external_reference = '') AND created_at < ?",
			models.TransactionStatusPending, cutoff).
		Find(&orphans).Error
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, tx := range orphans {
		// The transaction references the subscription, so it has to go
		// first or the FK rejects the subscription delete.
		if err := r.db.Delete(&models.Transaction{}, tx.ID).Error; err != nil {
			return removed, err
		}
		if tx.SubscriptionID != nil {
			if err := r.db.
				Where("id = ? AND status = ?", *tx.SubscriptionID, models.SubscriptionStatusPending).
				Delete(&models.Subscription{}).Error; err != nil {
				return removed, err
			}
		}
		removed++
	}
	return removed, nil
}
