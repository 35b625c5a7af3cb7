package repository

import (
	"time"

	"github.com/ardikapras/netbill/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// PackageRepository defines the interface for package-related database operations
type PackageRepository interface {
	Create(pkg *models.Package) error
	GetByID(id uint) (*models.Package, error)
	GetAll() ([]models.Package, error)
	GetActive() ([]models.Package, error)
	Update(pkg *models.Package) error
	Deactivate(id uint) error
	Delete(id uint) error
}

// SubscriptionRepository defines the interface for subscription-related database operations
type SubscriptionRepository interface {
	Create(sub *models.Subscription) error
	GetByID(id uint) (*models.Subscription, error)
	GetByUserID(userID uint) ([]models.Subscription, error)
	GetActiveByUserID(userID uint) ([]models.Subscription, error)
	ListByStatus(status string, offset, limit int) ([]models.Subscription, error)
	Update(sub *models.Subscription) error
	Count() (int64, error)
	CountByStatus(status string) (int64, error)
}

// TransactionRepository defines the interface for transaction-related database operations
type TransactionRepository interface {
	Create(tx *models.Transaction) error
	GetByID(id uint) (*models.Transaction, error)
	GetByExternalReference(ref string) (*models.Transaction, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Transaction, error)
	List(offset, limit int) ([]models.Transaction, error)
	Count() (int64, error)
	SumByStatusSince(status string, since time.Time) (int64, error)
}

// RouterConfigRepository defines the interface for access device configuration.
// GetActive satisfies routeros.ConfigSource.
type RouterConfigRepository interface {
	Create(cfg *models.RouterConfig) error
	GetByID(id uint) (*models.RouterConfig, error)
	GetAll() ([]models.RouterConfig, error)
	GetActive() (*models.RouterConfig, error)
	Update(cfg *models.RouterConfig) error
	SetActive(id uint) error
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Package      PackageRepository
	Subscription SubscriptionRepository
	Transaction  TransactionRepository
	RouterConfig RouterConfigRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Package:      NewPackageRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Transaction:  NewTransactionRepository(db),
		RouterConfig: NewRouterConfigRepository(db),
	}
}
