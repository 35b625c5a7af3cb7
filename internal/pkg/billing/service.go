package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Service orchestrates the two billing flows: subscription creation (local
// pending records + gateway invoice) and payment reconciliation (webhook →
// settle → provision). Dependencies are injected; there is no ambient global
// client state.
type Service struct {
	repo        Repository
	gateway     Gateway
	provisioner Provisioner
	retry       RetryEnqueuer
	baseURL     string

	validate *validator.Validate
}

// NewService creates a billing service. retry may be nil, in which case failed
// provisioning attempts are only logged for manual remediation.
func NewService(repo Repository, gateway Gateway, provisioner Provisioner, retry RetryEnqueuer, publicBaseURL string) *Service {
	return &Service{
		repo:        repo,
		gateway:     gateway,
		provisioner: provisioner,
		retry:       retry,
		baseURL:     strings.TrimRight(publicBaseURL, "/"),
		validate:    validator.New(),
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, provisioner Provisioner, retry RetryEnqueuer, publicBaseURL string) *Service {
	return NewService(NewRepository(db), gateway, provisioner, retry, publicBaseURL)
}

// SetRetryEnqueuer installs the retry queue after construction. The queue
// processor itself depends on the service, so the two are wired in two steps
// at startup.
func (s *Service) SetRetryEnqueuer(retry RetryEnqueuer) {
	s.retry = retry
}

// CreateSubscription runs the purchase flow: pending subscription and
// transaction rows, provisioning credentials allocated up front, then a
// gateway invoice. If invoice creation fails both rows are deleted again so
// no dangling pending pair without an external reference survives.
func (s *Service) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Checkout, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentMethodXendit
	}

	user, err := s.repo.GetUser(in.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	pkg, err := s.repo.GetPackage(in.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	now := time.Now()
	password, err := GenerateAccountPassword(MinAccountPasswordLength)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		UserID:         user.ID,
		PackageID:      pkg.ID,
		Status:         models.SubscriptionStatusPending,
		StartDate:      now,
		EndDate:        now.AddDate(0, 0, pkg.DurationDays),
		RouterUsername: GenerateAccountName(user.Name, now),
		RouterPassword: password,
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Subscription: %s - %d days", pkg.Name, pkg.DurationDays)
	tx := &models.Transaction{
		UserID:         user.ID,
		SubscriptionID: &sub.ID,
		Type:           models.TransactionTypeSubscription,
		Amount:         pkg.Price,
		Status:         models.TransactionStatusPending,
		PaymentMethod:  in.PaymentMethod,
		Description:    description,
	}
	if err := s.repo.CreateTransaction(tx); err != nil {
		// Do not leave the subscription behind without its transaction.
		if derr := s.repo.DeleteSubscription(sub.ID); derr != nil {
			log.Errorf("[Billing] cleanup of subscription %d after transaction create failure also failed: %v", sub.ID, derr)
		}
		return nil, err
	}

	invoice, err := s.gateway.CreateInvoice(ctx, xendit.CreateInvoiceParams{
		ExternalID:  xendit.GenerateExternalID("SUB"),
		Amount:      pkg.Price,
		Description: description,
		Customer: xendit.InvoiceCustomer{
			GivenNames:   user.Name,
			Email:        user.Email,
			MobileNumber: user.Phone,
		},
		SuccessRedirectURL: s.redirectURL("success"),
		FailureRedirectURL: s.redirectURL("failed"),
		Currency:           "IDR",
		ShouldSendEmail:    user.Email != "",
	})
	if err != nil {
		s.compensateCreate(sub.ID, tx.ID)
		return nil, err
	}

	meta, _ := json.Marshal(map[string]string{
		"invoice_url": invoice.InvoiceURL,
		"expiry_date": invoice.ExpiryDate,
	})
	if err := s.repo.AttachInvoice(tx.ID, invoice.ID, string(meta)); err != nil {
		// The invoice exists on the gateway side; deleting local records now
		// would orphan a payable invoice. Surface the error instead.
		log.Errorf("[Billing] failed to attach invoice %s to transaction %d: %v", invoice.ID, tx.ID, err)
		return nil, err
	}
	tx.ExternalReference = invoice.ID
	tx.Metadata = string(meta)

	return &Checkout{
		Subscription: sub,
		Transaction:  tx,
		InvoiceURL:   invoice.InvoiceURL,
		ExpiryDate:   invoice.ExpiryDate,
	}, nil
}

func (s *Service) compensateCreate(subID, txID uint) {
	if err := s.repo.DeleteTransaction(txID); err != nil {
		log.Errorf("[Billing] compensation failed to delete transaction %d: %v", txID, err)
	}
	if err := s.repo.DeleteSubscription(subID); err != nil {
		log.Errorf("[Billing] compensation failed to delete subscription %d: %v", subID, err)
	}
}

func (s *Service) redirectURL(status string) string {
	if s.baseURL == "" {
		return ""
	}
	return s.baseURL + "/payment/return?status=" + status
}

// ProcessCallback reconciles one gateway webhook delivery.
//
// Authentication happens before any lookup so unauthenticated callers learn
// nothing about stored transactions. The settle step is a conditional update
// that only one delivery can win, making re-delivery and concurrent delivery
// no-ops. Provisioning failures never roll back the settled payment: the
// payment record is the durable truth and the device account is repaired via
// the retry queue or operator action.
func (s *Service) ProcessCallback(ctx context.Context, token string, payload []byte) (*CallbackResult, error) {
	if !s.gateway.VerifyCallbackToken(token) {
		return nil, ErrAuthenticationFailed
	}

	var cb xendit.CallbackPayload
	if err := json.Unmarshal(payload, &cb); err != nil || strings.TrimSpace(cb.ID) == "" {
		return nil, ErrInvalidPayload
	}

	created, event, err := s.recordWebhookEvent(cb, payload)
	if err != nil {
		return nil, err
	}
	if !created {
		// Only a delivery whose earlier processing completed cleanly is a
		// true duplicate. A redelivery after a transient failure (settle
		// error, unknown invoice) must run the settle step again since
		// gateway retries are the recovery mechanism; the conditional
		// settle below stays the real idempotency guard.
		if event.ProcessedAt != nil && event.ProcessingError == "" {
			return &CallbackResult{Duplicate: true}, nil
		}
	}

	tx, err := s.repo.GetTransactionByExternalReference(cb.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] callback for unknown invoice %s (external_id=%s); keeping event %d for manual reconciliation", cb.ID, cb.ExternalID, event.ID)
			s.markProcessed(event.ID, ErrTransactionNotFound)
			return nil, ErrTransactionNotFound
		}
		s.markProcessed(event.ID, err)
		return nil, err
	}

	newStatus := models.TransactionStatusFailed
	if cb.IsPaid() {
		newStatus = models.TransactionStatusSuccess
	}

	settled, err := s.repo.SettleTransaction(tx.ID, newStatus, cb.PaymentMethod, cb.PaymentChannel, string(payload))
	if err != nil {
		s.markProcessed(event.ID, err)
		return nil, err
	}
	result := &CallbackResult{TransactionID: tx.ID, TransactionStatus: newStatus}
	if !settled {
		// Already terminal. Re-applying the same terminal status is a no-op,
		// not an error; a contradictory re-delivery is ignored the same way.
		result.AlreadySettled = true
		result.TransactionStatus = ""
		s.markProcessed(event.ID, nil)
		return result, nil
	}

	if newStatus == models.TransactionStatusSuccess && tx.SubscriptionID != nil && tx.Subscription != nil {
		provErr := s.provisionSubscription(ctx, tx.Subscription, tx.User)
		result.Provisioned = provErr == nil
		result.ProvisioningError = provErr
		s.markProcessed(event.ID, provErr)
		return result, nil
	}

	s.markProcessed(event.ID, nil)
	return result, nil
}

func (s *Service) recordWebhookEvent(cb xendit.CallbackPayload, payload []byte) (bool, *models.PaymentWebhookEvent, error) {
	// Dedup on the payload hash: gateway retries resend the identical body,
	// while a genuine status change arrives as a distinct event.
	sum := sha256.Sum256(payload)
	event := &models.PaymentWebhookEvent{
		Provider:        models.PaymentProviderXendit,
		ProviderEventID: "hash:" + hex.EncodeToString(sum[:]),
		EventType:       "invoice." + strings.ToLower(strings.TrimSpace(cb.Status)),
		PayloadJSON:     string(payload),
		TokenValid:      true,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

func (s *Service) markProcessed(eventID uint, processingErr error) {
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	if err := s.repo.MarkWebhookProcessed(eventID, msg); err != nil {
		log.Errorf("[Billing] failed to mark webhook event %d processed: %v", eventID, err)
	}
}

// provisionSubscription creates the device accounts implied by the package
// using the credentials stored on the subscription, then activates it. Any
// failure is parked on the retry queue; the settled payment is never touched.
func (s *Service) provisionSubscription(ctx context.Context, sub *models.Subscription, user *models.User) error {
	pkg := sub.Package
	if pkg == nil {
		return fmt.Errorf("subscription %d has no package loaded", sub.ID)
	}

	accounts := DeviceAccountsFor(sub, pkg, user)
	err := s.ensureAndActivate(ctx, sub.ID, sub.UserID, accounts)
	if err == nil {
		return nil
	}

	log.Errorf("[Billing] provisioning failed for subscription %d (account=%s profile=%s): %v",
		sub.ID, sub.RouterUsername, pkg.RouterProfile, err)
	if s.retry != nil {
		if qerr := s.retry.EnqueueProvision(sub.ID, sub.UserID, accounts); qerr != nil {
			log.Errorf("[Billing] failed to enqueue provisioning retry for subscription %d: %v", sub.ID, qerr)
		}
	}
	return err
}

// ensureAndActivate is the provisioning sequence shared by the synchronous
// path, the retry worker and the admin reprovision action.
func (s *Service) ensureAndActivate(ctx context.Context, subID, userID uint, accounts []DeviceAccount) error {
	if len(accounts) == 0 {
		return fmt.Errorf("no device accounts to provision for subscription %d", subID)
	}

	for _, account := range accounts {
		if err := s.provisioner.EnsureAccount(ctx, account); err != nil {
			return err
		}
	}

	now := time.Now()
	if err := s.repo.ActivateSubscription(subID, now); err != nil {
		return err
	}
	if err := s.repo.SetUserRouterUsername(userID, accounts[0].Name); err != nil {
		return err
	}
	return nil
}

// RetryProvision re-runs the provisioning sequence with the stored account
// data. Used by the background retry worker.
func (s *Service) RetryProvision(ctx context.Context, subID, userID uint, accounts []DeviceAccount) error {
	return s.ensureAndActivate(ctx, subID, userID, accounts)
}

// ReprovisionSubscription is the operator remediation path for a paid but
// unprovisioned subscription. Credentials are reused from the subscription
// row, never regenerated.
func (s *Service) ReprovisionSubscription(ctx context.Context, subID uint) error {
	sub, err := s.repo.GetSubscription(subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if sub.Package == nil {
		return fmt.Errorf("subscription %d has no package loaded", sub.ID)
	}

	accounts := DeviceAccountsFor(sub, sub.Package, sub.User)
	return s.ensureAndActivate(ctx, sub.ID, sub.UserID, accounts)
}

// ExpireOverdueSubscriptions moves active subscriptions past their end date
// to expired and best-effort disables the device accounts.
func (s *Service) ExpireOverdueSubscriptions(ctx context.Context) (int, error) {
	subs, err := s.repo.ListOverdueActiveSubscriptions(time.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range subs {
		sub := &subs[i]
		if err := s.repo.ExpireSubscription(sub.ID); err != nil {
			log.Errorf("[Billing] failed to expire subscription %d: %v", sub.ID, err)
			continue
		}
		expired++

		if sub.Package == nil {
			continue
		}
		for _, service := range serviceTypesFor(sub.Package) {
			if err := s.provisioner.DisableAccount(ctx, service, sub.RouterUsername); err != nil {
				log.Warnf("[Billing] could not disable %s account %s for expired subscription %d: %v",
					service, sub.RouterUsername, sub.ID, err)
			}
		}
	}
	return expired, nil
}

// SweepAbandonedPending garbage-collects pending pairs older than maxAge that
// never received an external reference.
func (s *Service) SweepAbandonedPending(ctx context.Context, maxAge time.Duration) (int64, error) {
	_ = ctx
	removed, err := s.repo.DeleteAbandonedPending(time.Now().Add(-maxAge))
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		log.Infof("[Billing] swept %d abandoned pending subscription/transaction pairs", removed)
	}
	return removed, nil
}

// DeviceAccountsFor expands a subscription into the device accounts its
// package implies, tagged with an operator-readable comment.
func DeviceAccountsFor(sub *models.Subscription, pkg *models.Package, user *models.User) []DeviceAccount {
	comment := fmt.Sprintf("Package: %s", pkg.Name)
	if user != nil {
		comment = fmt.Sprintf("User: %s | Package: %s", user.Name, pkg.Name)
	}

	var accounts []DeviceAccount
	for _, service := range serviceTypesFor(pkg) {
		accounts = append(accounts, DeviceAccount{
			Service:  service,
			Name:     sub.RouterUsername,
			Password: sub.RouterPassword,
			Profile:  pkg.RouterProfile,
			Comment:  comment,
		})
	}
	return accounts
}

func serviceTypesFor(pkg *models.Package) []string {
	var services []string
	if pkg.ProvisionsPPPoE() {
		services = append(services, models.ServiceTypePPPoE)
	}
	if pkg.ProvisionsHotspot() {
		services = append(services, models.ServiceTypeHotspot)
	}
	return services
}
