package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ardikapras/netbill/app/models"
	"github.com/ardikapras/netbill/internal/pkg/xendit"
	"gorm.io/gorm"
)

type fakeRepo struct {
	users    map[uint]*models.User
	packages map[uint]*models.Package

	subs   map[uint]*models.Subscription
	txs    map[uint]*models.Transaction
	events map[string]*models.PaymentWebhookEvent

	nextSubID   uint
	nextTxID    uint
	nextEventID uint

	routerUsernames map[uint]string

	failCreateTransaction bool
	failActivate          bool
	failSettle            int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:           map[uint]*models.User{},
		packages:        map[uint]*models.Package{},
		subs:            map[uint]*models.Subscription{},
		txs:             map[uint]*models.Transaction{},
		events:          map[string]*models.PaymentWebhookEvent{},
		routerUsernames: map[uint]string{},
	}
}

func (r *fakeRepo) GetUser(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeRepo) GetPackage(id uint) (*models.Package, error) {
	p, ok := r.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeRepo) CreateSubscription(sub *models.Subscription) error {
	r.nextSubID++
	sub.ID = r.nextSubID
	r.subs[sub.ID] = sub
	return nil
}

func (r *fakeRepo) CreateTransaction(tx *models.Transaction) error {
	if r.failCreateTransaction {
		return errors.New("insert failed")
	}
	r.nextTxID++
	tx.ID = r.nextTxID
	r.txs[tx.ID] = tx
	return nil
}

func (r *fakeRepo) AttachInvoice(txID uint, ref, metadata string) error {
	tx, ok := r.txs[txID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	tx.ExternalReference = ref
	tx.Metadata = metadata
	return nil
}

func (r *fakeRepo) DeleteSubscription(id uint) error {
	// Mirrors the schema: transactions carry a foreign key to
	// subscriptions, so a still-referenced row cannot be deleted.
	for _, tx := range r.txs {
		if tx.SubscriptionID != nil && *tx.SubscriptionID == id {
			return fmt.Errorf("foreign key constraint fails: transaction %d references subscription %d", tx.ID, id)
		}
	}
	delete(r.subs, id)
	return nil
}

func (r *fakeRepo) DeleteTransaction(id uint) error {
	delete(r.txs, id)
	return nil
}

func (r *fakeRepo) GetTransactionByExternalReference(ref string) (*models.Transaction, error) {
	for _, tx := range r.txs {
		if tx.ExternalReference == ref {
			tx.User = r.users[tx.UserID]
			if tx.SubscriptionID != nil {
				if sub, ok := r.subs[*tx.SubscriptionID]; ok {
					sub.Package = r.packages[sub.PackageID]
					tx.Subscription = sub
				}
			}
			return tx, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SettleTransaction(txID uint, status, method, channel, metadata string) (bool, error) {
	if r.failSettle > 0 {
		r.failSettle--
		return false, errors.New("driver: bad connection")
	}
	tx, ok := r.txs[txID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if tx.Status != models.TransactionStatusPending {
		return false, nil
	}
	now := time.Now()
	tx.Status = status
	tx.PaymentMethod = method
	tx.PaymentChannel = channel
	tx.Metadata = metadata
	tx.SettledAt = &now
	return true, nil
}

func (r *fakeRepo) GetSubscription(id uint) (*models.Subscription, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	sub.User = r.users[sub.UserID]
	sub.Package = r.packages[sub.PackageID]
	return sub, nil
}

func (r *fakeRepo) ActivateSubscription(subID uint, renewedAt time.Time) error {
	if r.failActivate {
		return errors.New("update failed")
	}
	sub, ok := r.subs[subID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.Status = models.SubscriptionStatusActive
	sub.LastRenewal = &renewedAt
	return nil
}

func (r *fakeRepo) SetUserRouterUsername(userID uint, name string) error {
	r.routerUsernames[userID] = name
	return nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := r.events[key]; ok {
		return false, existing, nil
	}
	r.nextEventID++
	event.ID = r.nextEventID
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeRepo) ListOverdueActiveSubscriptions(now time.Time) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range r.subs {
		if sub.Status == models.SubscriptionStatusActive && sub.EndDate.Before(now) {
			cp := *sub
			cp.Package = r.packages[sub.PackageID]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) ExpireSubscription(subID uint) error {
	sub, ok := r.subs[subID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.Status = models.SubscriptionStatusExpired
	return nil
}

func (r *fakeRepo) DeleteAbandonedPending(cutoff time.Time) (int64, error) {
	var removed int64
	for id, tx := range r.txs {
		if tx.Status != models.TransactionStatusPending || tx.ExternalReference != "" || !tx.CreatedAt.Before(cutoff) {
			continue
		}
		subID := tx.SubscriptionID
		delete(r.txs, id)
		if subID != nil {
			if sub, ok := r.subs[*subID]; ok && sub.Status == models.SubscriptionStatusPending {
				if err := r.DeleteSubscription(*subID); err != nil {
					return removed, err
				}
			}
		}
		removed++
	}
	return removed, nil
}

type fakeGateway struct {
	token        string
	failInvoice  bool
	lastParams   xendit.CreateInvoiceParams
	invoiceCalls int
}

func (g *fakeGateway) CreateInvoice(_ context.Context, params xendit.CreateInvoiceParams) (*xendit.Invoice, error) {
	g.invoiceCalls++
	g.lastParams = params
	if g.failInvoice {
		return nil, &xendit.Error{Kind: xendit.KindConnectivity, Op: "CreateInvoice", Err: errors.New("dial tcp: timeout")}
	}
	return &xendit.Invoice{
		ID:         "inv-123",
		ExternalID: params.ExternalID,
		Status:     "PENDING",
		Amount:     params.Amount,
		InvoiceURL: "https://checkout.example/inv-123",
		ExpiryDate: "2026-09-02T00:00:00Z",
	}, nil
}

func (g *fakeGateway) VerifyCallbackToken(token string) bool {
	return g.token != "" && token == g.token
}

type fakeProvisioner struct {
	ensured  []DeviceAccount
	disabled []string
	failures int
}

func (p *fakeProvisioner) EnsureAccount(_ context.Context, account DeviceAccount) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("device unreachable")
	}
	p.ensured = append(p.ensured, account)
	return nil
}

func (p *fakeProvisioner) DisableAccount(_ context.Context, service, name string) error {
	p.disabled = append(p.disabled, service+"/"+name)
	return nil
}

type fakeEnqueuer struct {
	calls []uint
}

func (e *fakeEnqueuer) EnqueueProvision(subscriptionID, _ uint, _ []DeviceAccount) error {
	e.calls = append(e.calls, subscriptionID)
	return nil
}

func seedRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.users[1] = &models.User{Name: "Budi Santoso", Email: "budi@example.com", Phone: "+628123456789"}
	repo.users[1].ID = 1
	repo.packages[10] = &models.Package{
		Name:          "Home 20Mbps",
		ServiceType:   models.ServiceTypePPPoE,
		Price:         150000,
		DurationDays:  30,
		RouterProfile: "profile-20m",
		IsActive:      true,
	}
	repo.packages[10].ID = 10
	return repo
}

func newTestService(repo *fakeRepo, gw *fakeGateway, prov *fakeProvisioner, retry RetryEnqueuer) *Service {
	return NewService(repo, gw, prov, retry, "https://portal.example.com")
}

func TestCreateSubscription(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	svc := newTestService(repo, gw, &fakeProvisioner{}, nil)

	checkout, err := svc.CreateSubscription(context.Background(), CreateSubscriptionInput{UserID: 1, PackageID: 10})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}

	sub := checkout.Subscription
	if sub.Status != models.SubscriptionStatusPending {
		t.Errorf("subscription status = %q, want pending", sub.Status)
	}
	if !strings.HasPrefix(sub.RouterUsername, "budisantoso-") {
		t.Errorf("router username %q not derived from owner name", sub.RouterUsername)
	}
	if len(sub.RouterPassword) < MinAccountPasswordLength {
		t.Errorf("router password too short: %d chars", len(sub.RouterPassword))
	}
	wantEnd := sub.StartDate.AddDate(0, 0, 30)
	if !sub.EndDate.Equal(wantEnd) {
		t.Errorf("end date = %v, want %v", sub.EndDate, wantEnd)
	}

	tx := checkout.Transaction
	if tx.Status != models.TransactionStatusPending {
		t.Errorf("transaction status = %q, want pending", tx.Status)
	}
	if tx.Amount != 150000 {
		t.Errorf("amount = %d, want 150000", tx.Amount)
	}
	if tx.ExternalReference != "inv-123" {
		t.Errorf("external reference = %q, want inv-123", tx.ExternalReference)
	}
	if checkout.InvoiceURL != "https://checkout.example/inv-123" {
		t.Errorf("invoice url = %q", checkout.InvoiceURL)
	}
	if !strings.HasPrefix(gw.lastParams.ExternalID, "SUB-") {
		t.Errorf("gateway external id = %q, want SUB- prefix", gw.lastParams.ExternalID)
	}
}

func TestCreateSubscriptionUnknownUser(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, &fakeGateway{}, &fakeProvisioner{}, nil)

	_, err := svc.CreateSubscription(context.Background(), CreateSubscriptionInput{UserID: 99, PackageID: 10})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}

func TestCreateSubscriptionInactivePackage(t *testing.T) {
	repo := seedRepo()
	repo.packages[10].IsActive = false
	svc := newTestService(repo, &fakeGateway{}, &fakeProvisioner{}, nil)

	_, err := svc.CreateSubscription(context.Background(), CreateSubscriptionInput{UserID: 1, PackageID: 10})
	if !errors.Is(err, ErrPackageInactive) {
		t.Fatalf("error = %v, want ErrPackageInactive", err)
	}
	if len(repo.subs) != 0 {
		t.Errorf("no subscription row should exist, got %d", len(repo.subs))
	}
}

func TestCreateSubscriptionCompensatesOnGatewayFailure(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{failInvoice: true}
	svc := newTestService(repo, gw, &fakeProvisioner{}, nil)

	_, err := svc.CreateSubscription(context.Background(), CreateSubscriptionInput{UserID: 1, PackageID: 10})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if !xendit.IsConnectivity(err) {
		t.Errorf("error = %v, want connectivity kind", err)
	}
	if len(repo.subs) != 0 || len(repo.txs) != 0 {
		t.Errorf("compensation left records behind: subs=%d txs=%d", len(repo.subs), len(repo.txs))
	}
}

func TestCreateSubscriptionCleansUpOnTransactionFailure(t *testing.T) {
	repo := seedRepo()
	repo.failCreateTransaction = true
	gw := &fakeGateway{}
	svc := newTestService(repo, gw, &fakeProvisioner{}, nil)

	_, err := svc.CreateSubscription(context.Background(), CreateSubscriptionInput{UserID: 1, PackageID: 10})
	if err == nil {
		t.Fatal("expected transaction create error")
	}
	if gw.invoiceCalls != 0 {
		t.Errorf("gateway should not be called, got %d calls", gw.invoiceCalls)
	}
	if len(repo.subs) != 0 {
		t.Errorf("subscription row should be cleaned up, got %d", len(repo.subs))
	}
}

func paidCallback(invoiceID string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"id":              invoiceID,
		"external_id":     "SUB-1756684800000-abcd1234",
		"status":          "PAID",
		"paid_amount":     150000,
		"payment_method":  "BANK_TRANSFER",
		"payment_channel": "BCA",
	})
	return body
}

func checkoutForCallback(t *testing.T, svc *Service) *Checkout {
	t.Helper()
	checkout, err := svc.CreateSubscription(context.Background(), CreateSubscriptionInput{UserID: 1, PackageID: 10})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	return checkout
}

func TestProcessCallbackPaid(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{}
	svc := newTestService(repo, gw, prov, nil)
	checkout := checkoutForCallback(t, svc)

	result, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-123"))
	if err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if result.TransactionStatus != models.TransactionStatusSuccess {
		t.Errorf("transaction status = %q, want success", result.TransactionStatus)
	}
	if !result.Provisioned {
		t.Errorf("provisioned = false, want true (err: %v)", result.ProvisioningError)
	}

	if len(prov.ensured) != 1 {
		t.Fatalf("ensured accounts = %d, want 1", len(prov.ensured))
	}
	account := prov.ensured[0]
	if account.Service != models.ServiceTypePPPoE {
		t.Errorf("service = %q, want pppoe", account.Service)
	}
	if account.Name != checkout.Subscription.RouterUsername {
		t.Errorf("account name = %q, want stored credential %q", account.Name, checkout.Subscription.RouterUsername)
	}
	if account.Password != checkout.Subscription.RouterPassword {
		t.Error("account password does not match stored credential")
	}
	if account.Comment != "User: Budi Santoso | Package: Home 20Mbps" {
		t.Errorf("comment = %q", account.Comment)
	}

	sub := repo.subs[checkout.Subscription.ID]
	if sub.Status != models.SubscriptionStatusActive {
		t.Errorf("subscription status = %q, want active", sub.Status)
	}
	if sub.LastRenewal == nil {
		t.Error("last renewal not set")
	}
	if repo.routerUsernames[1] != account.Name {
		t.Errorf("user router username = %q, want %q", repo.routerUsernames[1], account.Name)
	}
}

func TestProcessCallbackBothServices(t *testing.T) {
	repo := seedRepo()
	repo.packages[10].ServiceType = models.ServiceTypeBoth
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{}
	svc := newTestService(repo, gw, prov, nil)
	checkoutForCallback(t, svc)

	if _, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-123")); err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if len(prov.ensured) != 2 {
		t.Fatalf("ensured accounts = %d, want 2", len(prov.ensured))
	}
	services := prov.ensured[0].Service + "," + prov.ensured[1].Service
	if services != models.ServiceTypePPPoE+","+models.ServiceTypeHotspot {
		t.Errorf("services = %q", services)
	}
	if prov.ensured[0].Name != prov.ensured[1].Name {
		t.Error("both services must share one credential pair")
	}
}

func TestProcessCallbackBadToken(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	svc := newTestService(repo, gw, &fakeProvisioner{}, nil)
	checkoutForCallback(t, svc)

	_, err := svc.ProcessCallback(context.Background(), "wrong", paidCallback("inv-123"))
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("error = %v, want ErrAuthenticationFailed", err)
	}
	if len(repo.events) != 0 {
		t.Errorf("no webhook event should be recorded before auth, got %d", len(repo.events))
	}
}

func TestProcessCallbackInvalidPayload(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	svc := newTestService(repo, gw, &fakeProvisioner{}, nil)

	for _, body := range []string{"{not json", `{"status":"PAID"}`} {
		if _, err := svc.ProcessCallback(context.Background(), "secret", []byte(body)); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("payload %q: error = %v, want ErrInvalidPayload", body, err)
		}
	}
}

func TestProcessCallbackUnknownInvoice(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	svc := newTestService(repo, gw, &fakeProvisioner{}, nil)

	_, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-ghost"))
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("error = %v, want ErrTransactionNotFound", err)
	}
	if len(repo.events) != 1 {
		t.Errorf("event should be kept for reconciliation, got %d", len(repo.events))
	}
}

func TestProcessCallbackDuplicateDelivery(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{}
	svc := newTestService(repo, gw, prov, nil)
	checkoutForCallback(t, svc)

	body := paidCallback("inv-123")
	if _, err := svc.ProcessCallback(context.Background(), "secret", body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	result, err := svc.ProcessCallback(context.Background(), "secret", body)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !result.Duplicate {
		t.Error("second identical delivery should be flagged duplicate")
	}
	if len(prov.ensured) != 1 {
		t.Errorf("provisioning ran %d times, want 1", len(prov.ensured))
	}
}

func TestProcessCallbackRetryAfterSettleFailure(t *testing.T) {
	repo := seedRepo()
	repo.failSettle = 1
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{}
	svc := newTestService(repo, gw, prov, nil)
	checkout := checkoutForCallback(t, svc)

	body := paidCallback("inv-123")
	if _, err := svc.ProcessCallback(context.Background(), "secret", body); err == nil {
		t.Fatal("first delivery should surface the settle failure")
	}
	if repo.txs[1].Status != models.TransactionStatusPending {
		t.Fatalf("transaction status = %q, want pending before the retry", repo.txs[1].Status)
	}

	// The gateway redelivers the identical payload. The recorded event must
	// not swallow it: the transaction is still pending, so the retry has to
	// settle and provision.
	result, err := svc.ProcessCallback(context.Background(), "secret", body)
	if err != nil {
		t.Fatalf("gateway retry: %v", err)
	}
	if result.Duplicate {
		t.Error("retry of a failed delivery must not count as a duplicate")
	}
	if result.TransactionStatus != models.TransactionStatusSuccess {
		t.Errorf("transaction status = %q, want success after retry", result.TransactionStatus)
	}
	if len(prov.ensured) != 1 {
		t.Errorf("provisioning ran %d times, want 1", len(prov.ensured))
	}
	if repo.subs[checkout.Subscription.ID].Status != models.SubscriptionStatusActive {
		t.Error("subscription should be active after the retried delivery")
	}
}

func TestProcessCallbackAlreadySettled(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{}
	svc := newTestService(repo, gw, prov, nil)
	checkoutForCallback(t, svc)

	if _, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-123")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	// Distinct payload for the same invoice bypasses the body-hash dedup but
	// must still lose the conditional settle.
	late, _ := json.Marshal(map[string]interface{}{
		"id":     "inv-123",
		"status": "EXPIRED",
	})
	result, err := svc.ProcessCallback(context.Background(), "secret", late)
	if err != nil {
		t.Fatalf("late delivery: %v", err)
	}
	if !result.AlreadySettled {
		t.Error("late delivery should report already settled")
	}
	if repo.txs[1].Status != models.TransactionStatusSuccess {
		t.Errorf("settled status was overwritten to %q", repo.txs[1].Status)
	}
}

func TestProcessCallbackExpiredInvoice(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{}
	svc := newTestService(repo, gw, prov, nil)
	checkout := checkoutForCallback(t, svc)

	body, _ := json.Marshal(map[string]interface{}{"id": "inv-123", "status": "EXPIRED"})
	result, err := svc.ProcessCallback(context.Background(), "secret", body)
	if err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}
	if result.TransactionStatus != models.TransactionStatusFailed {
		t.Errorf("transaction status = %q, want failed", result.TransactionStatus)
	}
	if len(prov.ensured) != 0 {
		t.Error("failed payment must not provision")
	}
	if repo.subs[checkout.Subscription.ID].Status != models.SubscriptionStatusPending {
		t.Error("subscription must stay pending on failed payment")
	}
}

func TestProcessCallbackProvisioningFailureKeepsPayment(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{failures: 1}
	retry := &fakeEnqueuer{}
	svc := newTestService(repo, gw, prov, retry)
	checkout := checkoutForCallback(t, svc)

	result, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-123"))
	if err != nil {
		t.Fatalf("provisioning failure must not fail the callback: %v", err)
	}
	if result.Provisioned {
		t.Error("provisioned = true, want false")
	}
	if result.ProvisioningError == nil {
		t.Error("provisioning error should be reported in the result")
	}
	if repo.txs[1].Status != models.TransactionStatusSuccess {
		t.Errorf("payment status = %q, must remain success", repo.txs[1].Status)
	}
	if repo.subs[checkout.Subscription.ID].Status != models.SubscriptionStatusPending {
		t.Error("subscription must not activate when provisioning failed")
	}
	if len(retry.calls) != 1 || retry.calls[0] != checkout.Subscription.ID {
		t.Errorf("retry queue calls = %v, want one for subscription %d", retry.calls, checkout.Subscription.ID)
	}
}

func TestProcessCallbackActivationFailureEnqueuesRetry(t *testing.T) {
	repo := seedRepo()
	repo.failActivate = true
	gw := &fakeGateway{token: "secret"}
	retry := &fakeEnqueuer{}
	svc := newTestService(repo, gw, &fakeProvisioner{}, retry)
	checkoutForCallback(t, svc)

	result, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-123"))
	if err != nil {
		t.Fatalf("activation failure must not fail the callback: %v", err)
	}
	if result.Provisioned {
		t.Error("provisioned = true, want false")
	}
	if len(retry.calls) != 1 {
		t.Errorf("retry queue calls = %d, want 1", len(retry.calls))
	}
}

func TestReprovisionSubscription(t *testing.T) {
	repo := seedRepo()
	gw := &fakeGateway{token: "secret"}
	prov := &fakeProvisioner{failures: 1}
	svc := newTestService(repo, gw, prov, nil)
	checkout := checkoutForCallback(t, svc)

	if _, err := svc.ProcessCallback(context.Background(), "secret", paidCallback("inv-123")); err != nil {
		t.Fatalf("ProcessCallback: %v", err)
	}

	if err := svc.ReprovisionSubscription(context.Background(), checkout.Subscription.ID); err != nil {
		t.Fatalf("ReprovisionSubscription: %v", err)
	}
	if len(prov.ensured) != 1 {
		t.Fatalf("ensured accounts = %d, want 1", len(prov.ensured))
	}
	if prov.ensured[0].Name != checkout.Subscription.RouterUsername {
		t.Error("reprovision must reuse the stored credential, not regenerate")
	}
	if repo.subs[checkout.Subscription.ID].Status != models.SubscriptionStatusActive {
		t.Error("subscription should be active after successful reprovision")
	}
}

func TestReprovisionUnknownSubscription(t *testing.T) {
	svc := newTestService(seedRepo(), &fakeGateway{}, &fakeProvisioner{}, nil)
	if err := svc.ReprovisionSubscription(context.Background(), 404); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestExpireOverdueSubscriptions(t *testing.T) {
	repo := seedRepo()
	prov := &fakeProvisioner{}
	svc := newTestService(repo, &fakeGateway{}, prov, nil)

	past := time.Now().Add(-48 * time.Hour)
	overdue := &models.Subscription{
		UserID:         1,
		PackageID:      10,
		Status:         models.SubscriptionStatusActive,
		StartDate:      past.AddDate(0, 0, -30),
		EndDate:        past,
		RouterUsername: "budisantoso-1",
	}
	_ = repo.CreateSubscription(overdue)
	current := &models.Subscription{
		UserID:    1,
		PackageID: 10,
		Status:    models.SubscriptionStatusActive,
		EndDate:   time.Now().Add(24 * time.Hour),
	}
	_ = repo.CreateSubscription(current)

	n, err := svc.ExpireOverdueSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdueSubscriptions: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
	if repo.subs[overdue.ID].Status != models.SubscriptionStatusExpired {
		t.Error("overdue subscription not expired")
	}
	if repo.subs[current.ID].Status != models.SubscriptionStatusActive {
		t.Error("current subscription must stay active")
	}
	if len(prov.disabled) != 1 || prov.disabled[0] != models.ServiceTypePPPoE+"/budisantoso-1" {
		t.Errorf("disabled accounts = %v", prov.disabled)
	}
}

func TestSweepAbandonedPending(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo, &fakeGateway{}, &fakeProvisioner{}, nil)

	stale := &models.Subscription{UserID: 1, PackageID: 10, Status: models.SubscriptionStatusPending}
	_ = repo.CreateSubscription(stale)
	tx := &models.Transaction{
		UserID:         1,
		SubscriptionID: &stale.ID,
		Status:         models.TransactionStatusPending,
	}
	_ = repo.CreateTransaction(tx)
	tx.CreatedAt = time.Now().Add(-72 * time.Hour)

	removed, err := svc.SweepAbandonedPending(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("SweepAbandonedPending: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := repo.txs[tx.ID]; ok {
		t.Error("stale pending transaction should be deleted")
	}
	if _, ok := repo.subs[stale.ID]; ok {
		t.Error("stale pending subscription should be deleted")
	}
}
