package jobqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ardikapras/netbill/internal/pkg/billing"
	"github.com/ardikapras/netbill/internal/pkg/env"
)

// BillingTasks is the slice of the billing service the manager drives:
// provisioning retries plus the periodic maintenance sweeps. *billing.Service
// satisfies it.
type BillingTasks interface {
	RetryProvision(ctx context.Context, subscriptionID, userID uint, accounts []billing.DeviceAccount) error
	ExpireOverdueSubscriptions(ctx context.Context) (int, error)
	SweepAbandonedPending(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue        *Queue
	billing      BillingTasks
	expiryTicker *time.Ticker
	sweepTicker  *time.Ticker
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// Initialize wires the global manager to the billing service. Must be called
// before GetManager.
func Initialize(tasks BillingTasks) *Manager {
	managerOnce.Do(func() {
		workers := envInt("JOBQUEUE_WORKER_COUNT", 3)
		globalManager = &Manager{
			billing: tasks,
			stopCh:  make(chan struct{}),
		}
		globalManager.queue = NewQueue(workers, func(ctx context.Context, payload *ProvisionAccountJobPayload) error {
			return tasks.RetryProvision(ctx, payload.SubscriptionID, payload.UserID, payload.Accounts)
		})
	})
	return globalManager
}

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Enqueuer returns the billing-facing retry enqueuer for the managed queue.
func (m *Manager) Enqueuer() *Enqueuer {
	return NewEnqueuer(m.queue)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	expiryInterval := time.Duration(envInt("SUBSCRIPTION_EXPIRY_INTERVAL_MINUTES", 15)) * time.Minute
	sweepInterval := time.Duration(envInt("PENDING_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute

	// Expire overdue subscriptions and disable their device accounts
	m.expiryTicker = time.NewTicker(expiryInterval)
	m.wg.Add(1)
	go m.expiryWorker()

	// Garbage-collect abandoned pending subscription/transaction pairs
	m.sweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.pendingSweepWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.expiryTicker != nil {
		m.expiryTicker.Stop()
	}
	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	// Signal workers to stop. The channel stays closed (Start recreates it)
	// so a worker re-entering its select never reads a nil channel.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// expiryWorker runs periodically to expire overdue subscriptions
func (m *Manager) expiryWorker() {
	defer m.wg.Done()
	log.Info("[JobQueue Manager] Started subscription expiry worker")

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Expiry worker stopping")
			return
		case <-m.expiryTicker.C:
			n, err := m.billing.ExpireOverdueSubscriptions(context.Background())
			if err != nil {
				log.Errorf("[JobQueue Manager] Subscription expiry error: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("[JobQueue Manager] Expired %d overdue subscriptions", n)
			}
		}
	}
}

// pendingSweepWorker runs periodically to clean up abandoned pending records
func (m *Manager) pendingSweepWorker() {
	defer m.wg.Done()
	maxAge := time.Duration(envInt("PENDING_SWEEP_MAX_AGE_HOURS", 48)) * time.Hour
	log.Infof("[JobQueue Manager] Started pending sweep worker (maxAge=%s)", maxAge)

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Pending sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			if _, err := m.billing.SweepAbandonedPending(context.Background(), maxAge); err != nil {
				log.Errorf("[JobQueue Manager] Pending sweep error: %v", err)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func envInt(key string, def int) int {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
