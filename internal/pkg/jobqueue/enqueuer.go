package jobqueue

import (
	"github.com/ardikapras/netbill/internal/pkg/billing"
)

// Enqueuer implements billing.RetryEnqueuer on top of the queue. The account
// data is stored verbatim so the retry replays the exact credentials the
// payment allocated.
type Enqueuer struct {
	queue *Queue
}

func NewEnqueuer(queue *Queue) *Enqueuer {
	return &Enqueuer{queue: queue}
}

func (e *Enqueuer) EnqueueProvision(subscriptionID, userID uint, accounts []billing.DeviceAccount) error {
	payload := ProvisionAccountJobPayload{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		Accounts:       accounts,
	}
	_, err := e.queue.EnqueueJob(JobTypeProvisionAccount, payload.ToMap())
	return err
}
