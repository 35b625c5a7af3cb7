package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/ardikapras/netbill/internal/pkg/billing"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeProvisionAccount JobType = "provision_account"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// ProvisionAccountJobPayload carries everything a retry needs so the worker
// never re-derives credentials: the stored account data is replayed as-is.
type ProvisionAccountJobPayload struct {
	SubscriptionID uint                    `json:"subscription_id"`
	UserID         uint                    `json:"user_id"`
	Accounts       []billing.DeviceAccount `json:"accounts"`
}

// ToMap converts the payload to a map for storage
func (p ProvisionAccountJobPayload) ToMap() map[string]interface{} {
	accounts := make([]interface{}, 0, len(p.Accounts))
	for _, a := range p.Accounts {
		accounts = append(accounts, map[string]interface{}{
			"service":  a.Service,
			"name":     a.Name,
			"password": a.Password,
			"profile":  a.Profile,
			"comment":  a.Comment,
		})
	}
	return map[string]interface{}{
		"subscription_id": p.SubscriptionID,
		"user_id":         p.UserID,
		"accounts":        accounts,
	}
}

// ProvisionAccountJobPayloadFromMap creates a payload from a map
func ProvisionAccountJobPayloadFromMap(data map[string]interface{}) (*ProvisionAccountJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ProvisionAccountJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
