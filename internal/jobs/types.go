// Package jobs defines background work scheduled by the API, currently the
// indexing of uploaded receipts for semantic search.
package jobs

import (
	"context"
	"time"
)

// JobType names the kind of work a job carries.
type JobType string

const (
	JobTypeIndexReceipt JobType = "index_receipt"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying marks a failed attempt that will run again.
	JobStatusRetrying JobStatus = "retrying"
)

// IndexReceiptJob embeds one receipt's text and stores the vector.
type IndexReceiptJob struct {
	JobID     string `json:"job_id"`
	ReceiptID int64  `json:"receipt_id"`
	// Text is the string that gets embedded.
	Text        string     `json:"text"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
}

// Type returns the job type.
func (j *IndexReceiptJob) Type() JobType {
	return JobTypeIndexReceipt
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishIndexReceipt(ctx context.Context, job *IndexReceiptJob) error
	Close() error
}

// Consumer runs jobs with a handler.
type Consumer interface {
	// Start launches the workers and returns immediately.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error schedules a retry while
// retries remain.
type JobHandler func(ctx context.Context, job *IndexReceiptJob) error

// JobStore tracks job state for the admin job endpoints.
type JobStore interface {
	SaveJob(ctx context.Context, job *IndexReceiptJob) error
	// GetJob yields domain.ErrNotFound for an unknown id.
	GetJob(ctx context.Context, jobID string) (*IndexReceiptJob, error)
	// ListJobs orders by created_at descending.
	ListJobs(ctx context.Context, filter JobFilter) ([]*IndexReceiptJob, error)
}

// JobFilter narrows ListJobs.
type JobFilter struct {
	ReceiptID int64
	Status    JobStatus
	Limit     int
	Offset    int
}
