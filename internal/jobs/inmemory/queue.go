// Package inmemory provides a channel-backed job queue and job store for
// single-instance deployments.
package inmemory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/jobs"
	"github.com/dvloznov/ministry-backoffice/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrQueueClosed is returned when publishing to a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

const (
	DefaultWorkers    = 5
	DefaultMaxRetries = 3
)

// Queue implements jobs.Publisher and jobs.Consumer on a buffered channel.
type Queue struct {
	jobChan   chan *jobs.IndexReceiptJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool

	store      jobs.JobStore
	workers    int
	maxRetries int
	log        zerolog.Logger

	// backoff is the delay before retry n (1-based).
	backoff func(n int) time.Duration
}

// NewQueue creates a queue holding up to bufferSize pending jobs.
func NewQueue(bufferSize int, store jobs.JobStore, log zerolog.Logger) *Queue {
	return &Queue{
		jobChan:    make(chan *jobs.IndexReceiptJob, bufferSize),
		closeChan:  make(chan struct{}),
		store:      store,
		workers:    DefaultWorkers,
		maxRetries: DefaultMaxRetries,
		log:        log,
		backoff:    func(n int) time.Duration { return time.Duration(n) * time.Second },
	}
}

// WithLimits overrides the worker count and the default retry budget.
// Non-positive values keep the current setting. Call before Start.
func (q *Queue) WithLimits(workers, maxRetries int) *Queue {
	if workers > 0 {
		q.workers = workers
	}
	if maxRetries > 0 {
		q.maxRetries = maxRetries
	}
	return q
}

// PublishIndexReceipt assigns defaults, saves and enqueues job.
func (q *Queue) PublishIndexReceipt(ctx context.Context, job *jobs.IndexReceiptJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.maxRetries
	}
	return q.enqueue(ctx, job)
}

func (q *Queue) enqueue(ctx context.Context, job *jobs.IndexReceiptJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return err
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrQueueClosed
	}
}

// Start launches the worker goroutines.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.process(ctx, job, handler)
		}
	}
}

func (q *Queue) process(ctx context.Context, job *jobs.IndexReceiptJob, handler jobs.JobHandler) {
	started := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	job.CompletedAt = nil
	q.save(ctx, job)

	err := q.run(ctx, job, handler)

	completed := time.Now()
	job.CompletedAt = &completed

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.save(ctx, job)
		metrics.JobsProcessedTotal.WithLabelValues(string(job.Type()), string(jobs.JobStatusCompleted)).Inc()
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		metrics.JobsProcessedTotal.WithLabelValues(string(job.Type()), string(jobs.JobStatusFailed)).Inc()
		q.log.Error().Err(err).Str("job_id", job.JobID).Int64("receipt_id", job.ReceiptID).Msg("Job failed permanently")
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)

	// The retry gets its own copy so the worker that ran this attempt no
	// longer touches it.
	retry := *job
	retry.Status = jobs.JobStatusPending
	time.AfterFunc(q.backoff(retry.RetryCount), func() {
		if err := q.enqueue(ctx, &retry); err != nil && !errors.Is(err, ErrQueueClosed) {
			q.log.Warn().Err(err).Str("job_id", retry.JobID).Msg("Failed to requeue job")
		}
	})
}

// run calls handler and turns a panic into an error.
func (q *Queue) run(ctx context.Context, job *jobs.IndexReceiptJob, handler jobs.JobHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("job handler panicked")
			q.log.Error().Interface("panic", r).Str("job_id", job.JobID).Msg("Job handler panicked")
		}
	}()
	return handler(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *jobs.IndexReceiptJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		q.log.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}

// Stop closes the queue and waits for workers to exit.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
