package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	attemptTimeout = 60 * time.Second
	// reserveFor outlasts an attempt so only a dead worker's reservation expires.
	reserveFor  = attemptTimeout + 30*time.Second
	popWait     = time.Second
	promoteSpec = "@every 1s"
)

// Handler runs one attempt of a job for a report.
type Handler interface {
	Handle(ctx context.Context, reportID primitive.ObjectID) error
}

// Worker takes jobs off a Queue and retries failures per its RetryPolicy.
type Worker struct {
	queue   *Queue
	handler Handler
	policy  RetryPolicy
	now     func() time.Time
}

func NewWorker(queue *Queue, handler Handler, policy RetryPolicy) *Worker {
	return &Worker{
		queue:   queue,
		handler: handler,
		policy:  policy,
		now:     time.Now,
	}
}

// WithClock replaces the time source used for scheduling retries.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// ProcessNext runs the next ready job, if any, and reports whether one was found.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	job, err := w.queue.Pop(ctx, w.now().Add(reserveFor))
	if err != nil || job == nil {
		return false, err
	}
	return true, w.process(ctx, *job)
}

// PromoteDue makes delayed jobs whose backoff has elapsed ready again, and recovers jobs
// whose worker died mid-attempt.
func (w *Worker) PromoteDue(ctx context.Context) (int, error) {
	return w.queue.PromoteDue(ctx, w.now())
}

// Run processes jobs until ctx is cancelled. Delayed jobs are promoted on a cron schedule.
func (w *Worker) Run(ctx context.Context) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(promoteSpec, func() {
		if n, err := w.PromoteDue(ctx); err != nil {
			log.Printf("Error promoting delayed jobs: %v", err)
		} else if n > 0 {
			log.Printf("Promoted %d delayed job(s)", n)
		}
	}); err != nil {
		return fmt.Errorf("schedule job promotion: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("Worker started on queue %s", w.queue.name)
	for {
		if ctx.Err() != nil {
			log.Println("Worker stopped")
			return nil
		}
		job, err := w.queue.Pop(ctx, w.now().Add(reserveFor))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("Error reading queue: %v", err)
		}
		if job == nil {
			select {
			case <-ctx.Done():
			case <-time.After(popWait):
			}
			continue
		}
		if err := w.process(ctx, *job); err != nil {
			log.Printf("Error handling job %s: %v", job.ID, err)
		}
	}
}

// process runs one attempt. Handler failures are absorbed into a retry or the failed list;
// only queue errors are returned. Queue writes outlive cancellation of ctx.
func (w *Worker) process(ctx context.Context, job Job) error {
	qctx := context.WithoutCancel(ctx)

	reportID, err := primitive.ObjectIDFromHex(job.ReportID)
	if err != nil {
		job.Attempt++
		log.Printf("Job %s has invalid report id %q; dropping", job.ID, job.ReportID)
		return w.queue.Fail(qctx, job, err, w.now())
	}

	actx, cancel := context.WithTimeout(ctx, attemptTimeout)
	herr := w.handler.Handle(actx, reportID)
	cancel()
	if herr == nil {
		log.Printf("Job %s for report %s succeeded on attempt %d", job.ID, job.ReportID, job.Attempt+1)
		return w.queue.Ack(qctx, job)
	}
	if ctx.Err() != nil {
		log.Printf("Job %s for report %s interrupted; returning it to the queue", job.ID, job.ReportID)
		return w.queue.Release(qctx, job)
	}

	job.Attempt++
	delay, retry := w.policy.NextDelay(job.Attempt)
	if !retry {
		log.Printf("Job %s for report %s failed after %d attempts: %v", job.ID, job.ReportID, job.Attempt, herr)
		return w.queue.Fail(qctx, job, herr, w.now())
	}
	log.Printf("Job %s for report %s failed on attempt %d, retrying in %s: %v", job.ID, job.ReportID, job.Attempt, delay, herr)
	return w.queue.Retry(qctx, job, w.now().Add(delay))
}
