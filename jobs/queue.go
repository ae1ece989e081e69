package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Job is one queued analysis request. Attempt counts the runs already made.
type Job struct {
	ID       string `json:"id"`
	ReportID string `json:"report_id"`
	Attempt  int    `json:"attempt"`

	// raw is the encoded member the job was reserved under.
	raw string
}

// FailedJob is a job that used all its attempts.
type FailedJob struct {
	Job
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Queue keeps jobs in Redis:
//
//	<name>:ready     list, LPUSH in / RPOP out
//	<name>:reserved  sorted set of running jobs scored by reservation expiry in unix milliseconds
//	<name>:delayed   sorted set scored by due time in unix milliseconds
//	<name>:failed    list of FailedJob
//
// A popped job stays in the reserved set until it is acked, released, retried or failed.
// PromoteDue returns reservations that expired to the ready list.
type Queue struct {
	rdb  redis.UniversalClient
	name string
}

// reserveScript moves the oldest ready job into the reserved set in one step.
var reserveScript = redis.NewScript(`
local job = redis.call('RPOP', KEYS[1])
if job then
	redis.call('ZADD', KEYS[2], ARGV[1], job)
end
return job
`)

func NewQueue(rdb redis.UniversalClient, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

func (q *Queue) readyKey() string    { return q.name + ":ready" }
func (q *Queue) reservedKey() string { return q.name + ":reserved" }
func (q *Queue) delayedKey() string  { return q.name + ":delayed" }
func (q *Queue) failedKey() string   { return q.name + ":failed" }

// DispatchAnalysis queues a first attempt at classifying the report.
func (q *Queue) DispatchAnalysis(ctx context.Context, reportID primitive.ObjectID) error {
	return q.Push(ctx, Job{ID: uuid.NewString(), ReportID: reportID.Hex()})
}

func (q *Queue) Push(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.readyKey(), payload).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

// Pop reserves the oldest ready job until the given time. A nil job and nil error mean
// the queue was empty.
func (q *Queue) Pop(ctx context.Context, until time.Time) (*Job, error) {
	payload, err := reserveScript.Run(ctx, q.rdb, []string{q.readyKey(), q.reservedKey()}, until.UnixMilli()).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("decode job %q: %w", payload, err)
	}
	job.raw = payload
	return &job, nil
}

// Ack drops a finished job's reservation.
func (q *Queue) Ack(ctx context.Context, job Job) error {
	if err := q.rdb.ZRem(ctx, q.reservedKey(), job.raw).Err(); err != nil {
		return fmt.Errorf("ack job %s: %w", job.ID, err)
	}
	return nil
}

// Release puts a reserved job back on the ready list unchanged, so the interrupted
// attempt does not count.
func (q *Queue) Release(ctx context.Context, job Job) error {
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.reservedKey(), job.raw)
		pipe.LPush(ctx, q.readyKey(), job.raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("release job %s: %w", job.ID, err)
	}
	return nil
}

// Retry swaps the job's reservation for a delayed entry due at due. The delayed entry
// carries the job's current Attempt.
func (q *Queue) Retry(ctx context.Context, job Job, due time.Time) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.reservedKey(), job.raw)
		pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(due.UnixMilli()), Member: string(payload)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("delay job %s: %w", job.ID, err)
	}
	return nil
}

// PromoteDue moves delayed jobs whose due time is at or before now onto the ready list,
// along with reservations that expired without being acked. A member is only pushed by the
// caller whose ZREM removed it, so concurrent promoters never duplicate a job.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	delayed, err := q.moveDue(ctx, q.delayedKey(), now)
	if err != nil {
		return delayed, err
	}
	expired, err := q.moveDue(ctx, q.reservedKey(), now)
	return delayed + expired, err
}

func (q *Queue) moveDue(ctx context.Context, key string, now time.Time) (int, error) {
	due, err := q.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", key, err)
	}

	moved := 0
	for _, member := range due {
		removed, err := q.rdb.ZRem(ctx, key, member).Result()
		if err != nil {
			return moved, fmt.Errorf("claim job from %s: %w", key, err)
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.readyKey(), member).Err(); err != nil {
			return moved, fmt.Errorf("promote job from %s: %w", key, err)
		}
		moved++
	}
	return moved, nil
}

// Fail records a job that will not be retried and drops its reservation.
func (q *Queue) Fail(ctx context.Context, job Job, cause error, at time.Time) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	payload, err := json.Marshal(FailedJob{Job: job, Error: msg, FailedAt: at})
	if err != nil {
		return fmt.Errorf("encode failed job: %w", err)
	}
	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if job.raw != "" {
			pipe.ZRem(ctx, q.reservedKey(), job.raw)
		}
		pipe.LPush(ctx, q.failedKey(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record failed job %s: %w", job.ID, err)
	}
	return nil
}

// Failed lists failed jobs, most recent first.
func (q *Queue) Failed(ctx context.Context) ([]FailedJob, error) {
	raw, err := q.rdb.LRange(ctx, q.failedKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	out := make([]FailedJob, 0, len(raw))
	for _, r := range raw {
		var fj FailedJob
		if err := json.Unmarshal([]byte(r), &fj); err != nil {
			return nil, fmt.Errorf("decode failed job: %w", err)
		}
		out = append(out, fj)
	}
	return out, nil
}

// Reserved counts jobs currently held by a worker.
func (q *Queue) Reserved(ctx context.Context) (int64, error) {
	n, err := q.rdb.ZCard(ctx, q.reservedKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count reserved jobs: %w", err)
	}
	return n, nil
}

// Pending reports how many jobs are ready and how many are waiting on a delay.
func (q *Queue) Pending(ctx context.Context) (ready, delayed int64, err error) {
	if ready, err = q.rdb.LLen(ctx, q.readyKey()).Result(); err != nil {
		return 0, 0, fmt.Errorf("count ready jobs: %w", err)
	}
	if delayed, err = q.rdb.ZCard(ctx, q.delayedKey()).Result(); err != nil {
		return 0, 0, fmt.Errorf("count delayed jobs: %w", err)
	}
	return ready, delayed, nil
}
