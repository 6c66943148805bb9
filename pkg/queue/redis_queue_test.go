package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestEnqueueWritesJobAndStreamMessage(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	job, err := q.Enqueue(ctx, "entry-1", "initial", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != StatusQueued || job.EntryID != "entry-1" || job.Kind != "initial" {
		t.Fatalf("unexpected job: %+v", job)
	}

	stored, found, err := q.GetJob(ctx, job.ID)
	if err != nil || !found {
		t.Fatalf("get job: found=%v err=%v", found, err)
	}
	if stored.EntryID != "entry-1" || stored.Status != StatusQueued {
		t.Fatalf("unexpected stored job: %+v", stored)
	}

	msg := readOneMessage(t, q, ctx, "consumer-1")
	if msg.Values["job_id"] != job.ID || msg.Values["entry_id"] != "entry-1" || msg.Values["kind"] != "initial" {
		t.Fatalf("unexpected message payload: %+v", msg.Values)
	}
}

func TestEnqueueRejectsMissingFields(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	if _, err := q.Enqueue(ctx, "", "initial", ""); err == nil {
		t.Fatal("expected error for missing entry id")
	}
	if _, err := q.Enqueue(ctx, "entry-1", "", ""); err == nil {
		t.Fatal("expected error for missing kind")
	}
}

func TestHandleMessageSuccessMarksDone(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	job, err := q.Enqueue(ctx, "entry-1", "initial", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOneMessage(t, q, ctx, "consumer-1")

	q.handleMessage(ctx, msg, func(ctx context.Context, j ReplyJob) error {
		if j.EntryID != "entry-1" {
			t.Fatalf("handler got wrong entry: %+v", j)
		}
		return nil
	})

	stored, _, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != StatusDone {
		t.Fatalf("status = %q, want done", stored.Status)
	}
	assertNoPending(t, q, ctx)
}

func TestHandleMessageFailureMarksFailedWithoutRetry(t *testing.T) {
	// MaxAttempts 1: a failed generation is dropped, not retried.
	q, ctx := newTestQueue(t, 1)

	job, err := q.Enqueue(ctx, "entry-1", "initial", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOneMessage(t, q, ctx, "consumer-1")

	q.handleMessage(ctx, msg, func(ctx context.Context, j ReplyJob) error {
		return errors.New("provider down")
	})

	stored, _, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", stored.Status)
	}
	if stored.ErrorMessage != "provider down" {
		t.Fatalf("error = %q", stored.ErrorMessage)
	}
	assertNoPending(t, q, ctx)

	streamLen, err := q.client.XLen(ctx, q.stream).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if streamLen != 0 {
		t.Fatalf("expected no requeued message, got len=%d", streamLen)
	}
}

func TestHandleMessageFailureRequeuesUntilMaxAttempts(t *testing.T) {
	q, ctx := newTestQueue(t, 2)

	job, err := q.Enqueue(ctx, "entry-1", "follow_up", "I talked to my manager")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOneMessage(t, q, ctx, "consumer-1")

	q.handleMessage(ctx, msg, func(ctx context.Context, j ReplyJob) error {
		return errors.New("transient")
	})

	stored, _, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != StatusQueued || stored.Attempts != 1 {
		t.Fatalf("expected requeued after first failure, got %+v", stored)
	}

	requeued := readOneMessage(t, q, ctx, "consumer-1")
	if requeued.Values["answer"] != "I talked to my manager" {
		t.Fatalf("requeued message lost answer: %+v", requeued.Values)
	}
	q.handleMessage(ctx, requeued, func(ctx context.Context, j ReplyJob) error {
		return errors.New("transient")
	})

	stored, _, err = q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != StatusFailed || stored.Attempts != 2 {
		t.Fatalf("expected failed after max attempts, got %+v", stored)
	}
}

func newTestQueue(t *testing.T, maxAttempts int) (*RedisReplyQueue, context.Context) {
	t.Helper()

	redisSrv := miniredis.RunT(t)
	q, err := NewRedisReplyQueue(RedisQueueConfig{
		Addr:        redisSrv.Addr(),
		Stream:      "test:replies",
		Group:       "test-group",
		Consumer:    "consumer-1",
		MaxAttempts: maxAttempts,
		RetryDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	ctx := context.Background()
	q.ensureGroup(ctx)
	return q, ctx
}

func readOneMessage(t *testing.T, q *RedisReplyQueue, ctx context.Context, consumer string) redis.XMessage {
	t.Helper()
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		t.Fatalf("readgroup: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one message, got %+v", streams)
	}
	return streams[0].Messages[0]
}

func assertNoPending(t *testing.T, q *RedisReplyQueue, ctx context.Context) {
	t.Helper()
	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending messages, got %d", pending.Count)
	}
}
