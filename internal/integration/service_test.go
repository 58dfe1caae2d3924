package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"sitewire_backend/platform/config"
	"sitewire_backend/platform/logger"
)

type fakeStore struct {
	due       []Job
	completed []uuid.UUID
	retries   []retryCall
	failed    []failCall
}

type retryCall struct {
	id          uuid.UUID
	retryCount  int
	nextRetryAt time.Time
}

type failCall struct {
	id         uuid.UUID
	retryCount int
}

func (f *fakeStore) ClaimDue(_ context.Context, _ time.Time, limit int) ([]Job, error) {
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, _ map[string]any) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeStore) MarkRetry(_ context.Context, id uuid.UUID, retryCount int, nextRetryAt time.Time, _ string) error {
	f.retries = append(f.retries, retryCall{id: id, retryCount: retryCount, nextRetryAt: nextRetryAt})
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, retryCount int, _ string) error {
	f.failed = append(f.failed, failCall{id: id, retryCount: retryCount})
	return nil
}

type fakePusher struct {
	err   error
	calls int
}

func (f *fakePusher) Push(_ context.Context, _, _ string, _ *string, _ map[string]any) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"status_code": 200}, nil
}

func (f *fakePusher) Fetch(_ context.Context, _ string, _ *string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"status_code": 200}, nil
}

func testConfig() config.IntegrationConfig {
	return &config.Config{
		JobMaxRetries: 5,
		JobBackoffCap: 60 * time.Minute,
		JobBatchSize:  10,
	}
}

func newProcessor(store *fakeStore, pusher *fakePusher) *Processor {
	p := NewProcessor(store, pusher, nil, testConfig(), logger.New("development"))
	p.now = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return p
}

func TestBackoffProgression(t *testing.T) {
	cap := 60 * time.Minute
	want := []time.Duration{
		1 * time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		16 * time.Minute,
		32 * time.Minute,
		60 * time.Minute,
		60 * time.Minute,
	}
	for i, w := range want {
		if got := Backoff(i+1, cap); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestProcessDueCompletesSuccessfulJobs(t *testing.T) {
	store := &fakeStore{due: []Job{{ID: uuid.New()}, {ID: uuid.New()}}}
	pusher := &fakePusher{}
	p := newProcessor(store, pusher)

	n, err := p.ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 attempted, got %d", n)
	}
	if len(store.completed) != 2 {
		t.Fatalf("expected 2 completed, got %d", len(store.completed))
	}
	if pusher.calls != 2 {
		t.Fatalf("expected 2 pushes, got %d", pusher.calls)
	}
}

func TestProcessDueSchedulesRetryWithBackoff(t *testing.T) {
	job := Job{ID: uuid.New(), RetryCount: 2}
	store := &fakeStore{due: []Job{job}}
	pusher := &fakePusher{err: errors.New("crm timeout")}
	p := newProcessor(store, pusher)

	if _, err := p.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(store.retries) != 1 {
		t.Fatalf("expected 1 retry, got %d", len(store.retries))
	}
	got := store.retries[0]
	if got.retryCount != 3 {
		t.Fatalf("expected retry count 3, got %d", got.retryCount)
	}
	// Third failure backs off 2^2 = 4 minutes.
	want := time.Date(2026, 3, 10, 12, 4, 0, 0, time.UTC)
	if !got.nextRetryAt.Equal(want) {
		t.Fatalf("expected next retry at %v, got %v", want, got.nextRetryAt)
	}
}

func TestProcessDueTerminalAfterMaxRetries(t *testing.T) {
	job := Job{ID: uuid.New(), RetryCount: 5}
	store := &fakeStore{due: []Job{job}}
	pusher := &fakePusher{err: errors.New("crm rejected payload")}
	p := newProcessor(store, pusher)

	if _, err := p.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(store.retries) != 0 {
		t.Fatalf("expected no retry past the limit, got %d", len(store.retries))
	}
	if len(store.failed) != 1 {
		t.Fatalf("expected terminal failure, got %d", len(store.failed))
	}
	if store.failed[0].retryCount != 6 {
		t.Fatalf("expected retry count 6 on terminal failure, got %d", store.failed[0].retryCount)
	}
}

func TestProcessDueFifthFailureStillRetries(t *testing.T) {
	job := Job{ID: uuid.New(), RetryCount: 4}
	store := &fakeStore{due: []Job{job}}
	pusher := &fakePusher{err: errors.New("crm timeout")}
	p := newProcessor(store, pusher)

	if _, err := p.ProcessDue(context.Background()); err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if len(store.failed) != 0 {
		t.Fatalf("fifth failure must not be terminal, got %d failures", len(store.failed))
	}
	if len(store.retries) != 1 || store.retries[0].retryCount != 5 {
		t.Fatalf("expected fifth retry scheduled, got %+v", store.retries)
	}
	want := p.now().Add(16 * time.Minute)
	if !store.retries[0].nextRetryAt.Equal(want) {
		t.Fatalf("expected 16 minute backoff, got %v", store.retries[0].nextRetryAt)
	}
}
