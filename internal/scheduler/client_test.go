package scheduler

import (
	"context"
	"testing"

	"sitewire_backend/platform/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.Addr != "localhost:6380" {
		t.Fatalf("addr = %q", opt.Addr)
	}
	if opt.Password != "secret" {
		t.Fatalf("password = %q", opt.Password)
	}
	if opt.DB != 2 {
		t.Fatalf("db = %d", opt.DB)
	}
	if opt.TLSConfig != nil {
		t.Fatal("expected no TLS config for redis scheme")
	}
}

func TestRedisClientOptTLSInsecure(t *testing.T) {
	opt, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("redisClientOpt: %v", err)
	}
	if opt.TLSConfig == nil {
		t.Fatal("expected TLS config for rediss scheme")
	}
	if !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected InsecureSkipVerify")
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(&config.Config{}); err == nil {
		t.Fatal("expected error without redis url")
	}
}

func TestScheduleReminderCheckEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		RedisURL:       "redis://" + mr.Addr(),
		AsynqQueueName: "default",
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	payload := ProjectReminderCheckPayload{ProjectID: "4f5e6d7c-0000-0000-0000-000000000001"}
	if err := client.ScheduleReminderCheck(context.Background(), payload); err != nil {
		t.Fatalf("ScheduleReminderCheck: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskProjectReminderCheck {
		t.Fatalf("task type = %q", tasks[0].Type)
	}

	parsed, err := ParseProjectReminderCheckPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed.ProjectID != payload.ProjectID {
		t.Fatalf("project id = %q", parsed.ProjectID)
	}
}

func TestScheduleCommunicationProcessEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{
		RedisURL:       "redis://" + mr.Addr(),
		AsynqQueueName: "default",
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	commID := uuid.New()
	if err := client.ScheduleCommunicationProcess(context.Background(), commID); err != nil {
		t.Fatalf("ScheduleCommunicationProcess: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Type != TaskCommunicationProcess {
		t.Fatalf("task type = %q", tasks[0].Type)
	}

	parsed, err := ParseCommunicationProcessPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed.CommunicationID != commID.String() {
		t.Fatalf("communication id = %q", parsed.CommunicationID)
	}
}
