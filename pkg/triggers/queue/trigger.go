// Package queue provides the Redis queue trigger for event-triggered
// workflows: messages pushed onto the queue start matching workflows.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/repository"
)

// RunFunc starts one workflow run and returns its run id.
type RunFunc func(ctx context.Context, workflowID string) (string, error)

type Trigger struct {
	Queue      string
	Connection map[string]string
	Enabled    bool

	client     redis.UniversalClient
	repository *repository.Repository
	run        RunFunc
	logger     *slog.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewTrigger(ctx context.Context, config map[string]any, repo *repository.Repository, run RunFunc, logger *slog.Logger) (*Trigger, error) {
	queue, _ := config["queue"].(string)

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)
	for k, v := range connectionConfig {
		if str, ok := v.(string); ok {
			connection[k] = str
		}
	}

	trigger := &Trigger{
		Queue:      queue,
		Connection: connection,
		Enabled:    true,
		repository: repo,
		run:        run,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queue,
		),
	}

	if err := trigger.Validate(ctx); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate(_ context.Context) error {
	if t.Queue == "" {
		return errors.New("queue trigger queue name is required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "QueueTrigger is disabled.")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting QueueTrigger")

	if err := t.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) initializeClient(ctx context.Context) error {
	addr := t.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	password := t.Connection["password"]
	db := 0

	if dbStr := t.Connection["db"]; dbStr != "" {
		var err error
		if db, err = t.parseDB(dbStr); err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
	}

	t.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (t *Trigger) parseDB(dbStr string) (int, error) {
	var db int

	_, err := fmt.Sscanf(dbStr, "%d", &db)

	return db, err
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	t.logger.InfoContext(ctx, "Starting queue consumer", "queue", t.Queue)

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := t.processMessage(ctx)
			if err != nil {
				t.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// queueMessage is the payload pushed onto the queue. A workflow_id runs
// one workflow directly; a stream runs every enabled event-triggered
// workflow listening on that stream.
type queueMessage struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Stream     string `json:"stream,omitempty"`
}

func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, 1*time.Second, t.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]
	t.logger.InfoContext(ctx, "Received message from queue", "message", message)

	var payload queueMessage
	if err := json.Unmarshal([]byte(message), &payload); err != nil {
		t.logger.ErrorContext(ctx, "Discarding malformed message", "error", err)

		return nil
	}

	if payload.WorkflowID != "" {
		t.dispatch(ctx, payload.WorkflowID)

		return nil
	}

	if payload.Stream == "" {
		return nil
	}

	workflows, err := t.repository.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	for _, wf := range workflows {
		if wf.Enabled && wf.Trigger == models.TriggerTypeEvent && wf.Config.Stream == payload.Stream {
			t.dispatch(ctx, wf.ID)
		}
	}

	return nil
}

func (t *Trigger) dispatch(ctx context.Context, workflowID string) {
	go func() {
		runID, err := t.run(ctx, workflowID)
		if err != nil {
			t.logger.ErrorContext(ctx, "Error executing workflow for trigger", "workflow_id", workflowID, "error", err)

			return
		}

		t.logger.InfoContext(ctx, "Workflow triggered", "workflow_id", workflowID, "run_id", runID)
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping QueueTrigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
