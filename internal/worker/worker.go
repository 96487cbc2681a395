package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/queue"
)

// Handler consumes user jobs from the queue.
type Handler struct {
	logger *zap.Logger
}

// NewHandler constructs the job handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// ProcessTask dispatches on the task type. Unknown types fail the attempt so
// the broker applies its retry policy and eventually archives the job.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	switch task.Type() {
	case queue.TaskUserCreated:
		return h.handleUserCreated(ctx, task)
	default:
		return fmt.Errorf("unknown job %q", task.Type())
	}
}

// handleUserCreated runs the post-creation side effects, currently a
// notification/audit log stub. It holds no external state, so redelivery of
// the same job is harmless.
func (h *Handler) handleUserCreated(_ context.Context, task *asynq.Task) error {
	var p queue.UserCreatedPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", queue.TaskUserCreated, err)
	}

	h.logger.Info("user created",
		zap.Int64("user_id", p.UserID),
		zap.String("email", p.Email),
		zap.String("name", p.Name))
	return nil
}

// NewServer builds the asynq server bound to the user queue with the shared
// retry policy.
func NewServer(redisOpt asynq.RedisClientOpt, opts queue.Options, concurrency int, logger *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{opts.QueueName(): 1},
		RetryDelayFunc: opts.RetryDelay,
		Logger:         logger.Sugar(),
	})
}
