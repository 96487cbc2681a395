package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskUserCreated is emitted once per successfully created user.
const TaskUserCreated = "user.created"

// DefaultQueue is the broker queue user jobs are scheduled on.
const DefaultQueue = "user"

// UserCreatedPayload is the wire payload for TaskUserCreated.
type UserCreatedPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// NewUserCreatedTask builds the task for a freshly created user.
func NewUserCreatedTask(p UserCreatedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUserCreated, payload), nil
}

// Options pin the queue name and retry policy shared by producer and worker.
type Options struct {
	Queue        string
	MaxRetry     int
	InitialDelay time.Duration
}

// QueueName returns the configured queue, falling back to DefaultQueue.
func (o Options) QueueName() string {
	if o.Queue == "" {
		return DefaultQueue
	}
	return o.Queue
}

// RetryDelay implements exponential backoff: InitialDelay * 2^(n-1) for the
// n-th retry. Matches asynq's RetryDelayFunc signature.
func (o Options) RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	base := o.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	if n < 1 {
		n = 1
	}
	return base * time.Duration(1<<uint(n-1))
}

// Producer schedules background jobs for later processing. Enqueue succeeds
// once the broker accepts the job, not once it is processed.
type Producer interface {
	EnqueueUserCreated(ctx context.Context, p UserCreatedPayload) error
}

type asynqProducer struct {
	client *asynq.Client
	opts   Options
}

// NewProducer returns an asynq-backed Producer.
func NewProducer(client *asynq.Client, opts Options) Producer {
	return &asynqProducer{client: client, opts: opts}
}

func (p *asynqProducer) EnqueueUserCreated(ctx context.Context, payload UserCreatedPayload) error {
	task, err := NewUserCreatedTask(payload)
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx, task,
		asynq.Queue(p.opts.QueueName()),
		asynq.MaxRetry(p.opts.MaxRetry),
	)
	return err
}
