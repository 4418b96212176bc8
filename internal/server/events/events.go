// Package events publishes domain events of the sync server to an asynq
// task queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ItemRevisionRequestedTask is enqueued after every persisted item write
	// so a worker can copy the new state into the revision history.
	ItemRevisionRequestedTask = "item:revision_requested"

	defaultMaxRetry = 5
)

// ItemRevisionRequested is the payload of ItemRevisionRequestedTask.
type ItemRevisionRequested struct {
	ItemUUID           string `json:"item_uuid"`
	UserUUID           string `json:"user_uuid"`
	GroupUUID          string `json:"group_uuid,omitempty"`
	UpdatedAtTimestamp int64  `json:"updated_at_timestamp"`
	Deleted            bool   `json:"deleted"`
}

// Publisher delivers domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishItemRevisionRequested(ctx context.Context, e ItemRevisionRequested) error
}

// Enqueuer is the part of *asynq.Client the publisher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type AsynqPublisher struct {
	client   Enqueuer
	maxRetry int
}

func NewAsynqPublisher(client Enqueuer) *AsynqPublisher {
	return &AsynqPublisher{client: client, maxRetry: defaultMaxRetry}
}

func (p *AsynqPublisher) PublishItemRevisionRequested(ctx context.Context, e ItemRevisionRequested) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ItemRevisionRequestedTask, data)
	if _, err := p.client.EnqueueContext(ctx, task, asynq.MaxRetry(p.maxRetry)); err != nil {
		return fmt.Errorf("enqueue %s: %w", ItemRevisionRequestedTask, err)
	}
	return nil
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishItemRevisionRequested(context.Context, ItemRevisionRequested) error {
	return nil
}

// DecodeItemRevisionRequested reads the payload of a dequeued task.
func DecodeItemRevisionRequested(task *asynq.Task) (ItemRevisionRequested, error) {
	var e ItemRevisionRequested
	if task.Type() != ItemRevisionRequestedTask {
		return e, fmt.Errorf("unexpected task type %q", task.Type())
	}
	if err := json.Unmarshal(task.Payload(), &e); err != nil {
		return e, fmt.Errorf("decode payload: %w", err)
	}
	return e, nil
}
