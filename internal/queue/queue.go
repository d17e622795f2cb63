package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Notifier enqueues a wake task for every submitted post. Tasks for future
// posts are held by asynq until the post is due.
type Notifier struct {
	client *asynq.Client
	now    func() time.Time
}

func NewNotifier(client *asynq.Client) *Notifier {
	return &Notifier{client: client, now: time.Now}
}

func (n *Notifier) PostSubmitted(ctx context.Context, postID int64, scheduledAt time.Time) error {
	task, opts, err := newPostSubmittedTask(postID, scheduledAt, n.now())
	if err != nil {
		return err
	}

	info, err := n.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return err
	}

	slog.Info("wake task scheduled", slog.Int64("post_id", postID), slog.String("task_id", info.ID))
	return nil
}

func newPostSubmittedTask(postID int64, scheduledAt, now time.Time) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(PostSubmittedPayload{PostID: postID, ScheduledAt: scheduledAt.Unix()})
	if err != nil {
		return nil, nil, err
	}

	// A lost wake only delays publishing until the next poll.
	opts := []asynq.Option{asynq.MaxRetry(0)}
	if scheduledAt.After(now) {
		opts = append(opts, asynq.ProcessAt(scheduledAt))
	}

	return asynq.NewTask(TaskTypePostSubmitted, payload), opts, nil
}
