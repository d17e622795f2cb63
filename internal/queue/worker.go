package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

func (j *Queue) HandlePostSubmittedTask(ctx context.Context, task *asynq.Task) error {
	var payload PostSubmittedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypePostSubmitted, err, asynq.SkipRetry)
	}

	slog.Info("post due, waking worker", slog.Int64("post_id", payload.PostID))
	j.w.Wake()

	return nil
}

// Mux routes wake tasks to the handler.
func (j *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePostSubmitted, j.HandlePostSubmittedTask)
	return mux
}
