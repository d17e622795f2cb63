package queue

// Waker starts a worker cycle ahead of schedule.
type Waker interface {
	Wake()
}

type Queue struct {
	w Waker
}

func NewQueue(w Waker) *Queue {
	return &Queue{w: w}
}

const TaskTypePostSubmitted = "post:submitted"

type PostSubmittedPayload struct {
	PostID      int64 `json:"post_id"`
	ScheduledAt int64 `json:"scheduled_at"`
}
