package evaluation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Enqueuer stores a payload for delivery at a due time.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, due time.Time) error
}

// Scheduler assigns task IDs and hands tasks to the delayed queue.
type Scheduler struct {
	queue Enqueuer
}

func NewScheduler(queue Enqueuer) *Scheduler {
	return &Scheduler{queue: queue}
}

func (s *Scheduler) Schedule(ctx context.Context, task Task) error {
	if task.TaskID == "" {
		task.TaskID = uuid.NewString()
	}
	return s.queue.Enqueue(ctx, task, task.TargetTime)
}
