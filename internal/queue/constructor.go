package queue

import (
	"github.com/maheshrc27/clipposter/internal/service"
)

type Queue struct {
	s  service.SchedulerService
	rh service.RehostService
}

func NewQueue(s service.SchedulerService, rh service.RehostService) *Queue {
	return &Queue{s: s, rh: rh}
}

const (
	TaskTypeScheduleRun = "schedule:run"
	TaskTypeMediaRehost = "media:rehost"
)

// QueueScheduler holds every task that touches the videos table. The worker
// serves it with a concurrency of one so runs never overlap.
const (
	QueueScheduler = "scheduler"
	QueueMedia     = "media"
)

// ScheduleRunPayload identifies what triggered a run. Ticks leave Due empty;
// a run enqueued for a specific record schedule carries that time.
type ScheduleRunPayload struct {
	Due    string `json:"due,omitempty"`
	Source string `json:"source"`
}

type MediaRehostPayload struct {
	Source string `json:"source"`
}
