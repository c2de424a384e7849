package job

import (
	"log/slog"

	"github.com/maheshrc27/clipposter/internal/queue"
)

// ScheduleTickJob asks the worker for a scheduler run on every cron tick.
// Ticks that arrive while a run is still pending collapse into it.
type ScheduleTickJob struct {
	d queue.Dispatcher
}

func NewScheduleTickJob(d queue.Dispatcher) *ScheduleTickJob {
	return &ScheduleTickJob{d: d}
}

func (j *ScheduleTickJob) Tick() {
	if err := j.d.Run(queue.ScheduleRunPayload{Source: "tick"}); err != nil {
		slog.Info(err.Error())
	}
}

// RehostTickJob does the same for pending media downloads.
type RehostTickJob struct {
	d queue.Dispatcher
}

func NewRehostTickJob(d queue.Dispatcher) *RehostTickJob {
	return &RehostTickJob{d: d}
}

func (j *RehostTickJob) Tick() {
	if err := j.d.Rehost(queue.MediaRehostPayload{Source: "tick"}); err != nil {
		slog.Info(err.Error())
	}
}
