package queue

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// uniqueFor bounds how long a pending task blocks identical ones.
const uniqueFor = 10 * time.Minute

// RunLock is the uniqueness window of tick runs. It never outlasts the tick
// interval, so a lost lock costs at most one tick.
func RunLock(interval time.Duration) time.Duration {
	if interval <= 0 || interval > uniqueFor {
		return uniqueFor
	}
	return interval
}

func NewScheduleRunTask(payload ScheduleRunPayload) (*asynq.Task, error) {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeScheduleRun, taskPayload, asynq.Queue(QueueScheduler), asynq.MaxRetry(0)), nil
}

// EnqueueRun asks the worker for a run unless an identical one is already
// pending. A duplicate is not an error.
func EnqueueRun(asynqClient *asynq.Client, payload ScheduleRunPayload, lock time.Duration) error {
	task, err := NewScheduleRunTask(payload)
	if err != nil {
		return err
	}

	_, err = asynqClient.Enqueue(task, asynq.Unique(lock))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}

// EnqueueRunAt schedules a run for the moment a record becomes due.
func EnqueueRunAt(asynqClient *asynq.Client, at time.Time) error {
	payload := ScheduleRunPayload{Due: at.UTC().Format(time.RFC3339), Source: "schedule"}
	task, err := NewScheduleRunTask(payload)
	if err != nil {
		return err
	}

	_, err = asynqClient.Enqueue(task, asynq.ProcessAt(at), asynq.Unique(time.Until(at)+uniqueFor))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: %+v", payload)
	return nil
}

func EnqueueRehost(asynqClient *asynq.Client, payload MediaRehostPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypeMediaRehost, taskPayload, asynq.Queue(QueueMedia), asynq.MaxRetry(0))
	_, err = asynqClient.Enqueue(task, asynq.Unique(uniqueFor))
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

// Dispatcher hands work to the background worker.
type Dispatcher interface {
	Run(payload ScheduleRunPayload) error
	RunAt(at time.Time) error
	Rehost(payload MediaRehostPayload) error
}

type asynqDispatcher struct {
	client *asynq.Client
	lock   time.Duration
}

// NewDispatcher enqueues on client. interval is the schedule tick interval.
func NewDispatcher(client *asynq.Client, interval time.Duration) Dispatcher {
	return &asynqDispatcher{client: client, lock: RunLock(interval)}
}

func (d *asynqDispatcher) Run(payload ScheduleRunPayload) error {
	return EnqueueRun(d.client, payload, d.lock)
}

func (d *asynqDispatcher) RunAt(at time.Time) error {
	return EnqueueRunAt(d.client, at)
}

func (d *asynqDispatcher) Rehost(payload MediaRehostPayload) error {
	return EnqueueRehost(d.client, payload)
}
