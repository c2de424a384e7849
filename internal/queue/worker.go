package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/clipposter/internal/models"
	"github.com/maheshrc27/clipposter/internal/service"
)

func (j *Queue) HandleScheduleRunTask(ctx context.Context, task *asynq.Task) error {
	var payload ScheduleRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	outcomes, err := j.s.RunOnce(ctx, time.Now().UTC())
	if errors.Is(err, service.ErrRunInProgress) {
		log.Printf("Run from %s skipped, another run is in progress", payload.Source)
		return nil
	}

	posted, failed := 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case models.OutcomePosted:
			posted++
		case models.OutcomeFailed:
			failed++
			log.Printf("Error posting record %s: %s", o.RecordID, o.Reason)
		}
	}
	if len(outcomes) > 0 {
		log.Printf("Run from %s finished: %d posted, %d failed, %d total", payload.Source, posted, failed, len(outcomes))
	}

	// An archived task keeps its uniqueness lock, which would swallow the
	// following ticks. The failed run is logged and the next tick retries.
	if err != nil {
		slog.Info(err.Error())
		log.Printf("Run from %s aborted: %v", payload.Source, err)
	}
	return nil
}

func (j *Queue) HandleMediaRehostTask(ctx context.Context, task *asynq.Task) error {
	var payload MediaRehostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	n, err := j.rh.RehostPending(ctx)
	if err != nil {
		slog.Info(err.Error())
		log.Printf("Rehost from %s aborted: %v", payload.Source, err)
		return nil
	}
	log.Printf("Rehost from %s finished: %d records", payload.Source, n)
	return nil
}
