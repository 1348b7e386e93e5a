package worker

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/internal/store"
)

// ScheduleWorker fires due schedules on every tick. Claiming happens
// through a lease so overlapping ticks (or a second instance) never
// run the same schedule twice.
type ScheduleWorker struct {
	store     *store.Store
	schedules *service.ScheduleService
	generator *service.GenerationService
	lease     time.Duration
}

func NewScheduleWorker(st *store.Store, schedules *service.ScheduleService, generator *service.GenerationService, lease time.Duration) *ScheduleWorker {
	if lease <= 0 {
		lease = 10 * time.Minute
	}
	return &ScheduleWorker{
		store:     st,
		schedules: schedules,
		generator: generator,
		lease:     lease,
	}
}

// ProcessTask handles one scheduler tick.
func (w *ScheduleWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	now := time.Now().UTC()

	due, err := w.schedules.ClaimDue(ctx, now, w.lease)
	if err != nil {
		log.Printf("[Scheduler] failed to claim due schedules: %v", err)
		return err
	}
	if len(due) == 0 {
		return nil
	}

	log.Printf("[Scheduler] claimed %d due schedule(s)", len(due))

	for _, sched := range due {
		result, err := w.generator.ExecuteSchedule(ctx, sched)
		if err != nil {
			log.Printf("[Scheduler] schedule %s (%s) failed: %v", sched.ID, sched.Name, err)
			// Release so the next tick can pick it up again instead of
			// waiting out the lease.
			if relErr := w.store.ReleaseClaim(ctx, sched.ID); relErr != nil {
				log.Printf("[Scheduler] failed to release claim on %s: %v", sched.ID, relErr)
			}
			continue
		}
		log.Printf("[Scheduler] schedule %s (%s): %d rounds, %d tasks created, %d failed",
			sched.ID, sched.Name, len(result.Rounds), result.TasksCreated, result.Failed)
	}
	return nil
}
