package worker

import "github.com/hibiken/asynq"

// Asynq task types for the pipeline's periodic work. Both are
// registered with the scheduler in main; neither carries a payload,
// the database is the source of truth for what is due.
const (
	TaskTypeScheduleTick = "pipeline:schedule_tick"
	TaskTypePollTasks    = "pipeline:poll_tasks"
)

func NewScheduleTickTask() *asynq.Task {
	return asynq.NewTask(TaskTypeScheduleTick, nil)
}

func NewPollTasksTask() *asynq.Task {
	return asynq.NewTask(TaskTypePollTasks, nil)
}
