package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

// TaskNotifier receives task lifecycle events for push delivery.
// Implemented by the websocket hub; nil disables notifications.
type TaskNotifier interface {
	NotifyStatus(taskID string, status model.TaskStatus, errMsg string)
	NotifyDeployed(taskID, trackID string)
}

// TaskService manages the generation task state machine.
type TaskService struct {
	store    *store.Store
	notifier TaskNotifier
}

func NewTaskService(st *store.Store, notifier TaskNotifier) *TaskService {
	return &TaskService{store: st, notifier: notifier}
}

// Get fetches one task, nil when absent.
func (s *TaskService) Get(ctx context.Context, id string) (*model.GenerationTask, error) {
	return s.store.GetTask(ctx, id)
}

// List returns tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter model.TaskFilter) ([]*model.GenerationTask, error) {
	return s.store.ListTasks(ctx, filter)
}

// Summary aggregates counts for the admin overview.
func (s *TaskService) Summary(ctx context.Context) (*model.TaskSummary, error) {
	return s.store.TaskSummary(ctx)
}

// Transition moves a task to the next status after validating the edge
// against the state machine. Moving to FAILED records the error and
// failure time. The task is persisted and subscribers are notified.
func (s *TaskService) Transition(ctx context.Context, task *model.GenerationTask, next model.TaskStatus, errMsg string) error {
	if err := model.ValidateTransition(task.Status, next); err != nil {
		return err
	}

	task.Status = next
	if next == model.TaskStatusFailed {
		now := time.Now().UTC()
		task.FailedAt = &now
		task.Error = &errMsg
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to persist transition: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyStatus(task.ID, next, errMsg)
	}
	return nil
}

// Retry moves a FAILED task back to PENDING, resetting the retry
// counter and clearing the error detail. The only recovery edge in the
// state machine.
func (s *TaskService) Retry(ctx context.Context, id string) (*model.GenerationTask, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s not found", id)
	}

	if err := model.ValidateTransition(task.Status, model.TaskStatusPending); err != nil {
		return nil, err
	}

	task.Status = model.TaskStatusPending
	task.RetryCount = 0
	task.Error = nil
	task.FailedAt = nil

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to persist retry: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyStatus(task.ID, task.Status, "")
	}
	log.Printf("[Tasks] task %s retried", id)
	return task, nil
}

// Cancel forces a task to FAILED before deployment. DEPLOYED tasks
// cannot be cancelled.
func (s *TaskService) Cancel(ctx context.Context, id string) (*model.GenerationTask, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s not found", id)
	}

	if task.Status == model.TaskStatusFailed {
		return task, nil
	}
	if err := s.Transition(ctx, task, model.TaskStatusFailed, "cancelled by operator"); err != nil {
		return nil, err
	}
	log.Printf("[Tasks] task %s cancelled", id)
	return task, nil
}

// PurgeFailed removes failed tasks older than days (default 30) and
// returns the number deleted.
func (s *TaskService) PurgeFailed(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := s.store.PurgeFailedTasks(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("[Tasks] purged %d failed tasks older than %d days", removed, days)
	}
	return removed, nil
}
