package model

import (
	"errors"
	"fmt"
)

// Frequency describes a schedule's recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyOnce    Frequency = "once"
)

var ValidFrequencies = []Frequency{
	FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyOnce,
}

// IsValid reports whether f is a known frequency.
func (f Frequency) IsValid() bool {
	for _, v := range ValidFrequencies {
		if f == v {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of a generation task.
type TaskStatus string

const (
	TaskStatusPending     TaskStatus = "PENDING"
	TaskStatusGenerating  TaskStatus = "GENERATING"
	TaskStatusGenerated   TaskStatus = "GENERATED"
	TaskStatusDownloading TaskStatus = "DOWNLOADING"
	TaskStatusDeploying   TaskStatus = "DEPLOYING"
	TaskStatusDeployed    TaskStatus = "DEPLOYED"
	TaskStatusFailed      TaskStatus = "FAILED"
)

var ValidTaskStatuses = []TaskStatus{
	TaskStatusPending, TaskStatusGenerating, TaskStatusGenerated,
	TaskStatusDownloading, TaskStatusDeploying, TaskStatusDeployed,
	TaskStatusFailed,
}

// PendingLikeStatuses is the reporting bucket that collapses every
// non-terminal, non-failed state into one count.
var PendingLikeStatuses = []TaskStatus{
	TaskStatusPending, TaskStatusGenerating, TaskStatusGenerated,
	TaskStatusDownloading, TaskStatusDeploying,
}

// ErrInvalidTransition is returned when a status change violates the
// task state machine.
var ErrInvalidTransition = errors.New("invalid task status transition")

// taskTransitions is the allowed forward edge set. FAILED is reachable
// from every non-terminal state; FAILED -> PENDING is the manual retry
// path and the only way back.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:     {TaskStatusGenerating, TaskStatusFailed},
	TaskStatusGenerating:  {TaskStatusGenerated, TaskStatusFailed},
	TaskStatusGenerated:   {TaskStatusDownloading, TaskStatusFailed},
	TaskStatusDownloading: {TaskStatusDeploying, TaskStatusFailed},
	TaskStatusDeploying:   {TaskStatusDeployed, TaskStatusFailed},
	TaskStatusDeployed:    {},
	TaskStatusFailed:      {TaskStatusPending},
}

// CanTransitionTo reports whether the state machine permits s -> next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, t := range taskTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDeployed
}

// ValidateTransition returns ErrInvalidTransition (wrapped with the
// offending edge) when s -> next is not allowed.
func ValidateTransition(s, next TaskStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}
