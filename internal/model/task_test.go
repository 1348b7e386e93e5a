package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusHappyPath(t *testing.T) {
	path := []TaskStatus{
		TaskStatusPending,
		TaskStatusGenerating,
		TaskStatusGenerated,
		TaskStatusDownloading,
		TaskStatusDeploying,
		TaskStatusDeployed,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransitionTo(path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestTaskStatusFailedFromAnyNonTerminal(t *testing.T) {
	for _, s := range []TaskStatus{
		TaskStatusPending, TaskStatusGenerating, TaskStatusGenerated,
		TaskStatusDownloading, TaskStatusDeploying,
	} {
		assert.True(t, s.CanTransitionTo(TaskStatusFailed), "%s -> FAILED", s)
	}
	assert.False(t, TaskStatusDeployed.CanTransitionTo(TaskStatusFailed))
}

func TestTaskStatusRetryIsOnlyRecoveryEdge(t *testing.T) {
	assert.True(t, TaskStatusFailed.CanTransitionTo(TaskStatusPending))

	for _, s := range ValidTaskStatuses {
		if s == TaskStatusPending {
			continue
		}
		assert.False(t, TaskStatusFailed.CanTransitionTo(s), "FAILED -> %s", s)
	}
}

func TestTaskStatusNoSkippingForward(t *testing.T) {
	assert.False(t, TaskStatusPending.CanTransitionTo(TaskStatusGenerated))
	assert.False(t, TaskStatusGenerating.CanTransitionTo(TaskStatusDeployed))
	assert.False(t, TaskStatusGenerated.CanTransitionTo(TaskStatusDeploying))
}

func TestTaskStatusDeployedIsTerminal(t *testing.T) {
	for _, s := range ValidTaskStatuses {
		assert.False(t, TaskStatusDeployed.CanTransitionTo(s), "DEPLOYED -> %s", s)
	}
	assert.True(t, TaskStatusDeployed.IsTerminal())
	assert.False(t, TaskStatusFailed.IsTerminal())
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(TaskStatusPending, TaskStatusGenerating))

	err := ValidateTransition(TaskStatusDeployed, TaskStatusFailed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "DEPLOYED")
}
