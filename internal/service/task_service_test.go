package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

type recordingNotifier struct {
	statuses []model.TaskStatus
	deployed []string
}

func (r *recordingNotifier) NotifyStatus(taskID string, status model.TaskStatus, errMsg string) {
	r.statuses = append(r.statuses, status)
}

func (r *recordingNotifier) NotifyDeployed(taskID, trackID string) {
	r.deployed = append(r.deployed, trackID)
}

func createTask(t *testing.T, st *store.Store, status model.TaskStatus) *model.GenerationTask {
	t.Helper()
	task := &model.GenerationTask{
		ID:             "task-" + string(status),
		ProviderTaskID: "prov-1",
		Title:          "T",
		Style:          "lofi",
		Mood:           "calm",
		Status:         status,
		MaxRetries:     model.DefaultMaxRetries,
	}
	require.NoError(t, st.CreateTask(context.Background(), task))
	return task
}

func TestTransitionPersistsAndNotifies(t *testing.T) {
	st := newTestStore(t)
	notifier := &recordingNotifier{}
	svc := NewTaskService(st, notifier)
	ctx := context.Background()

	task := createTask(t, st, model.TaskStatusPending)
	require.NoError(t, svc.Transition(ctx, task, model.TaskStatusGenerating, ""))

	stored, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusGenerating, stored.Status)
	assert.Equal(t, []model.TaskStatus{model.TaskStatusGenerating}, notifier.statuses)
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	st := newTestStore(t)
	svc := NewTaskService(st, nil)
	ctx := context.Background()

	task := createTask(t, st, model.TaskStatusPending)
	err := svc.Transition(ctx, task, model.TaskStatusDeployed, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))

	stored, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, stored.Status)
}

func TestTransitionToFailedRecordsError(t *testing.T) {
	st := newTestStore(t)
	svc := NewTaskService(st, nil)
	ctx := context.Background()

	task := createTask(t, st, model.TaskStatusGenerating)
	require.NoError(t, svc.Transition(ctx, task, model.TaskStatusFailed, "provider timeout"))

	stored, err := st.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Equal(t, "provider timeout", *stored.Error)
	assert.NotNil(t, stored.FailedAt)
}

func TestRetryResetsFailureState(t *testing.T) {
	st := newTestStore(t)
	svc := NewTaskService(st, nil)
	ctx := context.Background()

	task := createTask(t, st, model.TaskStatusGenerating)
	require.NoError(t, svc.Transition(ctx, task, model.TaskStatusFailed, "boom"))

	retried, err := svc.Retry(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, retried.Status)
	assert.Equal(t, 0, retried.RetryCount)
	assert.Nil(t, retried.Error)
	assert.Nil(t, retried.FailedAt)
}

func TestRetryRejectsNonFailedTask(t *testing.T) {
	st := newTestStore(t)
	svc := NewTaskService(st, nil)

	task := createTask(t, st, model.TaskStatusGenerating)
	_, err := svc.Retry(context.Background(), task.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))
}

func TestCancelIsIdempotentOnFailed(t *testing.T) {
	st := newTestStore(t)
	svc := NewTaskService(st, nil)
	ctx := context.Background()

	task := createTask(t, st, model.TaskStatusPending)

	first, err := svc.Cancel(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, first.Status)

	second, err := svc.Cancel(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, second.Status)
}

func TestCancelRejectsDeployed(t *testing.T) {
	st := newTestStore(t)
	svc := NewTaskService(st, nil)

	task := createTask(t, st, model.TaskStatusDeployed)
	_, err := svc.Cancel(context.Background(), task.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition))
}
