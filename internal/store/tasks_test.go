package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/model"
)

func seedTask(t *testing.T, st *Store, id string, status model.TaskStatus) *model.GenerationTask {
	t.Helper()
	task := &model.GenerationTask{
		ID:             id,
		ProviderTaskID: "prov-" + id,
		Title:          "task " + id,
		Style:          "lofi",
		Mood:           "calm",
		Status:         status,
		MaxRetries:     model.DefaultMaxRetries,
	}
	require.NoError(t, st.CreateTask(context.Background(), task))
	return task
}

func TestTaskRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	task := seedTask(t, st, "t1", model.TaskStatusPending)
	task.Status = model.TaskStatusGenerating
	task.AudioURL = "https://cdn.test/a.mp3"
	task.Duration = 183.5
	errMsg := "transient"
	task.Error = &errMsg
	require.NoError(t, st.UpdateTask(ctx, task))

	got, err := st.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TaskStatusGenerating, got.Status)
	assert.Equal(t, "https://cdn.test/a.mp3", got.AudioURL)
	assert.Equal(t, 183.5, got.Duration)
	require.NotNil(t, got.Error)
	assert.Equal(t, "transient", *got.Error)

	missing, err := st.GetTask(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListTasksFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	a := seedTask(t, st, "a", model.TaskStatusPending)
	a.ScheduleID = "sched-1"
	require.NoError(t, st.UpdateTask(ctx, a))
	seedTask(t, st, "b", model.TaskStatusFailed)
	seedTask(t, st, "c", model.TaskStatusDeployed)

	failed, err := st.ListTasks(ctx, model.TaskFilter{Status: model.TaskStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID)

	byShed, err := st.ListTasks(ctx, model.TaskFilter{ScheduleID: "sched-1"})
	require.NoError(t, err)
	require.Len(t, byShed, 1)
	assert.Equal(t, "a", byShed[0].ID)

	limited, err := st.ListTasks(ctx, model.TaskFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestTasksByStatuses(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedTask(t, st, "p", model.TaskStatusPending)
	seedTask(t, st, "g", model.TaskStatusGenerating)
	seedTask(t, st, "d", model.TaskStatusDeployed)

	open, err := st.TasksByStatuses(ctx, model.TaskStatusPending, model.TaskStatusGenerating)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, task := range open {
		assert.NotEqual(t, model.TaskStatusDeployed, task.Status)
	}
}

func TestTaskSummaryBuckets(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedTask(t, st, "1", model.TaskStatusPending)
	seedTask(t, st, "2", model.TaskStatusDownloading)
	seedTask(t, st, "3", model.TaskStatusDeployed)
	seedTask(t, st, "4", model.TaskStatusDeployed)
	seedTask(t, st, "5", model.TaskStatusFailed)

	summary, err := st.TaskSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 2, summary.Deployed)
	assert.Equal(t, 2, summary.PendingLike)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 0.4, summary.SuccessRate, 1e-9)
}

func TestTaskSummaryEmpty(t *testing.T) {
	st := openTestStore(t)

	summary, err := st.TaskSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0.0, summary.SuccessRate)
}

func TestPurgeFailedTasks(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	seedTask(t, st, "old-failed", model.TaskStatusFailed)
	seedTask(t, st, "fresh-failed", model.TaskStatusFailed)
	seedTask(t, st, "old-deployed", model.TaskStatusDeployed)

	// age the old rows directly
	for _, id := range []string{"old-failed", "old-deployed"} {
		_, err := st.DB().ExecContext(ctx,
			`UPDATE generation_tasks SET created_at = ? WHERE id = ?`,
			formatTime(time.Now().AddDate(0, 0, -60)), id)
		require.NoError(t, err)
	}

	removed, err := st.PurgeFailedTasks(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	remaining, err := st.ListTasks(ctx, model.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
