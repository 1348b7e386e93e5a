package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/internal/store"
)

func TestScheduleTickRunsDueSchedules(t *testing.T) {
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	schedules := service.NewScheduleService(st)
	titles := service.NewTitlePoolService(st, nil)
	music := &stubMusic{}
	generator := service.NewGenerationService(st, titles, music, nil, nil, "V4_5")
	w := NewScheduleWorker(st, schedules, generator, 5*time.Minute)

	due := &model.Schedule{
		ID:              "due",
		Name:            "Due",
		Frequency:       model.FrequencyDaily,
		IntervalDays:    1,
		RunTime:         "09:00",
		GenerationCount: 1,
		Style:           "lofi",
		Mood:            "calm",
		NextRun:         time.Now().Add(-time.Minute),
		Active:          true,
	}
	require.NoError(t, st.CreateSchedule(ctx, due))

	future := &model.Schedule{
		ID:              "future",
		Name:            "Future",
		Frequency:       model.FrequencyDaily,
		IntervalDays:    1,
		RunTime:         "09:00",
		GenerationCount: 1,
		Style:           "lofi",
		Mood:            "calm",
		NextRun:         time.Now().Add(time.Hour),
		Active:          true,
	}
	require.NoError(t, st.CreateSchedule(ctx, future))

	require.NoError(t, w.ProcessTask(ctx, NewScheduleTickTask()))

	// the due schedule ran: tasks exist and nextRun moved forward
	tasks, err := st.ListTasks(ctx, model.TaskFilter{ScheduleID: "due"})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	ran, err := st.GetSchedule(ctx, "due")
	require.NoError(t, err)
	require.NotNil(t, ran.LastRun)
	assert.True(t, ran.NextRun.After(time.Now()))
	assert.Nil(t, ran.ClaimedUntil)

	// the future schedule was left alone
	untouched, err := st.GetSchedule(ctx, "future")
	require.NoError(t, err)
	assert.Nil(t, untouched.LastRun)

	// an immediate second tick finds nothing due
	require.NoError(t, w.ProcessTask(ctx, NewScheduleTickTask()))
	tasks, err = st.ListTasks(ctx, model.TaskFilter{ScheduleID: "due"})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}
