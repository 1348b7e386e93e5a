package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestComputeNextRunDaily(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	next, ok := ComputeNextRun(now, model.FrequencyDaily, "09:00", 2)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunDailyDefaultsInterval(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	next, ok := ComputeNextRun(now, model.FrequencyDaily, "09:00", 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeekly(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	next, ok := ComputeNextRun(now, model.FrequencyWeekly, "23:45", 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 17, 23, 45, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyClampsDay(t *testing.T) {
	now := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

	next, ok := ComputeNextRun(now, model.FrequencyMonthly, "10:00", 0)
	require.True(t, ok)
	// February 2025 has 28 days
	assert.Equal(t, time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyYearRollover(t *testing.T) {
	now := time.Date(2025, 12, 15, 6, 0, 0, 0, time.UTC)

	next, ok := ComputeNextRun(now, model.FrequencyMonthly, "06:00", 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunOnceHasNoNext(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	_, ok := ComputeNextRun(now, model.FrequencyOnce, "09:00", 0)
	assert.False(t, ok)
}

func TestComputeNextRunStrictlyFuture(t *testing.T) {
	for _, freq := range []model.Frequency{model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyMonthly} {
		for _, runTime := range []string{"00:00", "09:00", "23:59"} {
			now := time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC)
			next, ok := ComputeNextRun(now, freq, runTime, 1)
			require.True(t, ok)
			assert.True(t, next.After(now), "%s %s: %s not after %s", freq, runTime, next, now)
		}
	}
}

func TestParseRunTime(t *testing.T) {
	h, m, err := ParseRunTime("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseRunTime("7:45pm")
	assert.Error(t, err)
	_, _, err = ParseRunTime("25:00")
	assert.Error(t, err)
}

func TestScheduleCreateAndGet(t *testing.T) {
	st := newTestStore(t)
	svc := NewScheduleService(st)
	ctx := context.Background()

	sched, err := svc.Create(ctx, &model.ScheduleCreateRequest{
		Name:      "Morning Lofi",
		Frequency: "daily",
		RunTime:   "06:00",
		Style:     "lofi",
		Mood:      "calm",
	})
	require.NoError(t, err)
	assert.True(t, sched.Active)
	assert.Equal(t, 1, sched.GenerationCount)
	assert.True(t, sched.NextRun.After(time.Now()))

	got, err := svc.Get(ctx, sched.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Morning Lofi", got.Name)
	assert.Equal(t, model.FrequencyDaily, got.Frequency)
}

func TestScheduleCreateRejectsBadInput(t *testing.T) {
	st := newTestStore(t)
	svc := NewScheduleService(st)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.ScheduleCreateRequest{
		Name: "x", Frequency: "hourly", RunTime: "06:00", Style: "lofi", Mood: "calm",
	})
	assert.Error(t, err)

	_, err = svc.Create(ctx, &model.ScheduleCreateRequest{
		Name: "x", Frequency: "daily", RunTime: "6am", Style: "lofi", Mood: "calm",
	})
	assert.Error(t, err)
}

func TestScheduleUpdateRecomputesNextRun(t *testing.T) {
	st := newTestStore(t)
	svc := NewScheduleService(st)
	ctx := context.Background()

	sched, err := svc.Create(ctx, &model.ScheduleCreateRequest{
		Name: "Weekly Mix", Frequency: "weekly", RunTime: "12:00", Style: "house", Mood: "upbeat",
	})
	require.NoError(t, err)
	originalNext := sched.NextRun

	freq := "daily"
	updated, err := svc.Update(ctx, sched.ID, &model.ScheduleUpdateRequest{Frequency: &freq})
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyDaily, updated.Frequency)
	assert.True(t, updated.NextRun.Before(originalNext))
}

func TestScheduleUpdateMissing(t *testing.T) {
	st := newTestStore(t)
	svc := NewScheduleService(st)

	name := "anything"
	_, err := svc.Update(context.Background(), "no-such-id", &model.ScheduleUpdateRequest{Name: &name})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
