package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func seedSchedule(t *testing.T, st *Store, id string, nextRun time.Time, active bool) *model.Schedule {
	t.Helper()
	sched := &model.Schedule{
		ID:              id,
		Name:            "sched " + id,
		Frequency:       model.FrequencyDaily,
		IntervalDays:    1,
		RunTime:         "09:00",
		GenerationCount: 1,
		Style:           "lofi",
		Mood:            "calm",
		NextRun:         nextRun,
		Active:          active,
	}
	require.NoError(t, st.CreateSchedule(context.Background(), sched))
	return sched
}

func TestFindDueSchedules(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seedSchedule(t, st, "due", now.Add(-time.Minute), true)
	seedSchedule(t, st, "future", now.Add(time.Hour), true)
	seedSchedule(t, st, "inactive", now.Add(-time.Minute), false)

	due, err := st.FindDueSchedules(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestClaimDueSchedulesIsExclusive(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seedSchedule(t, st, "a", now.Add(-2*time.Minute), true)
	seedSchedule(t, st, "b", now.Add(-time.Minute), true)

	claimed, err := st.ClaimDueSchedules(ctx, now, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, sched := range claimed {
		require.NotNil(t, sched.ClaimedUntil)
		assert.True(t, sched.ClaimedUntil.After(now))
	}

	// a second tick inside the lease claims nothing
	again, err := st.ClaimDueSchedules(ctx, now.Add(time.Second), 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestClaimExpiresWithLease(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seedSchedule(t, st, "a", now.Add(-time.Minute), true)

	claimed, err := st.ClaimDueSchedules(ctx, now, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// past the lease the schedule is claimable again
	later, err := st.ClaimDueSchedules(ctx, now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.Len(t, later, 1)
}

func TestReleaseClaim(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seedSchedule(t, st, "a", now.Add(-time.Minute), true)

	claimed, err := st.ClaimDueSchedules(ctx, now, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, st.ReleaseClaim(ctx, "a"))

	again, err := st.ClaimDueSchedules(ctx, now.Add(time.Second), 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestScheduleRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	sched := seedSchedule(t, st, "rt", now.Add(time.Hour), true)
	sched.LastRun = &now
	sched.AutoDeploy = true
	require.NoError(t, st.UpdateSchedule(ctx, sched))

	got, err := st.GetSchedule(ctx, "rt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.AutoDeploy)
	require.NotNil(t, got.LastRun)
	assert.True(t, got.LastRun.Equal(now))

	require.NoError(t, st.DeleteSchedule(ctx, "rt"))
	got, err = st.GetSchedule(ctx, "rt")
	require.NoError(t, err)
	assert.Nil(t, got)
}
