package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

// ScheduleService manages generation schedules and their recurrence.
type ScheduleService struct {
	store *store.Store
}

func NewScheduleService(st *store.Store) *ScheduleService {
	return &ScheduleService{store: st}
}

// ParseRunTime validates an "HH:MM" time-of-day string.
func ParseRunTime(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid run time %q: %w", v, err)
	}
	return t.Hour(), t.Minute(), nil
}

// ComputeNextRun returns the next run timestamp strictly after now for
// the given recurrence. Daily advances intervalDays (default 1) days
// from now at the run time; weekly 7 days; monthly one calendar month,
// clamping the day-of-month to the target month's length. "once" has no
// next run: ok is false and the caller deactivates the schedule.
//
// The date component always advances by the interval, so a run time
// earlier than now's clock never re-fires the same day.
func ComputeNextRun(now time.Time, freq model.Frequency, runTime string, intervalDays int) (next time.Time, ok bool) {
	if freq == model.FrequencyOnce {
		return time.Time{}, false
	}

	hour, minute, err := ParseRunTime(runTime)
	if err != nil {
		hour, minute = 0, 0
	}

	switch freq {
	case model.FrequencyDaily:
		if intervalDays < 1 {
			intervalDays = 1
		}
		target := now.AddDate(0, 0, intervalDays)
		next = atClock(target, hour, minute)
	case model.FrequencyWeekly:
		target := now.AddDate(0, 0, 7)
		next = atClock(target, hour, minute)
	case model.FrequencyMonthly:
		year, month, day := now.Date()
		month++
		if month > 12 {
			month = 1
			year++
		}
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		next = time.Date(year, month, day, hour, minute, 0, 0, now.Location())
	default:
		target := now.AddDate(0, 0, 1)
		next = atClock(target, hour, minute)
	}

	// Guard the strictly-in-the-future contract against degenerate
	// inputs (zero interval at midnight and the like).
	for !next.After(now) {
		next = atClock(next.AddDate(0, 0, 1), hour, minute)
	}
	return next, true
}

func atClock(day time.Time, hour, minute int) time.Time {
	year, month, d := day.Date()
	return time.Date(year, month, d, hour, minute, 0, 0, day.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Create registers a new schedule. The first nextRun is computed from
// now; "once" schedules get their single run at the next occurrence of
// the run time (today if still ahead, tomorrow otherwise).
func (s *ScheduleService) Create(ctx context.Context, req *model.ScheduleCreateRequest) (*model.Schedule, error) {
	if _, _, err := ParseRunTime(req.RunTime); err != nil {
		return nil, err
	}

	freq := model.Frequency(req.Frequency)
	if !freq.IsValid() {
		return nil, fmt.Errorf("invalid frequency %q", req.Frequency)
	}

	count := req.GenerationCount
	if count < 1 {
		count = 1
	}
	interval := req.IntervalDays
	if interval < 1 {
		interval = 1
	}

	now := time.Now()
	var nextRun time.Time
	if freq == model.FrequencyOnce {
		nextRun = nextOccurrence(now, req.RunTime)
	} else {
		nextRun, _ = ComputeNextRun(now, freq, req.RunTime, interval)
	}

	sched := &model.Schedule{
		ID:               uuid.New().String(),
		Name:             req.Name,
		Frequency:        freq,
		IntervalDays:     interval,
		RunTime:          req.RunTime,
		GenerationCount:  count,
		Style:            req.Style,
		Mood:             req.Mood,
		PromptTemplateID: req.PromptTemplateID,
		AutoDeploy:       req.AutoDeploy,
		NextRun:          nextRun,
		Active:           true,
	}

	if err := s.store.CreateSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	return sched, nil
}

// nextOccurrence returns the next time the clock reads runTime: today
// when still ahead of now, otherwise tomorrow.
func nextOccurrence(now time.Time, runTime string) time.Time {
	hour, minute, err := ParseRunTime(runTime)
	if err != nil {
		hour, minute = 0, 0
	}
	candidate := atClock(now, hour, minute)
	if candidate.After(now) {
		return candidate
	}
	return atClock(now.AddDate(0, 0, 1), hour, minute)
}

// Get fetches one schedule, nil when absent.
func (s *ScheduleService) Get(ctx context.Context, id string) (*model.Schedule, error) {
	return s.store.GetSchedule(ctx, id)
}

// List returns all schedules.
func (s *ScheduleService) List(ctx context.Context) ([]*model.Schedule, error) {
	return s.store.ListSchedules(ctx)
}

// Update applies a patch to an existing schedule. Changing the
// recurrence recomputes nextRun from now.
func (s *ScheduleService) Update(ctx context.Context, id string, req *model.ScheduleUpdateRequest) (*model.Schedule, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, fmt.Errorf("schedule %s not found", id)
	}

	recurrenceChanged := false
	if req.Name != nil {
		sched.Name = *req.Name
	}
	if req.Frequency != nil {
		freq := model.Frequency(*req.Frequency)
		if !freq.IsValid() {
			return nil, fmt.Errorf("invalid frequency %q", *req.Frequency)
		}
		sched.Frequency = freq
		recurrenceChanged = true
	}
	if req.IntervalDays != nil {
		sched.IntervalDays = *req.IntervalDays
		recurrenceChanged = true
	}
	if req.RunTime != nil {
		if _, _, err := ParseRunTime(*req.RunTime); err != nil {
			return nil, err
		}
		sched.RunTime = *req.RunTime
		recurrenceChanged = true
	}
	if req.GenerationCount != nil {
		sched.GenerationCount = *req.GenerationCount
	}
	if req.Style != nil {
		sched.Style = *req.Style
	}
	if req.Mood != nil {
		sched.Mood = *req.Mood
	}
	if req.PromptTemplateID != nil {
		sched.PromptTemplateID = *req.PromptTemplateID
	}
	if req.AutoDeploy != nil {
		sched.AutoDeploy = *req.AutoDeploy
	}
	if req.Active != nil {
		sched.Active = *req.Active
	}

	if recurrenceChanged {
		now := time.Now()
		if sched.Frequency == model.FrequencyOnce {
			sched.NextRun = nextOccurrence(now, sched.RunTime)
		} else if next, ok := ComputeNextRun(now, sched.Frequency, sched.RunTime, sched.IntervalDays); ok {
			sched.NextRun = next
		}
	}

	if err := s.store.UpdateSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}
	return sched, nil
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteSchedule(ctx, id)
}

// ClaimDue atomically claims all due schedules for the lease duration.
func (s *ScheduleService) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) ([]*model.Schedule, error) {
	return s.store.ClaimDueSchedules(ctx, now, lease)
}

// FindDue returns due schedules without claiming them.
func (s *ScheduleService) FindDue(ctx context.Context, now time.Time) ([]*model.Schedule, error) {
	return s.store.FindDueSchedules(ctx, now)
}
