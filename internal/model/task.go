package model

import "time"

// DefaultMaxRetries is the retry budget assigned to new generation tasks.
const DefaultMaxRetries = 3

// GenerationTask is one individually-deployable unit of generated audio.
// The music provider returns two variants per submission, so exactly two
// tasks (TrackIndex 0 and 1) share one ProviderTaskID.
type GenerationTask struct {
	ID             string     `json:"id"`
	ScheduleID     string     `json:"scheduleId,omitempty"`
	ProviderTaskID string     `json:"providerTaskId"`
	TrackIndex     int        `json:"trackIndex"` // 0 or 1
	Title          string     `json:"title"`
	Style          string     `json:"style"`
	Mood           string     `json:"mood"`
	Tags           string     `json:"tags"`
	Status         TaskStatus `json:"status"`
	AutoDeploy     bool       `json:"autoDeploy"`
	RetryCount     int        `json:"retryCount"`
	MaxRetries     int        `json:"maxRetries"`
	Error          *string    `json:"error,omitempty"`
	CoverURL       string     `json:"coverUrl,omitempty"`
	AudioURL       string     `json:"audioUrl,omitempty"`
	Duration       float64    `json:"duration,omitempty"` // provider hint, seconds
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	FailedAt       *time.Time `json:"failedAt,omitempty"`
}

// TaskSummary aggregates task counts for the admin overview.
type TaskSummary struct {
	Total       int     `json:"total"`
	Deployed    int     `json:"deployed"`
	PendingLike int     `json:"pendingLike"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"` // deployed / total, 0 when empty
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	Status     TaskStatus
	ScheduleID string
	Limit      int
	Offset     int
}
