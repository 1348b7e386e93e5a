package model

// RoundResult records the outcome of one submission round within a run.
// A failed round carries its error and no task IDs; scheduling continues
// on its own cadence either way.
type RoundResult struct {
	Round   int      `json:"round"`
	Success bool     `json:"success"`
	TaskIDs []string `json:"taskIds,omitempty"`
	Titles  []string `json:"titles,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// RunResult is the itemized outcome of executing one schedule (or one
// ad hoc run): per-round results plus aggregate counts.
type RunResult struct {
	ScheduleID   string        `json:"scheduleId,omitempty"`
	Rounds       []RoundResult `json:"rounds"`
	TasksCreated int           `json:"tasksCreated"`
	Failed       int           `json:"failed"`
}

// DeployTrackResult is the per-track entry in a deploy batch response.
type DeployTrackResult struct {
	Success bool   `json:"success"`
	TaskID  string `json:"taskId,omitempty"`
	TrackID string `json:"trackId,omitempty"`
	Updated bool   `json:"updated"` // true when the fingerprint matched an existing entry
	Error   string `json:"error,omitempty"`
}

// DeployBatchResult lets callers distinguish complete success, partial
// failure and complete failure without reading logs.
type DeployBatchResult struct {
	Results []DeployTrackResult `json:"results"`
	Created int                 `json:"created"`
	Updated int                 `json:"updated"`
	Failed  int                 `json:"failed"`
}

// AssignmentResult reports auto-playlist assignment. It is always
// returned, never raised: an absent mapping yields success with zero
// collections.
type AssignmentResult struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Names   []string `json:"names"`
}
