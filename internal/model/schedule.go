package model

import "time"

// Schedule is a recurrence rule plus the generation parameters the run
// orchestrator executes. nextRun always sits strictly in the future for
// active recurring schedules; "once" schedules are deactivated after
// their single execution.
type Schedule struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Frequency        Frequency  `json:"frequency"`
	IntervalDays     int        `json:"intervalDays"` // only meaningful for daily
	RunTime          string     `json:"runTime"`      // "HH:MM"
	GenerationCount  int        `json:"generationCount"`
	Style            string     `json:"style"`
	Mood             string     `json:"mood"`
	PromptTemplateID string     `json:"promptTemplateId,omitempty"`
	AutoDeploy       bool       `json:"autoDeploy"`
	NextRun          time.Time  `json:"nextRun"`
	LastRun          *time.Time `json:"lastRun,omitempty"`
	Active           bool       `json:"active"`
	ClaimedUntil     *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PromptTemplate is a stored prompt with {title}/{mood}/{style}/{keywords}
// placeholders, keyed by id. Read-only input to the orchestrator.
type PromptTemplate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}
