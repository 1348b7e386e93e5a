package model

// ScheduleCreateRequest creates a new generation schedule.
type ScheduleCreateRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=120"`
	Frequency        string `json:"frequency" validate:"required,oneof=daily weekly monthly once"`
	IntervalDays     int    `json:"intervalDays" validate:"omitempty,min=1,max=365"`
	RunTime          string `json:"runTime" validate:"required,len=5"`
	GenerationCount  int    `json:"generationCount" validate:"omitempty,min=1,max=10"`
	Style            string `json:"style" validate:"required"`
	Mood             string `json:"mood" validate:"required"`
	PromptTemplateID string `json:"promptTemplateId"`
	AutoDeploy       bool   `json:"autoDeploy"`
}

// ScheduleUpdateRequest patches an existing schedule. Nil fields are
// left unchanged.
type ScheduleUpdateRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=120"`
	Frequency        *string `json:"frequency" validate:"omitempty,oneof=daily weekly monthly once"`
	IntervalDays     *int    `json:"intervalDays" validate:"omitempty,min=1,max=365"`
	RunTime          *string `json:"runTime" validate:"omitempty,len=5"`
	GenerationCount  *int    `json:"generationCount" validate:"omitempty,min=1,max=10"`
	Style            *string `json:"style"`
	Mood             *string `json:"mood"`
	PromptTemplateID *string `json:"promptTemplateId"`
	AutoDeploy       *bool   `json:"autoDeploy"`
	Active           *bool   `json:"active"`
}

// AdhocRunRequest triggers a one-off run without a schedule.
type AdhocRunRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=120"`
	Style            string `json:"style" validate:"required"`
	Mood             string `json:"mood" validate:"required"`
	GenerationCount  int    `json:"generationCount" validate:"omitempty,min=1,max=10"`
	PromptTemplateID string `json:"promptTemplateId"`
	AutoDeploy       bool   `json:"autoDeploy"`
}

// DeployTrackRequest is one track in a deploy batch.
type DeployTrackRequest struct {
	TaskID   string  `json:"taskId"`
	Title    string  `json:"title" validate:"required"`
	AudioURL string  `json:"audioUrl" validate:"required,url"`
	CoverURL string  `json:"coverUrl"`
	Style    string  `json:"style"`
	Mood     string  `json:"mood"`
	Tags     string  `json:"tags"`
	Duration float64 `json:"duration"` // provider hint, seconds
}

// DeployBatchRequest deploys several generated tracks at once.
type DeployBatchRequest struct {
	Tracks []DeployTrackRequest `json:"tracks" validate:"required,min=1,dive"`
}

// TitleAppendRequest merges pre-written titles into a pool.
type TitleAppendRequest struct {
	Category string       `json:"category" validate:"required"`
	Entries  []TitleEntry `json:"entries" validate:"required,min=1"`
}

// TitleGenerateRequest asks the text provider for fresh titles.
type TitleGenerateRequest struct {
	Category string `json:"category" validate:"required"`
	Count    int    `json:"count" validate:"omitempty,min=1,max=50"`
}

// PurgeTasksRequest removes old failed tasks in bulk.
type PurgeTasksRequest struct {
	Days int `json:"days" validate:"omitempty,min=1,max=365"`
}
