package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/internal/store"
)

// PollWorker drives open generation tasks forward by polling the
// music provider. Tasks sharing a provider submission are grouped so
// each submission is polled exactly once per cycle.
type PollWorker struct {
	store    *store.Store
	music    client.MusicGenerator
	tasks    *service.TaskService
	deployer *service.DeployService
}

func NewPollWorker(st *store.Store, music client.MusicGenerator, tasks *service.TaskService, deployer *service.DeployService) *PollWorker {
	return &PollWorker{
		store:    st,
		music:    music,
		tasks:    tasks,
		deployer: deployer,
	}
}

// ProcessTask handles one poll cycle.
func (w *PollWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if w.music == nil {
		return nil
	}

	open, err := w.store.TasksByStatuses(ctx, model.TaskStatusPending, model.TaskStatusGenerating)
	if err != nil {
		log.Printf("[Poll] failed to list open tasks: %v", err)
		return err
	}
	if len(open) == 0 {
		return nil
	}

	groups := make(map[string][]*model.GenerationTask)
	for _, task := range open {
		if task.ProviderTaskID == "" {
			continue
		}
		groups[task.ProviderTaskID] = append(groups[task.ProviderTaskID], task)
	}

	for providerID, group := range groups {
		w.pollGroup(ctx, providerID, group)
	}
	return nil
}

func (w *PollWorker) pollGroup(ctx context.Context, providerID string, group []*model.GenerationTask) {
	status, err := w.music.Poll(ctx, providerID)
	if err != nil {
		// Transient by assumption; the next cycle retries.
		log.Printf("[Poll] poll failed for %s: %v", providerID, err)
		return
	}

	switch status.Status {
	case client.GenerationPending, client.GenerationRunning:
		for _, task := range group {
			if task.Status == model.TaskStatusPending {
				w.transition(ctx, task, model.TaskStatusGenerating, "")
			}
		}

	case client.GenerationSucceeded:
		for _, task := range group {
			w.completeTask(ctx, task, status)
		}

	case client.GenerationFailed:
		errMsg := status.Error
		if errMsg == "" {
			errMsg = "generation failed"
		}
		for _, task := range group {
			w.transition(ctx, task, model.TaskStatusFailed, errMsg)
		}

	default:
		log.Printf("[Poll] unknown provider status %q for %s", status.Status, providerID)
	}
}

func (w *PollWorker) completeTask(ctx context.Context, task *model.GenerationTask, status *client.GenerationStatus) {
	if task.TrackIndex >= len(status.Tracks) {
		w.transition(ctx, task, model.TaskStatusFailed,
			fmt.Sprintf("provider returned %d track(s), need index %d", len(status.Tracks), task.TrackIndex))
		return
	}
	track := status.Tracks[task.TrackIndex]
	if track.AudioURL == "" {
		w.transition(ctx, task, model.TaskStatusFailed, "provider returned empty audio url")
		return
	}

	task.AudioURL = track.AudioURL
	if track.Duration > 0 {
		task.Duration = track.Duration
	}
	if track.Tags != "" {
		task.Tags = track.Tags
	}

	if task.Status == model.TaskStatusPending {
		w.transition(ctx, task, model.TaskStatusGenerating, "")
	}
	w.transition(ctx, task, model.TaskStatusGenerated, "")
	if task.Status != model.TaskStatusGenerated {
		return
	}
	log.Printf("[Poll] task %s generated (%s)", task.ID, task.Title)

	if task.AutoDeploy && w.deployer != nil {
		batch := w.deployer.DeployTracks(ctx, []model.DeployTrackRequest{{
			TaskID:   task.ID,
			Title:    task.Title,
			AudioURL: task.AudioURL,
			CoverURL: task.CoverURL,
			Style:    task.Style,
			Mood:     task.Mood,
			Tags:     task.Tags,
			Duration: task.Duration,
		}})
		if batch.Failed > 0 {
			log.Printf("[Poll] auto deploy failed for task %s: %s", task.ID, batch.Results[0].Error)
		}
	}
}

func (w *PollWorker) transition(ctx context.Context, task *model.GenerationTask, next model.TaskStatus, errMsg string) {
	if err := w.tasks.Transition(ctx, task, next, errMsg); err != nil {
		log.Printf("[Poll] failed to move task %s to %s: %v", task.ID, next, err)
	}
}
