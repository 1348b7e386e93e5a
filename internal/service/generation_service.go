package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

// tracksPerSubmission is fixed by the music provider: every submission
// yields exactly two variants.
const tracksPerSubmission = 2

// GenerationService is the run orchestrator. It executes one schedule
// (or an ad hoc request): reserves titles, requests covers, submits the
// music request and persists the resulting generation tasks.
type GenerationService struct {
	store        *store.Store
	titles       *TitlePoolService
	music        client.MusicGenerator
	images       client.ImageGenerator
	storage      client.StorageClient
	modelVersion string
}

func NewGenerationService(
	st *store.Store,
	titles *TitlePoolService,
	music client.MusicGenerator,
	images client.ImageGenerator,
	storage client.StorageClient,
	modelVersion string,
) *GenerationService {
	return &GenerationService{
		store:        st,
		titles:       titles,
		music:        music,
		images:       images,
		storage:      storage,
		modelVersion: modelVersion,
	}
}

type runParams struct {
	scheduleID string
	name       string
	style      string
	mood       string
	templateID string
	count      int
	autoDeploy bool
}

// ExecuteSchedule runs one schedule. Schedule bookkeeping (lastRun,
// nextRun, once-deactivation) is updated regardless of round outcomes,
// so a misconfigured schedule never spins on a stale nextRun.
func (s *GenerationService) ExecuteSchedule(ctx context.Context, sched *model.Schedule) (*model.RunResult, error) {
	params := runParams{
		scheduleID: sched.ID,
		name:       sched.Name,
		style:      sched.Style,
		mood:       sched.Mood,
		templateID: sched.PromptTemplateID,
		count:      sched.GenerationCount,
		autoDeploy: sched.AutoDeploy,
	}

	result := s.run(ctx, params)
	result.ScheduleID = sched.ID

	now := time.Now()
	sched.LastRun = &now
	if next, ok := ComputeNextRun(now, sched.Frequency, sched.RunTime, sched.IntervalDays); ok {
		sched.NextRun = next
	} else {
		// once: a single execution, then the schedule goes inactive
		sched.Active = false
	}
	sched.ClaimedUntil = nil

	if err := s.store.UpdateSchedule(ctx, sched); err != nil {
		return result, fmt.Errorf("failed to update schedule after run: %w", err)
	}

	log.Printf("[Orchestrator] schedule %s (%s): %d tasks created, %d rounds failed, next run %s",
		sched.ID, sched.Name, result.TasksCreated, result.Failed, sched.NextRun.Format(time.RFC3339))
	return result, nil
}

// ExecuteAdhoc runs a one-off generation with no schedule bookkeeping.
func (s *GenerationService) ExecuteAdhoc(ctx context.Context, req *model.AdhocRunRequest) (*model.RunResult, error) {
	count := req.GenerationCount
	if count < 1 {
		count = 1
	}
	params := runParams{
		name:       req.Name,
		style:      req.Style,
		mood:       req.Mood,
		templateID: req.PromptTemplateID,
		count:      count,
		autoDeploy: req.AutoDeploy,
	}
	return s.run(ctx, params), nil
}

// run executes count submission rounds. Round failures are recorded,
// not raised; a missing provider credential aborts the remaining rounds
// since every one of them would fail identically.
func (s *GenerationService) run(ctx context.Context, p runParams) *model.RunResult {
	result := &model.RunResult{}

	for round := 0; round < p.count; round++ {
		roundResult, abort := s.runRound(ctx, p, round)
		result.Rounds = append(result.Rounds, roundResult)
		if roundResult.Success {
			result.TasksCreated += len(roundResult.TaskIDs)
		} else {
			result.Failed++
		}
		if abort {
			log.Printf("[Orchestrator] aborting run after round %d: %s", round+1, roundResult.Error)
			break
		}
	}
	return result
}

func (s *GenerationService) runRound(ctx context.Context, p runParams, round int) (model.RoundResult, bool) {
	rr := model.RoundResult{Round: round + 1}

	if s.music == nil {
		rr.Error = client.ErrProviderUnavailable.Error()
		return rr, true
	}

	// Reserve titles, falling back to synthesized placeholders on
	// shortfall: generation never blocks on title availability.
	reserved, err := s.titles.Reserve(ctx, p.style, tracksPerSubmission)
	if err != nil {
		log.Printf("[Orchestrator] title reservation failed, using placeholders: %v", err)
		reserved = nil
	}

	titles := make([]string, tracksPerSubmission)
	keywords := make([]string, 0, tracksPerSubmission)
	usedKeys := make([]string, 0, len(reserved))
	for i := 0; i < tracksPerSubmission; i++ {
		if i < len(reserved) {
			titles[i] = reserved[i].Primary
			usedKeys = append(usedKeys, reserved[i].Primary)
			if reserved[i].Keywords != "" {
				keywords = append(keywords, reserved[i].Keywords)
			}
		} else {
			titles[i] = fmt.Sprintf("%s #%d", p.name, i+1)
		}
	}
	rr.Titles = titles

	// Consume the reserved titles before the provider call so a
	// concurrent or retried run cannot reuse them.
	if len(usedKeys) > 0 {
		if err := s.titles.MarkUsed(ctx, p.style, usedKeys); err != nil {
			log.Printf("[Orchestrator] failed to mark titles used: %v", err)
		}
	}

	coverURLs := s.generateCovers(ctx, p, titles)

	prompt, err := s.buildPrompt(ctx, p, titles[0], strings.Join(keywords, ", "))
	if err != nil {
		rr.Error = err.Error()
		return rr, false
	}

	taskID, err := s.music.Submit(ctx, &client.SubmitMusicRequest{
		Prompt:       prompt,
		StyleTags:    p.style + ", " + p.mood,
		Title:        titles[0],
		Instrumental: true,
		ModelVersion: s.modelVersion,
	})
	if err != nil {
		rr.Error = err.Error()
		// No credential: every remaining round would fail the same way.
		return rr, errors.Is(err, client.ErrProviderUnavailable)
	}

	// Tasks are created immediately after a successful submission so
	// bookkeeping never silently loses a submitted unit of work.
	for i := 0; i < tracksPerSubmission; i++ {
		task := &model.GenerationTask{
			ID:             uuid.New().String(),
			ScheduleID:     p.scheduleID,
			ProviderTaskID: taskID,
			TrackIndex:     i,
			Title:          titles[i],
			Style:          p.style,
			Mood:           p.mood,
			Tags:           p.style + ", " + p.mood,
			Status:         model.TaskStatusPending,
			AutoDeploy:     p.autoDeploy,
			MaxRetries:     model.DefaultMaxRetries,
			CoverURL:       coverURLs[i],
		}
		if err := s.store.CreateTask(ctx, task); err != nil {
			rr.Error = fmt.Sprintf("failed to persist task: %v", err)
			return rr, false
		}
		rr.TaskIDs = append(rr.TaskIDs, task.ID)
	}

	rr.Success = true
	return rr, false
}

// generateCovers requests cover art for both titles in parallel. A
// failure on one cover does not abort the other or the round: the task
// simply carries no cover.
func (s *GenerationService) generateCovers(ctx context.Context, p runParams, titles []string) []string {
	urls := make([]string, len(titles))
	if s.images == nil || s.storage == nil {
		return urls
	}

	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()

			prompt := fmt.Sprintf("Album cover art for an instrumental %s track titled %q, %s mood, no text or lettering", p.style, title, p.mood)
			images, err := s.images.Generate(ctx, prompt, "1:1", 1)
			if err != nil {
				log.Printf("[Orchestrator] cover generation failed for %q: %v", title, err)
				return
			}
			if len(images) == 0 {
				return
			}

			key := fmt.Sprintf("covers/%s.png", uuid.New().String())
			url, err := s.storage.Upload(ctx, key, bytes.NewReader(images[0].Bytes), images[0].MimeType)
			if err != nil {
				log.Printf("[Orchestrator] cover upload failed for %q: %v", title, err)
				return
			}
			urls[i] = url
		}(i, title)
	}
	wg.Wait()
	return urls
}

// buildPrompt resolves the submission prompt: linked template first,
// then the style/mood preset table, then a synthesized fallback. Both
// lookups treat absence as valid.
func (s *GenerationService) buildPrompt(ctx context.Context, p runParams, title, keywords string) (string, error) {
	if p.templateID != "" {
		tpl, err := s.store.GetPromptTemplate(ctx, p.templateID)
		if err != nil {
			return "", fmt.Errorf("failed to load prompt template: %w", err)
		}
		if tpl != nil {
			return SubstitutePrompt(tpl.Template, title, p.style, p.mood, keywords), nil
		}
	}

	preset, err := s.store.GetStylePreset(ctx, p.style, p.mood)
	if err != nil {
		return "", fmt.Errorf("failed to load style preset: %w", err)
	}
	if preset != "" {
		return SubstitutePrompt(preset, title, p.style, p.mood, keywords), nil
	}

	fallback := fmt.Sprintf("An instrumental %s track with a %s mood, titled %q.", p.style, p.mood, title)
	if keywords != "" {
		fallback += " Themes: " + keywords + "."
	}
	return fallback, nil
}

// SubstitutePrompt fills the {title}/{style}/{mood}/{keywords}
// placeholders of a stored template.
func SubstitutePrompt(template, title, style, mood, keywords string) string {
	r := strings.NewReplacer(
		"{title}", title,
		"{style}", style,
		"{mood}", mood,
		"{keywords}", keywords,
	)
	return r.Replace(template)
}
