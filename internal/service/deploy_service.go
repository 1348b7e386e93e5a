package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/tunegrid/api/internal/catalog"
	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

var fingerprintPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// ExtractFingerprint derives a content fingerprint from a provider
// asset URL: the embedded asset id when one is present, the filename
// stem otherwise. Two deploys of the same generation always agree on
// the fingerprint even when the metadata differs.
func ExtractFingerprint(assetURL string) string {
	if m := fingerprintPattern.FindString(assetURL); m != "" {
		return strings.ToLower(m)
	}

	raw := assetURL
	if u, err := url.Parse(assetURL); err == nil && u.Path != "" {
		raw = u.Path
	}
	base := path.Base(raw)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}

// DeriveDuration resolves a track duration in seconds through an
// ordered fallback chain: the provider hint, then a constant-bitrate
// estimate from the byte length, then 0. Never fails.
func DeriveDuration(hintSeconds float64, byteLen, bitrate int) int {
	if hintSeconds > 0 {
		return int(math.Round(hintSeconds))
	}
	if byteLen > 0 && bitrate > 0 {
		return int(math.Round(float64(byteLen) * 8 / float64(bitrate)))
	}
	return 0
}

// DeployService reconciles completed generations into the catalog and
// runs auto-playlist assignment.
type DeployService struct {
	store    *store.Store
	catalog  catalog.Catalog
	fetcher  client.AssetFetcher
	storage  client.StorageClient
	tasks    *TaskService
	bitrate  int
	notifier TaskNotifier
}

func NewDeployService(
	st *store.Store,
	cat catalog.Catalog,
	fetcher client.AssetFetcher,
	storage client.StorageClient,
	tasks *TaskService,
	bitrate int,
	notifier TaskNotifier,
) *DeployService {
	if bitrate <= 0 {
		bitrate = 128000
	}
	return &DeployService{
		store:    st,
		catalog:  cat,
		fetcher:  fetcher,
		storage:  storage,
		tasks:    tasks,
		bitrate:  bitrate,
		notifier: notifier,
	}
}

// DeployTracks reconciles a batch. Per-track failures are caught and
// recorded individually; one track never aborts its siblings.
func (s *DeployService) DeployTracks(ctx context.Context, reqs []model.DeployTrackRequest) *model.DeployBatchResult {
	batch := &model.DeployBatchResult{Results: make([]model.DeployTrackResult, 0, len(reqs))}

	for _, req := range reqs {
		res := s.deployOne(ctx, req)
		batch.Results = append(batch.Results, res)
		switch {
		case !res.Success:
			batch.Failed++
		case res.Updated:
			batch.Updated++
		default:
			batch.Created++
		}
	}
	return batch
}

func (s *DeployService) deployOne(ctx context.Context, req model.DeployTrackRequest) model.DeployTrackResult {
	res := model.DeployTrackResult{TaskID: req.TaskID}

	task := s.loadTask(ctx, req.TaskID)

	fingerprint := ExtractFingerprint(req.AudioURL)
	existing, err := s.catalog.FindByAssetFingerprint(ctx, fingerprint)
	if err != nil {
		res.Error = fmt.Sprintf("catalog lookup failed: %v", err)
		s.failTask(ctx, task, res.Error)
		return res
	}

	if existing != nil {
		// Metadata-only refresh: the audio was already deployed once,
		// never re-download it.
		entry, err := s.catalog.Update(ctx, existing.ID, &catalog.EntryPatch{
			Title:    &req.Title,
			CoverURL: &req.CoverURL,
			Category: &req.Style,
			Mood:     &req.Mood,
			Tags:     &req.Tags,
		})
		if err != nil {
			res.Error = fmt.Sprintf("catalog update failed: %v", err)
			s.failTask(ctx, task, res.Error)
			return res
		}
		s.completeTask(ctx, task, entry.ID)
		res.Success = true
		res.Updated = true
		res.TrackID = entry.ID
		log.Printf("[Deploy] refreshed existing entry %s (fingerprint %s)", entry.ID, fingerprint)
		return res
	}

	s.advanceTask(ctx, task, model.TaskStatusDownloading)

	data, err := s.fetcher.Fetch(ctx, req.AudioURL)
	if err != nil {
		res.Error = fmt.Sprintf("asset download failed: %v", err)
		s.failTask(ctx, task, res.Error)
		return res
	}

	duration := DeriveDuration(req.Duration, len(data), s.bitrate)

	audioURL := req.AudioURL
	if s.storage != nil {
		key := fmt.Sprintf("tracks/%s.mp3", fingerprint)
		stored, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "audio/mpeg")
		if err != nil {
			res.Error = fmt.Sprintf("asset upload failed: %v", err)
			s.failTask(ctx, task, res.Error)
			return res
		}
		audioURL = stored
	}

	s.advanceTask(ctx, task, model.TaskStatusDeploying)

	entry, err := s.catalog.Create(ctx, &catalog.Entry{
		Title:    req.Title,
		AudioURL: audioURL,
		CoverURL: req.CoverURL,
		Category: req.Style,
		Mood:     req.Mood,
		Tags:     req.Tags,
		Duration: duration,
	})
	if err != nil {
		res.Error = fmt.Sprintf("catalog create failed: %v", err)
		s.failTask(ctx, task, res.Error)
		return res
	}

	assignment := s.AutoAssign(ctx, entry.ID, req.Style, req.Mood)
	if assignment.Count > 0 {
		log.Printf("[Deploy] entry %s added to %d collections: %s",
			entry.ID, assignment.Count, strings.Join(assignment.Names, ", "))
	}

	s.completeTask(ctx, task, entry.ID)
	res.Success = true
	res.TrackID = entry.ID
	return res
}

// AutoAssign adds a catalog entry to every collection mapped under
// "{style}_{mood}". Absence of a mapping is a valid no-op; membership
// is idempotent; internal failures are reported in the result, never
// raised.
func (s *DeployService) AutoAssign(ctx context.Context, entryID, style, mood string) model.AssignmentResult {
	result := model.AssignmentResult{Success: true, Names: []string{}}

	collectionIDs, err := s.store.CollectionsForStyleMood(ctx, style, mood)
	if err != nil {
		log.Printf("[Deploy] mapping lookup failed for %s_%s: %v", style, mood, err)
		result.Success = false
		return result
	}
	if len(collectionIDs) == 0 {
		return result
	}

	for _, collectionID := range collectionIDs {
		member, err := s.catalog.IsCollectionMember(ctx, collectionID, entryID)
		if err != nil {
			log.Printf("[Deploy] membership check failed for collection %s: %v", collectionID, err)
			result.Success = false
			continue
		}
		if member {
			continue
		}

		maxPos, err := s.catalog.MaxPosition(ctx, collectionID)
		if err != nil {
			log.Printf("[Deploy] position lookup failed for collection %s: %v", collectionID, err)
			result.Success = false
			continue
		}
		if err := s.catalog.AppendToCollection(ctx, collectionID, entryID, maxPos+1); err != nil {
			log.Printf("[Deploy] append failed for collection %s: %v", collectionID, err)
			result.Success = false
			continue
		}

		name, err := s.catalog.CollectionName(ctx, collectionID)
		if err != nil {
			name = collectionID
		}
		result.Count++
		result.Names = append(result.Names, name)
	}
	return result
}

func (s *DeployService) loadTask(ctx context.Context, id string) *model.GenerationTask {
	if id == "" {
		return nil
	}
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		log.Printf("[Deploy] failed to load task %s: %v", id, err)
		return nil
	}
	return task
}

// advanceTask walks the task forward when the edge is valid. Deploys
// driven directly from the admin surface carry no task; those skip.
func (s *DeployService) advanceTask(ctx context.Context, task *model.GenerationTask, next model.TaskStatus) {
	if task == nil || s.tasks == nil {
		return
	}
	if !task.Status.CanTransitionTo(next) {
		return
	}
	if err := s.tasks.Transition(ctx, task, next, ""); err != nil {
		log.Printf("[Deploy] failed to advance task %s to %s: %v", task.ID, next, err)
	}
}

func (s *DeployService) completeTask(ctx context.Context, task *model.GenerationTask, trackID string) {
	if task == nil || s.tasks == nil {
		return
	}
	// Walk whatever intermediate states remain so the terminal edge is
	// always reached through the state graph.
	for _, next := range []model.TaskStatus{
		model.TaskStatusDownloading,
		model.TaskStatusDeploying,
		model.TaskStatusDeployed,
	} {
		if task.Status == model.TaskStatusDeployed {
			break
		}
		s.advanceTask(ctx, task, next)
	}
	if s.notifier != nil && task.Status == model.TaskStatusDeployed {
		s.notifier.NotifyDeployed(task.ID, trackID)
	}
}

func (s *DeployService) failTask(ctx context.Context, task *model.GenerationTask, errMsg string) {
	if task == nil || s.tasks == nil {
		return
	}
	if !task.Status.CanTransitionTo(model.TaskStatusFailed) {
		return
	}
	if err := s.tasks.Transition(ctx, task, model.TaskStatusFailed, errMsg); err != nil {
		log.Printf("[Deploy] failed to fail task %s: %v", task.ID, err)
	}
}
