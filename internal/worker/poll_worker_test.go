package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/catalog"
	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/internal/store"
)

type stubMusic struct {
	statuses map[string]*client.GenerationStatus
	polls    int
}

func (s *stubMusic) Submit(ctx context.Context, req *client.SubmitMusicRequest) (string, error) {
	return "prov-1", nil
}

func (s *stubMusic) Poll(ctx context.Context, taskID string) (*client.GenerationStatus, error) {
	s.polls++
	if st, ok := s.statuses[taskID]; ok {
		return st, nil
	}
	return nil, fmt.Errorf("unknown task %s", taskID)
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte("audio"), nil
}

func newPollFixture(t *testing.T, music *stubMusic) (*store.Store, *PollWorker) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tasks := service.NewTaskService(st, nil)
	deployer := service.NewDeployService(
		st, catalog.NewSQLiteCatalog(st.DB()), stubFetcher{}, nil, tasks, 128000, nil)
	return st, NewPollWorker(st, music, tasks, deployer)
}

func seedPair(t *testing.T, st *store.Store, providerID string, status model.TaskStatus, autoDeploy bool) []*model.GenerationTask {
	t.Helper()
	pair := make([]*model.GenerationTask, 2)
	for i := 0; i < 2; i++ {
		task := &model.GenerationTask{
			ID:             fmt.Sprintf("%s-%d", providerID, i),
			ProviderTaskID: providerID,
			TrackIndex:     i,
			Title:          fmt.Sprintf("Track %d", i),
			Style:          "lofi",
			Mood:           "calm",
			Status:         status,
			AutoDeploy:     autoDeploy,
			MaxRetries:     model.DefaultMaxRetries,
		}
		require.NoError(t, st.CreateTask(context.Background(), task))
		pair[i] = task
	}
	return pair
}

func TestPollRunningAdvancesPending(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{
		"prov-1": {TaskID: "prov-1", Status: client.GenerationRunning},
	}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-1", model.TaskStatusPending, false)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))

	open, err := st.TasksByStatuses(context.Background(), model.TaskStatusGenerating)
	require.NoError(t, err)
	assert.Len(t, open, 2)
	// one poll serves both variant tasks
	assert.Equal(t, 1, music.polls)
}

func TestPollSucceededAssignsTracksByIndex(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{
		"prov-1": {
			TaskID: "prov-1",
			Status: client.GenerationSucceeded,
			Tracks: []client.GeneratedTrack{
				{AudioURL: "https://cdn.test/v0.mp3", Duration: 180},
				{AudioURL: "https://cdn.test/v1.mp3", Duration: 175},
			},
		},
	}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-1", model.TaskStatusGenerating, false)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))

	for i, want := range []string{"https://cdn.test/v0.mp3", "https://cdn.test/v1.mp3"} {
		task, err := st.GetTask(context.Background(), fmt.Sprintf("prov-1-%d", i))
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusGenerated, task.Status)
		assert.Equal(t, want, task.AudioURL)
	}
}

func TestPollSucceededAutoDeploys(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{
		"prov-1": {
			TaskID: "prov-1",
			Status: client.GenerationSucceeded,
			Tracks: []client.GeneratedTrack{
				{AudioURL: "https://cdn.test/v0.mp3", Duration: 180},
				{AudioURL: "https://cdn.test/v1.mp3", Duration: 175},
			},
		},
	}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-1", model.TaskStatusGenerating, true)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))

	for i := 0; i < 2; i++ {
		task, err := st.GetTask(context.Background(), fmt.Sprintf("prov-1-%d", i))
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusDeployed, task.Status)
	}
}

func TestPollFailedFailsWholeGroup(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{
		"prov-1": {TaskID: "prov-1", Status: client.GenerationFailed, Error: "quota exceeded"},
	}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-1", model.TaskStatusGenerating, false)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))

	for i := 0; i < 2; i++ {
		task, err := st.GetTask(context.Background(), fmt.Sprintf("prov-1-%d", i))
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusFailed, task.Status)
		require.NotNil(t, task.Error)
		assert.Equal(t, "quota exceeded", *task.Error)
	}
}

func TestPollMissingVariantFailsOnlyThatTask(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{
		"prov-1": {
			TaskID: "prov-1",
			Status: client.GenerationSucceeded,
			Tracks: []client.GeneratedTrack{{AudioURL: "https://cdn.test/v0.mp3"}},
		},
	}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-1", model.TaskStatusGenerating, false)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))

	first, err := st.GetTask(context.Background(), "prov-1-0")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusGenerated, first.Status)

	second, err := st.GetTask(context.Background(), "prov-1-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, second.Status)
}

func TestPollIgnoresTerminalTasks(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-9", model.TaskStatusDeployed, false)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))
	assert.Equal(t, 0, music.polls)
}

func TestPollErrorLeavesTasksUntouched(t *testing.T) {
	music := &stubMusic{statuses: map[string]*client.GenerationStatus{}}
	st, w := newPollFixture(t, music)
	seedPair(t, st, "prov-err", model.TaskStatusPending, false)

	require.NoError(t, w.ProcessTask(context.Background(), NewPollTasksTask()))

	open, err := st.TasksByStatuses(context.Background(), model.TaskStatusPending)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}
