package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	return f.response, f.err
}

func seedTitles(t *testing.T, svc *TitlePoolService, category string, primaries ...string) {
	t.Helper()
	entries := make([]model.TitleEntry, len(primaries))
	for i, p := range primaries {
		entries[i] = model.TitleEntry{Primary: p}
	}
	n, err := svc.Append(context.Background(), category, entries)
	require.NoError(t, err)
	require.Equal(t, len(primaries), n)
}

func TestReserveReturnsOldestFirst(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)
	ctx := context.Background()
	seedTitles(t, svc, "lofi", "First Light", "Night Drive", "Slow Rain")

	got, err := svc.Reserve(ctx, "lofi", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First Light", got[0].Primary)
	assert.Equal(t, "Night Drive", got[1].Primary)
}

func TestReserveShortfallReturnsWhatExists(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)
	ctx := context.Background()
	seedTitles(t, svc, "lofi", "Only One")

	got, err := svc.Reserve(ctx, "lofi", 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.Reserve(ctx, "empty-category", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkUsedIsIdempotent(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)
	ctx := context.Background()
	seedTitles(t, svc, "lofi", "First Light", "Night Drive")

	require.NoError(t, svc.MarkUsed(ctx, "lofi", []string{"First Light"}))
	require.NoError(t, svc.MarkUsed(ctx, "lofi", []string{"First Light"}))

	remaining, err := svc.Remaining(ctx, "lofi")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestMarkUsedDoesNotCrossCategories(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)
	ctx := context.Background()
	seedTitles(t, svc, "lofi", "Shared Name")
	seedTitles(t, svc, "jazz", "Shared Name")

	require.NoError(t, svc.MarkUsed(ctx, "lofi", []string{"Shared Name"}))

	remaining, err := svc.Remaining(ctx, "jazz")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestAppendSkipsDuplicates(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)
	ctx := context.Background()
	seedTitles(t, svc, "lofi", "First Light")

	n, err := svc.Append(ctx, "lofi", []model.TitleEntry{
		{Primary: "First Light"},
		{Primary: "Brand New"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResetUsedRestoresPool(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)
	ctx := context.Background()
	seedTitles(t, svc, "lofi", "A", "B", "C")

	require.NoError(t, svc.MarkUsed(ctx, "lofi", []string{"A", "B", "C"}))
	remaining, err := svc.Remaining(ctx, "lofi")
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	reset, err := svc.ResetUsed(ctx, "lofi")
	require.NoError(t, err)
	assert.Equal(t, int64(3), reset)

	remaining, err = svc.Remaining(ctx, "lofi")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestGenerateParsesAndAppends(t *testing.T) {
	text := &fakeCompleter{response: "새벽 거리 | Dawn Streets | dawn, city\n비 오는 날 | Rainy Day | rain, cozy\n"}
	svc := NewTitlePoolService(newTestStore(t), text)
	ctx := context.Background()

	added, err := svc.Generate(ctx, "lofi", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, text.calls)

	got, err := svc.Reserve(ctx, "lofi", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "새벽 거리", got[0].Primary)
	assert.Equal(t, "Dawn Streets", got[0].Secondary)
	assert.Equal(t, "dawn, city", got[0].Keywords)
}

func TestGenerateWithoutProvider(t *testing.T) {
	svc := NewTitlePoolService(newTestStore(t), nil)

	_, err := svc.Generate(context.Background(), "lofi", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, client.ErrProviderUnavailable))
}

func TestGenerateUnparsableResponse(t *testing.T) {
	text := &fakeCompleter{response: "# nothing useful here\n\n"}
	svc := NewTitlePoolService(newTestStore(t), text)

	_, err := svc.Generate(context.Background(), "lofi", 2)
	assert.Error(t, err)
}

func TestParseTitleLines(t *testing.T) {
	raw := `# generated titles
- 달빛 산책 | Moonlight Walk | moon, night
Plain Title
바다 소리 | Ocean Sounds | waves | extra

`
	entries := ParseTitleLines(raw)
	require.Len(t, entries, 3)

	assert.Equal(t, "달빛 산책", entries[0].Primary)
	assert.Equal(t, "Moonlight Walk", entries[0].Secondary)
	assert.Equal(t, "moon, night", entries[0].Keywords)

	assert.Equal(t, "Plain Title", entries[1].Primary)
	assert.Empty(t, entries[1].Secondary)

	// trailing segments are folded into keywords
	assert.Equal(t, "waves, extra", entries[2].Keywords)
}
