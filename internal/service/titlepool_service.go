package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/store"
)

// TitlePoolService manages the per-category cache of pre-generated
// titles. The pool decouples slow text generation from scheduled runs:
// a shortfall is never an error, callers fall back to placeholders.
type TitlePoolService struct {
	store *store.Store
	text  client.TextCompleter
}

func NewTitlePoolService(st *store.Store, text client.TextCompleter) *TitlePoolService {
	return &TitlePoolService{store: st, text: text}
}

// Reserve returns up to count unused entries, oldest-inserted first,
// without marking them used. Callers commit to a title with MarkUsed at
// the moment they put it into a provider request.
func (s *TitlePoolService) Reserve(ctx context.Context, category string, count int) ([]*model.TitleEntry, error) {
	return s.store.UnusedTitles(ctx, category, count)
}

// MarkUsed consumes entries matching the given primary or secondary
// texts. Idempotent: marking twice has the same effect as once.
func (s *TitlePoolService) MarkUsed(ctx context.Context, category string, keys []string) error {
	return s.store.MarkTitlesUsed(ctx, category, keys)
}

// Append merges entries into the pool, skipping duplicates by primary
// text. Returns the number actually inserted.
func (s *TitlePoolService) Append(ctx context.Context, category string, entries []model.TitleEntry) (int, error) {
	return s.store.AppendTitles(ctx, category, entries)
}

// ResetUsed clears every used flag in the category. Administrative
// recovery for an exhausted pool.
func (s *TitlePoolService) ResetUsed(ctx context.Context, category string) (int64, error) {
	return s.store.ResetTitleUsage(ctx, category)
}

// Remaining reports the unused pool depth for a category.
func (s *TitlePoolService) Remaining(ctx context.Context, category string) (int, error) {
	return s.store.CountUnusedTitles(ctx, category)
}

const titleSystemPrompt = `You are a creative director naming instrumental music tracks for a streaming service.
Titles must be short, evocative and free of quotes or numbering.`

// Generate asks the text provider for count fresh titles and appends
// the parsed results to the pool. The provider returns unstructured
// text; each useful line is expected as "primary | secondary | keywords"
// and parsed locally.
func (s *TitlePoolService) Generate(ctx context.Context, category string, count int) (int, error) {
	if s.text == nil {
		return 0, client.ErrProviderUnavailable
	}
	if count < 1 {
		count = 10
	}

	userPrompt := fmt.Sprintf(
		`Generate %d track titles for the category %q.
Output one title per line in the exact format:
korean title | english title | comma separated keywords
No other text before or after the list.`,
		count, category,
	)

	raw, err := s.text.Complete(ctx, titleSystemPrompt, userPrompt)
	if err != nil {
		return 0, fmt.Errorf("title generation failed: %w", err)
	}

	entries := ParseTitleLines(raw)
	if len(entries) == 0 {
		return 0, fmt.Errorf("no parsable titles in provider response")
	}

	inserted, err := s.store.AppendTitles(ctx, category, entries)
	if err != nil {
		return 0, fmt.Errorf("failed to append generated titles: %w", err)
	}

	log.Printf("[Title Pool] generated %d titles for %q, %d inserted after de-dup", len(entries), category, inserted)
	return inserted, nil
}

// ParseTitleLines extracts title entries from raw completion text. The
// adapter makes no parsing guarantee, so lines that do not fit the
// "primary | secondary | keywords" shape are skipped; a bare line still
// counts as a primary-only title.
func ParseTitleLines(raw string) []model.TitleEntry {
	var entries []model.TitleEntry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		entry := model.TitleEntry{Primary: strings.TrimSpace(parts[0])}
		if entry.Primary == "" {
			continue
		}
		if len(parts) > 1 {
			entry.Secondary = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			kws := make([]string, 0, len(parts)-2)
			for _, kw := range parts[2:] {
				if kw = strings.TrimSpace(kw); kw != "" {
					kws = append(kws, kw)
				}
			}
			entry.Keywords = strings.Join(kws, ", ")
		}
		entries = append(entries, entry)
	}
	return entries
}
