// Package retrieve finds the textbook units most relevant to a query vector.
package retrieve

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

const (
	defaultTopK = 5

	// excerptRunes bounds the citation excerpt; display-only, the full unit
	// content still flows to grounding untouched.
	excerptRunes = 200
)

// Service handles relevance search with chapter-filter fallback.
type Service struct {
	repo Repository
	topK int
}

// New creates a retrieval service. topK <= 0 selects the default.
func New(repo Repository, topK int) *Service {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{repo: repo, topK: topK}
}

// Retrieve searches the collection for the nearest units. A non-empty
// chapterID restricts the search to that chapter first; when the filtered
// search comes back empty the same query is re-issued unfiltered, so a
// filter matching nothing never silently produces an empty answer context.
func (s *Service) Retrieve(
	ctx context.Context, collection string, vector []float32, chapterID string,
) ([]domain.RetrievalResult, error) {
	results, err := s.repo.Search(ctx, collection, vector, chapterID, s.topK)
	if err != nil {
		return nil, fmt.Errorf("filtered search: %w", err)
	}

	if len(results) == 0 && chapterID != "" {
		results, err = s.repo.Search(ctx, collection, vector, "", s.topK)
		if err != nil {
			return nil, fmt.Errorf("fallback search: %w", err)
		}
	}

	for i := range results {
		results[i].Excerpt = makeExcerpt(results[i].Unit.Content)
	}
	return results, nil
}

// makeExcerpt truncates content to the excerpt bound, rune-safe.
func makeExcerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptRunes {
		return content
	}
	return string(runes[:excerptRunes]) + "..."
}
