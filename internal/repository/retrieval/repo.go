// Package retrieval runs KNN searches over the chunk index and hydrates
// domain retrieval results from the stored hash fields.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/tutordex/internal/db"
	"github.com/kailas-cloud/tutordex/internal/domain"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieve.Repository.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a retrieval repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Search runs a KNN search against the collection index. A non-empty
// chapterID becomes a TAG pre-filter. Results come back highest relevance
// first. Index errors surface as domain.ErrRetrievalUnavailable.
func (r *Repo) Search(
	ctx context.Context, collection string, vector []float32, chapterID string, limit int,
) ([]domain.RetrievalResult, error) {
	q := &db.KNNQuery{
		IndexName: r.keyPrefix + collection + ":idx",
		Vector:    vector,
		K:         limit,
		ReturnFields: []string{
			"__content", "section", "heading_path",
			"chapter_id", "collection_id", "kind", "position", "__vector_score",
		},
	}
	if chapterID != "" {
		q.TagFilters = map[string]string{"chapter_id": chapterID}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w: %w", collection, domain.ErrRetrievalUnavailable, err)
	}

	return parseResults(sr, r.keyPrefix+collection+":"), nil
}

// parseResults converts db search entries into domain retrieval results.
func parseResults(sr *db.SearchResult, keyPrefix string) []domain.RetrievalResult {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	results := make([]domain.RetrievalResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		unit := domain.ContentUnit{
			Content:      entry.Fields["__content"],
			Kind:         domain.UnitKind(entry.Fields["kind"]),
			DocumentID:   entry.Fields["chapter_id"],
			CollectionID: entry.Fields["collection_id"],
		}

		if raw := entry.Fields["heading_path"]; raw != "" {
			var path []string
			if err := json.Unmarshal([]byte(raw), &path); err == nil {
				unit.HeadingPath = path
			}
		}
		if raw := entry.Fields["position"]; raw != "" {
			if pos, err := strconv.Atoi(raw); err == nil {
				unit.Position = pos
			}
		}

		results = append(results, domain.RetrievalResult{
			ChunkID: strings.TrimPrefix(entry.Key, keyPrefix),
			Unit:    unit,
			Score:   entry.Score,
		})
	}

	return results
}
