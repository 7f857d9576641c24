package retrieve

import (
	"context"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// Repository defines the vector index contract for retrieval.
type Repository interface {
	Search(
		ctx context.Context, collection string,
		vector []float32, chapterID string, limit int,
	) ([]domain.RetrievalResult, error)
}
