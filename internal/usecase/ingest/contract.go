package ingest

import (
	"context"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// Embedder vectorizes unit contents in batches.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkWriter persists embedded chunks into the vector index.
type ChunkWriter interface {
	EnsureCollection(ctx context.Context, collection string) error
	ResetCollection(ctx context.Context, collection string) error
	UpsertBatch(ctx context.Context, collection string, chunks []domain.Chunk) error
}
