package domain

import "context"

// Embedder maps text to fixed-dimension vectors.
// Implementations must use a document-oriented encoding for EmbedDocuments
// and a query-oriented encoding for EmbedQuery when the provider
// distinguishes the two.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
