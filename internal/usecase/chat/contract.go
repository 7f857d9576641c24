package chat

import (
	"context"

	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/scope"
	"github.com/kailas-cloud/tutordex/internal/usecase/answer"
)

// Scoper gates questions before any retrieval work happens.
type Scoper interface {
	Check(question string) scope.Decision
}

// Embedder vectorizes the retrieval query.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the textbook units most relevant to the query vector.
type Retriever interface {
	Retrieve(ctx context.Context, collection string, vector []float32, chapterID string) ([]domain.RetrievalResult, error)
}

// Answerer generates the grounded response.
type Answerer interface {
	Answer(ctx context.Context, in answer.Input) (string, error)
}

// SessionStore persists TTL-bound conversation state.
type SessionStore interface {
	Create(ctx context.Context, metadata map[string]string) (domain.Session, error)
	Get(ctx context.Context, id string) (domain.Session, error)
	// Touch slides the session's expiration forward without appending turns.
	Touch(ctx context.Context, id string) error
	AppendTurns(ctx context.Context, id string, turns ...domain.Turn) error
}
