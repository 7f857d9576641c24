package answer

import (
	"context"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// Generator produces the assistant response from a system prompt and messages.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, messages []domain.Message) (string, error)
}
