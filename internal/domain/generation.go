package domain

import "context"

// Message is a single prior turn handed to the text-generation service.
type Message struct {
	Role    Role
	Content string
}

// Generator is the text-generation collaborator. The grounded answer path
// uses only the non-streaming call.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, messages []Message) (string, error)
}

// StreamGenerator yields incremental response fragments. Used only by
// conversational glue layers, never for grounded answering.
type StreamGenerator interface {
	GenerateStream(ctx context.Context, systemPrompt string, messages []Message) (<-chan string, error)
}
