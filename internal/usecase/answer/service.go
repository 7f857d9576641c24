// Package answer turns retrieved textbook units and conversation history
// into a grounded assistant response.
package answer

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// historyWindow bounds how many prior turns accompany the question.
const historyWindow = 6

// Service generates grounded answers.
type Service struct {
	gen Generator
}

// New creates an answer service.
func New(gen Generator) *Service {
	return &Service{gen: gen}
}

// Input carries everything the generator needs for one answer.
type Input struct {
	Question        string
	HighlightedText string
	Results         []domain.RetrievalResult
	History         []domain.Turn
}

// Answer builds the grounded prompt and calls the generator. History is
// windowed to the most recent turns, oldest first, so the model sees the
// conversation in natural order.
func (s *Service) Answer(ctx context.Context, in Input) (string, error) {
	messages := historyMessages(in.History)
	messages = append(messages, domain.Message{
		Role:    domain.RoleUser,
		Content: buildUserMessage(in.Question, in.HighlightedText, in.Results),
	})

	response, err := s.gen.Generate(ctx, systemPrompt, messages)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return response, nil
}

func historyMessages(history []domain.Turn) []domain.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]domain.Message, 0, len(history)+1)
	for _, t := range history {
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, domain.Message{Role: t.Role, Content: t.Content})
	}
	return messages
}
