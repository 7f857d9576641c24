// Package chat orchestrates the end-to-end question pipeline: session
// resolution, scope gating, retrieval, grounded answering, and history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/usecase/answer"
)

// apologyResponse is what the user sees when the pipeline degrades. The real
// failure travels in the diagnostic field, never in the spoken response.
const apologyResponse = "I apologize, but I encountered an error processing your question. Please try again."

// Service runs the chat pipeline.
type Service struct {
	scoper     Scoper
	embedder   Embedder
	retriever  Retriever
	answerer   Answerer
	sessions   SessionStore
	collection string
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a chat service.
func New(
	scoper Scoper,
	embedder Embedder,
	retriever Retriever,
	answerer Answerer,
	sessions SessionStore,
	collection string,
	logger *zap.Logger,
) *Service {
	return &Service{
		scoper:     scoper,
		embedder:   embedder,
		retriever:  retriever,
		answerer:   answerer,
		sessions:   sessions,
		collection: collection,
		logger:     logger,
		now:        time.Now,
	}
}

// Request is one incoming user message.
type Request struct {
	SessionID       string
	Content         string
	ChapterID       string
	HighlightedText string
}

// Response is the pipeline outcome. Err carries diagnostic detail for
// degraded answers and stays empty on success.
type Response struct {
	SessionID string
	Answer    string
	Sources   []domain.RetrievalResult
	Err       string
}

// Send processes one user message. A stale or missing session id starts a
// fresh session instead of failing. Retrieval or generation failures degrade
// to an apology response; only session storage failures surface as errors.
func (s *Service) Send(ctx context.Context, req Request) (Response, error) {
	session, err := s.resolveSession(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("resolve session: %w", err)
	}

	// Out-of-scope questions short-circuit with the canned redirect and
	// leave no trace in history.
	if decision := s.scoper.Check(req.Content); decision.OutOfScope {
		s.logger.Info("Question rejected as out of scope",
			zap.String("session_id", session.ID),
			zap.String("reason", decision.Reason),
			zap.Float64("confidence", decision.Confidence))
		return Response{SessionID: session.ID, Answer: decision.Response}, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, buildQuery(req.Content, req.HighlightedText))
	if err != nil {
		return s.degrade(session.ID, "embed query", err), nil
	}

	results, err := s.retriever.Retrieve(ctx, s.collection, vector, req.ChapterID)
	if err != nil {
		return s.degrade(session.ID, "retrieve context", err), nil
	}

	answerText, err := s.answerer.Answer(ctx, answer.Input{
		Question:        req.Content,
		HighlightedText: req.HighlightedText,
		Results:         results,
		History:         session.Turns,
	})
	if err != nil {
		return s.degrade(session.ID, "generate answer", err), nil
	}

	now := s.now()
	turns := []domain.Turn{
		{
			ID:              domain.NewTurnID(),
			Role:            domain.RoleUser,
			Content:         req.Content,
			CreatedAt:       now,
			ChapterID:       req.ChapterID,
			HighlightedText: req.HighlightedText,
		},
		{
			ID:        domain.NewTurnID(),
			Role:      domain.RoleAssistant,
			Content:   answerText,
			CreatedAt: now,
			ChapterID: req.ChapterID,
			Sources:   results,
		},
	}
	if err := s.sessions.AppendTurns(ctx, session.ID, turns...); err != nil {
		return Response{}, fmt.Errorf("append turns: %w", err)
	}

	return Response{SessionID: session.ID, Answer: answerText, Sources: results}, nil
}

// GetSession returns a session with its full history.
func (s *Service) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return s.sessions.Get(ctx, id)
}

// resolveSession fetches or creates the session. Every incoming message
// keeps its session alive: a resolved session is touched immediately, so
// out-of-scope and degraded exchanges slide the TTL even though they append
// no turns.
func (s *Service) resolveSession(ctx context.Context, req Request) (domain.Session, error) {
	if req.SessionID != "" {
		session, err := s.sessions.Get(ctx, req.SessionID)
		if err == nil {
			if err := s.sessions.Touch(ctx, session.ID); err != nil {
				return domain.Session{}, fmt.Errorf("touch session: %w", err)
			}
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, err
		}
	}
	return s.sessions.Create(ctx, map[string]string{"initial_chapter_id": req.ChapterID})
}

func (s *Service) degrade(sessionID, stage string, err error) Response {
	s.logger.Error("Chat pipeline degraded",
		zap.String("session_id", sessionID),
		zap.String("stage", stage),
		zap.Error(err))
	return Response{SessionID: sessionID, Answer: apologyResponse, Err: err.Error()}
}

// buildQuery folds highlighted text into the retrieval query so the vector
// reflects what the user is looking at, not just what they typed.
func buildQuery(question, highlightedText string) string {
	if highlightedText == "" {
		return question
	}
	return fmt.Sprintf("Context: %s\n\nQuestion: %s", highlightedText, question)
}
