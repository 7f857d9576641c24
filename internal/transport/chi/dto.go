package chi

import (
	"time"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// Error codes returned in error responses.
const (
	codeBadRequest      = "bad_request"
	codeUnauthorized    = "unauthorized"
	codeSessionNotFound = "session_not_found"
	codeInternalError   = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	Content      string `json:"content"`
	ChapterID    string `json:"chapter_id,omitempty"`
	SelectedText string `json:"selected_text,omitempty"`
}

type chatResponse struct {
	SessionID string       `json:"session_id"`
	Response  string       `json:"response"`
	Sources   []sourceItem `json:"sources"`
	Error     *string      `json:"error"`
}

type sourceItem struct {
	ChunkID        string  `json:"chunk_id"`
	ChapterID      string  `json:"chapter_id"`
	Section        string  `json:"section"`
	Excerpt        string  `json:"excerpt"`
	RelevanceScore float64 `json:"relevance_score"`
}

type sessionResponse struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Messages  []messageItem     `json:"messages"`
}

type messageItem struct {
	ID           string       `json:"id"`
	Role         string       `json:"role"`
	Content      string       `json:"content"`
	CreatedAt    time.Time    `json:"created_at"`
	ChapterID    string       `json:"chapter_id,omitempty"`
	SelectedText string       `json:"selected_text,omitempty"`
	Sources      []sourceItem `json:"sources,omitempty"`
}

func sourcesToDTO(results []domain.RetrievalResult) []sourceItem {
	items := make([]sourceItem, 0, len(results))
	for _, r := range results {
		items = append(items, sourceItem{
			ChunkID:        r.ChunkID,
			ChapterID:      r.Unit.DocumentID,
			Section:        r.Unit.Section(),
			Excerpt:        r.Excerpt,
			RelevanceScore: r.Score,
		})
	}
	return items
}

func sessionToDTO(s domain.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: s.ExpiresAt,
		Metadata:  s.Metadata,
		Messages:  make([]messageItem, 0, len(s.Turns)),
	}
	for _, t := range s.Turns {
		item := messageItem{
			ID:           t.ID,
			Role:         string(t.Role),
			Content:      t.Content,
			CreatedAt:    t.CreatedAt,
			ChapterID:    t.ChapterID,
			SelectedText: t.HighlightedText,
		}
		if len(t.Sources) > 0 {
			item.Sources = sourcesToDTO(t.Sources)
		}
		resp.Messages = append(resp.Messages, item)
	}
	return resp
}
