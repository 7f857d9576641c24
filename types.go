package tutordex

import (
	"time"

	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/usecase/chat"
	"github.com/kailas-cloud/tutordex/internal/usecase/ingest"
)

// AskRequest is one question for the tutor.
type AskRequest struct {
	// SessionID continues an existing conversation. Empty or expired ids
	// start a fresh session.
	SessionID string
	Question  string
	// ChapterID focuses retrieval on one chapter when set.
	ChapterID string
	// HighlightedText is the passage the reader selected, if any.
	HighlightedText string
}

// AskResponse is the tutor's answer.
type AskResponse struct {
	SessionID string
	Answer    string
	Sources   []Source
	// Err carries diagnostic detail when the pipeline degraded and Answer
	// is an apology. Empty on success.
	Err string
}

// Source cites one textbook chunk that grounded the answer.
type Source struct {
	ChunkID   string
	ChapterID string
	Section   string
	Excerpt   string
	Score     float64
}

// Session is a conversation transcript.
type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	Metadata  map[string]string
	Turns     []Turn
}

// Turn is one message within a session.
type Turn struct {
	ID              string
	Role            string
	Content         string
	CreatedAt       time.Time
	ChapterID       string
	HighlightedText string
	Sources         []Source
}

// Document is one markdown chapter to ingest.
type Document struct {
	// ChapterID identifies the chapter, e.g. "ch-01-introduction".
	ChapterID string
	// ModuleID groups chapters, e.g. "module-1-ros2".
	ModuleID string
	// Content is the chapter markdown, frontmatter already stripped.
	Content string
}

// Unit is one segmented piece of a chapter, as produced by Preview.
type Unit struct {
	Content     string
	Kind        string
	HeadingPath []string
	Position    int
}

func askToChat(req AskRequest) chat.Request {
	return chat.Request{
		SessionID:       req.SessionID,
		Content:         req.Question,
		ChapterID:       req.ChapterID,
		HighlightedText: req.HighlightedText,
	}
}

func askFromChat(resp chat.Response) AskResponse {
	return AskResponse{
		SessionID: resp.SessionID,
		Answer:    resp.Answer,
		Sources:   sourcesFromDomain(resp.Sources),
		Err:       resp.Err,
	}
}

func sourcesFromDomain(results []domain.RetrievalResult) []Source {
	if len(results) == 0 {
		return nil
	}
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ChunkID:   r.ChunkID,
			ChapterID: r.Unit.DocumentID,
			Section:   r.Unit.Section(),
			Excerpt:   r.Excerpt,
			Score:     r.Score,
		}
	}
	return sources
}

func sessionFromDomain(s domain.Session) Session {
	out := Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: s.ExpiresAt,
		Metadata:  s.Metadata,
		Turns:     make([]Turn, len(s.Turns)),
	}
	for i, t := range s.Turns {
		out.Turns[i] = Turn{
			ID:              t.ID,
			Role:            string(t.Role),
			Content:         t.Content,
			CreatedAt:       t.CreatedAt,
			ChapterID:       t.ChapterID,
			HighlightedText: t.HighlightedText,
			Sources:         sourcesFromDomain(t.Sources),
		}
	}
	return out
}

func docToIngest(doc Document) ingest.Document {
	return ingest.Document{
		ID:           doc.ChapterID,
		CollectionID: doc.ModuleID,
		Content:      doc.Content,
	}
}

func unitsFromDomain(units []domain.ContentUnit) []Unit {
	out := make([]Unit, len(units))
	for i, u := range units {
		out[i] = Unit{
			Content:     u.Content,
			Kind:        string(u.Kind),
			HeadingPath: u.HeadingPath,
			Position:    u.Position,
		}
	}
	return out
}
