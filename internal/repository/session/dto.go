package session

import (
	"time"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// sessionDoc is the stored JSON shape of a session. Turns must always be
// present (never null) so JSON.ARRAPPEND has an array to extend.
type sessionDoc struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Turns     []turnDoc         `json:"turns"`
}

type turnDoc struct {
	ID              string      `json:"id"`
	Role            string      `json:"role"`
	Content         string      `json:"content"`
	CreatedAt       time.Time   `json:"created_at"`
	ChapterID       string      `json:"chapter_id,omitempty"`
	HighlightedText string      `json:"highlighted_text,omitempty"`
	Sources         []sourceDoc `json:"sources,omitempty"`
}

// sourceDoc keeps citation metadata only; the full chunk content stays in
// the vector index and is not duplicated into session history.
type sourceDoc struct {
	ChunkID     string   `json:"chunk_id"`
	Section     string   `json:"section,omitempty"`
	HeadingPath []string `json:"heading_path,omitempty"`
	ChapterID   string   `json:"chapter_id,omitempty"`
	Score       float64  `json:"score"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

func toSessionDoc(s domain.Session) sessionDoc {
	doc := sessionDoc{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		ExpiresAt: s.ExpiresAt,
		Metadata:  s.Metadata,
		Turns:     make([]turnDoc, 0, len(s.Turns)),
	}
	for _, t := range s.Turns {
		doc.Turns = append(doc.Turns, toTurnDoc(t))
	}
	return doc
}

func toTurnDoc(t domain.Turn) turnDoc {
	doc := turnDoc{
		ID:              t.ID,
		Role:            string(t.Role),
		Content:         t.Content,
		CreatedAt:       t.CreatedAt,
		ChapterID:       t.ChapterID,
		HighlightedText: t.HighlightedText,
	}
	for _, src := range t.Sources {
		doc.Sources = append(doc.Sources, sourceDoc{
			ChunkID:     src.ChunkID,
			Section:     src.Unit.Section(),
			HeadingPath: src.Unit.HeadingPath,
			ChapterID:   src.Unit.DocumentID,
			Score:       src.Score,
			Excerpt:     src.Excerpt,
		})
	}
	return doc
}

func (d sessionDoc) toDomain() domain.Session {
	s := domain.Session{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		ExpiresAt: d.ExpiresAt,
		Metadata:  d.Metadata,
	}
	for _, t := range d.Turns {
		s.Turns = append(s.Turns, t.toDomain())
	}
	return s
}

func (d turnDoc) toDomain() domain.Turn {
	t := domain.Turn{
		ID:              d.ID,
		Role:            domain.Role(d.Role),
		Content:         d.Content,
		CreatedAt:       d.CreatedAt,
		ChapterID:       d.ChapterID,
		HighlightedText: d.HighlightedText,
	}
	for _, src := range d.Sources {
		t.Sources = append(t.Sources, domain.RetrievalResult{
			ChunkID: src.ChunkID,
			Unit: domain.ContentUnit{
				HeadingPath: src.HeadingPath,
				DocumentID:  src.ChapterID,
			},
			Score:   src.Score,
			Excerpt: src.Excerpt,
		})
	}
	return t
}
