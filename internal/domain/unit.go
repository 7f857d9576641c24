package domain

import "strings"

// UnitKind distinguishes prose units from atomic code units.
type UnitKind string

const (
	// UnitText is an ordinary prose unit, subject to size-based splitting.
	UnitText UnitKind = "text"
	// UnitCode is a fenced code block, never split.
	UnitCode UnitKind = "code"
)

// ContentUnit is the smallest indexed and citable fragment of a source document.
type ContentUnit struct {
	Content      string
	Kind         UnitKind
	HeadingPath  []string // stack of enclosing heading titles
	Position     int      // emission order within the source document
	DocumentID   string
	CollectionID string
}

// Section renders the heading path as a human-readable citation label.
func (u ContentUnit) Section() string {
	return strings.Join(u.HeadingPath, " > ")
}

// Chunk couples a ContentUnit with its embedding vector for indexing.
type Chunk struct {
	ID     string
	Unit   ContentUnit
	Vector []float32
}

// RetrievalResult is a retrieved unit with its relevance score and display excerpt.
// Excerpt is a bounded prefix of the content used for citation display only;
// grounding always uses the full unit content.
type RetrievalResult struct {
	ChunkID string
	Unit    ContentUnit
	Score   float64
	Excerpt string
}
