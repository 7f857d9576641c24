package chunk

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"github.com/kailas-cloud/tutordex/internal/domain"
)

// Hash field names shared by the chunk and retrieval repositories.
const (
	fieldContent      = "__content"
	fieldVector       = "vector"
	fieldSection      = "section"
	fieldHeadingPath  = "heading_path"
	fieldChapterID    = "chapter_id"
	fieldCollectionID = "collection_id"
	fieldKind         = "kind"
	fieldPosition     = "position"
)

// buildHashFields converts a chunk into a flat map[string]string for HSET.
func buildHashFields(c *domain.Chunk) map[string]string {
	path, _ := json.Marshal(c.Unit.HeadingPath)

	return map[string]string{
		fieldContent:      c.Unit.Content,
		fieldVector:       vectorToBytes(c.Vector),
		fieldSection:      c.Unit.Section(),
		fieldHeadingPath:  string(path),
		fieldChapterID:    c.Unit.DocumentID,
		fieldCollectionID: c.Unit.CollectionID,
		fieldKind:         string(c.Unit.Kind),
		fieldPosition:     strconv.Itoa(c.Unit.Position),
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
