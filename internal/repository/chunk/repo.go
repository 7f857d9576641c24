// Package chunk persists embedded content units into the vector index.
package chunk

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tutordex/internal/db"
	"github.com/kailas-cloud/tutordex/internal/domain"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig holds HNSW index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements usecase/ingest.ChunkWriter.
type Repo struct {
	store     store
	keyPrefix string
	dimension int
	hnsw      HNSWConfig
}

// New creates a chunk repository. dimension is the embedding provider's
// vector dimensionality; every upserted vector must match it.
func New(s store, keyPrefix string, dimension int) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix, dimension: dimension}
}

// WithHNSW overrides HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureCollection creates the FT index for the collection if it does not exist.
func (r *Repo) EnsureCollection(ctx context.Context, collection string) error {
	def := r.indexDefinition(collection)

	err := r.store.CreateIndex(ctx, def)
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// ResetCollection drops and recreates the collection index.
func (r *Repo) ResetCollection(ctx context.Context, collection string) error {
	def := r.indexDefinition(collection)

	if err := r.store.DropIndex(ctx, def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", def.Name, err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// UpsertBatch stores a batch of chunks in a single pipelined round-trip.
// A vector whose dimensionality does not match the index fails the whole
// batch loudly; nothing is truncated or padded.
func (r *Repo) UpsertBatch(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) != r.dimension {
			return fmt.Errorf("chunk %s: got %d dimensions, index expects %d: %w",
				c.ID, len(c.Vector), r.dimension, domain.ErrVectorDimMismatch)
		}
		items = append(items, db.HashSetItem{
			Key:    r.chunkKey(collection, c.ID),
			Fields: buildHashFields(&c),
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks into %s: %w", len(chunks), collection, err)
	}
	return nil
}

func (r *Repo) indexDefinition(collection string) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     indexName(r.keyPrefix, collection),
		Prefixes: []string{r.keyPrefix + collection + ":"},
		Fields: []db.IndexField{
			{Name: fieldChapterID, Type: db.IndexFieldTag},
			{Name: fieldCollectionID, Type: db.IndexFieldTag},
			{Name: fieldKind, Type: db.IndexFieldTag},
			{Name: fieldPosition, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorDim:         r.dimension,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}
}

func (r *Repo) chunkKey(collection, id string) string {
	return r.keyPrefix + collection + ":" + id
}

// indexName derives the FT index name for a collection.
func indexName(prefix, collection string) string {
	return prefix + collection + ":idx"
}
