// Package ingest segments source documents, embeds the units, and writes
// them into the vector index.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/segment"
)

const defaultBatchSize = 50

// Document is one source document to index. ID becomes the chapter
// identifier on every unit; CollectionID groups chapters into modules.
type Document struct {
	ID           string
	CollectionID string
	Content      string
}

// Service runs the ingestion pipeline.
type Service struct {
	embedder   Embedder
	writer     ChunkWriter
	collection string
	chunkSize  int
	overlap    int
	batchSize  int
	logger     *zap.Logger
}

// Config holds segmentation and batching parameters.
type Config struct {
	Collection string
	ChunkSize  int
	Overlap    int
	BatchSize  int
}

// New creates an ingest service.
func New(embedder Embedder, writer ChunkWriter, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Service{
		embedder:   embedder,
		writer:     writer,
		collection: cfg.Collection,
		chunkSize:  cfg.ChunkSize,
		overlap:    cfg.Overlap,
		batchSize:  cfg.BatchSize,
		logger:     logger,
	}
}

// EnsureCollection creates the target index if missing.
func (s *Service) EnsureCollection(ctx context.Context) error {
	return s.writer.EnsureCollection(ctx, s.collection)
}

// ResetCollection drops and recreates the target index.
func (s *Service) ResetCollection(ctx context.Context) error {
	return s.writer.ResetCollection(ctx, s.collection)
}

// Preview segments a document without embedding or writing anything.
func (s *Service) Preview(doc Document) []domain.ContentUnit {
	return s.segmentDocument(doc)
}

// IngestDocument segments the document and indexes every unit. Returns the
// number of chunks written. Embedding happens in bounded batches so one
// oversized chapter cannot blow a single provider request.
func (s *Service) IngestDocument(ctx context.Context, doc Document) (int, error) {
	units := s.segmentDocument(doc)
	if len(units) == 0 {
		s.logger.Warn("Document produced no units", zap.String("document_id", doc.ID))
		return 0, nil
	}

	for start := 0; start < len(units); start += s.batchSize {
		end := start + s.batchSize
		if end > len(units) {
			end = len(units)
		}
		batch := units[start:end]

		texts := make([]string, len(batch))
		for i, u := range batch {
			texts[i] = u.Content
		}

		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch %d-%d of %s: %w", start, end, doc.ID, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embed batch %d-%d of %s: got %d vectors for %d units",
				start, end, doc.ID, len(vectors), len(batch))
		}

		chunks := make([]domain.Chunk, len(batch))
		for i, u := range batch {
			chunks[i] = domain.Chunk{
				ID:     domain.NewChunkID(),
				Unit:   u,
				Vector: vectors[i],
			}
		}

		if err := s.writer.UpsertBatch(ctx, s.collection, chunks); err != nil {
			return 0, fmt.Errorf("upsert batch %d-%d of %s: %w", start, end, doc.ID, err)
		}
	}

	s.logger.Info("Document indexed",
		zap.String("document_id", doc.ID),
		zap.String("collection_id", doc.CollectionID),
		zap.Int("chunks", len(units)))
	return len(units), nil
}

func (s *Service) segmentDocument(doc Document) []domain.ContentUnit {
	units := segment.Segment(doc.Content, s.chunkSize, s.overlap)
	for i := range units {
		units[i].DocumentID = doc.ID
		units[i].CollectionID = doc.CollectionID
	}
	return units
}
