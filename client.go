// Package tutordex embeds the textbook tutor pipeline into a Go program:
// retrieval-grounded question answering and chapter ingestion over a
// Valkey/Redis vector index, without running the HTTP server.
package tutordex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tutordex/internal/db"
	dbRedis "github.com/kailas-cloud/tutordex/internal/db/redis"
	"github.com/kailas-cloud/tutordex/internal/domain"
	"github.com/kailas-cloud/tutordex/internal/metrics"
	"github.com/kailas-cloud/tutordex/internal/repository/chunk"
	"github.com/kailas-cloud/tutordex/internal/repository/embcache"
	retrievalrepo "github.com/kailas-cloud/tutordex/internal/repository/retrieval"
	sessionrepo "github.com/kailas-cloud/tutordex/internal/repository/session"
	"github.com/kailas-cloud/tutordex/internal/scope"
	openaiLLM "github.com/kailas-cloud/tutordex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/tutordex/internal/usecase/answer"
	chatuc "github.com/kailas-cloud/tutordex/internal/usecase/chat"
	ingestuc "github.com/kailas-cloud/tutordex/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/tutordex/internal/usecase/retrieve"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the tutordex SDK entry point.
type Client struct {
	store     db.Store
	chatSvc   *chatuc.Service
	ingestSvc *ingestuc.Service
}

// New creates a tutordex Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection: "textbook_chunks",
		keyPrefix:  "tutordex:",
		topK:       5,
		chunkSize:  512,
		overlap:    64,
		batchSize:  50,
		sessionTTL: 24 * time.Hour,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("tutordex: database address required (use WithValkey or WithRedis)")
	}
	if cfg.embedding.Model == "" || cfg.embedding.Dimensions <= 0 {
		return nil, errors.New("tutordex: embedding model and dimensions required (use WithEmbedding)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("tutordex: create %s store: %w", cfg.driver, err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tutordex: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	base := openaiLLM.NewEmbedder(&openaiLLM.EmbedderConfig{
		APIKey:         cfg.embedding.APIKey,
		BaseURL:        cfg.embedding.BaseURL,
		Model:          cfg.embedding.Model,
		Dimensions:     cfg.embedding.Dimensions,
		QueryPrefix:    cfg.embedding.QueryInstruction,
		DocumentPrefix: cfg.embedding.DocumentInstruction,
		Provider:       "openai",
		Logger:         cfg.logger,
	})
	var embedder domain.Embedder = base
	if cfg.embedCacheTTL > 0 {
		embedder = embcache.New(
			base, store,
			cfg.keyPrefix, cfg.embedding.Model, cfg.embedCacheTTL,
			metrics.EmbeddingCacheTotal, cfg.logger,
		)
	}

	generator := openaiLLM.NewGenerator(&openaiLLM.GeneratorConfig{
		APIKey:      cfg.generation.APIKey,
		BaseURL:     cfg.generation.BaseURL,
		Model:       cfg.generation.Model,
		MaxTokens:   cfg.generation.MaxTokens,
		Temperature: cfg.generation.Temperature,
		Provider:    "openai",
		Logger:      cfg.logger,
	})

	var sessions chatuc.SessionStore
	if cfg.persistentSessions {
		sessions = sessionrepo.NewRedis(store, cfg.keyPrefix+"sessions:", cfg.sessionTTL)
	} else {
		sessions = sessionrepo.NewMemory(cfg.sessionTTL)
	}

	retrieveSvc := retrieveuc.New(retrievalrepo.New(store, cfg.keyPrefix), cfg.topK)
	chatSvc := chatuc.New(
		scope.New(), embedder, retrieveSvc, answeruc.New(generator), sessions,
		cfg.collection, cfg.logger,
	)

	writer := chunk.New(store, cfg.keyPrefix, cfg.embedding.Dimensions)
	if cfg.hnswM > 0 || cfg.hnswEFConstruct > 0 {
		writer = writer.WithHNSW(chunk.HNSWConfig{
			M:           cfg.hnswM,
			EFConstruct: cfg.hnswEFConstruct,
		})
	}
	ingestSvc := ingestuc.New(embedder, writer, ingestuc.Config{
		Collection: cfg.collection,
		ChunkSize:  cfg.chunkSize,
		Overlap:    cfg.overlap,
		BatchSize:  cfg.batchSize,
	}, cfg.logger)

	return &Client{store: store, chatSvc: chatSvc, ingestSvc: ingestSvc}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ask runs one question through the full pipeline: scope gate, retrieval,
// grounded generation, session bookkeeping. A degraded pipeline yields an
// apology answer with AskResponse.Err set rather than an error; only session
// store failures return an error.
func (c *Client) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	resp, err := c.chatSvc.Send(ctx, askToChat(req))
	if err != nil {
		return AskResponse{}, err
	}
	return askFromChat(resp), nil
}

// Session returns a conversation transcript.
// Returns ErrSessionNotFound for unknown or expired ids.
func (c *Client) Session(ctx context.Context, id string) (Session, error) {
	s, err := c.chatSvc.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return sessionFromDomain(s), nil
}

// EnsureCollection creates the chunk index if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	return c.ingestSvc.EnsureCollection(ctx)
}

// ResetCollection drops and recreates the chunk index.
func (c *Client) ResetCollection(ctx context.Context) error {
	return c.ingestSvc.ResetCollection(ctx)
}

// Ingest segments a chapter, embeds the units, and writes them into the
// index. Returns the number of chunks written.
func (c *Client) Ingest(ctx context.Context, doc Document) (int, error) {
	return c.ingestSvc.IngestDocument(ctx, docToIngest(doc))
}

// Preview segments a chapter without embedding or writing anything.
func (c *Client) Preview(doc Document) []Unit {
	return unitsFromDomain(c.ingestSvc.Preview(docToIngest(doc)))
}

// ErrSessionNotFound reports an unknown or expired session id.
var ErrSessionNotFound = domain.ErrSessionNotFound
