package tutordex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedding  EmbeddingConfig
	generation GenerationConfig

	collection string
	keyPrefix  string
	topK       int
	chunkSize  int
	overlap    int
	batchSize  int

	hnswM           int
	hnswEFConstruct int

	sessionTTL         time.Duration
	persistentSessions bool

	embedCacheTTL time.Duration

	logger *zap.Logger
}

// EmbeddingConfig holds the embedding provider settings for the client.
type EmbeddingConfig struct {
	APIKey              string
	BaseURL             string
	Model               string
	Dimensions          int
	QueryInstruction    string
	DocumentInstruction string
}

// GenerationConfig holds the answer generation settings for the client.
type GenerationConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithEmbedding sets the embedding provider. Required.
func WithEmbedding(cfg EmbeddingConfig) Option {
	return func(c *clientConfig) {
		c.embedding = cfg
	}
}

// WithGeneration sets the answer generation provider. Required for Ask;
// ingestion-only clients can omit it.
func WithGeneration(cfg GenerationConfig) Option {
	return func(c *clientConfig) {
		c.generation = cfg
	}
}

// WithCollection sets the chunk collection name.
// Defaults to "textbook_chunks".
func WithCollection(name string) Option {
	return func(c *clientConfig) {
		c.collection = name
	}
}

// WithKeyPrefix sets the database key prefix. Defaults to "tutordex:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithTopK sets how many chunks ground each answer. Defaults to 5.
func WithTopK(k int) Option {
	return func(c *clientConfig) {
		c.topK = k
	}
}

// WithChunking sets segmentation parameters in whitespace tokens.
// Defaults: size 512, overlap 64.
func WithChunking(size, overlap int) Option {
	return func(c *clientConfig) {
		c.chunkSize = size
		c.overlap = overlap
	}
}

// WithBatchSize bounds how many units go into one embedding request.
// Defaults to 50.
func WithBatchSize(size int) Option {
	return func(c *clientConfig) {
		c.batchSize = size
	}
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	}
}

// WithSessionTTL sets the sliding session expiration. Defaults to 24h.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.sessionTTL = ttl
	}
}

// WithPersistentSessions stores sessions in the database instead of process
// memory, so they survive restarts and are shared across instances.
func WithPersistentSessions() Option {
	return func(c *clientConfig) {
		c.persistentSessions = true
	}
}

// WithEmbeddingCache caches embeddings in the database for the given TTL.
// Zero disables the cache.
func WithEmbeddingCache(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.embedCacheTTL = ttl
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
