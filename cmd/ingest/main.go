// Textbook content ingestion pipeline.
//
// Walks a content directory laid out as module dirs containing chapter
// Markdown files, segments each chapter, embeds the units, and writes them
// into the vector index:
//
//	content/
//	  module-1-ros2/
//	    01-introduction.md
//	    02-nodes-and-topics.md
//	  module-2-simulation/
//	    ...
//
// Usage:
//
//	ingest -content-dir ./content -workers 4
//	ingest -content-dir ./content -dry-run
//	ingest -content-dir ./content -reset
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tutordex/internal/config"
	dbRedis "github.com/kailas-cloud/tutordex/internal/db/redis"
	"github.com/kailas-cloud/tutordex/internal/domain"
	logpkg "github.com/kailas-cloud/tutordex/internal/logger"
	"github.com/kailas-cloud/tutordex/internal/metrics"
	"github.com/kailas-cloud/tutordex/internal/repository/chunk"
	"github.com/kailas-cloud/tutordex/internal/repository/embcache"
	openaiLLM "github.com/kailas-cloud/tutordex/internal/transport/openai"
	ingestuc "github.com/kailas-cloud/tutordex/internal/usecase/ingest"
)

type flags struct {
	contentDir string
	workers    int
	dryRun     bool
	reset      bool
}

func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.contentDir, "content-dir", "", "directory with module subdirectories of chapter markdown files")
	flag.IntVar(&f.workers, "workers", 4, "number of chapters ingested in parallel")
	flag.BoolVar(&f.dryRun, "dry-run", false, "segment only, print unit counts, write nothing")
	flag.BoolVar(&f.reset, "reset", false, "drop and recreate the collection index before ingesting")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.contentDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, f); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	docs, err := discoverDocuments(f.contentDir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no chapter files found under %s", f.contentDir)
	}
	logger.Info("Discovered chapters",
		zap.Int("count", len(docs)),
		zap.String("content_dir", f.contentDir),
	)

	if f.dryRun {
		svc := ingestuc.New(nil, nil, ingestConfig(&cfg), logger)
		return dryRun(svc, docs)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	metrics.RegisterLLMMetrics()

	base := openaiLLM.NewEmbedder(&openaiLLM.EmbedderConfig{
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		Model:          cfg.Embedding.Model,
		Dimensions:     cfg.Embedding.Dimensions,
		QueryPrefix:    cfg.Embedding.QueryInstruction,
		DocumentPrefix: cfg.Embedding.DocumentInstruction,
		Timeout:        time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Provider:       cfg.Embedding.Provider,
		Logger:         logger,
	})
	var embedder domain.Embedder = base
	if cfg.Embedding.CacheTTLHours > 0 {
		// Re-ingesting unchanged chapters hits the cache instead of the provider.
		embedder = embcache.New(
			base, store,
			cfg.Storage.KeyPrefix, cfg.Embedding.Model,
			time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour,
			metrics.EmbeddingCacheTotal, logger,
		)
	}

	writer := chunk.New(store, cfg.Storage.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(chunk.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})

	svc := ingestuc.New(embedder, writer, ingestConfig(&cfg), logger)

	if f.reset {
		if err := svc.ResetCollection(ctx); err != nil {
			return fmt.Errorf("reset collection: %w", err)
		}
		logger.Info("Collection reset", zap.String("collection", cfg.RAG.Collection))
	} else if err := svc.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	start := time.Now()
	var totalChunks atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for _, doc := range docs {
		g.Go(func() error {
			n, err := svc.IngestDocument(gctx, doc)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", doc.ID, err)
			}
			totalChunks.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Ingestion complete",
		zap.Int("chapters", len(docs)),
		zap.Int64("chunks", totalChunks.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func ingestConfig(cfg *config.Config) ingestuc.Config {
	return ingestuc.Config{
		Collection: cfg.RAG.Collection,
		ChunkSize:  cfg.RAG.ChunkSize,
		Overlap:    cfg.RAG.Overlap,
		BatchSize:  cfg.RAG.BatchSize,
	}
}

// discoverDocuments walks contentDir's immediate subdirectories and collects
// every markdown file as one chapter document. The subdirectory name becomes
// the collection id, the file stem becomes the chapter id.
func discoverDocuments(contentDir string) ([]ingestuc.Document, error) {
	moduleDirs, err := os.ReadDir(contentDir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	var docs []ingestuc.Document
	for _, moduleDir := range moduleDirs {
		if !moduleDir.IsDir() {
			continue
		}
		modulePath := filepath.Join(contentDir, moduleDir.Name())

		files, err := os.ReadDir(modulePath)
		if err != nil {
			return nil, fmt.Errorf("read module dir %s: %w", moduleDir.Name(), err)
		}
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(modulePath, file.Name()))
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", file.Name(), err)
			}

			stem := strings.TrimSuffix(file.Name(), ".md")
			docs = append(docs, ingestuc.Document{
				ID:           "ch-" + stem,
				CollectionID: moduleDir.Name(),
				Content:      stripFrontmatter(string(raw)),
			})
		}
	}
	return docs, nil
}

// stripFrontmatter removes a leading YAML frontmatter block delimited by
// "---" lines. Frontmatter is site metadata, not textbook content.
func stripFrontmatter(content string) string {
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, "---\n") {
		return content
	}
	parts := strings.SplitN(trimmed, "\n---\n", 2)
	if len(parts) < 2 {
		return content
	}
	return strings.TrimLeft(parts[1], "\n")
}

func dryRun(svc *ingestuc.Service, docs []ingestuc.Document) error {
	total := 0
	for _, doc := range docs {
		units := svc.Preview(doc)
		total += len(units)
		fmt.Printf("%-40s %s  %4d units\n", doc.ID, doc.CollectionID, len(units))
		for i, u := range units {
			if i >= 2 {
				break
			}
			sample := u.Content
			if len(sample) > 60 {
				sample = sample[:60] + "…"
			}
			fmt.Printf("    [%s] %s\n", u.Kind, strings.ReplaceAll(sample, "\n", " "))
		}
	}
	fmt.Printf("\n%d chapters, %d units total (dry run, nothing written)\n", len(docs), total)
	return nil
}
