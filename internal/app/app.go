// Package app wires configuration into the services shared by the API
// server, the worker and the evaluation CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/ragguard/internal/audit"
	"github.com/nikhilbhutani/ragguard/internal/cache"
	"github.com/nikhilbhutani/ragguard/internal/config"
	"github.com/nikhilbhutani/ragguard/internal/database"
	"github.com/nikhilbhutani/ragguard/internal/document"
	"github.com/nikhilbhutani/ragguard/internal/guardrails"
	"github.com/nikhilbhutani/ragguard/internal/llm"
	"github.com/nikhilbhutani/ragguard/internal/rag"
	"github.com/nikhilbhutani/ragguard/internal/storage"
	"github.com/nikhilbhutani/ragguard/internal/store"
	"github.com/nikhilbhutani/ragguard/internal/templates"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB    *pgxpool.Pool
	Redis *redis.Client
	Cache *cache.Cache

	Store     store.Store
	Files     storage.Storage
	Vectors   vectorstore.VectorStore
	Generator llm.Provider
	Embedder  llm.Provider
	Templates *templates.Parser
	Guards    *guardrails.Pipeline
	Audit     audit.Recorder

	Indexer   *rag.Indexer
	Retriever *rag.Retriever
	Answerer  *rag.Answerer
	Documents *document.Service

	closers []func()
}

// New connects to every configured backend. Without DATABASE_URL the
// project store falls back to memory, which only suits local runs.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.build(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	if cfg.Database.URL != "" {
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)

		if err := database.RunMigrations(ctx, db, database.MigrationsFS(cfg.Database.MigrationsPath)); err != nil {
			return err
		}
	}

	if cfg.Redis.Addr != "" {
		a.Redis = cache.NewClient(cfg.Redis)
		a.Cache = cache.NewCache(a.Redis)
		a.closers = append(a.closers, func() { _ = a.Redis.Close() })
	}
	return nil
}

func (a *App) build() error {
	cfg := a.Config

	if a.DB != nil {
		a.Store = store.NewPostgresStore(a.DB)
		a.Audit = audit.NewPostgresRecorder(a.DB)
	} else {
		a.Logger.Warn("DATABASE_URL not set, using in-memory project store")
		a.Store = store.NewMemoryStore()
		a.Audit = audit.NewMemoryRecorder()
	}

	files, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	a.Files = files

	vectors, err := NewVectorStore(cfg.VectorDB, a.DB)
	if err != nil {
		return err
	}
	a.Vectors = vectors

	if a.Generator, err = llm.NewGenerationProvider(cfg.LLM, a.Logger); err != nil {
		return err
	}
	if a.Embedder, err = llm.NewEmbeddingProvider(cfg.LLM, a.Logger); err != nil {
		return err
	}

	registry, err := templates.NewRegistry()
	if err != nil {
		return err
	}
	a.Templates = templates.NewParser(registry, cfg.Locale.Primary, cfg.Locale.Default)
	a.Guards = guardrails.DefaultPipeline(cfg.Index.MaxQueryChars)

	locker, err := a.locker()
	if err != nil {
		return err
	}
	a.Indexer = rag.NewIndexer(a.Embedder, a.Vectors,
		rag.WithLocker(locker),
		rag.WithEmbedInterval(time.Duration(cfg.Index.EmbedIntervalMs)*time.Millisecond),
		rag.WithAlwaysRecreate(cfg.Index.AlwaysRecreate),
		rag.WithLogger(a.Logger),
	)
	a.Retriever = rag.NewRetriever(a.Embedder, a.Vectors)
	a.Answerer = rag.NewAnswerer(a.Retriever, rag.NewPromptAssembler(a.Templates), a.Generator, a.Guards, a.Logger, rag.WithAudit(a.Audit))
	a.Documents = document.NewService(a.Store, a.Files, cfg.Storage.Bucket, cfg.Files, a.Logger)
	return nil
}

func (a *App) locker() (rag.Locker, error) {
	switch a.Config.Index.LockBackend {
	case "", "local":
		return rag.NewKeyedMutex(), nil
	case "redis":
		if a.Cache == nil {
			return nil, errors.New("INDEX_LOCK_BACKEND=redis requires REDIS_ADDR")
		}
		return cache.NewLeaseLocker(a.Cache, "ragguard:index:", 30*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown index lock backend %q", a.Config.Index.LockBackend)
	}
}

// NewVectorStore builds the configured vector backend. pgvector needs db.
func NewVectorStore(cfg config.VectorDBConfig, db *pgxpool.Pool) (vectorstore.VectorStore, error) {
	distance, err := vectorstore.ParseDistance(cfg.DistanceMethod)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "pgvector":
		if db == nil {
			return nil, errors.New("VECTORDB_BACKEND=pgvector requires DATABASE_URL")
		}
		return vectorstore.NewPgVectorStore(db, distance), nil
	case "qdrant":
		return vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			URL:      cfg.QdrantURL,
			APIKey:   cfg.QdrantAPIKey,
			Distance: distance,
		}), nil
	case "memory":
		return vectorstore.NewMemoryStore(distance), nil
	default:
		return nil, fmt.Errorf("unknown vector db backend %q", cfg.Backend)
	}
}

// Ready reports dependency health for the readiness endpoint.
func (a *App) Ready() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"generation": func(context.Context) error {
			if a.Generator == nil {
				return errors.New("generation client not configured")
			}
			return nil
		},
	}
	if a.DB != nil {
		checks["database"] = a.DB.Ping
	}
	if a.Cache != nil {
		checks["redis"] = a.Cache.Ping
	}
	return checks
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
