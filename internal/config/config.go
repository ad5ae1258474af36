package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	VectorDB VectorDBConfig
	Index    IndexConfig
	Files    FilesConfig
	Storage  StorageConfig
	Locale   LocaleConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LLMConfig selects the generation and embedding backends and the model
// identifiers they are configured with at startup.
type LLMConfig struct {
	GenerationBackend string // openai, ollama, cohere, anthropic
	EmbeddingBackend  string

	OpenAIKey    string
	OpenAIURL    string
	AnthropicKey string
	CohereKey    string
	CohereURL    string
	OllamaURL    string

	GenerationModelID  string
	EmbeddingModelID   string
	EmbeddingModelSize int

	InputMaxCharacters    int
	GenerationMaxTokens   int
	GenerationTemperature float64
	MaxRetries            int
}

type VectorDBConfig struct {
	Backend        string // pgvector, qdrant, memory
	QdrantURL      string
	QdrantAPIKey   string
	DistanceMethod string // cosine, dot
}

type IndexConfig struct {
	EmbedIntervalMs int
	LockBackend     string // local, redis
	AlwaysRecreate  bool   // drops the collection per indexed page; multi-page pushes keep only the last page
	MaxQueryChars   int
}

type FilesConfig struct {
	AllowedTypes []string
	MaxSizeMB    int
}

type StorageConfig struct {
	Backend     string // local, supabase
	Path        string
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

type LocaleConfig struct {
	Primary string
	Default string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	embedSize, err := getEnvInt("EMBEDDING_MODEL_SIZE", 768)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_MODEL_SIZE: %w", err)
	}

	inputMax, err := getEnvInt("INPUT_DEFAULT_MAX_CHARACTERS", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid INPUT_DEFAULT_MAX_CHARACTERS: %w", err)
	}

	maxTokens, err := getEnvInt("GENERATION_DEFAULT_MAX_TOKENS", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid GENERATION_DEFAULT_MAX_TOKENS: %w", err)
	}

	temperature, err := getEnvFloat("GENERATION_DEFAULT_TEMPERATURE", 0.1)
	if err != nil {
		return nil, fmt.Errorf("invalid GENERATION_DEFAULT_TEMPERATURE: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	embedInterval, err := getEnvInt("INDEX_EMBED_INTERVAL_MS", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid INDEX_EMBED_INTERVAL_MS: %w", err)
	}

	alwaysRecreate, err := getEnvBool("INDEX_ALWAYS_RECREATE", false)
	if err != nil {
		return nil, fmt.Errorf("invalid INDEX_ALWAYS_RECREATE: %w", err)
	}

	maxQuery, err := getEnvInt("MAX_QUERY_CHARACTERS", 4000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_QUERY_CHARACTERS: %w", err)
	}

	maxSize, err := getEnvInt("FILE_MAX_SIZE_MB", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid FILE_MAX_SIZE_MB: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		LLM: LLMConfig{
			GenerationBackend:     getEnv("GENERATION_BACKEND", "openai"),
			EmbeddingBackend:      getEnv("EMBEDDING_BACKEND", "openai"),
			OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
			OpenAIURL:             getEnv("OPENAI_API_URL", ""),
			AnthropicKey:          getEnv("ANTHROPIC_API_KEY", ""),
			CohereKey:             getEnv("COHERE_API_KEY", ""),
			CohereURL:             getEnv("COHERE_API_URL", "https://api.cohere.ai/v1"),
			OllamaURL:             getEnv("OLLAMA_URL", "http://localhost:11434"),
			GenerationModelID:     getEnv("GENERATION_MODEL_ID", "llama3.1:8b-instruct-q8_0"),
			EmbeddingModelID:      getEnv("EMBEDDING_MODEL_ID", "nomic-embed-text"),
			EmbeddingModelSize:    embedSize,
			InputMaxCharacters:    inputMax,
			GenerationMaxTokens:   maxTokens,
			GenerationTemperature: temperature,
			MaxRetries:            maxRetries,
		},
		VectorDB: VectorDBConfig{
			Backend:        getEnv("VECTORDB_BACKEND", "pgvector"),
			QdrantURL:      getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey:   getEnv("QDRANT_API_KEY", ""),
			DistanceMethod: strings.ToLower(getEnv("VECTOR_DB_DISTANCE_METHOD", "cosine")),
		},
		Index: IndexConfig{
			EmbedIntervalMs: embedInterval,
			LockBackend:     getEnv("INDEX_LOCK_BACKEND", "local"),
			AlwaysRecreate:  alwaysRecreate,
			MaxQueryChars:   maxQuery,
		},
		Files: FilesConfig{
			AllowedTypes: getEnvList("FILE_ALLOWED_TYPES", []string{".txt", ".pdf", ".docx"}),
			MaxSizeMB:    maxSize,
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "local"),
			Path:        getEnv("STORAGE_PATH", "assets/files"),
			SupabaseURL: getEnv("SUPABASE_URL", ""),
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:      getEnv("STORAGE_BUCKET", "documents"),
		},
		Locale: LocaleConfig{
			Primary: getEnv("PRIMARY_LANG", "en"),
			Default: getEnv("DEFAULT_LANG", "en"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	for _, backend := range []string{c.LLM.GenerationBackend, c.LLM.EmbeddingBackend} {
		switch backend {
		case "openai":
			if c.LLM.OpenAIKey == "" && c.LLM.OpenAIURL == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		case "cohere":
			if c.LLM.CohereKey == "" {
				missing = append(missing, "COHERE_API_KEY")
			}
		case "anthropic":
			if c.LLM.AnthropicKey == "" {
				missing = append(missing, "ANTHROPIC_API_KEY")
			}
		}
	}
	if c.LLM.EmbeddingModelSize <= 0 {
		missing = append(missing, "EMBEDDING_MODEL_SIZE")
	}
	if c.Storage.Backend == "supabase" && (c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "") {
		missing = append(missing, "SUPABASE_URL", "SUPABASE_SERVICE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(dedupe(missing), ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

// getEnvList parses a comma separated list. Entries are trimmed and
// lower-cased; empty entries are dropped.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
