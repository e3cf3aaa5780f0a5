package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EmbedderURL    string
	EmbeddingModel string
	EmbeddingDim   int
	EmbedMaxRPS    float64

	SparseEncoderURL string
	SparseModel      string

	RerankerURL   string
	RerankerModel string

	GeneratorURL    string
	GeneratorModel  string
	AnswerMaxTokens int

	PrefetchN      int
	RRFK           float64
	TopK           int
	HistoryTurns   int
	EmbedCacheSize int

	SessionTTL  time.Duration
	CallTimeout time.Duration

	IngestWorkers int
}

func Load() *Config {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Env: getEnv("ENV", "development"),

		DBHost:     getEnv("DB_HOST", "law-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "law_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "law_password"),
		DBName:     getEnv("DB_NAME", "law_db"),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),

		RedisAddr:     getEnv("REDIS_ADDR", "law-redis:6379"),
		RedisPassword: getSecret("REDIS_PASSWORD", "REDIS_PASSWORD_FILE", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EmbedderURL:    getEnv("EMBEDDER_URL", "http://model-server:11434"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "bge-m3"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 1024),
		EmbedMaxRPS:    getEnvFloat("EMBED_MAX_RPS", 0),

		SparseEncoderURL: getEnv("SPARSE_ENCODER_URL", "http://sparse-encoder:8002"),
		SparseModel:      getEnv("SPARSE_MODEL", "bge-m3-sparse"),

		RerankerURL:   getEnv("RERANKER_URL", "http://reranker:8001"),
		RerankerModel: getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),

		GeneratorURL:    getEnv("GENERATOR_URL", "http://model-server:11434"),
		GeneratorModel:  getEnv("GENERATOR_MODEL", "qwen2.5:14b"),
		AnswerMaxTokens: getEnvInt("ANSWER_MAX_TOKENS", 1024),

		PrefetchN:      getEnvInt("RAG_PREFETCH_N", 25),
		RRFK:           getEnvFloat("RAG_RRF_K", 60),
		TopK:           getEnvInt("RAG_TOP_K", 5),
		HistoryTurns:   getEnvInt("RAG_HISTORY_TURNS", 3),
		EmbedCacheSize: getEnvInt("RAG_EMBED_CACHE_SIZE", 256),

		SessionTTL:  getEnvDuration("SESSION_TTL", 86400*time.Second),
		CallTimeout: getEnvDuration("CALL_TIMEOUT", 120*time.Second),

		IngestWorkers: getEnvInt("INGEST_WORKERS", 4),
	}
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
