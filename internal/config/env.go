package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	EmbedModel   string
	EmbedDim     int
	GenModel     string
	JWTSecret    string
	TokenTTL     time.Duration
	Port         string

	// Ingestion pipeline knobs.
	ChunkSize     int
	ChunkOverlap  int
	IngestWorkers int

	// Retrieval knobs.
	MaxDistance      float64
	MaxSimilarFaqs   int
	MaxSimilarChunks int
	CacheMaxEntries  int64
	CacheTTL         time.Duration

	// Chat knobs.
	HistoryLimit  int
	StreamTimeout time.Duration
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "eu-central-1"),
		BucketName:   getEnv("BUCKET_NAME", "chatq-documents"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:     getEnvInt("EMBED_DIM", 1536),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
		Port:         getEnv("PORT", "8080"),

		ChunkSize:     getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:  getEnvInt("CHUNK_OVERLAP", 200),
		IngestWorkers: getEnvInt("INGEST_WORKERS", 2),

		MaxDistance:      getEnvFloat("MAX_DISTANCE", 0.75),
		MaxSimilarFaqs:   getEnvInt("MAX_SIMILAR_FAQS", 3),
		MaxSimilarChunks: getEnvInt("MAX_SIMILAR_CHUNKS", 5),
		CacheMaxEntries:  int64(getEnvInt("CACHE_MAX_ENTRIES", 10_000)),
		CacheTTL:         getEnvDuration("CACHE_TTL", 24*time.Hour),

		HistoryLimit:  getEnvInt("HISTORY_LIMIT", 5),
		StreamTimeout: getEnvDuration("STREAM_TIMEOUT", 60*time.Second),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
