package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	AIAPIKey     string
	EmbedModel   string
	EmbedBatch   int
	InsertBatch  int
	MaxChunkLen  int
	DefaultDB    string
	MetaTable    string
	ChunkTable   string
	PapersDir    string
	CrossrefMail string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	// A missing DATABASE_URL is not fatal here: commands that never touch
	// the store (normalize, dry previews) still work, and the store
	// constructor rejects an empty URL itself.
	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "gemini-embedding-001"),
		EmbedBatch:   getEnvInt("EMBED_BATCH", 64),
		InsertBatch:  getEnvInt("INSERT_BATCH", 256),
		MaxChunkLen:  getEnvInt("MAX_CHUNK_LEN", 7000),
		DefaultDB:    getEnv("DB_NAME", "journal_papers"),
		MetaTable:    getEnv("META_COLLECTION", "papers_meta"),
		ChunkTable:   getEnv("COLLECTION", "paper_chunks"),
		PapersDir:    getEnv("PAPERS_DIR", "output/papers"),
		CrossrefMail: getEnv("CROSSREF_MAILTO", ""),
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
