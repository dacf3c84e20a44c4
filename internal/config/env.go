package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	GeminiAPIKeys   []string
	EmbedModel      string
	EmbedDim        int
	GenModel        string
	BearerToken     string
	Port            string
	QuestionWorkers int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		GeminiAPIKeys:   splitKeys(getEnv("GOOGLE_API_KEY", "")),
		EmbedModel:      getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:        getEnvInt("EMBED_DIM", 768),
		GenModel:        getEnv("GEN_MODEL", "gemini-2.5-flash-lite"),
		BearerToken:     getEnv("BEARER_TOKEN", ""),
		Port:            getEnv("PORT", "8080"),
		QuestionWorkers: getEnvInt("QUESTION_WORKERS", 8),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if len(cfg.GeminiAPIKeys) == 0 {
		log.Fatal("GOOGLE_API_KEY not set or empty")
	}
	if cfg.BearerToken == "" {
		log.Fatal("BEARER_TOKEN not set")
	}

	return cfg
}

// splitKeys parses a comma-separated credential list, dropping blanks.
func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
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
