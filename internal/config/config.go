package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Assistant AssistantConfig
	Jwt       JwtConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	OllamaBaseURL      string
	EmbeddingModel     string
	EmbeddingDimension int
	ChatModel          string
}

type AssistantConfig struct {
	// Similarity search defaults per domain
	InventoryTopK      int
	InventoryThreshold float64
	DocumentTopK       int
	DocumentThreshold  float64

	// Booking-history recommendation round-trip bound (seconds)
	RecommendationTimeoutSec int

	// History compaction: messages kept verbatim after a summary pass
	HistoryKeepLast int

	// Conversation snapshot TTL in Redis (hours)
	SessionTTLHours int

	// A multi-step flow idle longer than this is considered abandoned and
	// cleared by the background sweep (minutes)
	FlowIdleMinutes int

	ReindexCarTopic string
}

type JwtConfig struct {
	Secret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			OllamaBaseURL:      getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:     getEnv("OLLAMA_EMBEDDING_MODEL", "all-minilm"),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 384),
			ChatModel:          getEnv("OLLAMA_CHAT_MODEL", "llama3"),
		},
		Assistant: AssistantConfig{
			InventoryTopK:            getEnvAsInt("ASSISTANT_INVENTORY_TOP_K", 15),
			InventoryThreshold:       getEnvAsFloat("ASSISTANT_INVENTORY_THRESHOLD", 0.25),
			DocumentTopK:             getEnvAsInt("ASSISTANT_DOCUMENT_TOP_K", 10),
			DocumentThreshold:        getEnvAsFloat("ASSISTANT_DOCUMENT_THRESHOLD", 0.3),
			RecommendationTimeoutSec: getEnvAsInt("ASSISTANT_RECOMMENDATION_TIMEOUT_SEC", 8),
			HistoryKeepLast:          getEnvAsInt("ASSISTANT_HISTORY_KEEP_LAST", 11),
			SessionTTLHours:          getEnvAsInt("ASSISTANT_SESSION_TTL_HOURS", 72),
			FlowIdleMinutes:          getEnvAsInt("ASSISTANT_FLOW_IDLE_MINUTES", 30),
			ReindexCarTopic:          getEnv("REINDEX_CAR_TOPIC_NAME", "REINDEX_CAR"),
		},
		Jwt: JwtConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
