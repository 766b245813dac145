package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL    string
	CRMDatabaseURL string
	RedisURL       string
	LogLevel       string
	Debug          bool
	ServiceName    string
	Environment    string
	Hostname       string
	ServerPort     string
	WorkerCount    int
	AllowedOrigins []string

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIChatModel string
	GeminiAPIKeys   []string
	GeminiChatModel string
	ChatTemperature float32
	LLMTimeout      time.Duration

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int

	S3BaseURL          string
	TrainingWebhookURL string
	ChunkSize          int
	ChunkOverlap       int
	CleanScrapedHTML   bool

	SessionTTL time.Duration

	RealtimeModel       string
	RealtimeVoice       string
	GeminiLiveModel     string
	GeminiLiveVoice     string
	GeminiLiveExposeKey bool
}

func LoadConfig() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	openAIKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	geminiKeys := splitList(os.Getenv("GEMINI_API_KEYS"))
	if openAIKey == "" && len(geminiKeys) == 0 {
		return nil, errors.New("OPENAI_API_KEY or GEMINI_API_KEYS is required")
	}

	embeddingProvider := getEnv("EMBEDDING_PROVIDER", "openai")
	switch embeddingProvider {
	case "openai":
		if openAIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for EMBEDDING_PROVIDER=openai")
		}
	case "gemini":
		if len(geminiKeys) == 0 {
			return nil, errors.New("GEMINI_API_KEYS is required for EMBEDDING_PROVIDER=gemini")
		}
	default:
		return nil, errors.New("EMBEDDING_PROVIDER must be openai or gemini")
	}

	defaultEmbeddingModel := "text-embedding-3-small"
	if embeddingProvider == "gemini" {
		defaultEmbeddingModel = "gemini-embedding-001"
	}

	chunkSize := getEnvInt("CHUNK_SIZE", 800)
	chunkOverlap := getEnvInt("CHUNK_OVERLAP", 100)
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, errors.New("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}

	allowedOrigins := []string{"*"}
	if ao := splitList(os.Getenv("ALLOWED_ORIGINS")); len(ao) > 0 {
		allowedOrigins = ao
	}

	return &Config{
		DatabaseURL:    databaseURL,
		CRMDatabaseURL: getEnv("CRM_DATABASE_URL", databaseURL),
		RedisURL:       os.Getenv("REDIS_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Debug:          getEnv("DEBUG", "false") == "true",
		ServiceName:    getEnv("SERVICE_NAME", "lead-response"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		Hostname:       getEnv("HOSTNAME", "lead-response"),
		ServerPort:     getEnv("SERVER_PORT", getEnv("PORT", "8080")),
		WorkerCount:    getEnvInt("WORKER_COUNT", 18),
		AllowedOrigins: allowedOrigins,

		OpenAIAPIKey:    openAIKey,
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		OpenAIChatModel: getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		GeminiAPIKeys:   geminiKeys,
		GeminiChatModel: getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		ChatTemperature: float32(getEnvFloat("CHAT_TEMPERATURE", 0.7)),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		EmbeddingProvider:   embeddingProvider,
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", defaultEmbeddingModel),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),

		S3BaseURL:          strings.TrimRight(os.Getenv("S3_BASE_URL"), "/"),
		TrainingWebhookURL: os.Getenv("TRAINING_WEBHOOK_URL"),
		ChunkSize:          chunkSize,
		ChunkOverlap:       chunkOverlap,
		CleanScrapedHTML:   getEnv("CLEAN_SCRAPED_HTML", "true") == "true",

		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		RealtimeModel:       getEnv("REALTIME_MODEL", "gpt-4o-realtime-preview-2024-10-01"),
		RealtimeVoice:       getEnv("REALTIME_VOICE", "verse"),
		GeminiLiveModel:     getEnv("GEMINI_LIVE_MODEL", "models/gemini-2.5-flash-native-audio-latest"),
		GeminiLiveVoice:     getEnv("GEMINI_LIVE_VOICE", "Aoede"),
		GeminiLiveExposeKey: getEnv("GEMINI_LIVE_EXPOSE_KEY", "true") == "true",
	}, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

// splitList splits a comma-separated value, trimming blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
