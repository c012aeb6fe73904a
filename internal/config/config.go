package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Studio   StudioConfig
	Workflow WorkflowConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

// StudioConfig points at the upstream content-studio API.
type StudioConfig struct {
	BaseURL string
	Prefix  string
	Timeout time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

type WorkflowConfig struct {
	HookSelectionMin int
	HookSelectionMax int
	SnapshotStore    string // "redis", "postgres" or "memory"
	SnapshotTTL      time.Duration
	SessionIdleTTL   time.Duration
	IdeaCount        int
	HookCount        int
	VideoLength      int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/workflow_stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Studio: StudioConfig{
			BaseURL: getEnv("STUDIO_API_BASE_URL", "http://localhost:8000"),
			Prefix:  getEnv("STUDIO_API_PREFIX", "/v1"),
			Timeout: time.Duration(getEnvAsInt("STUDIO_API_TIMEOUT_SECONDS", 180)) * time.Second,
		},
		Workflow: WorkflowConfig{
			HookSelectionMin: getEnvAsInt("HOOK_SELECTION_MIN", 1),
			HookSelectionMax: getEnvAsInt("HOOK_SELECTION_MAX", 5),
			SnapshotStore:    getEnv("SNAPSHOT_STORE", "redis"),
			SnapshotTTL:      time.Duration(getEnvAsInt("SNAPSHOT_TTL_HOURS", 72)) * time.Hour,
			SessionIdleTTL:   time.Duration(getEnvAsInt("SESSION_IDLE_TTL_MINUTES", 60)) * time.Minute,
			IdeaCount:        getEnvAsInt("IDEA_COUNT", 10),
			HookCount:        getEnvAsInt("HOOK_COUNT", 20),
			VideoLength:      getEnvAsInt("DEFAULT_VIDEO_LENGTH_SECONDS", 30),
		},
		Tracing: TracingConfig{
			Enabled:     getEnv("OTEL_ENABLED", "false") == "true",
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "angelamos-studio"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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
