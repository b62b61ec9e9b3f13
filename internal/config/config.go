package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase storage
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Fonts — default face is required, wide (CJK) face falls back to default
	FontPathDefault string
	FontPathWide    string

	// Emoji glyph CDN serving <codepoints>.png assets
	EmojiBaseURL string

	// Rendering
	RenderWidth   int
	RenderHeight  int
	WatermarkText string
	TempDir       string

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "rankreel-videos"),
		FontPathDefault:       getEnv("FONT_PATH_DEFAULT", "assets/fonts/Inter-Bold.ttf"),
		FontPathWide:          getEnv("FONT_PATH_WIDE", ""),
		EmojiBaseURL:          getEnv("EMOJI_BASE_URL", "https://cdn.jsdelivr.net/gh/twitter/twemoji@latest/assets/72x72"),
		RenderWidth:           getEnvInt("RENDER_WIDTH", 1080),
		RenderHeight:          getEnvInt("RENDER_HEIGHT", 1920),
		WatermarkText:         getEnv("WATERMARK_TEXT", "@rankreel"),
		TempDir:               getEnv("TEMP_DIR", "/tmp/rankreel"),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 3),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if cfg.FontPathDefault == "" {
		return nil, fmt.Errorf("FONT_PATH_DEFAULT is required")
	}

	if cfg.RenderWidth <= 0 || cfg.RenderHeight <= 0 {
		return nil, fmt.Errorf("RENDER_WIDTH and RENDER_HEIGHT must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
