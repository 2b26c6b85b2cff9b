package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes = 5 * 1024 * 1024

type Config struct {
	Port string

	LLMName      string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	MaxUploadBytes int64
	RequestTimeout time.Duration
	PromptDir      string

	// CacheBackend selects where the image cache slot lives: memory | file | sqlite | postgres.
	CacheBackend string
	CacheDir     string
	SQLitePath   string
	DatabaseURL  string

	TelegramBotToken string
	WebhookURL       string

	LogLevel string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt64Env(k string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getDurationEnv(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// databaseURL prefers DATABASE_URL and otherwise assembles a DSN from the
// POSTGRES_* / PG* variables when PGHOST is set.
func databaseURL() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	host := getEnv("PGHOST", "")
	if host == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "areca"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(host, getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "areca"),
		RawQuery: "sslmode=" + getEnv("PGSSLMODE", "disable"),
	}
	return u.String()
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		LLMName:      strings.ToLower(getEnv("LLM_NAME", "gemini")),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		MaxUploadBytes: getInt64Env("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 120*time.Second),
		PromptDir:      getEnv("PROMPT_DIR", ""),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheDir:     getEnv("CACHE_DIR", ".cache"),
		SQLitePath:   getEnv("SQLITE_PATH", ".cache/areca.db"),
		DatabaseURL:  databaseURL(),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func (c *Config) Validate() error {
	p, err := strconv.Atoi(c.Port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0 (got %d)", c.MaxUploadBytes)
	}
	switch c.LLMName {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing required env GEMINI_API_KEY for LLM_NAME=gemini")
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("missing required env OPENAI_API_KEY for LLM_NAME=%s", c.LLMName)
		}
	case "stub":
	default:
		return fmt.Errorf("unknown LLM_NAME %q; use gemini | gpt | stub", c.LLMName)
	}
	switch c.CacheBackend {
	case "memory":
	case "file":
		if c.CacheDir == "" {
			return fmt.Errorf("CACHE_DIR is required for CACHE_BACKEND=file")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for CACHE_BACKEND=sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for CACHE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q; use memory | file | sqlite | postgres", c.CacheBackend)
	}
	return nil
}
