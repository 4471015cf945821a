// Package config loads server settings from the environment.
//
// An optional .env file (or the file named by ENV_FILE) is loaded first.
// Variables already present in the process environment win over the file.
// Malformed numbers and durations fall back to their defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port             string
	ModelPath        string
	DataDir          string
	HistoryEnabled   bool
	HistoryRetention time.Duration
	LogLevel         string
	GinMode          string
	AllowedOrigins   []string
	// TrustedProxies may set X-Forwarded-For. Empty means client IPs come
	// from the TCP peer only.
	TrustedProxies []string

	Redis  RedisConfig
	OpenAI OpenAIConfig
	Chat   ChatConfig
}

// RedisConfig is optional. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OpenAIConfig configures the chat-completions upstream.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	Timeout     time.Duration
}

// ChatConfig bounds the /chat endpoint.
type ChatConfig struct {
	CacheTTL   time.Duration
	RateLimit  int
	RateWindow time.Duration
}

// Defaults
const (
	DefaultPort             = "8000"
	DefaultModelPath        = "./model_pipeline.json"
	DefaultDataDir          = "./data"
	DefaultHistoryRetention = 365 * 24 * time.Hour
	DefaultOpenAIModel      = "gpt-4o-mini"
	DefaultOpenAIBaseURL    = "https://api.openai.com/v1"
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 400
	DefaultOpenAITimeout    = 30 * time.Second
	DefaultChatCacheTTL     = 5 * time.Minute
	DefaultChatRateLimit    = 1
	DefaultChatWindow       = 10 * time.Second
)

// loadEnvFiles loads ENV_FILE if set, otherwise .env when present.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads .env files and the environment. The returned config is not
// validated; call Validate.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		Port:             getEnvOrDefault("PORT", DefaultPort),
		ModelPath:        getEnvOrDefault("MODEL_PATH", DefaultModelPath),
		DataDir:          getEnvOrDefault("DATA_DIR", DefaultDataDir),
		HistoryEnabled:   getEnvBool("HISTORY_ENABLED", true),
		HistoryRetention: getEnvDuration("HISTORY_RETENTION", DefaultHistoryRetention),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		GinMode:          os.Getenv("GIN_MODE"),
		AllowedOrigins:   splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies:   splitList(os.Getenv("TRUSTED_PROXIES")),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		OpenAI: OpenAIConfig{
			APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:       getEnvOrDefault("OPENAI_MODEL", DefaultOpenAIModel),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", DefaultTemperature),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", DefaultMaxTokens),
			BaseURL:     strings.TrimRight(getEnvOrDefault("OPENAI_BASE_URL", DefaultOpenAIBaseURL), "/"),
			Timeout:     getEnvDuration("OPENAI_TIMEOUT", DefaultOpenAITimeout),
		},
		Chat: ChatConfig{
			CacheTTL:   getEnvDuration("CHAT_CACHE_TTL", DefaultChatCacheTTL),
			RateLimit:  getEnvInt("CHAT_RATE_LIMIT", DefaultChatRateLimit),
			RateWindow: getEnvDuration("CHAT_RATE_WINDOW", DefaultChatWindow),
		},
	}
}

// Validate rejects settings the server cannot start with. A missing OpenAI
// key is allowed; /chat reports it per request.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH must not be empty")
	}
	if c.HistoryEnabled && c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty when history is enabled")
	}
	if c.HistoryEnabled && c.HistoryRetention <= 0 {
		return fmt.Errorf("HISTORY_RETENTION must be positive, got %s", c.HistoryRetention)
	}
	for _, proxy := range c.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", proxy)
		}
	}
	if c.Chat.RateLimit <= 0 {
		return fmt.Errorf("CHAT_RATE_LIMIT must be positive, got %d", c.Chat.RateLimit)
	}
	if c.Chat.RateWindow <= 0 {
		return fmt.Errorf("CHAT_RATE_WINDOW must be positive, got %s", c.Chat.RateWindow)
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", c.OpenAI.MaxTokens)
	}
	if c.OpenAI.Timeout <= 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must be positive, got %s", c.OpenAI.Timeout)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return defaultValue
}

func validProxy(s string) bool {
	if net.ParseIP(s) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(s)
	return err == nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
