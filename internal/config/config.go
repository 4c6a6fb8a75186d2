package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultModel             = "gpt-4o-mini"
	DefaultChatCompletionURL = "https://api.openai.com/v1/chat/completions"
	DefaultDatabaseURL       = "data/chat.db"
)

// Config holds configuration for the relay server and its tools.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	OpenAIAPIKey      string
	OpenAIChatCompURL string
	Model             string
	DryRun            bool
	DryRunScript      string
	MaxTokensOutput   int

	UseContext   bool
	MaxHistory   int
	SystemPrompt string

	EnableDB    bool
	DatabaseURL string
}

// Load reads configuration from environment variables, loading a .env file
// first when one exists. Non-positive or malformed limits are rejected.
func Load() (Config, error) {
	_ = godotenv.Load()

	maxTokens, err := envPositiveInt("MAX_TOKENS_OUTPUT", 256)
	if err != nil {
		return Config{}, err
	}
	maxHistory, err := envPositiveInt("MAX_HISTORY", 10)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:              envOrDefault("PORT", "8080"),
		Env:               envOrDefault("ENV", "development"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIChatCompURL: envOrDefault("OPENAI_CHAT_COMPLETIONS_URL", DefaultChatCompletionURL),
		Model:             envOrDefault("AI_MODEL", DefaultModel),
		DryRun:            envBoolOrDefault("OPENAI_DRYRUN", true),
		DryRunScript:      strings.TrimSpace(os.Getenv("DRYRUN_SCRIPT")),
		MaxTokensOutput:   maxTokens,
		UseContext:        envBoolOrDefault("USE_CONTEXT", true),
		MaxHistory:        maxHistory,
		SystemPrompt:      strings.TrimSpace(os.Getenv("SYSTEM_PROMPT")),
		EnableDB:          envBoolOrDefault("ENABLE_DB", true),
		DatabaseURL:       envOrDefault("DATABASE_URL", DefaultDatabaseURL),
	}, nil
}

// IsDevelopment returns true if running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envPositiveInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0, got %d", key, n)
	}
	return n, nil
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
