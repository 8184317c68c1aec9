package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/photobot/internal/models"
)

type Settings struct {
	Env      string
	Port     string
	LogLevel string

	BackendURL string

	UnsplashAccessKey string
	PexelsAPIKey      string
	PexelsWeight      float64

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	HTTPTimeout           time.Duration
	BackendHealthInterval time.Duration

	BotEnabled        bool
	BotInterval       time.Duration
	QuietStartHour    int
	QuietEndHour      int
	Timezone          *time.Location
	PoolCapacity      int
	PersonaTieBreak   string
	MaxImagesPerDay   int
	MaxImagesPerHour  int

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool

	AWSEndpoint  string
	AWSRegion    string
	PersonaTable string

	KafkaBroker          string
	KafkaPostEventsTopic string
}

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ConfigurationError) Unwrap() error {
	return models.ErrConfiguration
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int, problems *[]string) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be an integer, got %q", key, raw))
		return defaultValue
	}
	return v
}

func getFloatEnv(key string, defaultValue float64, problems *[]string) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be a number, got %q", key, raw))
		return defaultValue
	}
	return v
}

func getDurationEnv(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("%s must be a duration, got %q", key, raw))
		return defaultValue
	}
	return v
}

func getBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "":
		return defaultValue
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// Load reads settings from the environment. Call LoadEnv first.
func Load() (*Settings, error) {
	var problems []string

	s := &Settings{
		Env:      getEnv("APP_ENV", "dev"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendURL: strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),

		UnsplashAccessKey: os.Getenv("UNSPLASH_ACCESS_KEY"),
		PexelsAPIKey:      os.Getenv("PEXELS_API_KEY"),
		PexelsWeight:      getFloatEnv("PEXELS_WEIGHT", 0.65, &problems),

		LLMAPIKey:  os.Getenv("LLM_API_KEY"),
		LLMBaseURL: os.Getenv("LLM_BASE_URL"),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: getDurationEnv("LLM_TIMEOUT", 10*time.Second, &problems),

		HTTPTimeout:           getDurationEnv("HTTP_TIMEOUT", 10*time.Second, &problems),
		BackendHealthInterval: getDurationEnv("BACKEND_HEALTH_INTERVAL", time.Minute, &problems),

		BotEnabled:       getBoolEnv("BOT_ENABLED", true),
		BotInterval:      time.Duration(getIntEnv("BOT_INTERVAL_MINUTES", 60, &problems)) * time.Minute,
		QuietStartHour:   getIntEnv("BOT_QUIET_START", 2, &problems),
		QuietEndHour:     getIntEnv("BOT_QUIET_END", 6, &problems),
		PoolCapacity:     getIntEnv("BOT_POOL_CAPACITY", 20, &problems),
		PersonaTieBreak:  getEnv("BOT_PERSONA_TIEBREAK", "least_recent"),
		MaxImagesPerDay:  getIntEnv("MAX_IMAGES_PER_DAY", 100, &problems),
		MaxImagesPerHour: getIntEnv("MAX_IMAGES_PER_HOUR", 10, &problems),

		ValkeyAddress:  os.Getenv("VALKEY_INIT_ADDRESS"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
		ValkeyTLS:      getBoolEnv("VALKEY_TLS", false),

		AWSEndpoint:  os.Getenv("AWS_ENDPOINT"),
		AWSRegion:    getEnv("AWS_REGION", "us-west-2"),
		PersonaTable: os.Getenv("PERSONA_TABLE"),

		KafkaBroker:          os.Getenv("KAFKA_BROKER"),
		KafkaPostEventsTopic: getEnv("KAFKA_POST_EVENTS_TOPIC", "bot-post-events"),
	}

	tz := getEnv("BOT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems = append(problems, fmt.Sprintf("BOT_TIMEZONE %q: %v", tz, err))
		loc = time.UTC
	}
	s.Timezone = loc

	if s.BackendURL == "" {
		problems = append(problems, "BACKEND_URL is required")
	}
	if s.UnsplashAccessKey == "" && s.PexelsAPIKey == "" {
		problems = append(problems, "one of UNSPLASH_ACCESS_KEY or PEXELS_API_KEY is required")
	}
	if s.BotInterval <= 0 {
		problems = append(problems, "BOT_INTERVAL_MINUTES must be positive")
	}
	if !validHour(s.QuietStartHour) || !validHour(s.QuietEndHour) {
		problems = append(problems, "BOT_QUIET_START and BOT_QUIET_END must be hours in 0-23")
	}
	if s.PoolCapacity <= 0 {
		problems = append(problems, "BOT_POOL_CAPACITY must be positive")
	}
	if s.PexelsWeight < 0 || s.PexelsWeight > 1 {
		problems = append(problems, "PEXELS_WEIGHT must be within 0-1")
	}

	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}
	return s, nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}
