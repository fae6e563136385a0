// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides settings for verifying dashboard access tokens.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// WhatsAppConfig provides settings for the WAHA gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppWebhookHMACKey() string
}

// AIConfig provides settings for the reply generator models.
type AIConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMDefaultModel() string
	GetLLMTimeout() time.Duration
	GetGeminiAPIKey() string
}

// PhoneConfig provides the defaults used to canonicalise lead phone numbers.
type PhoneConfig interface {
	GetDefaultCountryCode() string
	GetPhoneRegion() string
}

// EngineConfig provides the tunables of the campaign execution engine.
type EngineConfig interface {
	PhoneConfig
	GetTickInterval() time.Duration
	GetReplyBackoff() time.Duration
	GetPresenceCooldown() time.Duration
	GetSharedPresenceCooldown() bool
	GetHistoryLimit() int
	GetTypingDelayPerChar() time.Duration
	GetTypingDelayMax() time.Duration
	GetLocation() *time.Location
	GetPromptTemplatesPath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	MigrateOnStart         bool
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	WhatsAppURL            string
	WhatsAppKey            string
	WhatsAppWebhookHMACKey string
	LLMAPIKey              string
	LLMBaseURL             string
	LLMDefaultModel        string
	LLMTimeout             time.Duration
	GeminiAPIKey           string
	TickInterval           time.Duration
	ReplyBackoff           time.Duration
	PresenceCooldown       time.Duration
	SharedPresenceCooldown bool
	HistoryLimit           int
	TypingDelayPerChar     time.Duration
	TypingDelayMax         time.Duration
	DefaultCountryCode     string
	PhoneRegion            string
	Location               *time.Location
	PromptTemplatesPath    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string            { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string            { return c.WhatsAppKey }
func (c *Config) GetWhatsAppWebhookHMACKey() string { return c.WhatsAppWebhookHMACKey }

// AIConfig implementation
func (c *Config) GetLLMAPIKey() string         { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string        { return c.LLMBaseURL }
func (c *Config) GetLLMDefaultModel() string   { return c.LLMDefaultModel }
func (c *Config) GetLLMTimeout() time.Duration { return c.LLMTimeout }
func (c *Config) GetGeminiAPIKey() string      { return c.GeminiAPIKey }

// EngineConfig implementation
func (c *Config) GetTickInterval() time.Duration       { return c.TickInterval }
func (c *Config) GetReplyBackoff() time.Duration       { return c.ReplyBackoff }
func (c *Config) GetPresenceCooldown() time.Duration   { return c.PresenceCooldown }
func (c *Config) GetSharedPresenceCooldown() bool      { return c.SharedPresenceCooldown }
func (c *Config) GetHistoryLimit() int                 { return c.HistoryLimit }
func (c *Config) GetTypingDelayPerChar() time.Duration { return c.TypingDelayPerChar }
func (c *Config) GetTypingDelayMax() time.Duration     { return c.TypingDelayMax }
func (c *Config) GetDefaultCountryCode() string        { return c.DefaultCountryCode }
func (c *Config) GetPhoneRegion() string               { return c.PhoneRegion }
func (c *Config) GetPromptTemplatesPath() string       { return c.PromptTemplatesPath }
func (c *Config) GetLocation() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	location, err := loadLocation(getEnv("ENGINE_TIMEZONE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		MigrateOnStart:         strings.EqualFold(getEnv("MIGRATE_ON_START", "true"), "true"),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "outreach"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),
		WhatsAppURL:            getEnv("WAHA_URL", ""),
		WhatsAppKey:            getEnv("WAHA_API_KEY", ""),
		WhatsAppWebhookHMACKey: getEnv("WAHA_WEBHOOK_HMAC_KEY", ""),
		LLMAPIKey:              getEnv("LLM_API_KEY", ""),
		LLMBaseURL:             getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMDefaultModel:        getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
		LLMTimeout:             mustDuration(getEnv("LLM_TIMEOUT", "90s")),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		TickInterval:           mustDuration(getEnv("ENGINE_TICK_INTERVAL", "30s")),
		ReplyBackoff:           mustDuration(getEnv("ENGINE_REPLY_BACKOFF", "24h")),
		PresenceCooldown:       mustDuration(getEnv("ENGINE_PRESENCE_COOLDOWN", "5m")),
		SharedPresenceCooldown: strings.EqualFold(getEnv("ENGINE_PRESENCE_COOLDOWN_SHARED", "false"), "true"),
		HistoryLimit:           mustInt(getEnv("ENGINE_HISTORY_LIMIT", "10")),
		TypingDelayPerChar:     mustDuration(getEnv("ENGINE_TYPING_DELAY_PER_CHAR", "50ms")),
		TypingDelayMax:         mustDuration(getEnv("ENGINE_TYPING_DELAY_MAX", "6s")),
		DefaultCountryCode:     getEnv("PHONE_DEFAULT_COUNTRY_CODE", "55"),
		PhoneRegion:            getEnv("PHONE_DEFAULT_REGION", "BR"),
		Location:               location,
		PromptTemplatesPath:    getEnv("PROMPT_TEMPLATES_PATH", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("ENGINE_TICK_INTERVAL must be a positive duration")
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("ENGINE_HISTORY_LIMIT must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("ENGINE_TIMEZONE: %w", err)
	}
	return loc, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
