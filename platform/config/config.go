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

// JWTConfig provides JWT validation settings for middleware.
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

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	IsSchedulerEnabled() bool
	GetPartialCleanupInterval() time.Duration
	GetPartialRetention() time.Duration
}

// PhoneConfig provides the region used to interpret national numbers.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// ConversationConfig provides timing and catalog settings for the lead bot.
type ConversationConfig interface {
	GetIdleTimeout() time.Duration
	GetResumeWindow() time.Duration
	GetCatalogPath() string
}

// WhatsAppConfig provides settings for the messaging transport.
type WhatsAppConfig interface {
	GetDatabaseURL() string
	GetWhatsAppQRWait() time.Duration
	GetWhatsAppLogLevel() string
	GetWhatsAppRestoreSessions() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	PartialCleanupInterval  time.Duration
	PartialRetention        time.Duration
	PhoneDefaultRegion      string
	IdleTimeout             time.Duration
	ResumeWindow            time.Duration
	CatalogPath             string
	WhatsAppQRWait          time.Duration
	WhatsAppLogLevel        string
	WhatsAppRestoreSessions bool
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
func (c *Config) GetRedisURL() string                      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                 { return c.AsynqConcurrency }
func (c *Config) IsSchedulerEnabled() bool                 { return c.RedisURL != "" }
func (c *Config) GetPartialCleanupInterval() time.Duration { return c.PartialCleanupInterval }
func (c *Config) GetPartialRetention() time.Duration       { return c.PartialRetention }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// ConversationConfig implementation
func (c *Config) GetIdleTimeout() time.Duration  { return c.IdleTimeout }
func (c *Config) GetResumeWindow() time.Duration { return c.ResumeWindow }
func (c *Config) GetCatalogPath() string         { return c.CatalogPath }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppQRWait() time.Duration { return c.WhatsAppQRWait }
func (c *Config) GetWhatsAppLogLevel() string      { return c.WhatsAppLogLevel }
func (c *Config) GetWhatsAppRestoreSessions() bool { return c.WhatsAppRestoreSessions }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "leads"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		PartialCleanupInterval:  mustDuration(getEnv("PARTIAL_CLEANUP_INTERVAL", "1h")),
		PartialRetention:        mustDuration(getEnv("PARTIAL_RETENTION", "720h")),
		PhoneDefaultRegion:      strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "IN")),
		IdleTimeout:             mustDuration(getEnv("CONVERSATION_IDLE_TIMEOUT", "2m")),
		ResumeWindow:            mustDuration(getEnv("CONVERSATION_RESUME_WINDOW", "12h")),
		CatalogPath:             getEnv("CONVERSATION_CATALOG_PATH", ""),
		WhatsAppQRWait:          mustDuration(getEnv("WHATSAPP_QR_WAIT", "5s")),
		WhatsAppLogLevel:        strings.ToUpper(getEnv("WHATSAPP_LOG_LEVEL", "WARN")),
		WhatsAppRestoreSessions: strings.EqualFold(getEnv("WHATSAPP_RESTORE_SESSIONS", "true"), "true"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("CONVERSATION_IDLE_TIMEOUT must be a positive duration")
	}
	if cfg.ResumeWindow <= cfg.IdleTimeout {
		return nil, fmt.Errorf("CONVERSATION_RESUME_WINDOW must be longer than CONVERSATION_IDLE_TIMEOUT")
	}
	if cfg.AsynqConcurrency <= 0 {
		cfg.AsynqConcurrency = 1
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
