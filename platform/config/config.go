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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq worker and client.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// DecisionConfig provides settings for the AI decision service client.
type DecisionConfig interface {
	GetDecisionAPIKey() string
	GetDecisionBaseURL() string
	GetDecisionModel() string
	GetDecisionSkipWindow() time.Duration
	IsDecisionEnabled() bool
}

// SMSConfig provides settings for the outbound SMS gateway.
type SMSConfig interface {
	GetSMSGatewayURL() string
	GetSMSGatewayKey() string
	GetSMSFromNumber() string
}

// EmailConfig provides settings for outbound email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotifyConfig provides settings for operator notifications.
type NotifyConfig interface {
	GetOperatorEmail() string
}

// KnowledgeConfig provides settings for the knowledge-base search collaborators.
type KnowledgeConfig interface {
	GetVectorStoreURL() string
	GetVectorStoreAPIKey() string
	GetVectorStoreCollection() string
	GetEmbeddingAPIURL() string
	GetEmbeddingAPIKey() string
	IsKnowledgeEnabled() bool
}

// IntegrationConfig provides settings for the integration job queue and CRM client.
type IntegrationConfig interface {
	GetCRMBaseURL() string
	GetCRMAPIKey() string
	GetJobMaxRetries() int
	GetJobBackoffCap() time.Duration
	GetJobBatchSize() int
}

// =============================================================================
// Config Implementation
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSOrigins    []string
	CORSAllowAll   bool
	CORSAllowCreds bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	DecisionAPIKey     string
	DecisionBaseURL    string
	DecisionModel      string
	DecisionSkipWindow time.Duration

	ReminderDefaultDays int

	SMSGatewayURL string
	SMSGatewayKey string
	SMSFromNumber string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	OperatorEmail    string

	VectorStoreURL        string
	VectorStoreAPIKey     string
	VectorStoreCollection string
	EmbeddingAPIURL       string
	EmbeddingAPIKey       string

	CRMBaseURL    string
	CRMAPIKey     string
	JobMaxRetries int
	JobBackoffCap time.Duration
	JobBatchSize  int
}

// Load reads configuration from the environment, loading .env first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),
		CORSAllowAll:   strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		DecisionAPIKey:     getEnv("DECISION_API_KEY", ""),
		DecisionBaseURL:    getEnv("DECISION_BASE_URL", ""),
		DecisionModel:      getEnv("DECISION_MODEL", "gpt-4o-mini"),
		DecisionSkipWindow: mustDuration(getEnv("DECISION_SKIP_WINDOW", "30m")),

		ReminderDefaultDays: mustInt(getEnv("REMINDER_DEFAULT_DAYS", "7")),

		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey: getEnv("SMS_GATEWAY_KEY", ""),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Sitewire"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		OperatorEmail:    getEnv("OPERATOR_EMAIL", ""),

		VectorStoreURL:        getEnv("VECTOR_STORE_URL", ""),
		VectorStoreAPIKey:     getEnv("VECTOR_STORE_API_KEY", ""),
		VectorStoreCollection: getEnv("VECTOR_STORE_COLLECTION", "project_knowledge"),
		EmbeddingAPIURL:       getEnv("EMBEDDING_API_URL", ""),
		EmbeddingAPIKey:       getEnv("EMBEDDING_API_KEY", ""),

		CRMBaseURL:    getEnv("CRM_BASE_URL", ""),
		CRMAPIKey:     getEnv("CRM_API_KEY", ""),
		JobMaxRetries: mustInt(getEnv("JOB_MAX_RETRIES", "5")),
		JobBackoffCap: mustDuration(getEnv("JOB_BACKOFF_CAP", "60m")),
		JobBatchSize:  mustInt(getEnv("JOB_BATCH_SIZE", "10")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// Interface implementations

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetDecisionAPIKey() string             { return c.DecisionAPIKey }
func (c *Config) GetDecisionBaseURL() string            { return c.DecisionBaseURL }
func (c *Config) GetDecisionModel() string              { return c.DecisionModel }
func (c *Config) GetDecisionSkipWindow() time.Duration  { return c.DecisionSkipWindow }
func (c *Config) IsDecisionEnabled() bool               { return c.DecisionAPIKey != "" }

func (c *Config) GetReminderDefaultDays() int { return c.ReminderDefaultDays }

func (c *Config) GetSMSGatewayURL() string { return c.SMSGatewayURL }
func (c *Config) GetSMSGatewayKey() string { return c.SMSGatewayKey }
func (c *Config) GetSMSFromNumber() string { return c.SMSFromNumber }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetOperatorEmail() string { return c.OperatorEmail }

func (c *Config) GetVectorStoreURL() string        { return c.VectorStoreURL }
func (c *Config) GetVectorStoreAPIKey() string     { return c.VectorStoreAPIKey }
func (c *Config) GetVectorStoreCollection() string { return c.VectorStoreCollection }
func (c *Config) GetEmbeddingAPIURL() string       { return c.EmbeddingAPIURL }
func (c *Config) GetEmbeddingAPIKey() string       { return c.EmbeddingAPIKey }
func (c *Config) IsKnowledgeEnabled() bool {
	return c.VectorStoreURL != "" && c.EmbeddingAPIURL != ""
}

func (c *Config) GetCRMBaseURL() string           { return c.CRMBaseURL }
func (c *Config) GetCRMAPIKey() string            { return c.CRMAPIKey }
func (c *Config) GetJobMaxRetries() int           { return c.JobMaxRetries }
func (c *Config) GetJobBackoffCap() time.Duration { return c.JobBackoffCap }
func (c *Config) GetJobBatchSize() int            { return c.JobBatchSize }

// Helpers

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
