// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// CompanyIDKey is the context key for company ID
	CompanyIDKey contextKey = "company_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and company_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if companyID, ok := ctx.Value(CompanyIDKey).(string); ok && companyID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("company_id", companyID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// WebhookReceived logs an inbound webhook acknowledgement.
func (l *Logger) WebhookReceived(provider, webhookID string, bytes int) {
	l.Info("webhook_received",
		slog.String("provider", provider),
		slog.String("webhook_id", webhookID),
		slog.Int("bytes", bytes),
	)
}

// DecisionEvent logs the outcome of an AI decision call for a project.
func (l *Logger) DecisionEvent(projectID, decision, reason string) {
	l.Info("decision",
		slog.String("project_id", projectID),
		slog.String("decision", decision),
		slog.String("reason", reason),
	)
}

// ActionTransition logs an action record status change.
func (l *Logger) ActionTransition(actionID, actionType, from, to string) {
	l.Info("action_transition",
		slog.String("action_id", actionID),
		slog.String("action_type", actionType),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// JobFailure logs an integration job failure with its retry disposition.
func (l *Logger) JobFailure(jobID string, retryCount int, terminal bool, err error) {
	if terminal {
		l.Error("integration_job_failed",
			slog.String("job_id", jobID),
			slog.Int("retry_count", retryCount),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Warn("integration_job_retry",
		slog.String("job_id", jobID),
		slog.Int("retry_count", retryCount),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
