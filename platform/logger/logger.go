// Package logger provides structured logging for the outreach services.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with the attribute helpers the services share.
type Logger struct {
	*slog.Logger
}

// New returns a debug-level text logger for development and an info-level
// JSON logger for every other environment.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

func (l *Logger) with(attrs ...any) *Logger {
	return &Logger{Logger: l.With(attrs...)}
}

// WithOperator scopes the logger to the dashboard operator acting on a request.
func (l *Logger) WithOperator(operatorID string) *Logger {
	return l.with(slog.String("operator_id", operatorID))
}

// WithSession scopes the logger to a WAHA session.
func (l *Logger) WithSession(session string) *Logger {
	return l.with(slog.String("session", session))
}

func (l *Logger) WithCampaign(campaignID, campaignName string) *Logger {
	return l.with(slog.String("campaign_id", campaignID), slog.String("campaign", campaignName))
}

func (l *Logger) WithLead(leadID string) *Logger {
	return l.with(slog.String("lead_id", leadID))
}

// HTTPRequest logs a served request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs a request that ended in a server error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Any("error", err),
		slog.String("client_ip", clientIP),
	)
}

// TurnOutcome logs how a conversation turn ended.
func (l *Logger) TurnOutcome(outcome string, sent, failed int, status string) {
	l.Info("turn_outcome",
		slog.String("outcome", outcome),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.String("status", status),
	)
}

func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.Any("error", err),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
