// Package utils provides logging and crypto helpers shared across the backend
package utils

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lifecompass/backend/pkg/types"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// NewLogger creates a new logger instance with specified configuration
func NewLogger(config *types.LoggingConfig) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	var output io.Writer = os.Stdout
	switch config.Output {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	case "discard":
		output = io.Discard
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Error("Failed to open log file, falling back to stdout")
		} else {
			output = file
		}
	}
	logger.SetOutput(output)

	return &Logger{Logger: logger}
}

// NewNopLogger returns a logger that discards everything, for tests and tools
func NewNopLogger() *Logger {
	return NewLogger(&types.LoggingConfig{Level: "error", Format: "text", Output: "discard"})
}

// WithRequestID adds request ID to log context
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.WithField("request_id", requestID)
}

// WithUserID adds user ID to log context
func (l *Logger) WithUserID(userID string) *logrus.Entry {
	return l.WithField("user_id", userID)
}

// WithProvider adds provider information to log context
func (l *Logger) WithProvider(provider string) *logrus.Entry {
	return l.WithField("provider", provider)
}

// WithHTTPRequest logs HTTP request details
func (l *Logger) WithHTTPRequest(method, path, userAgent, clientIP string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"http_method":     method,
		"http_path":       path,
		"http_user_agent": userAgent,
		"client_ip":       clientIP,
	})
}

// LogProviderCall logs an outbound text generation call
func (l *Logger) LogProviderCall(ctx context.Context, provider, model string) {
	l.WithFields(logrus.Fields{
		"type":     "provider_call",
		"provider": provider,
		"model":    model,
	}).Debug("Provider API call started")
}

// LogProviderResult logs the outcome of a text generation call
func (l *Logger) LogProviderResult(ctx context.Context, provider string, success bool, duration time.Duration, errMsg string) {
	entry := l.WithFields(logrus.Fields{
		"type":        "provider_result",
		"provider":    provider,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	})

	if !success {
		entry.WithField("error", errMsg).Warn("Provider API call failed")
		return
	}
	entry.Info("Provider API call completed successfully")
}

// LogRateLimitExceeded logs rate limit violations
func (l *Logger) LogRateLimitExceeded(ctx context.Context, subject, endpoint string) {
	l.WithFields(logrus.Fields{
		"type":     "rate_limit_exceeded",
		"subject":  subject,
		"endpoint": endpoint,
	}).Warn("Rate limit exceeded")
}

// LogAuthFailure logs authentication failures
func (l *Logger) LogAuthFailure(ctx context.Context, reason, clientIP, userAgent string) {
	l.WithFields(logrus.Fields{
		"type":            "auth_failure",
		"reason":          reason,
		"client_ip":       clientIP,
		"http_user_agent": userAgent,
	}).Warn("Authentication failed")
}

// LogSystemError logs system-level errors
func (l *Logger) LogSystemError(ctx context.Context, component string, err error, additionalFields map[string]interface{}) {
	fields := logrus.Fields{
		"type":      "system_error",
		"component": component,
		"error":     err.Error(),
	}

	for k, v := range additionalFields {
		fields[k] = v
	}

	l.WithFields(fields).Error("System error occurred")
}
