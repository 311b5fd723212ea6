package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is the structured record emitted for every
// security-relevant decision.
type AuditEvent struct {
	UserID        *int64
	Action        string
	Resource      string
	FailureReason string
	IPAddress     string
	UserAgent     string
	Success       bool
	Details       map[string]interface{}
}

// AuditLogger writes audit events to the structured log. This is the
// local, always-available half of the audit trail; a database sink may
// persist the same events separately, and its failures never reach the
// caller.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log emits one audit event.
func (al *AuditLogger) Log(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_action", event.Action),
		slog.String("resource", event.Resource),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != nil {
		attrs = append(attrs, slog.Int64("user_id", *event.UserID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	for key, val := range event.Details {
		attrs = append(attrs, slog.Any(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
