package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calebmartin/daybook/internal/models"
	pkglogger "github.com/calebmartin/daybook/pkg/logger"
)

// AuditLogStore defines the persistence interface for audit entries
type AuditLogStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.AuditLog, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database).
// Recording is best-effort on the database side: the structured log line
// always goes out, and a failed database write never propagates to the
// caller, so an audit outage cannot block authentication.
type AuditService struct {
	repo        AuditLogStore
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogStore, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Record emits one audit event to both sinks.
func (s *AuditService) Record(ctx context.Context, event pkglogger.AuditEvent) {
	// Immediate slog output
	s.auditLogger.Log(event)

	if s.repo == nil {
		return
	}

	entry := &models.AuditLog{
		UserID:   event.UserID,
		Action:   event.Action,
		Resource: event.Resource,
		Details:  models.AuditDetails{},
	}

	if event.IPAddress != "" {
		entry.IPAddress = &event.IPAddress
	}
	if event.UserAgent != "" {
		entry.UserAgent = &event.UserAgent
	}
	if event.FailureReason != "" {
		entry.Details["failure_reason"] = event.FailureReason
	}
	for key, val := range event.Details {
		entry.Details[key] = val
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
	}
}

// GetUserAuditTrail retrieves the audit trail for a specific user
func (s *AuditService) GetUserAuditTrail(ctx context.Context, userID int64, limit, offset int) ([]*models.AuditLog, error) {
	limit, offset = clampPage(limit, offset)

	logs, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user audit trail: %w", err)
	}

	return logs, nil
}

// GetRecentAuditTrail retrieves the most recent audit entries across all users
func (s *AuditService) GetRecentAuditTrail(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	limit, offset = clampPage(limit, offset)

	logs, err := s.repo.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}

	return logs, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
