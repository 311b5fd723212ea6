package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/calebmartin/daybook/internal/database"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditLogRepository struct {
	pool *pgxpool.Pool
}

func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

const auditColumns = `id, user_id, action, resource, details, ip_address, user_agent, created_at`

func scanAuditRow(scanner rowScanner) (*models.AuditLog, error) {
	var entry models.AuditLog

	err := scanner.Scan(
		&entry.ID, &entry.UserID, &entry.Action, &entry.Resource,
		&entry.Details, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func scanAuditRows(rows pgx.Rows) ([]*models.AuditLog, error) {
	defer rows.Close()

	entries := make([]*models.AuditLog, 0)

	for rows.Next() {
		entry, err := scanAuditRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	query := `
		INSERT INTO audit_logs (id, user_id, action, resource, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.Resource,
		entry.Details, entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *AuditLogRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.AuditLog, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_logs WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, auditColumns)

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return scanAuditRows(rows)
}

func (r *AuditLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_logs
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, auditColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}

	return scanAuditRows(rows)
}
