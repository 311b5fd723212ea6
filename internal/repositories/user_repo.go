package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/calebmartin/daybook/internal/database"
	"github.com/calebmartin/daybook/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, username, email, password_hash, display_name, role, is_active,
	failed_login_attempts, locked_until, timezone, theme, last_login_at, created_at, updated_at`

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.Role, &user.IsActive,
		&user.FailedLoginAttempts, &user.LockedUntil,
		&user.Timezone, &user.Theme, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// FindByIdentifier resolves a login identifier against both the
// username and email columns in one query.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1 OR email = $1`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, identifier))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, userColumns)

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RolePending
	}
	if user.Timezone == "" {
		user.Timezone = "UTC"
	}
	if user.Theme == "" {
		user.Theme = "light"
	}

	query := fmt.Sprintf(`
		INSERT INTO users (username, email, password_hash, display_name, role, is_active, timezone, theme, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.DisplayName,
		user.Role, user.IsActive, user.Timezone, user.Theme,
		user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateLockout persists the failure counter and lock expiration in a
// single statement.
func (r *UserRepository) UpdateLockout(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error {
	query := `
		UPDATE users SET failed_login_attempts = $1, locked_until = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, attempts, lockedUntil, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, role, id))
}

func (r *UserRepository) UpdateActive(ctx context.Context, id int64, isActive bool) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET is_active = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, isActive, id))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, id int64, displayName, timezone, theme string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users SET display_name = $1, timezone = $2, theme = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, displayName, timezone, theme, id))
}

func (r *UserRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}
