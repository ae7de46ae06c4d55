package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/member-hub/member-hub/internal/platform/db"
	"github.com/member-hub/member-hub/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	UpsertCredential(ctx context.Context, c Credential) error
	CreateSession(ctx context.Context, id, memberID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a credential by login email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	err := r.pool.QueryRow(ctx, `
		SELECT member_id, email, password_hash, is_active, created_at, updated_at
		FROM credentials WHERE email = $1`, email).
		Scan(&c.MemberID, &c.Email, &c.PasswordHash, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpsertCredential creates or replaces a member's login.
func (r *PGRepository) UpsertCredential(ctx context.Context, c Credential) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO credentials (member_id, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (member_id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		c.MemberID, c.Email, c.PasswordHash, c.IsActive, c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return shared.InvalidValueError{Field: "email", Reason: "already in use"}
		}
		return err
	}
	return nil
}

// CreateSession persists a login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id, memberID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO login_sessions (id, member_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))`,
		id, memberID, time.Now().UTC(), expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM login_sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
