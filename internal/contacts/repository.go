package contacts

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/member-hub/member-hub/internal/platform/db"
	"github.com/member-hub/member-hub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertAddress persists a new contact address.
func (r *Repository) InsertAddress(ctx context.Context, a Address) (Address, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO addresses (member_id, type, label, text, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.MemberID, a.Type, a.Label, a.Text, a.Verified, a.CreatedAt).Scan(&a.ID)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Address{}, shared.InvalidValueError{Field: "text", Reason: "address already registered"}
		}
		return Address{}, err
	}
	return a, nil
}

// FindByText fetches the address whose text matches exactly.
func (r *Repository) FindByText(ctx context.Context, text string) (Address, error) {
	var a Address
	err := r.pool.QueryRow(ctx, `
		SELECT id, member_id, type, label, text, verified, created_at
		FROM addresses WHERE text = $1`, text).
		Scan(&a.ID, &a.MemberID, &a.Type, &a.Label, &a.Text, &a.Verified, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Address{}, shared.NotFoundError{Resource: "address", Key: text}
		}
		return Address{}, err
	}
	return a, nil
}

// ListForMember returns all addresses belonging to a member.
func (r *Repository) ListForMember(ctx context.Context, memberID string) ([]Address, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, member_id, type, label, text, verified, created_at
		FROM addresses WHERE member_id = $1 ORDER BY created_at, id`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.MemberID, &a.Type, &a.Label, &a.Text, &a.Verified, &a.CreatedAt); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

// MarkVerified flips the verified flag for an address.
func (r *Repository) MarkVerified(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE addresses SET verified = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "address", Key: strconv.FormatInt(id, 10)}
	}
	return nil
}
