package members

import (
	"context"
	"errors"
	"fmt"

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

// NextSequence atomically reserves the next sequence number for a bucket.
// The upsert increments and returns in one statement, so two concurrent
// registrations can never observe the same value.
func (r *Repository) NextSequence(ctx context.Context, bucket string) (int, error) {
	var seq int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO member_id_counters (bucket, next_seq) VALUES ($1, 1)
		ON CONFLICT (bucket) DO UPDATE SET next_seq = member_id_counters.next_seq + 1
		RETURNING next_seq`, bucket).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("members: reserve sequence: %w", err)
	}
	return seq, nil
}

// InsertPerson persists a new member record. A duplicate id surfaces as
// ErrSequenceConflict so the caller can retry with a fresh sequence.
func (r *Repository) InsertPerson(ctx context.Context, p Person) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO members (id, first_name, last_name, date_of_birth, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return fmt.Errorf("members: id %s already taken: %w", p.ID, shared.ErrSequenceConflict)
		}
		return err
	}
	return nil
}

// GetPerson fetches a member by id.
func (r *Repository) GetPerson(ctx context.Context, id string) (Person, error) {
	var p Person
	err := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, date_of_birth, created_at
		FROM members WHERE id = $1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, shared.NotFoundError{Resource: "member", Key: id}
		}
		return Person{}, err
	}
	return p, nil
}

// ListPersons returns a page of members plus the total count.
func (r *Repository) ListPersons(ctx context.Context, limit, offset int) ([]Person, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, date_of_birth, created_at
		FROM members ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return people, total, nil
}
