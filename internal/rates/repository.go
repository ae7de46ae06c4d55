package rates

import (
	"context"
	"errors"
	"time"

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

// InsertRate persists a new rate window.
func (r *Repository) InsertRate(ctx context.Context, rate Rate) (Rate, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO rates (starts_on, ends_on, amount, multiplier, charge)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rate.StartsOn, rate.EndsOn, rate.Amount, rate.Multiplier, rate.Charge).Scan(&rate.ID)
	if err != nil {
		return Rate{}, err
	}
	return rate, nil
}

// ListRates returns all rates, newest window first.
func (r *Repository) ListRates(ctx context.Context) ([]Rate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, starts_on, ends_on, amount, multiplier, charge
		FROM rates ORDER BY starts_on DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.StartsOn, &rate.EndsOn, &rate.Amount, &rate.Multiplier, &rate.Charge); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

// ActiveRate returns the rate whose window covers asOf. With overlapping
// windows the most recently started one wins.
func (r *Repository) ActiveRate(ctx context.Context, asOf time.Time) (Rate, error) {
	var rate Rate
	err := r.pool.QueryRow(ctx, `
		SELECT id, starts_on, ends_on, amount, multiplier, charge
		FROM rates WHERE starts_on < $1 AND ends_on > $1
		ORDER BY starts_on DESC LIMIT 1`, asOf).
		Scan(&rate.ID, &rate.StartsOn, &rate.EndsOn, &rate.Amount, &rate.Multiplier, &rate.Charge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, shared.NotFoundError{Resource: "rate", Key: asOf.Format("2006-01-02")}
		}
		return Rate{}, err
	}
	return rate, nil
}

// InsertBand persists a new band.
func (r *Repository) InsertBand(ctx context.Context, b Band) (Band, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bands (code, name, description, multiplier, starts_on, ends_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		b.Code, b.Name, b.Description, b.Multiplier, b.StartsOn, b.EndsOn).Scan(&b.ID)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return Band{}, shared.InvalidValueError{Field: "code", Reason: "band code already exists"}
		}
		return Band{}, err
	}
	return b, nil
}

// ListBands returns all bands ordered by code.
func (r *Repository) ListBands(ctx context.Context) ([]Band, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, description, multiplier, starts_on, ends_on
		FROM bands ORDER BY code, starts_on`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Band
	for rows.Next() {
		var b Band
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.Multiplier, &b.StartsOn, &b.EndsOn); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBandByCode fetches a band by its short code.
func (r *Repository) GetBandByCode(ctx context.Context, code string) (Band, error) {
	var b Band
	err := r.pool.QueryRow(ctx, `
		SELECT id, code, name, description, multiplier, starts_on, ends_on
		FROM bands WHERE code = $1`, code).
		Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.Multiplier, &b.StartsOn, &b.EndsOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Band{}, shared.NotFoundError{Resource: "band", Key: code}
		}
		return Band{}, err
	}
	return b, nil
}
