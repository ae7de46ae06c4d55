package roles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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

const roleTypeColumns = `id, title, description, expires_after_months, auto_renews, available, joinable, created_at, updated_at`

func scanRoleType(row pgx.Row) (RoleType, error) {
	var rt RoleType
	err := row.Scan(&rt.ID, &rt.Title, &rt.Description, &rt.ExpiresAfterMonths,
		&rt.AutoRenews, &rt.Available, &rt.Joinable, &rt.CreatedAt, &rt.UpdatedAt)
	return rt, err
}

// ListRoleTypes returns the catalog ordered by title.
func (r *Repository) ListRoleTypes(ctx context.Context) ([]RoleType, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleTypeColumns+` FROM role_types ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []RoleType
	for rows.Next() {
		rt, err := scanRoleType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, rt)
	}
	return types, rows.Err()
}

// GetRoleType fetches a catalog entry by id.
func (r *Repository) GetRoleType(ctx context.Context, id int64) (RoleType, error) {
	rt, err := scanRoleType(r.pool.QueryRow(ctx,
		`SELECT `+roleTypeColumns+` FROM role_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleType{}, shared.NotFoundError{Resource: "role type", Key: strconv.FormatInt(id, 10)}
		}
		return RoleType{}, err
	}
	return rt, nil
}

// CreateRoleType inserts a catalog entry. Titles are unique.
func (r *Repository) CreateRoleType(ctx context.Context, rt RoleType) (RoleType, error) {
	created, err := scanRoleType(r.pool.QueryRow(ctx, `
		INSERT INTO role_types (title, description, expires_after_months, auto_renews, available, joinable)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+roleTypeColumns,
		rt.Title, rt.Description, rt.ExpiresAfterMonths, rt.AutoRenews, rt.Available, rt.Joinable))
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return RoleType{}, shared.InvalidValueError{Field: "title", Reason: "already in use"}
		}
		return RoleType{}, err
	}
	return created, nil
}

// UpdateRoleType updates a catalog entry.
func (r *Repository) UpdateRoleType(ctx context.Context, rt RoleType) (RoleType, error) {
	updated, err := scanRoleType(r.pool.QueryRow(ctx, `
		UPDATE role_types
		SET title = $2, description = $3, expires_after_months = $4,
		    auto_renews = $5, available = $6, joinable = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roleTypeColumns,
		rt.ID, rt.Title, rt.Description, rt.ExpiresAfterMonths, rt.AutoRenews, rt.Available, rt.Joinable))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleType{}, shared.NotFoundError{Resource: "role type", Key: strconv.FormatInt(rt.ID, 10)}
		}
		if db.IsUniqueViolation(err, "") {
			return RoleType{}, shared.InvalidValueError{Field: "title", Reason: "already in use"}
		}
		return RoleType{}, err
	}
	return updated, nil
}

// AbilitiesOf returns the abilities attached to a role type.
func (r *Repository) AbilitiesOf(ctx context.Context, roleTypeID int64) ([]Ability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, role_type_id, key, COALESCE(predicate_name, '')
		FROM abilities WHERE role_type_id = $1 ORDER BY key`, roleTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var abilities []Ability
	for rows.Next() {
		var a Ability
		if err := rows.Scan(&a.ID, &a.RoleTypeID, &a.Key, &a.PredicateName); err != nil {
			return nil, err
		}
		abilities = append(abilities, a)
	}
	return abilities, rows.Err()
}

// ReplaceAbilities swaps the ability set of a role type in one transaction.
func (r *Repository) ReplaceAbilities(ctx context.Context, roleTypeID int64, abilities []Ability) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM abilities WHERE role_type_id = $1`, roleTypeID); err != nil {
			return err
		}
		for _, a := range abilities {
			var predicate any
			if a.PredicateName != "" {
				predicate = a.PredicateName
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO abilities (role_type_id, key, predicate_name)
				VALUES ($1, $2, $3)`, roleTypeID, a.Key, predicate); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertRole persists a grant.
func (r *Repository) InsertRole(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO roles (member_id, role_type_id, starts_on, ends_on)
		VALUES ($1, $2, $3, $4)`,
		role.MemberID, role.RoleTypeID, role.StartsOn, role.EndsOn)
	if err != nil && db.IsUniqueViolation(err, "") {
		return shared.InvalidValueError{Field: "startsOn", Reason: "grant already exists"}
	}
	return err
}

// UpdateRoleEnd overrides the end date of an existing grant.
func (r *Repository) UpdateRoleEnd(ctx context.Context, key Role, endsOn *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles SET ends_on = $4
		WHERE member_id = $1 AND role_type_id = $2 AND starts_on = $3`,
		key.MemberID, key.RoleTypeID, key.StartsOn, endsOn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "role", Key: roleKey(key)}
	}
	return nil
}

// GrantsFor loads a member's grants with their types and abilities.
func (r *Repository) GrantsFor(ctx context.Context, memberID string) ([]Grant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ro.member_id, ro.role_type_id, ro.starts_on, ro.ends_on,
		       rt.id, rt.title, rt.description, rt.expires_after_months,
		       rt.auto_renews, rt.available, rt.joinable, rt.created_at, rt.updated_at
		FROM roles ro
		JOIN role_types rt ON rt.id = ro.role_type_id
		WHERE ro.member_id = $1
		ORDER BY ro.starts_on`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(
			&g.Role.MemberID, &g.Role.RoleTypeID, &g.Role.StartsOn, &g.Role.EndsOn,
			&g.RoleType.ID, &g.RoleType.Title, &g.RoleType.Description,
			&g.RoleType.ExpiresAfterMonths, &g.RoleType.AutoRenews,
			&g.RoleType.Available, &g.RoleType.Joinable,
			&g.RoleType.CreatedAt, &g.RoleType.UpdatedAt,
		); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range grants {
		abilities, err := r.AbilitiesOf(ctx, grants[i].RoleType.ID)
		if err != nil {
			return nil, err
		}
		grants[i].Abilities = abilities
	}
	return grants, nil
}

// ExpiringWithin returns grants whose end date falls inside [asOf, asOf+days).
func (r *Repository) ExpiringWithin(ctx context.Context, asOf time.Time, days int) ([]Grant, error) {
	until := asOf.AddDate(0, 0, days)
	rows, err := r.pool.Query(ctx, `
		SELECT ro.member_id, ro.role_type_id, ro.starts_on, ro.ends_on, rt.title
		FROM roles ro
		JOIN role_types rt ON rt.id = ro.role_type_id
		WHERE ro.ends_on IS NOT NULL AND ro.ends_on >= $1 AND ro.ends_on < $2
		ORDER BY ro.ends_on`, asOf, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.Role.MemberID, &g.Role.RoleTypeID, &g.Role.StartsOn, &g.Role.EndsOn, &g.RoleType.Title); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func roleKey(r Role) string {
	return fmt.Sprintf("%s/%d/%s", r.MemberID, r.RoleTypeID, r.StartsOn.Format("2006-01-02"))
}
