package roles

import (
	"time"

	"github.com/member-hub/member-hub/internal/calendar"
)

// RoleType is a catalog entry describing a kind of role.
type RoleType struct {
	ID          int64
	Title       string
	Description string
	// ExpiresAfterMonths is the term length in whole calendar months.
	// Nil means grants of this type never lapse on their own.
	ExpiresAfterMonths *int
	// AutoRenews is informational here; renewal itself is a scheduling
	// concern outside this core.
	AutoRenews bool
	Available  bool
	Joinable   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ability is a capability key scoped to a RoleType, optionally bound to a
// named gate predicate evaluated at authorization time.
type Ability struct {
	ID            int64
	RoleTypeID    int64
	Key           string
	PredicateName string
}

// Role is a dated grant of a RoleType to a member, keyed by
// (member, role type, start date).
type Role struct {
	MemberID   string
	RoleTypeID int64
	StartsOn   time.Time
	EndsOn     *time.Time
}

// Status is derived from dates, never stored.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
)

// ActiveAt reports whether the grant covers date d. The interval is
// half-open: the start date counts, the end date does not.
func (r Role) ActiveAt(d time.Time) bool {
	if d.Before(r.StartsOn) {
		return false
	}
	return r.EndsOn == nil || d.Before(*r.EndsOn)
}

// StatusAt derives the grant's state on date d.
func (r Role) StatusAt(d time.Time) Status {
	if d.Before(r.StartsOn) {
		return StatusPending
	}
	if r.EndsOn != nil && !d.Before(*r.EndsOn) {
		return StatusExpired
	}
	return StatusActive
}

// Grant bundles a role with its type and the abilities it confers.
type Grant struct {
	Role      Role
	RoleType  RoleType
	Abilities []Ability
}

// TermEnd computes when a grant starting on startsOn lapses, walking real
// calendar months. Nil when the type has no expiry period.
func (rt RoleType) TermEnd(startsOn time.Time) *time.Time {
	if rt.ExpiresAfterMonths == nil {
		return nil
	}
	end := startsOn.AddDate(0, 0, calendar.MonthsToDays(*rt.ExpiresAfterMonths, startsOn))
	return &end
}
