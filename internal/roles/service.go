package roles

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/member-hub/member-hub/internal/shared"
)

// RepositoryPort defines data access methods for the role catalog and grants.
type RepositoryPort interface {
	ListRoleTypes(ctx context.Context) ([]RoleType, error)
	GetRoleType(ctx context.Context, id int64) (RoleType, error)
	CreateRoleType(ctx context.Context, rt RoleType) (RoleType, error)
	UpdateRoleType(ctx context.Context, rt RoleType) (RoleType, error)
	AbilitiesOf(ctx context.Context, roleTypeID int64) ([]Ability, error)
	ReplaceAbilities(ctx context.Context, roleTypeID int64, abilities []Ability) error
	InsertRole(ctx context.Context, role Role) error
	UpdateRoleEnd(ctx context.Context, key Role, endsOn *time.Time) error
	GrantsFor(ctx context.Context, memberID string) ([]Grant, error)
}

// PredicateChecker reports whether a gate predicate name is registered.
// Satisfied by the gate registry; keeps ability writes from referencing
// predicates that would fail at authorization time.
type PredicateChecker interface {
	Known(name string) bool
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles role catalog and lifecycle logic.
type Service struct {
	repo       RepositoryPort
	predicates PredicateChecker
	audit      AuditPort
	logger     *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, predicates PredicateChecker, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, predicates: predicates, audit: audit, logger: logger}
}

// ListRoleTypes returns the catalog.
func (s *Service) ListRoleTypes(ctx context.Context) ([]RoleType, error) {
	return s.repo.ListRoleTypes(ctx)
}

// GetRoleType fetches one catalog entry with its abilities resolved.
func (s *Service) GetRoleType(ctx context.Context, id int64) (RoleType, []Ability, error) {
	rt, err := s.repo.GetRoleType(ctx, id)
	if err != nil {
		return RoleType{}, nil, err
	}
	abilities, err := s.repo.AbilitiesOf(ctx, id)
	if err != nil {
		return RoleType{}, nil, err
	}
	return rt, abilities, nil
}

// RoleTypeInput carries catalog entry fields.
type RoleTypeInput struct {
	Title              string
	Description        string
	ExpiresAfterMonths *int
	AutoRenews         bool
	Available          bool
	Joinable           bool
}

func (in RoleTypeInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return shared.InvalidValueError{Field: "title", Reason: "required"}
	}
	if in.ExpiresAfterMonths != nil && *in.ExpiresAfterMonths <= 0 {
		return shared.InvalidValueError{Field: "expiresAfterMonths", Reason: "must be a positive month count"}
	}
	return nil
}

// CreateRoleType adds a catalog entry.
func (s *Service) CreateRoleType(ctx context.Context, in RoleTypeInput) (RoleType, error) {
	if err := in.validate(); err != nil {
		return RoleType{}, err
	}
	rt, err := s.repo.CreateRoleType(ctx, RoleType{
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		ExpiresAfterMonths: in.ExpiresAfterMonths,
		AutoRenews:         in.AutoRenews,
		Available:          in.Available,
		Joinable:           in.Joinable,
	})
	if err != nil {
		return RoleType{}, err
	}
	s.record(ctx, "roletype.create", "role_type", strconv.FormatInt(rt.ID, 10), nil)
	return rt, nil
}

// UpdateRoleType updates a catalog entry.
func (s *Service) UpdateRoleType(ctx context.Context, id int64, in RoleTypeInput) (RoleType, error) {
	if err := in.validate(); err != nil {
		return RoleType{}, err
	}
	rt, err := s.repo.UpdateRoleType(ctx, RoleType{
		ID:                 id,
		Title:              strings.TrimSpace(in.Title),
		Description:        strings.TrimSpace(in.Description),
		ExpiresAfterMonths: in.ExpiresAfterMonths,
		AutoRenews:         in.AutoRenews,
		Available:          in.Available,
		Joinable:           in.Joinable,
	})
	if err != nil {
		return RoleType{}, err
	}
	s.record(ctx, "roletype.update", "role_type", strconv.FormatInt(id, 10), nil)
	return rt, nil
}

// AbilityInput carries one ability definition.
type AbilityInput struct {
	Key           string
	PredicateName string
}

// SetAbilities replaces a role type's abilities. Predicate names are checked
// against the closed registry up front so an unknown name fails here, not at
// authorization time.
func (s *Service) SetAbilities(ctx context.Context, roleTypeID int64, inputs []AbilityInput) error {
	if _, err := s.repo.GetRoleType(ctx, roleTypeID); err != nil {
		return err
	}
	abilities := make([]Ability, 0, len(inputs))
	for _, in := range inputs {
		key := strings.TrimSpace(in.Key)
		if key == "" {
			return shared.InvalidValueError{Field: "key", Reason: "required"}
		}
		predicate := strings.TrimSpace(in.PredicateName)
		if predicate != "" && s.predicates != nil && !s.predicates.Known(predicate) {
			return shared.UnknownPredicateError{Name: predicate}
		}
		abilities = append(abilities, Ability{RoleTypeID: roleTypeID, Key: key, PredicateName: predicate})
	}
	if err := s.repo.ReplaceAbilities(ctx, roleTypeID, abilities); err != nil {
		return err
	}
	s.record(ctx, "roletype.abilities", "role_type", strconv.FormatInt(roleTypeID, 10),
		map[string]any{"count": len(abilities)})
	return nil
}

// AssignRole issues a grant of a role type to a member starting on startsOn.
// The end date is computed with calendar-month arithmetic when the type has
// an expiry period, and left open otherwise.
func (s *Service) AssignRole(ctx context.Context, memberID string, roleTypeID int64, startsOn time.Time) (Role, error) {
	if memberID == "" {
		return Role{}, shared.InvalidValueError{Field: "memberId", Reason: "required"}
	}
	if startsOn.IsZero() {
		return Role{}, shared.InvalidValueError{Field: "startsOn", Reason: "required"}
	}

	rt, err := s.repo.GetRoleType(ctx, roleTypeID)
	if err != nil {
		return Role{}, err
	}

	role := Role{
		MemberID:   memberID,
		RoleTypeID: roleTypeID,
		StartsOn:   startsOn,
		EndsOn:     rt.TermEnd(startsOn),
	}
	if err := s.repo.InsertRole(ctx, role); err != nil {
		return Role{}, err
	}

	meta := map[string]any{"role_type": rt.Title, "starts_on": startsOn.Format("2006-01-02")}
	if role.EndsOn != nil {
		meta["ends_on"] = role.EndsOn.Format("2006-01-02")
	}
	s.record(ctx, "role.assign", "role", memberID, meta)
	return role, nil
}

// OverrideEnd administratively edits a grant's end date. This is the only
// mutation a grant sees after creation; its state otherwise changes purely
// by date progression.
func (s *Service) OverrideEnd(ctx context.Context, key Role, endsOn *time.Time) error {
	if err := s.repo.UpdateRoleEnd(ctx, key, endsOn); err != nil {
		return err
	}
	meta := map[string]any{"role_type_id": key.RoleTypeID}
	if endsOn != nil {
		meta["ends_on"] = endsOn.Format("2006-01-02")
	} else {
		meta["ends_on"] = nil
	}
	s.record(ctx, "role.override_end", "role", key.MemberID, meta)
	return nil
}

// GrantsFor loads a member's grants with types and abilities.
func (s *Service) GrantsFor(ctx context.Context, memberID string) ([]Grant, error) {
	return s.repo.GrantsFor(ctx, memberID)
}

// IsRoleActive reports whether a grant covers the given date.
func (s *Service) IsRoleActive(role Role, asOf time.Time) bool {
	return role.ActiveAt(asOf)
}

func (s *Service) record(ctx context.Context, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actorID := ""
	if actor := shared.ActorFromContext(ctx); actor != nil {
		actorID = actor.MemberID
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now(),
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
