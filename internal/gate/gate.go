package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/internal/shared"
)

// RoleSource loads a member's grants. Implemented by roles.Service.
type RoleSource interface {
	GrantsFor(ctx context.Context, memberID string) ([]roles.Grant, error)
}

// Gate evaluates whether an acting member may proceed.
type Gate struct {
	registry *Registry
	source   RoleSource
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Gate.
func New(registry *Registry, source RoleSource, logger *slog.Logger) *Gate {
	return &Gate{registry: registry, source: source, logger: logger, now: time.Now}
}

// WithClock overrides the clock, used by tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// CheckRequest names what a protected operation requires. Predicates are
// evaluated first; Abilities and Roles distinguish nil (no restriction
// declared) from empty (restricted, nothing qualifies).
type CheckRequest struct {
	Predicates []string
	Abilities  []string
	Roles      []string
	Extra      map[string]any
}

// Check evaluates the request against the acting member. A nil actor is
// always ErrUnauthenticated. Predicate denial falls back to the capability
// check when abilities or roles were also supplied; the combination is an
// inclusive OR, never an AND.
func (g *Gate) Check(ctx context.Context, actor *shared.Actor, req CheckRequest) error {
	if actor == nil || actor.MemberID == "" {
		return shared.ErrUnauthenticated
	}

	denied := false
	for _, name := range req.Predicates {
		fn, err := g.registry.Resolve(name)
		if err != nil {
			return err
		}
		err = fn(ctx, PredicateContext{Actor: actor, Extra: req.Extra})
		if err == nil {
			continue
		}
		if !errors.Is(err, shared.ErrForbidden) {
			return err
		}
		denied = true
		if g.logger != nil {
			g.logger.Debug("gate predicate denied",
				slog.String("predicate", name), slog.String("member", actor.MemberID))
		}
		break
	}

	if len(req.Predicates) > 0 && !denied {
		return nil
	}
	if denied && req.Abilities == nil && req.Roles == nil {
		return shared.ErrForbidden
	}

	ok, err := g.PersonHas(ctx, actor.MemberID, req.Abilities, req.Roles)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrForbidden
	}
	return nil
}

// PersonHas reports whether the member holds any of the requested abilities
// through an active grant, or any grant of the requested role types. Both
// nil means no restriction was declared and access is granted.
func (g *Gate) PersonHas(ctx context.Context, memberID string, abilities, roleTitles []string) (bool, error) {
	if abilities == nil && roleTitles == nil {
		return true, nil
	}

	grants, err := g.source.GrantsFor(ctx, memberID)
	if err != nil {
		return false, err
	}

	now := g.now()
	actor := &shared.Actor{MemberID: memberID}

	for _, grant := range grants {
		if abilities != nil && grant.Role.ActiveAt(now) {
			for _, want := range abilities {
				for _, ability := range grant.Abilities {
					if ability.Key != want {
						continue
					}
					ok, err := g.RunAbilityGate(ctx, actor, grant, ability)
					if err != nil {
						return false, err
					}
					if ok {
						return true, nil
					}
				}
			}
		}
		for _, want := range roleTitles {
			if grant.RoleType.Title == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// RunAbilityGate executes an ability's bound predicate with the owning
// grant's context. An ability without a predicate is granted unconditionally.
func (g *Gate) RunAbilityGate(ctx context.Context, actor *shared.Actor, grant roles.Grant, ability roles.Ability) (bool, error) {
	if ability.PredicateName == "" {
		return true, nil
	}
	fn, err := g.registry.Resolve(ability.PredicateName)
	if err != nil {
		return false, err
	}
	err = fn(ctx, PredicateContext{
		Actor:    actor,
		Role:     &grant.Role,
		RoleType: &grant.RoleType,
		Ability:  &ability,
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, shared.ErrForbidden) {
		return false, nil
	}
	return false, err
}
