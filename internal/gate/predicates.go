package gate

import (
	"context"

	"github.com/member-hub/member-hub/internal/shared"
)

// Built-in predicate names.
const (
	// PredicatePersonIsActive allows any resolved member.
	PredicatePersonIsActive = "person_is_active"
	// PredicateUserIsPerson allows only when the actor is the member named
	// in the request (extra key "member_id").
	PredicateUserIsPerson = "user_is_person"
)

// DefaultRegistry returns a registry with the built-in predicates.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PredicatePersonIsActive, personIsActive)
	r.Register(PredicateUserIsPerson, userIsPerson)
	return r
}

func personIsActive(ctx context.Context, pc PredicateContext) error {
	return nil
}

// userIsPerson guards self-service edits: the target member must be the
// actor. A request without a target is not restricted by this predicate.
func userIsPerson(ctx context.Context, pc PredicateContext) error {
	target, ok := pc.Extra["member_id"].(string)
	if !ok || target == "" {
		return nil
	}
	if pc.Actor == nil || pc.Actor.MemberID != target {
		return shared.ErrForbidden
	}
	return nil
}
