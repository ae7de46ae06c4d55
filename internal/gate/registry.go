// Package gate decides whether an acting member may perform an action.
//
// Predicates are resolved through a closed registry: every name maps to an
// explicit implementation, and an unregistered name fails deterministically
// instead of silently passing.
package gate

import (
	"context"
	"sort"

	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/internal/shared"
)

// PredicateContext carries whatever a predicate may inspect. Actor is always
// set; Role/RoleType/Ability are set only when the predicate runs as an
// ability gate, Extra only in predicate-mode checks.
type PredicateContext struct {
	Actor    *shared.Actor
	Role     *roles.Role
	RoleType *roles.RoleType
	Ability  *roles.Ability
	Extra    map[string]any
}

// PredicateFunc allows (nil) or denies (shared.ErrForbidden) an action.
// Any other error is an evaluation failure and propagates untouched.
type PredicateFunc func(ctx context.Context, pc PredicateContext) error

// Registry is the closed set of known predicates.
type Registry struct {
	predicates map[string]PredicateFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{predicates: make(map[string]PredicateFunc)}
}

// Register adds a predicate under the given name, replacing any previous one.
func (r *Registry) Register(name string, fn PredicateFunc) {
	r.predicates[name] = fn
}

// Resolve returns the predicate registered under name.
func (r *Registry) Resolve(name string) (PredicateFunc, error) {
	fn, ok := r.predicates[name]
	if !ok {
		return nil, shared.UnknownPredicateError{Name: name}
	}
	return fn, nil
}

// Known reports whether name is registered. Satisfies roles.PredicateChecker.
func (r *Registry) Known(name string) bool {
	_, ok := r.predicates[name]
	return ok
}

// Names lists registered predicate names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
