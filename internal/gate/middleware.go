package gate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/member-hub/member-hub/internal/platform/httpx"
	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers. The actor is
// resolved from the session once and passed explicitly to every check.
type Middleware struct {
	Gate   *Gate
	Logger *slog.Logger
}

var _ roles.AccessControl = Middleware{}

// RequireAbilities grants access when the member holds any of the ability
// keys through an active role.
func (m Middleware) RequireAbilities(keys ...string) func(http.Handler) http.Handler {
	return m.require(CheckRequest{Abilities: keys})
}

// RequireRoles grants access when the member holds any grant of the named
// role types.
func (m Middleware) RequireRoles(titles ...string) func(http.Handler) http.Handler {
	return m.require(CheckRequest{Roles: titles})
}

// RequirePredicates runs named predicates against the acting member.
func (m Middleware) RequirePredicates(names ...string) func(http.Handler) http.Handler {
	return m.require(CheckRequest{Predicates: names})
}

// RequireActor only asserts that a member is logged in.
func (m Middleware) RequireActor() func(http.Handler) http.Handler {
	return m.require(CheckRequest{})
}

// RequireSelfOrAbilities allows the member named by the URL parameter, or
// any holder of the ability keys. The target is read per request, so this
// runs inside the matched route where chi has resolved its parameters.
func (m Middleware) RequireSelfOrAbilities(param string, keys ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := currentActor(r)
			req := CheckRequest{
				Predicates: []string{PredicateUserIsPerson},
				Abilities:  keys,
				Extra:      map[string]any{"member_id": chi.URLParam(r, param)},
			}
			if err := m.Gate.Check(r.Context(), actor, req); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("gate check failed",
						slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) require(req CheckRequest) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := currentActor(r)
			if err := m.Gate.Check(r.Context(), actor, req); err != nil {
				if m.Logger != nil {
					m.Logger.Warn("gate check failed",
						slog.String("path", r.URL.Path), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func currentActor(r *http.Request) *shared.Actor {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil
	}
	memberID := sess.Member()
	if memberID == "" {
		return nil
	}
	return &shared.Actor{MemberID: memberID}
}
