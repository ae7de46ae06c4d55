package gate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/internal/shared"
)

func routerWithSelfOrAbilities(g *Gate) http.Handler {
	mw := Middleware{Gate: g}
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSelfOrAbilities("memberID", "roles.view"))
		r.Get("/grants/{memberID}", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func getAs(t *testing.T, h http.Handler, memberID, path string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if memberID != "" {
		sess := &shared.Session{ID: "test-session"}
		sess.SetMember(memberID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireSelfOrAbilitiesAllowsSelf(t *testing.T) {
	h := routerWithSelfOrAbilities(newTestGate(&stubSource{}))

	assert.Equal(t, http.StatusOK, getAs(t, h, "C20000011", "/grants/C20000011"))
}

func TestRequireSelfOrAbilitiesAllowsDirectoryHolder(t *testing.T) {
	source := &stubSource{grants: map[string][]roles.Grant{
		"C20000022": {activeGrant("C20000022", "Committee", roles.Ability{Key: "roles.view"})},
	}}
	h := routerWithSelfOrAbilities(newTestGate(source))

	assert.Equal(t, http.StatusOK, getAs(t, h, "C20000022", "/grants/C20000011"))
}

func TestRequireSelfOrAbilitiesForbidsStranger(t *testing.T) {
	h := routerWithSelfOrAbilities(newTestGate(&stubSource{}))

	assert.Equal(t, http.StatusForbidden, getAs(t, h, "C20000033", "/grants/C20000011"))
}

func TestRequireSelfOrAbilitiesRejectsAnonymous(t *testing.T) {
	h := routerWithSelfOrAbilities(newTestGate(&stubSource{}))

	assert.Equal(t, http.StatusUnauthorized, getAs(t, h, "", "/grants/C20000011"))
}
