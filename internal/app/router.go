package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/member-hub/member-hub/internal/auth"
	"github.com/member-hub/member-hub/internal/contacts"
	"github.com/member-hub/member-hub/internal/members"
	"github.com/member-hub/member-hub/internal/observability"
	"github.com/member-hub/member-hub/internal/platform/httpx"
	"github.com/member-hub/member-hub/internal/rates"
	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/internal/shared"
	"github.com/member-hub/member-hub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler     *auth.Handler
	MembersHandler  *members.Handler
	RolesHandler    *roles.Handler
	ContactsHandler *contacts.Handler
	RatesHandler    *rates.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with hub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
			if err != nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
		})

		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/members", params.MembersHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		if params.ContactsHandler != nil {
			r.Route("/contacts", params.ContactsHandler.MountRoutes)
		}
		if params.RatesHandler != nil {
			r.Route("/rates", params.RatesHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
