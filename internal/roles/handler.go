package roles

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/member-hub/member-hub/internal/platform/httpx"
	"github.com/member-hub/member-hub/internal/shared"
)

// AccessControl guards routes. Satisfied by the gate middleware; declared
// here so the authorization layer depends on this package, never the
// reverse.
type AccessControl interface {
	RequireAbilities(keys ...string) func(http.Handler) http.Handler
	RequireActor() func(http.Handler) http.Handler
	RequireSelfOrAbilities(param string, keys ...string) func(http.Handler) http.Handler
}

// Handler manages role catalog and grant endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      AccessControl
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gateMW AccessControl) *Handler {
	return &Handler{logger: logger, service: service, gate: gateMW, validator: validator.New(), now: time.Now}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAbilities("roles.view"))
		r.Get("/types", h.listRoleTypes)
		r.Get("/types/{id}", h.getRoleType)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAbilities("roles.edit"))
		r.Post("/types", h.createRoleType)
		r.Put("/types/{id}", h.updateRoleType)
		r.Put("/types/{id}/abilities", h.setAbilities)
		r.Post("/grants", h.assignRole)
		r.Put("/grants/end", h.overrideEnd)
	})
	r.Group(func(r chi.Router) {
		// Self-service or directory holders only.
		r.Use(h.gate.RequireSelfOrAbilities("memberID", "roles.view"))
		r.Get("/grants/{memberID}", h.listGrants)
	})
}

type roleTypeRequest struct {
	Title              string `json:"title" validate:"required,max=255"`
	Description        string `json:"description"`
	ExpiresAfterMonths *int   `json:"expiresAfterMonths" validate:"omitempty,min=1"`
	AutoRenews         bool   `json:"autoRenews"`
	Available          bool   `json:"available"`
	Joinable           bool   `json:"joinable"`
}

type roleTypeResponse struct {
	ID                 int64             `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	ExpiresAfterMonths *int              `json:"expiresAfterMonths"`
	AutoRenews         bool              `json:"autoRenews"`
	Available          bool              `json:"available"`
	Joinable           bool              `json:"joinable"`
	Abilities          []abilityResponse `json:"abilities,omitempty"`
}

type abilityResponse struct {
	Key           string `json:"key"`
	PredicateName string `json:"predicateName,omitempty"`
}

type grantResponse struct {
	MemberID string  `json:"memberId"`
	RoleType string  `json:"roleType"`
	StartsOn string  `json:"startsOn"`
	EndsOn   *string `json:"endsOn"`
	Status   Status  `json:"status"`
}

func toRoleTypeResponse(rt RoleType, abilities []Ability) roleTypeResponse {
	resp := roleTypeResponse{
		ID:                 rt.ID,
		Title:              rt.Title,
		Description:        rt.Description,
		ExpiresAfterMonths: rt.ExpiresAfterMonths,
		AutoRenews:         rt.AutoRenews,
		Available:          rt.Available,
		Joinable:           rt.Joinable,
	}
	for _, a := range abilities {
		resp.Abilities = append(resp.Abilities, abilityResponse{Key: a.Key, PredicateName: a.PredicateName})
	}
	return resp
}

func (h *Handler) listRoleTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListRoleTypes(r.Context())
	if err != nil {
		h.logger.Error("list role types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	items := make([]roleTypeResponse, len(types))
	for i, rt := range types {
		items[i] = toRoleTypeResponse(rt, nil)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roleTypes": items})
}

func (h *Handler) getRoleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rt, abilities, err := h.service.GetRoleType(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleTypeResponse(rt, abilities))
}

func (h *Handler) decodeRoleType(r *http.Request) (RoleTypeInput, error) {
	var req roleTypeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return RoleTypeInput{}, shared.InvalidValueError{Field: "body", Reason: "malformed json"}
	}
	if err := h.validator.Struct(req); err != nil {
		return RoleTypeInput{}, shared.InvalidValueError{Field: "body"}
	}
	return RoleTypeInput{
		Title:              req.Title,
		Description:        req.Description,
		ExpiresAfterMonths: req.ExpiresAfterMonths,
		AutoRenews:         req.AutoRenews,
		Available:          req.Available,
		Joinable:           req.Joinable,
	}, nil
}

func (h *Handler) createRoleType(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeRoleType(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rt, err := h.service.CreateRoleType(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleTypeResponse(rt, nil))
}

func (h *Handler) updateRoleType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.decodeRoleType(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rt, err := h.service.UpdateRoleType(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleTypeResponse(rt, nil))
}

type setAbilitiesRequest struct {
	Abilities []struct {
		Key           string `json:"key"`
		PredicateName string `json:"predicateName"`
	} `json:"abilities"`
}

func (h *Handler) setAbilities(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req setAbilitiesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body", Reason: "malformed json"})
		return
	}
	inputs := make([]AbilityInput, len(req.Abilities))
	for i, a := range req.Abilities {
		inputs[i] = AbilityInput{Key: a.Key, PredicateName: a.PredicateName}
	}
	if err := h.service.SetAbilities(r.Context(), id, inputs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type assignRoleRequest struct {
	MemberID   string `json:"memberId" validate:"required"`
	RoleTypeID int64  `json:"roleTypeId" validate:"required"`
	StartsOn   string `json:"startsOn" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body", Reason: "malformed json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body"})
		return
	}
	startsOn, err := time.Parse("2006-01-02", req.StartsOn)
	if err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "startsOn", Reason: "want YYYY-MM-DD"})
		return
	}

	role, err := h.service.AssignRole(r.Context(), req.MemberID, req.RoleTypeID, startsOn)
	if err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.toGrantResponse(Grant{Role: role}))
}

type overrideEndRequest struct {
	MemberID   string  `json:"memberId" validate:"required"`
	RoleTypeID int64   `json:"roleTypeId" validate:"required"`
	StartsOn   string  `json:"startsOn" validate:"required"`
	EndsOn     *string `json:"endsOn"`
}

func (h *Handler) overrideEnd(w http.ResponseWriter, r *http.Request) {
	var req overrideEndRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body", Reason: "malformed json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body"})
		return
	}
	startsOn, err := time.Parse("2006-01-02", req.StartsOn)
	if err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "startsOn", Reason: "want YYYY-MM-DD"})
		return
	}
	var endsOn *time.Time
	if req.EndsOn != nil {
		parsed, err := time.Parse("2006-01-02", *req.EndsOn)
		if err != nil {
			httpx.RespondError(w, shared.InvalidValueError{Field: "endsOn", Reason: "want YYYY-MM-DD"})
			return
		}
		endsOn = &parsed
	}

	key := Role{MemberID: req.MemberID, RoleTypeID: req.RoleTypeID, StartsOn: startsOn}
	if err := h.service.OverrideEnd(r.Context(), key, endsOn); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	grants, err := h.service.GrantsFor(r.Context(), memberID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]grantResponse, len(grants))
	for i, g := range grants {
		items[i] = h.toGrantResponse(g)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": items})
}

func (h *Handler) toGrantResponse(g Grant) grantResponse {
	resp := grantResponse{
		MemberID: g.Role.MemberID,
		RoleType: g.RoleType.Title,
		StartsOn: g.Role.StartsOn.Format("2006-01-02"),
		Status:   g.Role.StatusAt(h.now()),
	}
	if g.Role.EndsOn != nil {
		formatted := g.Role.EndsOn.Format("2006-01-02")
		resp.EndsOn = &formatted
	}
	return resp
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.InvalidValueError{Field: key, Reason: "want a positive integer"}
	}
	return id, nil
}
