package members

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/member-hub/member-hub/internal/gate"
	"github.com/member-hub/member-hub/internal/platform/httpx"
	"github.com/member-hub/member-hub/internal/shared"
)

// Handler wires HTTP endpoints for member registration and lookup.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      gate.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gateMW gate.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gateMW, validator: validator.New()}
}

// MountRoutes registers member routes. Registration is open; listing and
// lookup require the member directory ability.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createMember)
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAbilities("members.view"))
		r.Get("/", h.listMembers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireActor())
		r.Get("/{id}", h.getMember)
	})
}

type createMemberRequest struct {
	FirstName    string `json:"firstName" validate:"required,max=255"`
	LastName     string `json:"lastName" validate:"required,max=255"`
	YearOfBirth  int    `json:"yearOfBirth" validate:"omitempty,min=1900"`
	MonthOfBirth int    `json:"monthOfBirth" validate:"omitempty,min=1,max=12"`
	DayOfBirth   int    `json:"dayOfBirth" validate:"omitempty,min=1,max=31"`
}

type memberResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func toMemberResponse(p Person) memberResponse {
	resp := memberResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FullName:  p.FullName(),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.DateOfBirth != nil {
		resp.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	return resp
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body", Reason: "malformed json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		field := "body"
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field = verrs[0].Field()
		}
		httpx.RespondError(w, shared.InvalidValueError{Field: field})
		return
	}

	input := CreateInput{FirstName: req.FirstName, LastName: req.LastName}
	if req.YearOfBirth != 0 && req.MonthOfBirth != 0 && req.DayOfBirth != 0 {
		dob := time.Date(req.YearOfBirth, time.Month(req.MonthOfBirth), req.DayOfBirth, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes out-of-range days; reject them instead.
		if dob.Day() != req.DayOfBirth || int(dob.Month()) != req.MonthOfBirth {
			httpx.RespondError(w, shared.InvalidValueError{Field: "dayOfBirth", Reason: "no such date"})
			return
		}
		input.DateOfBirth = &dob
	}

	person, err := h.service.CreateMember(r.Context(), input)
	if err != nil {
		h.logger.Error("create member", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMemberResponse(person))
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// Members may fetch their own record; the directory ability covers
	// everyone else.
	actor := shared.ActorFromContext(r.Context())
	if err := h.gate.Gate.Check(r.Context(), actor, gate.CheckRequest{
		Predicates: []string{gate.PredicateUserIsPerson},
		Abilities:  []string{"members.view"},
		Extra:      map[string]any{"member_id": id},
	}); err != nil {
		httpx.RespondError(w, err)
		return
	}

	person, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMemberResponse(person))
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)

	people, pagination, err := h.service.ListMembers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	items := make([]memberResponse, len(people))
	for i, p := range people {
		items[i] = toMemberResponse(p)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"members": items,
		"pagination": map[string]int{
			"page":       pagination.Page,
			"perPage":    pagination.PerPage,
			"total":      pagination.Total,
			"totalPages": pagination.TotalPages,
		},
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
