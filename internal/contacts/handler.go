package contacts

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/member-hub/member-hub/internal/gate"
	"github.com/member-hub/member-hub/internal/platform/httpx"
	"github.com/member-hub/member-hub/internal/shared"
	"github.com/member-hub/member-hub/jobs"
)

// Handler wires HTTP endpoints for contact addresses and verification.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      gate.Middleware
	jobs      *jobs.Client
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gateMW gate.Middleware, jobsClient *jobs.Client) *Handler {
	return &Handler{logger: logger, service: service, gate: gateMW, jobs: jobsClient, validator: validator.New()}
}

// MountRoutes registers contact routes. Verification endpoints are open,
// mirroring the flow where a member follows a link before logging in.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireActor())
		r.Post("/", h.addAddress)
		r.Get("/", h.listOwnAddresses)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireSelfOrAbilities("memberID", "members.view"))
		r.Get("/member/{memberID}", h.listMemberAddresses)
	})
	r.Get("/verify/{addressText}", h.startVerification)
	r.Post("/verify/{addressText}", h.confirmVerification)
}

type addressRequest struct {
	Type  string `json:"type" validate:"required,oneof=EMAIL PHONE POSTAL"`
	Label string `json:"label" validate:"max=255"`
	Text  string `json:"text" validate:"required,max=1024"`
}

type addressResponse struct {
	ID        int64  `json:"id"`
	MemberID  string `json:"memberId"`
	Type      string `json:"type"`
	Label     string `json:"label,omitempty"`
	Text      string `json:"text"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"createdAt"`
}

func toAddressResponse(a Address) addressResponse {
	return addressResponse{
		ID:        a.ID,
		MemberID:  a.MemberID,
		Type:      a.Type,
		Label:     a.Label,
		Text:      a.Text,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req addressRequest
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

	address, err := h.service.AddAddress(r.Context(), actor.MemberID, AddressInput{
		Type:  req.Type,
		Label: req.Label,
		Text:  req.Text,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAddressResponse(address))
}

func (h *Handler) listOwnAddresses(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	h.respondAddresses(w, r, actor.MemberID)
}

func (h *Handler) listMemberAddresses(w http.ResponseWriter, r *http.Request) {
	h.respondAddresses(w, r, chi.URLParam(r, "memberID"))
}

func (h *Handler) respondAddresses(w http.ResponseWriter, r *http.Request, memberID string) {
	addresses, err := h.service.ListAddresses(r.Context(), memberID)
	if err != nil {
		h.logger.Error("list addresses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	items := make([]addressResponse, len(addresses))
	for i, a := range addresses {
		items[i] = toAddressResponse(a)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"addresses": items})
}

func (h *Handler) startVerification(w http.ResponseWriter, r *http.Request) {
	text := chi.URLParam(r, "addressText")

	code, address, err := h.service.StartVerification(r.Context(), text)
	if err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			httpx.NoContent(w)
			return
		}
		httpx.RespondError(w, err)
		return
	}

	if address.Type == TypeEmail && h.jobs != nil {
		if _, err := h.jobs.EnqueueVerifyEmail(r.Context(), jobs.VerifyEmailPayload{
			To:   address.Text,
			Code: code,
		}); err != nil && h.logger != nil {
			h.logger.Warn("enqueue verify email", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusOK, map[string]int{"code": code})
}

type confirmRequest struct {
	Code int `json:"code" validate:"required,min=10000,max=99999"`
}

func (h *Handler) confirmVerification(w http.ResponseWriter, r *http.Request) {
	text := chi.URLParam(r, "addressText")

	var req confirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "body", Reason: "malformed json"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "code"})
		return
	}

	if err := h.service.ConfirmVerification(r.Context(), text, req.Code); err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			httpx.NoContent(w)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
