package rates

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/member-hub/member-hub/internal/gate"
	"github.com/member-hub/member-hub/internal/platform/httpx"
	"github.com/member-hub/member-hub/internal/shared"
)

// Handler wires HTTP endpoints for rates, bands and quotes.
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

// MountRoutes registers rate routes. Quotes are open so prospective
// members can see what joining costs; changes need the finance ability.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quote", h.quote)
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAbilities("rates.view"))
		r.Get("/", h.listRates)
		r.Get("/bands", h.listBands)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAbilities("rates.edit"))
		r.Post("/", h.createRate)
		r.Post("/bands", h.createBand)
	})
}

type rateRequest struct {
	StartsOn   string  `json:"startsOn" validate:"required"`
	EndsOn     string  `json:"endsOn" validate:"required"`
	Amount     float64 `json:"amount"`
	Multiplier float64 `json:"multiplier" validate:"required"`
	Charge     float64 `json:"charge"`
}

type rateResponse struct {
	ID         int64   `json:"id"`
	StartsOn   string  `json:"startsOn"`
	EndsOn     string  `json:"endsOn"`
	Amount     float64 `json:"amount"`
	Multiplier float64 `json:"multiplier"`
	Charge     float64 `json:"charge"`
	NetAmount  float64 `json:"netAmount"`
}

func toRateResponse(r Rate) rateResponse {
	return rateResponse{
		ID:         r.ID,
		StartsOn:   r.StartsOn.Format("2006-01-02"),
		EndsOn:     r.EndsOn.Format("2006-01-02"),
		Amount:     r.Amount,
		Multiplier: r.Multiplier,
		Charge:     r.Charge,
		NetAmount:  r.NetAmount(),
	}
}

type bandRequest struct {
	Code        string  `json:"code" validate:"required,max=3"`
	Name        string  `json:"name" validate:"required,max=15"`
	Description string  `json:"description"`
	Multiplier  float64 `json:"multiplier" validate:"required"`
	StartsOn    string  `json:"startsOn" validate:"required"`
	EndsOn      string  `json:"endsOn" validate:"required"`
}

type bandResponse struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Multiplier  float64 `json:"multiplier"`
	StartsOn    string  `json:"startsOn"`
	EndsOn      string  `json:"endsOn"`
}

func toBandResponse(b Band) bandResponse {
	return bandResponse{
		ID:          b.ID,
		Code:        b.Code,
		Name:        b.Name,
		Description: b.Description,
		Multiplier:  b.Multiplier,
		StartsOn:    b.StartsOn.Format("2006-01-02"),
		EndsOn:      b.EndsOn.Format("2006-01-02"),
	}
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListRates(r.Context())
	if err != nil {
		h.logger.Error("list rates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	items := make([]rateResponse, len(all))
	for i, rate := range all {
		items[i] = toRateResponse(rate)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rates": items})
}

func (h *Handler) createRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
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
		httpx.RespondError(w, shared.InvalidValueError{Field: "startsOn", Reason: "expected YYYY-MM-DD"})
		return
	}
	endsOn, err := time.Parse("2006-01-02", req.EndsOn)
	if err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "endsOn", Reason: "expected YYYY-MM-DD"})
		return
	}

	rate, err := h.service.CreateRate(r.Context(), RateInput{
		StartsOn:   startsOn,
		EndsOn:     endsOn,
		Amount:     req.Amount,
		Multiplier: req.Multiplier,
		Charge:     req.Charge,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRateResponse(rate))
}

func (h *Handler) listBands(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListBands(r.Context())
	if err != nil {
		h.logger.Error("list bands", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	items := make([]bandResponse, len(all))
	for i, b := range all {
		items[i] = toBandResponse(b)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bands": items})
}

func (h *Handler) createBand(w http.ResponseWriter, r *http.Request) {
	var req bandRequest
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
		httpx.RespondError(w, shared.InvalidValueError{Field: "startsOn", Reason: "expected YYYY-MM-DD"})
		return
	}
	endsOn, err := time.Parse("2006-01-02", req.EndsOn)
	if err != nil {
		httpx.RespondError(w, shared.InvalidValueError{Field: "endsOn", Reason: "expected YYYY-MM-DD"})
		return
	}

	band, err := h.service.CreateBand(r.Context(), BandInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Multiplier:  req.Multiplier,
		StartsOn:    startsOn,
		EndsOn:      endsOn,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toBandResponse(band))
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.QuoteAmount(r.Context(), r.URL.Query().Get("band"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	resp := map[string]any{
		"amount":   quote.Amount,
		"rate":     toRateResponse(quote.Rate),
		"quotedAt": quote.QuotedAt.Format(time.RFC3339),
	}
	if quote.Band != nil {
		resp["band"] = toBandResponse(*quote.Band)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
