package rates

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/member-hub/member-hub/internal/shared"
)

// RepositoryPort defines data access methods for rates and bands.
type RepositoryPort interface {
	InsertRate(ctx context.Context, rate Rate) (Rate, error)
	ListRates(ctx context.Context) ([]Rate, error)
	ActiveRate(ctx context.Context, asOf time.Time) (Rate, error)
	InsertBand(ctx context.Context, b Band) (Band, error)
	ListBands(ctx context.Context) ([]Band, error)
	GetBandByCode(ctx context.Context, code string) (Band, error)
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles rate and band business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithClock overrides the clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RateInput carries the fields accepted when defining a rate window.
type RateInput struct {
	StartsOn   time.Time
	EndsOn     time.Time
	Amount     float64
	Multiplier float64
	Charge     float64
}

func (in RateInput) validate() error {
	if !in.EndsOn.After(in.StartsOn) {
		return shared.InvalidValueError{Field: "endsOn", Reason: "must be after startsOn"}
	}
	if in.Amount < 0 {
		return shared.InvalidValueError{Field: "amount", Reason: "must not be negative"}
	}
	if in.Multiplier <= 0 {
		return shared.InvalidValueError{Field: "multiplier", Reason: "must be positive"}
	}
	if in.Charge < 0 {
		return shared.InvalidValueError{Field: "charge", Reason: "must not be negative"}
	}
	return nil
}

// CreateRate defines a new rate window.
func (s *Service) CreateRate(ctx context.Context, in RateInput) (Rate, error) {
	if err := in.validate(); err != nil {
		return Rate{}, err
	}
	rate, err := s.repo.InsertRate(ctx, Rate{
		StartsOn:   in.StartsOn,
		EndsOn:     in.EndsOn,
		Amount:     in.Amount,
		Multiplier: in.Multiplier,
		Charge:     in.Charge,
	})
	if err != nil {
		return Rate{}, err
	}
	s.record(ctx, "rate.create", strconv.FormatInt(rate.ID, 10))
	return rate, nil
}

// ListRates returns all rate windows.
func (s *Service) ListRates(ctx context.Context) ([]Rate, error) {
	return s.repo.ListRates(ctx)
}

// BandInput carries the fields accepted when defining a band.
type BandInput struct {
	Code        string
	Name        string
	Description string
	Multiplier  float64
	StartsOn    time.Time
	EndsOn      time.Time
}

func (in BandInput) validate() error {
	code := strings.TrimSpace(in.Code)
	if code == "" || len(code) > 3 {
		return shared.InvalidValueError{Field: "code", Reason: "one to three characters"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.InvalidValueError{Field: "name", Reason: "required"}
	}
	if in.Multiplier <= 0 {
		return shared.InvalidValueError{Field: "multiplier", Reason: "must be positive"}
	}
	if !in.EndsOn.After(in.StartsOn) {
		return shared.InvalidValueError{Field: "endsOn", Reason: "must be after startsOn"}
	}
	return nil
}

// CreateBand defines a new band adjustment.
func (s *Service) CreateBand(ctx context.Context, in BandInput) (Band, error) {
	if err := in.validate(); err != nil {
		return Band{}, err
	}
	band, err := s.repo.InsertBand(ctx, Band{
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Multiplier:  in.Multiplier,
		StartsOn:    in.StartsOn,
		EndsOn:      in.EndsOn,
	})
	if err != nil {
		return Band{}, err
	}
	s.record(ctx, "band.create", band.Code)
	return band, nil
}

// ListBands returns all bands.
func (s *Service) ListBands(ctx context.Context) ([]Band, error) {
	return s.repo.ListBands(ctx)
}

// Quote describes the payable amount for the current rate, optionally
// adjusted by a band.
type Quote struct {
	Rate     Rate
	Band     *Band
	Amount   float64
	QuotedAt time.Time
}

// QuoteAmount computes the payable amount as of now. An empty band code
// quotes the bare rate. A band outside its active window does not apply.
func (s *Service) QuoteAmount(ctx context.Context, bandCode string) (Quote, error) {
	asOf := s.now()
	rate, err := s.repo.ActiveRate(ctx, asOf)
	if err != nil {
		return Quote{}, err
	}

	quote := Quote{Rate: rate, Amount: rate.NetAmount(), QuotedAt: asOf}
	if bandCode == "" {
		return quote, nil
	}

	band, err := s.repo.GetBandByCode(ctx, strings.ToUpper(bandCode))
	if err != nil {
		return Quote{}, err
	}
	if !band.ActiveAt(asOf) {
		return Quote{}, shared.InvalidValueError{Field: "band", Reason: "not active"}
	}
	quote.Band = &band
	quote.Amount = band.Apply(rate)
	return quote, nil
}

func (s *Service) record(ctx context.Context, action, entityID string) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{Action: action, Entity: "rate", EntityID: entityID, At: s.now()}
	if actor := shared.ActorFromContext(ctx); actor != nil {
		log.ActorID = actor.MemberID
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit rates", slog.String("action", action), slog.Any("error", err))
	}
}
