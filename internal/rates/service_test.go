package rates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/member-hub/member-hub/internal/shared"
)

type mockRepository struct {
	rates  []Rate
	bands  map[string]Band
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{bands: map[string]Band{}}
}

func (m *mockRepository) InsertRate(ctx context.Context, rate Rate) (Rate, error) {
	m.nextID++
	rate.ID = m.nextID
	m.rates = append(m.rates, rate)
	return rate, nil
}

func (m *mockRepository) ListRates(ctx context.Context) ([]Rate, error) {
	return m.rates, nil
}

func (m *mockRepository) ActiveRate(ctx context.Context, asOf time.Time) (Rate, error) {
	var best *Rate
	for i := range m.rates {
		r := &m.rates[i]
		if !r.ActiveAt(asOf) {
			continue
		}
		if best == nil || r.StartsOn.After(best.StartsOn) {
			best = r
		}
	}
	if best == nil {
		return Rate{}, shared.NotFoundError{Resource: "rate", Key: asOf.Format("2006-01-02")}
	}
	return *best, nil
}

func (m *mockRepository) InsertBand(ctx context.Context, b Band) (Band, error) {
	if _, exists := m.bands[b.Code]; exists {
		return Band{}, shared.InvalidValueError{Field: "code", Reason: "band code already exists"}
	}
	m.nextID++
	b.ID = m.nextID
	m.bands[b.Code] = b
	return b, nil
}

func (m *mockRepository) ListBands(ctx context.Context) ([]Band, error) {
	var out []Band
	for _, b := range m.bands {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockRepository) GetBandByCode(ctx context.Context, code string) (Band, error) {
	b, ok := m.bands[code]
	if !ok {
		return Band{}, shared.NotFoundError{Resource: "band", Key: code}
	}
	return b, nil
}

var quoteTime = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepository) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil).WithClock(func() time.Time { return quoteTime })
	return svc, repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNetAmount(t *testing.T) {
	rate := Rate{Amount: 20, Multiplier: 1.1, Charge: 0.5}
	assert.InDelta(t, 22.5, rate.NetAmount(), 1e-9)
}

func TestCreateRateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.June, 1), EndsOn: day(2024, time.January, 1),
		Amount: 20, Multiplier: 1,
	})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: 20, Multiplier: 0,
	})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: -1, Multiplier: 1,
	})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	rate, err := svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: 20, Multiplier: 1.1, Charge: 0.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 22.5, rate.NetAmount(), 1e-9)
}

func TestQuoteBareRate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: 20, Multiplier: 1, Charge: 2,
	})
	require.NoError(t, err)

	quote, err := svc.QuoteAmount(ctx, "")
	require.NoError(t, err)
	assert.InDelta(t, 22, quote.Amount, 1e-9)
	assert.Nil(t, quote.Band)
}

func TestQuoteWithBand(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: 20, Multiplier: 1, Charge: 0,
	})
	require.NoError(t, err)

	_, err = svc.CreateBand(ctx, BandInput{
		Code: "con", Name: "Concession", Multiplier: 0.5,
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
	})
	require.NoError(t, err)

	// Lookup is case insensitive, storage is upper case.
	quote, err := svc.QuoteAmount(ctx, "con")
	require.NoError(t, err)
	assert.InDelta(t, 10, quote.Amount, 1e-9)
	require.NotNil(t, quote.Band)
	assert.Equal(t, "CON", quote.Band.Code)
}

func TestQuoteExpiredBandRejected(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: 20, Multiplier: 1,
	})
	require.NoError(t, err)

	_, err = svc.CreateBand(ctx, BandInput{
		Code: "OLD", Name: "Lapsed", Multiplier: 0.5,
		StartsOn: day(2023, time.January, 1), EndsOn: day(2024, time.January, 1),
	})
	require.NoError(t, err)

	_, err = svc.QuoteAmount(ctx, "OLD")
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestQuoteNoActiveRate(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.QuoteAmount(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestQuotePicksLatestOverlappingRate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
		Amount: 20, Multiplier: 1,
	})
	require.NoError(t, err)
	_, err = svc.CreateRate(ctx, RateInput{
		StartsOn: day(2024, time.June, 1), EndsOn: day(2025, time.June, 1),
		Amount: 25, Multiplier: 1,
	})
	require.NoError(t, err)

	quote, err := svc.QuoteAmount(ctx, "")
	require.NoError(t, err)
	assert.InDelta(t, 25, quote.Amount, 1e-9)
}

func TestCreateBandValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateBand(ctx, BandInput{
		Code: "TOOLONG", Name: "Bad", Multiplier: 1,
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
	})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.CreateBand(ctx, BandInput{
		Code: "FAM", Name: strings.Repeat(" ", 4), Multiplier: 1,
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
	})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.CreateBand(ctx, BandInput{
		Code: "FAM", Name: "Family", Multiplier: 0,
		StartsOn: day(2024, time.January, 1), EndsOn: day(2025, time.January, 1),
	})
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestRateWindowIsExclusive(t *testing.T) {
	rate := Rate{StartsOn: day(2024, time.January, 1), EndsOn: day(2024, time.February, 1)}

	assert.False(t, rate.ActiveAt(day(2024, time.January, 1)))
	assert.True(t, rate.ActiveAt(day(2024, time.January, 2)))
	assert.True(t, rate.ActiveAt(day(2024, time.January, 31)))
	assert.False(t, rate.ActiveAt(day(2024, time.February, 1)))
}
