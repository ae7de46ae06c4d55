package contacts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/member-hub/member-hub/internal/shared"
)

type mockRepository struct {
	mu        sync.Mutex
	nextID    int64
	addresses map[int64]Address
}

func newMockRepository() *mockRepository {
	return &mockRepository{addresses: map[int64]Address{}}
}

func (m *mockRepository) InsertAddress(ctx context.Context, a Address) (Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.addresses {
		if existing.Text == a.Text {
			return Address{}, shared.InvalidValueError{Field: "text", Reason: "address already registered"}
		}
	}
	m.nextID++
	a.ID = m.nextID
	m.addresses[a.ID] = a
	return a, nil
}

func (m *mockRepository) FindByText(ctx context.Context, text string) (Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.addresses {
		if a.Text == text {
			return a, nil
		}
	}
	return Address{}, shared.NotFoundError{Resource: "address", Key: text}
}

func (m *mockRepository) ListForMember(ctx context.Context, memberID string) ([]Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Address
	for _, a := range m.addresses {
		if a.MemberID == memberID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepository) MarkVerified(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok {
		return shared.NotFoundError{Resource: "address", Key: ""}
	}
	a.Verified = true
	m.addresses[id] = a
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newMockRepository()
	svc := NewService(repo, rdb, nil, nil).
		WithClock(func() time.Time { return time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC) })
	return svc, repo, mr
}

func TestAddAddressValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddAddress(ctx, "C20000011", AddressInput{Type: "CARRIER_PIGEON", Text: "roof"})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypeEmail, Text: "   "})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypeEmail, Text: "not-an-email"})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.AddAddress(ctx, "", AddressInput{Type: TypePhone, Text: "07700900123"})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	address, err := svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypeEmail, Label: " Home ", Text: " billy@example.org "})
	require.NoError(t, err)
	assert.Equal(t, "billy@example.org", address.Text)
	assert.Equal(t, "Home", address.Label)
	assert.False(t, address.Verified)
}

func TestVerificationRoundTrip(t *testing.T) {
	svc, repo, _ := newTestService(t)
	svc.WithCodeSource(func() int { return 43210 })
	ctx := context.Background()

	_, err := svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypeEmail, Text: "billy@example.org"})
	require.NoError(t, err)

	code, address, err := svc.StartVerification(ctx, "billy@example.org")
	require.NoError(t, err)
	assert.Equal(t, 43210, code)
	assert.Equal(t, TypeEmail, address.Type)

	// Wrong code is rejected without revealing why.
	err = svc.ConfirmVerification(ctx, "billy@example.org", 11111)
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	require.NoError(t, svc.ConfirmVerification(ctx, "billy@example.org", 43210))

	stored, err := repo.FindByText(ctx, "billy@example.org")
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	// A second confirmation has nothing left to do.
	err = svc.ConfirmVerification(ctx, "billy@example.org", 43210)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerificationUnknownAddress(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.StartVerification(context.Background(), "nobody@example.org")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestVerificationAlreadyVerified(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	address, err := svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypePhone, Text: "07700900123"})
	require.NoError(t, err)
	require.NoError(t, repo.MarkVerified(ctx, address.ID))

	_, _, err = svc.StartVerification(ctx, "07700900123")
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerificationCodeExpires(t *testing.T) {
	svc, _, mr := newTestService(t)
	svc.WithCodeSource(func() int { return 55555 }).WithCodeTTL(time.Minute)
	ctx := context.Background()

	_, err := svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypeEmail, Text: "billy@example.org"})
	require.NoError(t, err)

	_, _, err = svc.StartVerification(ctx, "billy@example.org")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	err = svc.ConfirmVerification(ctx, "billy@example.org", 55555)
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestDuplicateAddressRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddAddress(ctx, "C20000011", AddressInput{Type: TypeEmail, Text: "billy@example.org"})
	require.NoError(t, err)

	_, err = svc.AddAddress(ctx, "D21000152", AddressInput{Type: TypeEmail, Text: "billy@example.org"})
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}
