package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/member-hub/member-hub/internal/contacts"
	"github.com/member-hub/member-hub/internal/members"
	"github.com/member-hub/member-hub/internal/shared"
)

type mockRepository struct {
	credentials map[string]Credential
	sessions    map[string]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{credentials: map[string]Credential{}, sessions: map[string]string{}}
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	for _, c := range m.credentials {
		if c.Email == email {
			cred := c
			return &cred, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockRepository) UpsertCredential(ctx context.Context, c Credential) error {
	for id, existing := range m.credentials {
		if existing.Email == c.Email && id != c.MemberID {
			return shared.InvalidValueError{Field: "email", Reason: "already in use"}
		}
	}
	m.credentials[c.MemberID] = c
	return nil
}

func (m *mockRepository) CreateSession(ctx context.Context, id, memberID string, expiresAt time.Time, ip, ua string) error {
	m.sessions[id] = memberID
	return nil
}

func (m *mockRepository) DeleteSession(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type mockAddresses struct {
	addresses map[string]contacts.Address
}

func (m *mockAddresses) FindByText(ctx context.Context, text string) (contacts.Address, error) {
	a, ok := m.addresses[text]
	if !ok {
		return contacts.Address{}, shared.NotFoundError{Resource: "address", Key: text}
	}
	return a, nil
}

// testMemberID is a valid id for October 2020, sequence 1.
var testMemberID = members.FormatID(members.Bucket(time.Date(2020, time.October, 1, 0, 0, 0, 0, time.UTC)), 1)

func newTestService(addresses map[string]contacts.Address) (*Service, *mockRepository) {
	repo := newMockRepository()
	svc := NewService(repo, &mockAddresses{addresses: addresses})
	return svc, repo
}

func TestAuthenticate(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.credentials[testMemberID] = Credential{
		MemberID:     testMemberID,
		Email:        "billy@example.org",
		PasswordHash: string(hash),
		IsActive:     true,
	}

	cred, err := svc.Authenticate(ctx, "billy@example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, testMemberID, cred.MemberID)

	_, err = svc.Authenticate(ctx, "billy@example.org", "wrong password")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.org", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveCredential(t *testing.T) {
	svc, repo := newTestService(nil)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.credentials[testMemberID] = Credential{
		MemberID:     testMemberID,
		Email:        "billy@example.org",
		PasswordHash: string(hash),
		IsActive:     false,
	}

	_, err = svc.Authenticate(context.Background(), "billy@example.org", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSetCredentialValidation(t *testing.T) {
	svc, repo := newTestService(nil)
	ctx := context.Background()

	err := svc.SetCredential(ctx, "X99123499", "billy@example.org", "long enough")
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	err = svc.SetCredential(ctx, testMemberID, "not-an-email", "long enough")
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	err = svc.SetCredential(ctx, testMemberID, "billy@example.org", "short")
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	err = svc.SetCredential(ctx, testMemberID, " Billy@Example.org ", "long enough")
	require.NoError(t, err)

	cred := repo.credentials[testMemberID]
	assert.Equal(t, "billy@example.org", cred.Email)
	assert.True(t, cred.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("long enough")))
}

func TestClaimAccountRequiresVerifiedEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("verified address on the member", func(t *testing.T) {
		svc, repo := newTestService(map[string]contacts.Address{
			"billy@example.org": {MemberID: testMemberID, Type: contacts.TypeEmail, Text: "billy@example.org", Verified: true},
		})
		require.NoError(t, svc.ClaimAccount(ctx, testMemberID, "billy@example.org", "long enough"))
		assert.Contains(t, repo.credentials, testMemberID)
	})

	t.Run("unverified address", func(t *testing.T) {
		svc, _ := newTestService(map[string]contacts.Address{
			"billy@example.org": {MemberID: testMemberID, Type: contacts.TypeEmail, Text: "billy@example.org"},
		})
		err := svc.ClaimAccount(ctx, testMemberID, "billy@example.org", "long enough")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("someone else's address", func(t *testing.T) {
		otherID := members.FormatID(members.Bucket(time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)), 7)
		svc, _ := newTestService(map[string]contacts.Address{
			"billy@example.org": {MemberID: otherID, Type: contacts.TypeEmail, Text: "billy@example.org", Verified: true},
		})
		err := svc.ClaimAccount(ctx, testMemberID, "billy@example.org", "long enough")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("unknown address", func(t *testing.T) {
		svc, _ := newTestService(nil)
		err := svc.ClaimAccount(ctx, testMemberID, "billy@example.org", "long enough")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})
}
