package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/member-hub/member-hub/internal/contacts"
	"github.com/member-hub/member-hub/internal/members"
	"github.com/member-hub/member-hub/internal/shared"
)

// AddressSource looks up contact addresses, implemented by contacts.Repository.
type AddressSource interface {
	FindByText(ctx context.Context, text string) (contacts.Address, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	addresses AddressSource
}

// NewService constructs a new Service.
func NewService(repo Repository, addresses AddressSource) *Service {
	return &Service{repo: repo, addresses: addresses}
}

// Authenticate validates email/password credentials. Every failure mode
// collapses into ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !cred.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return cred, nil
}

// SetCredential creates or replaces a member's login. The member id must
// carry a valid checksum, so a typo cannot orphan a credential.
func (s *Service) SetCredential(ctx context.Context, memberID, email, password string) error {
	if !members.VerifyID(memberID) {
		return shared.InvalidValueError{Field: "memberID", Reason: "checksum mismatch"}
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return shared.InvalidValueError{Field: "email", Reason: "not an email address"}
	}
	if len(password) < 8 {
		return shared.InvalidValueError{Field: "password", Reason: "at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpsertCredential(ctx, Credential{
		MemberID:     memberID,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		UpdatedAt:    time.Now().UTC(),
	})
}

// ClaimAccount lets a member create their own login. The email must be a
// verified address already on their record, which proves they control it.
func (s *Service) ClaimAccount(ctx context.Context, memberID, email, password string) error {
	if !members.VerifyID(memberID) {
		return shared.InvalidValueError{Field: "memberID", Reason: "checksum mismatch"}
	}
	email = strings.TrimSpace(strings.ToLower(email))

	address, err := s.addresses.FindByText(ctx, email)
	if err != nil {
		return shared.ErrInvalidCredentials
	}
	if address.MemberID != memberID || address.Type != contacts.TypeEmail || !address.Verified {
		return shared.ErrInvalidCredentials
	}
	return s.SetCredential(ctx, memberID, email, password)
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, memberID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, memberID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
