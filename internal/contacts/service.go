package contacts

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/member-hub/member-hub/internal/shared"
)

// ErrAlreadyVerified signals the address needs no further verification.
// Handlers translate it to an empty success response.
var ErrAlreadyVerified = errors.New("address already verified")

// defaultCodeTTL bounds how long a verification code stays redeemable.
const defaultCodeTTL = 15 * time.Minute

// RepositoryPort defines data access methods for contact addresses.
type RepositoryPort interface {
	InsertAddress(ctx context.Context, a Address) (Address, error)
	FindByText(ctx context.Context, text string) (Address, error)
	ListForMember(ctx context.Context, memberID string) ([]Address, error)
	MarkVerified(ctx context.Context, id int64) error
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles contact address business logic. Verification codes are
// held in redis under a TTL, keyed by address text, as a sha512 digest of
// text plus code so the stored value is useless on its own.
type Service struct {
	repo    RepositoryPort
	rdb     *redis.Client
	audit   AuditPort
	logger  *slog.Logger
	codeTTL time.Duration
	newCode func() int
	now     func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, rdb *redis.Client, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		rdb:     rdb,
		audit:   audit,
		logger:  logger,
		codeTTL: defaultCodeTTL,
		newCode: func() int { return 10000 + rand.IntN(90000) },
		now:     time.Now,
	}
}

// WithClock overrides the clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCodeSource overrides code generation, used by tests.
func (s *Service) WithCodeSource(fn func() int) *Service {
	s.newCode = fn
	return s
}

// WithCodeTTL overrides how long verification codes live.
func (s *Service) WithCodeTTL(ttl time.Duration) *Service {
	if ttl > 0 {
		s.codeTTL = ttl
	}
	return s
}

// AddressInput carries the fields accepted when attaching an address.
type AddressInput struct {
	Type  string
	Label string
	Text  string
}

// AddAddress attaches a new unverified address to a member.
func (s *Service) AddAddress(ctx context.Context, memberID string, in AddressInput) (Address, error) {
	if memberID == "" {
		return Address{}, shared.InvalidValueError{Field: "memberID", Reason: "required"}
	}
	if !ValidType(in.Type) {
		return Address{}, shared.InvalidValueError{Field: "type", Reason: "must be EMAIL, PHONE or POSTAL"}
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Address{}, shared.InvalidValueError{Field: "text", Reason: "required"}
	}
	if in.Type == TypeEmail && !strings.Contains(text, "@") {
		return Address{}, shared.InvalidValueError{Field: "text", Reason: "not an email address"}
	}

	address, err := s.repo.InsertAddress(ctx, Address{
		MemberID:  memberID,
		Type:      in.Type,
		Label:     strings.TrimSpace(in.Label),
		Text:      text,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Address{}, err
	}

	s.record(ctx, "contact.add", address)
	return address, nil
}

// ListAddresses returns every address on file for a member.
func (s *Service) ListAddresses(ctx context.Context, memberID string) ([]Address, error) {
	return s.repo.ListForMember(ctx, memberID)
}

// StartVerification issues a fresh verification code for the address and
// stores its token under a TTL. Returns ErrAlreadyVerified when there is
// nothing to do. The caller decides how the code reaches the member.
func (s *Service) StartVerification(ctx context.Context, text string) (int, Address, error) {
	address, err := s.repo.FindByText(ctx, text)
	if err != nil {
		return 0, Address{}, err
	}
	if address.Verified {
		return 0, address, ErrAlreadyVerified
	}

	code := s.newCode()
	key := shared.VerifyTokenKey(address.Text)
	if err := s.rdb.Set(ctx, key, verifyToken(address.Text, code), s.codeTTL).Err(); err != nil {
		return 0, Address{}, err
	}
	return code, address, nil
}

// ConfirmVerification redeems a code previously issued for the address.
// A wrong or expired code is an invalid value, never a hint about which.
func (s *Service) ConfirmVerification(ctx context.Context, text string, code int) error {
	address, err := s.repo.FindByText(ctx, text)
	if err != nil {
		return err
	}
	if address.Verified {
		return ErrAlreadyVerified
	}

	key := shared.VerifyTokenKey(address.Text)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.InvalidValueError{Field: "code", Reason: "wrong or expired"}
		}
		return err
	}
	if stored != verifyToken(address.Text, code) {
		return shared.InvalidValueError{Field: "code", Reason: "wrong or expired"}
	}

	if err := s.repo.MarkVerified(ctx, address.ID); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil && s.logger != nil {
		s.logger.Warn("delete verify token", slog.Any("error", err))
	}

	s.record(ctx, "contact.verify", address)
	return nil
}

func (s *Service) record(ctx context.Context, action string, address Address) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		Action:   action,
		Entity:   "address",
		EntityID: strconv.FormatInt(address.ID, 10),
		At:       s.now(),
	}
	if actor := shared.ActorFromContext(ctx); actor != nil {
		log.ActorID = actor.MemberID
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit contact", slog.String("action", action), slog.Any("error", err))
	}
}

func verifyToken(text string, code int) string {
	sum := sha512.Sum512([]byte(text + strconv.Itoa(code)))
	return hex.EncodeToString(sum[:])
}
