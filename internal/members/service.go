package members

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/member-hub/member-hub/internal/shared"
)

// maxIDAttempts bounds retries when a generated id collides with a
// concurrently issued one.
const maxIDAttempts = 3

// RepositoryPort defines data access methods for members.
type RepositoryPort interface {
	NextSequence(ctx context.Context, bucket string) (int, error)
	InsertPerson(ctx context.Context, p Person) error
	GetPerson(ctx context.Context, id string) (Person, error)
	ListPersons(ctx context.Context, limit, offset int) ([]Person, int, error)
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RetryObserver counts id-generation retries, usually backed by prometheus.
type RetryObserver interface {
	ObserveIDRetry()
}

// Service handles member business logic.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	logger  *slog.Logger
	retries RetryObserver
	now     func() time.Time
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

// WithRetryObserver attaches a metrics hook for sequence conflicts.
func (s *Service) WithRetryObserver(obs RetryObserver) *Service {
	s.retries = obs
	return s
}

// CreateInput carries the fields accepted at registration.
type CreateInput struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
}

// CreateMember registers a new person, generating their member id. The
// sequence reservation is atomic per bucket; a collision on insert is
// retried with a freshly reserved sequence up to maxIDAttempts times.
func (s *Service) CreateMember(ctx context.Context, in CreateInput) (Person, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" {
		return Person{}, shared.InvalidValueError{Field: "firstName", Reason: "required"}
	}
	if last == "" {
		return Person{}, shared.InvalidValueError{Field: "lastName", Reason: "required"}
	}

	createdAt := s.now()
	if in.DateOfBirth != nil && in.DateOfBirth.After(createdAt) {
		return Person{}, shared.InvalidValueError{Field: "dateOfBirth", Reason: "in the future"}
	}

	bucket := Bucket(createdAt)

	var person Person
	for attempt := 1; ; attempt++ {
		seq, err := s.repo.NextSequence(ctx, bucket)
		if err != nil {
			return Person{}, err
		}

		person = Person{
			ID:          FormatID(bucket, seq),
			FirstName:   first,
			LastName:    last,
			DateOfBirth: in.DateOfBirth,
			CreatedAt:   createdAt,
		}

		err = s.repo.InsertPerson(ctx, person)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrSequenceConflict) {
			return Person{}, err
		}
		if s.retries != nil {
			s.retries.ObserveIDRetry()
		}
		if attempt >= maxIDAttempts {
			return Person{}, fmt.Errorf("members: giving up after %d attempts: %w", attempt, shared.ErrSequenceConflict)
		}
		if s.logger != nil {
			s.logger.Warn("member id collision, retrying",
				slog.String("bucket", bucket), slog.Int("attempt", attempt))
		}
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID(ctx),
			Action:   "member.create",
			Entity:   "member",
			EntityID: person.ID,
			At:       createdAt,
		}); err != nil && s.logger != nil {
			s.logger.Warn("audit member create", slog.Any("error", err))
		}
	}

	return person, nil
}

// GetMember fetches a member by id, validating its checksum first so
// obviously malformed ids never reach the database.
func (s *Service) GetMember(ctx context.Context, id string) (Person, error) {
	if !VerifyID(id) {
		return Person{}, shared.InvalidValueError{Field: "id", Reason: "checksum mismatch"}
	}
	return s.repo.GetPerson(ctx, id)
}

// ListMembers returns a page of members with pagination metadata.
func (s *Service) ListMembers(ctx context.Context, page, perPage int) ([]Person, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	people, total, err := s.repo.ListPersons(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return people, shared.NewPagination(page, perPage, total), nil
}

func actorID(ctx context.Context) string {
	if actor := shared.ActorFromContext(ctx); actor != nil {
		return actor.MemberID
	}
	return ""
}
