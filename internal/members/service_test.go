package members

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/member-hub/member-hub/internal/shared"
)

type mockRepository struct {
	mu       sync.Mutex
	counters map[string]int
	people   map[string]Person

	// Error injection
	seqErr          error
	insertConflicts int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		counters: make(map[string]int),
		people:   make(map[string]Person),
	}
}

func (m *mockRepository) NextSequence(ctx context.Context, bucket string) (int, error) {
	if m.seqErr != nil {
		return 0, m.seqErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[bucket]++
	return m.counters[bucket], nil
}

func (m *mockRepository) InsertPerson(ctx context.Context, p Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertConflicts > 0 {
		m.insertConflicts--
		return shared.ErrSequenceConflict
	}
	if _, exists := m.people[p.ID]; exists {
		return shared.ErrSequenceConflict
	}
	m.people[p.ID] = p
	return nil
}

func (m *mockRepository) GetPerson(ctx context.Context, id string) (Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return Person{}, shared.NotFoundError{Resource: "member", Key: id}
	}
	return p, nil
}

func (m *mockRepository) ListPersons(ctx context.Context, limit, offset int) ([]Person, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	people := make([]Person, 0, len(m.people))
	for _, p := range m.people {
		people = append(people, p)
	}
	if offset > len(people) {
		offset = len(people)
	}
	end := offset + limit
	if end > len(people) {
		end = len(people)
	}
	return people[offset:end], len(m.people), nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateMemberGeneratesVerifiableID(t *testing.T) {
	repo := newMockRepository()
	createdAt := time.Date(2020, time.October, 21, 10, 0, 0, 0, time.UTC)
	svc := NewService(repo, nil, nil).WithClock(fixedClock(createdAt))

	person, err := svc.CreateMember(context.Background(), CreateInput{FirstName: "billy", LastName: "nomates"})
	require.NoError(t, err)

	assert.Equal(t, "K20", person.ID[:3])
	assert.True(t, VerifyID(person.ID), "id %s should verify", person.ID)
	assert.Equal(t, "Billy Nomates", person.FullName())
	assert.Equal(t, createdAt, person.CreatedAt)
}

func TestCreateMemberValidation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateMember(context.Background(), CreateInput{FirstName: "", LastName: "nomates"})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	_, err = svc.CreateMember(context.Background(), CreateInput{FirstName: "billy", LastName: "  "})
	require.ErrorIs(t, err, shared.ErrInvalidValue)

	future := time.Now().AddDate(1, 0, 0)
	_, err = svc.CreateMember(context.Background(), CreateInput{FirstName: "billy", LastName: "nomates", DateOfBirth: &future})
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestCreateMemberRetriesOnSequenceConflict(t *testing.T) {
	repo := newMockRepository()
	repo.insertConflicts = 2
	svc := NewService(repo, nil, nil)

	person, err := svc.CreateMember(context.Background(), CreateInput{FirstName: "anne", LastName: "person"})
	require.NoError(t, err)
	assert.True(t, VerifyID(person.ID))

	// Two conflicts plus the success consumed three sequence numbers.
	bucket := Bucket(person.CreatedAt)
	assert.Equal(t, 3, repo.counters[bucket])
}

func TestCreateMemberGivesUpAfterBoundedRetries(t *testing.T) {
	repo := newMockRepository()
	repo.insertConflicts = maxIDAttempts
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateMember(context.Background(), CreateInput{FirstName: "anne", LastName: "person"})
	require.ErrorIs(t, err, shared.ErrSequenceConflict)
}

func TestConcurrentRegistrationsYieldUniqueIDs(t *testing.T) {
	const registrations = 50
	const workers = 8

	repo := newMockRepository()
	createdAt := time.Date(2021, time.March, 3, 9, 0, 0, 0, time.UTC)
	svc := NewService(repo, nil, nil).WithClock(fixedClock(createdAt))

	var mu sync.Mutex
	ids := make(map[string]bool)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < registrations; i++ {
		g.Go(func() error {
			person, err := svc.CreateMember(context.Background(), CreateInput{FirstName: "row", LastName: "member"})
			if err != nil {
				return err
			}
			mu.Lock()
			ids[person.ID] = true
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Len(t, ids, registrations, "every registration must receive a distinct id")
	for id := range ids {
		assert.True(t, VerifyID(id), "id %s should carry a valid checksum", id)
		assert.Equal(t, "D21", id[:3])
	}
}

func TestGetMemberRejectsBadChecksum(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	_, err := svc.GetMember(context.Background(), "B20000999")
	require.ErrorIs(t, err, shared.ErrInvalidValue)
}

func TestGetMemberNotFound(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	id := FormatID("B20", 7)
	_, err := svc.GetMember(context.Background(), id)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAgeComputation(t *testing.T) {
	dob := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := Person{DateOfBirth: &dob}
	assert.Equal(t, 10, p.Age(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))

	leap := time.Date(2012, time.February, 29, 0, 0, 0, 0, time.UTC)
	p = Person{DateOfBirth: &leap}
	assert.Equal(t, 8, p.Age(time.Date(2021, time.February, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9, p.Age(time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, -1, Person{}.Age(time.Now()))
}
