package certificate

import (
	"context"
	"sort"
	"sync"

	"github.com/p-n-ai/pai-academy/internal/platform/apperr"
)

// Store persists issued certificates. Create rejects a second certificate of
// the same kind for a (user, course) pair and any reused number or code with
// an apperr Conflict.
type Store interface {
	Create(ctx context.Context, cert *Certificate) error
	Find(ctx context.Context, userID, courseID, kind string) (*Certificate, bool, error)
	GetByVerificationCode(ctx context.Context, code string) (*Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]Certificate, error)
}

type issuedKey struct{ userID, courseID, kind string }

// MemoryStore is an in-memory Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.RWMutex
	byKey   map[issuedKey]*Certificate
	byCode  map[string]*Certificate
	numbers map[string]bool
}

// NewMemoryStore creates an empty in-memory certificate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:   make(map[issuedKey]*Certificate),
		byCode:  make(map[string]*Certificate),
		numbers: make(map[string]bool),
	}
}

func (s *MemoryStore) Create(_ context.Context, cert *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := issuedKey{cert.UserID, cert.CourseID, cert.Kind}
	if _, exists := s.byKey[k]; exists {
		return apperr.New(domain, "Create", apperr.ErrConflict, "certificate already issued")
	}
	if _, exists := s.byCode[cert.VerificationCode]; exists || s.numbers[cert.Number] {
		return apperr.New(domain, "Create", apperr.ErrConflict, "certificate number or code already used")
	}

	c := *cert
	s.byKey[k] = &c
	s.byCode[c.VerificationCode] = &c
	s.numbers[c.Number] = true
	return nil
}

func (s *MemoryStore) Find(_ context.Context, userID, courseID, kind string) (*Certificate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byKey[issuedKey{userID, courseID, kind}]
	if !ok {
		return nil, false, nil
	}
	out := *c
	return &out, true, nil
}

func (s *MemoryStore) GetByVerificationCode(_ context.Context, code string) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byCode[code]
	if !ok {
		return nil, apperr.NotFound(domain, "GetByVerificationCode", "certificate")
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Certificate
	for k, c := range s.byKey {
		if k.userID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}
