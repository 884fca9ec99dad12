package progress

import (
	"context"
	"sync"
	"time"
)

// Store persists progress records. Update is the only read-then-write path and
// is serialized per (user, course) key.
type Store interface {
	// Get returns the record and whether it exists.
	Get(ctx context.Context, userID, courseID string) (*Progress, bool, error)
	// GetOrCreate returns the record, creating an empty one on first access.
	GetOrCreate(ctx context.Context, userID, courseID string) (*Progress, error)
	// Save overwrites the record.
	Save(ctx context.Context, p *Progress) error
	// Update applies fn to the current record under the key's lock and persists
	// the result. If fn returns an error nothing is written.
	Update(ctx context.Context, userID, courseID string, fn func(*Progress) error) (*Progress, error)
	// ListByCourse returns every record of a course.
	ListByCourse(ctx context.Context, courseID string) ([]*Progress, error)
}

type key struct{ userID, courseID string }

// MemoryStore is an in-memory Store with per-key locks.
type MemoryStore struct {
	records map[key]*Progress
	locks   map[key]*sync.Mutex
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[key]*Progress),
		locks:   make(map[key]*sync.Mutex),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID, courseID string) (*Progress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[key{userID, courseID}]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID, courseID string) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(key{userID, courseID}).Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, p *Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := p.Clone()
	c.UpdatedAt = time.Now()
	s.records[key{p.UserID, p.CourseID}] = c
	return nil
}

func (s *MemoryStore) Update(_ context.Context, userID, courseID string, fn func(*Progress) error) (*Progress, error) {
	k := key{userID, courseID}
	lock := s.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.records[k]
	s.mu.RUnlock()

	// A new record is only inserted when fn succeeds.
	var working *Progress
	if ok {
		working = current.Clone()
	} else {
		working = New(userID, courseID)
	}

	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()

	s.mu.Lock()
	s.records[k] = working.Clone()
	s.mu.Unlock()

	return working, nil
}

func (s *MemoryStore) ListByCourse(_ context.Context, courseID string) ([]*Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Progress
	for k, p := range s.records {
		if k.courseID == courseID {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) lockFor(k key) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

// getOrCreateLocked must be called with s.mu held for writing.
func (s *MemoryStore) getOrCreateLocked(k key) *Progress {
	p, ok := s.records[k]
	if !ok {
		p = New(k.userID, k.courseID)
		s.records[k] = p
	}
	return p
}
