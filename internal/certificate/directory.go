package certificate

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Directory resolves a learner's display name and email.
type Directory interface {
	Lookup(ctx context.Context, userID string) (Recipient, error)
}

// StaticDirectory is a fixed in-memory Directory. Unknown users resolve to a
// recipient named by their id with no email.
type StaticDirectory struct {
	mu     sync.RWMutex
	people map[string]Recipient
}

// NewStaticDirectory creates a directory holding the given recipients.
func NewStaticDirectory(people ...Recipient) *StaticDirectory {
	d := &StaticDirectory{people: make(map[string]Recipient, len(people))}
	for _, p := range people {
		d.people[p.UserID] = p
	}
	return d
}

// LoadStaticDirectory reads a YAML list of recipients
// (user_id, name, email). An empty path yields an empty directory.
func LoadStaticDirectory(path string) (*StaticDirectory, error) {
	if path == "" {
		return NewStaticDirectory(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var people []Recipient
	if err := yaml.Unmarshal(data, &people); err != nil {
		return nil, fmt.Errorf("parse directory %s: %w", path, err)
	}
	for i, p := range people {
		if p.UserID == "" {
			return nil, fmt.Errorf("parse directory %s: entry %d has no user_id", path, i)
		}
		people[i].Name = NormalizeName(p.Name)
	}
	return NewStaticDirectory(people...), nil
}

// Put adds or replaces a recipient.
func (d *StaticDirectory) Put(r Recipient) {
	d.mu.Lock()
	d.people[r.UserID] = r
	d.mu.Unlock()
}

func (d *StaticDirectory) Lookup(_ context.Context, userID string) (Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.people[userID]; ok {
		return r, nil
	}
	return Recipient{UserID: userID, Name: userID}, nil
}
