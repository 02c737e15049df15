package screen

import (
	"sync"
	"time"

	"github.com/kjstillabower/weatherview/internal/models"
)

// Store owns the screen's single snapshot. Writes replace the snapshot
// wholesale and are last-write-wins; subscribers observe every write.
type Store struct {
	mu       sync.RWMutex
	snap     models.Snapshot
	subs     map[int]func(models.Snapshot)
	nextID   int
	detached bool
	now      func() time.Time
}

// NewStore returns an attached store holding an empty snapshot.
func NewStore() *Store {
	return &Store{
		subs: make(map[int]func(models.Snapshot)),
		now:  time.Now,
	}
}

// Get returns the current snapshot.
func (s *Store) Get() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Set replaces the snapshot and notifies subscribers. Writes to a detached
// store are dropped and Set reports false.
func (s *Store) Set(snap models.Snapshot) bool {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return false
	}
	snap.UpdatedAt = s.now()
	s.snap = snap
	subs := make([]func(models.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// Subscribe registers fn for every subsequent write. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(models.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Attach clears the snapshot and starts accepting writes again.
func (s *Store) Attach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = false
	s.snap = models.Snapshot{}
}

// Detach discards the snapshot; late writes from in-flight fetches are ignored.
func (s *Store) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
	s.snap = models.Snapshot{}
}
