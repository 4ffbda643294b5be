package monitor

import "sync"

// Key is the composite identity of a question submission. The same asker id
// with a new time stamp is a new question.
type Key struct {
	ID        string
	TimeStamp string
}

// ProcessedSet remembers every question already seen. It only grows.
type ProcessedSet struct {
	mu   sync.Mutex
	seen map[Key]struct{}
}

// NewProcessedSet returns an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{seen: make(map[Key]struct{})}
}

// Add marks k as processed and reports whether it was new.
func (s *ProcessedSet) Add(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Contains reports whether k has been seen.
func (s *ProcessedSet) Contains(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[k]
	return ok
}

// Len returns the number of identities seen.
func (s *ProcessedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
