// Package draftstore holds the per-user pending issue drafts. The store
// is process-local and ephemeral: it starts empty and nothing survives a
// restart. Each owner holds at most one draft; a new Put for the same
// owner replaces the previous draft outright.
package draftstore

import (
	"sync"

	"github.com/wooix/ideabot/internal/issue"
)

// Store maps an owner ID to its single pending draft.
type Store struct {
	mu     sync.Mutex
	drafts map[int64]*issue.Draft
}

// New returns an empty store.
func New() *Store {
	return &Store{drafts: make(map[int64]*issue.Draft)}
}

// Put stores the draft for its owner, replacing any existing one.
// Last write wins; there is no merging.
func (s *Store) Put(d *issue.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.OwnerID] = d
}

// Get returns the pending draft for an owner, if any.
func (s *Store) Get(ownerID int64) (*issue.Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[ownerID]
	return d, ok
}

// Remove clears the pending draft for an owner. Removing an absent owner
// is a no-op.
func (s *Store) Remove(ownerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, ownerID)
}

// Len reports how many owners currently hold a pending draft.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}
