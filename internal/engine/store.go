package engine

import (
	"sync"
	"time"

	"retail-intel/internal/models"
)

// Store owns the current recommendation set between refresh cycles. The
// engine computes; the store holds. Recommendations are never persisted
// server-side: the set is replaced wholesale on every refresh.
type Store struct {
	mu   sync.RWMutex
	recs []models.Recommendation
}

// NewStore creates an empty recommendation store.
func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a freshly evaluated recommendation set.
func (s *Store) Replace(recs []models.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs = make([]models.Recommendation, len(recs))
	copy(s.recs, recs)
}

// All returns a copy of the held set in its current order.
func (s *Store) All() []models.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Recommendation, len(s.recs))
	copy(out, s.recs)
	return out
}

// Len returns the number of held recommendations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

// MarkImplemented removes a recommendation the user has acted on. It returns
// false when the id is not in the held set.
func (s *Store) MarkImplemented(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.recs {
		if r.ID == id {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return true
		}
	}
	return false
}

// SweepExpired removes recommendations whose expiry has passed and returns
// how many were dropped.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.recs[:0]
	removed := 0
	for _, r := range s.recs {
		if r.IsExpired(now) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.recs = kept
	return removed
}

// ByPriority filters the held set by priority.
func (s *Store) ByPriority(p models.Priority) []models.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Recommendation
	for _, r := range s.recs {
		if r.Priority == p {
			out = append(out, r)
		}
	}
	return out
}

// ByType filters the held set by recommendation type.
func (s *Store) ByType(t models.RecommendationType) []models.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Recommendation
	for _, r := range s.recs {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}
