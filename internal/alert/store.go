// Package alert keeps user price-alert rules in memory and checks them
// against live quotes.
package alert

import (
	"sync"

	"twstock-line-bot/internal/types"
)

// Store is the in-memory alert-rule registry. A single mutex guards both
// mutation and scan; it is never held across network calls. All state is
// lost on restart.
type Store struct {
	mu    sync.Mutex
	rules map[string][]types.AlertRule
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{rules: make(map[string][]types.AlertRule)}
}

// Add registers a rule. Duplicate rules are kept as-is; there is no
// uniqueness constraint.
func (s *Store) Add(rule types.AlertRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.UserID] = append(s.rules[rule.UserID], rule)
}

// Snapshot returns a copy of every rule. The copy is safe to iterate while
// other requests mutate the store.
func (s *Store) Snapshot() []types.AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []types.AlertRule
	for _, rules := range s.rules {
		all = append(all, rules...)
	}
	return all
}

// ListUser returns a copy of one user's rules.
func (s *Store) ListUser(userID string) []types.AlertRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := s.rules[userID]
	out := make([]types.AlertRule, len(rules))
	copy(out, rules)
	return out
}

// ClearUser removes all of a user's rules and returns how many were removed.
func (s *Store) ClearUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.rules[userID])
	delete(s.rules, userID)
	return removed
}

// Len returns the total number of stored rules.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, rules := range s.rules {
		total += len(rules)
	}
	return total
}
