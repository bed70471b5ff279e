package alert

import (
	"sync"
	"testing"
	"time"

	"twstock-line-bot/internal/types"

	"github.com/shopspring/decimal"
)

func rule(userID, symbol string, threshold int64, dir types.Direction) types.AlertRule {
	return types.AlertRule{
		UserID:    userID,
		Symbol:    symbol,
		Threshold: decimal.NewFromInt(threshold),
		Direction: dir,
		CreatedAt: time.Now(),
	}
}

func TestStoreAddAndSnapshot(t *testing.T) {
	s := NewStore()
	s.Add(rule("U1", "2330", 800, types.Above))
	s.Add(rule("U1", "2317", 90, types.Below))
	s.Add(rule("U2", "2330", 700, types.Above))

	if got := s.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}
	if got := len(s.Snapshot()); got != 3 {
		t.Fatalf("Snapshot has %d rules, want 3", got)
	}
	if got := len(s.ListUser("U1")); got != 2 {
		t.Fatalf("ListUser(U1) has %d rules, want 2", got)
	}
	if got := len(s.ListUser("U3")); got != 0 {
		t.Fatalf("ListUser(U3) has %d rules, want 0", got)
	}
}

func TestStoreKeepsDuplicates(t *testing.T) {
	s := NewStore()
	s.Add(rule("U1", "2330", 800, types.Above))
	s.Add(rule("U1", "2330", 800, types.Above))
	if got := s.Len(); got != 2 {
		t.Errorf("Len = %d, want 2 (duplicates kept)", got)
	}
}

func TestStoreClearUser(t *testing.T) {
	s := NewStore()
	s.Add(rule("U1", "2330", 800, types.Above))
	s.Add(rule("U1", "2317", 90, types.Below))
	s.Add(rule("U2", "2330", 700, types.Above))

	if removed := s.ClearUser("U1"); removed != 2 {
		t.Errorf("ClearUser removed %d, want 2", removed)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len after clear = %d, want 1", got)
	}
	if removed := s.ClearUser("U1"); removed != 0 {
		t.Errorf("second clear removed %d, want 0", removed)
	}
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Add(rule("U1", "2330", 800, types.Above))

	snap := s.Snapshot()
	snap[0].Symbol = "mutated"

	if got := s.Snapshot()[0].Symbol; got != "2330" {
		t.Errorf("store rule symbol = %q, mutation leaked through snapshot", got)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(rule("U1", "2330", 800, types.Above))
			s.Snapshot()
			s.ListUser("U1")
			s.Len()
		}()
	}
	wg.Wait()

	if got := s.Len(); got != 20 {
		t.Errorf("Len = %d, want 20", got)
	}
}
