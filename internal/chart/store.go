package chart

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Store holds rendered chart artifacts in memory until they expire.
// Artifacts are content-addressed so re-rendering identical data reuses
// the same URL.
type Store struct {
	mu    sync.Mutex
	items map[string]storedArtifact
	ttl   time.Duration
}

type storedArtifact struct {
	data       []byte
	expiration time.Time
}

// NewStore creates an artifact store. ttl <= 0 defaults to 10 minutes.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		items: make(map[string]storedArtifact),
		ttl:   ttl,
	}
}

// Put stores a chart image and its preview, returning the artifact id.
// The image is served as "<id>.png" and the preview as "<id>_preview.png".
func (s *Store) Put(image, preview []byte) string {
	sum := sha256.Sum256(image)
	id := hex.EncodeToString(sum[:8])
	expiration := time.Now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.items[id+".png"] = storedArtifact{data: image, expiration: expiration}
	s.items[id+"_preview.png"] = storedArtifact{data: preview, expiration: expiration}
	return id
}

// Get returns a stored artifact by file name.
func (s *Store) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, found := s.items[name]
	if !found || time.Now().After(item.expiration) {
		return nil, false
	}
	return item.data, true
}

func (s *Store) sweepLocked() {
	now := time.Now()
	for name, item := range s.items {
		if now.After(item.expiration) {
			delete(s.items, name)
		}
	}
}
