package tracker

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdentityKey is the storage key the identity lives under.
const DefaultIdentityKey = "vendaflow_checkout_session_id"

// IdentityStore produces and persists one opaque session identifier per
// client, reusable across reloads until explicitly cleared after a completed
// checkout.
type IdentityStore struct {
	storage Storage
	key     string
	newID   func() (string, error)

	mu sync.Mutex
	// ephemeral carries the identity for the lifetime of the process when
	// storage is unavailable; checkout keeps working, persistence is lost.
	ephemeral string
}

func NewIdentityStore(storage Storage) *IdentityStore {
	return &IdentityStore{
		storage: storage,
		key:     DefaultIdentityKey,
		newID: func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
}

// GetOrCreateID returns the stored identity, minting and persisting a fresh
// one when none exists. It never fails: when the random source is
// unavailable it falls back to a timestamp+random string, and when storage
// writes fail the identity is kept in memory only.
func (s *IdentityStore) GetOrCreateID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage != nil {
		if value, ok, err := s.storage.Load(s.key); err == nil && ok && value != "" {
			return value
		}
	}
	if s.ephemeral != "" {
		return s.ephemeral
	}

	id, err := s.newID()
	if err != nil || id == "" {
		id = fallbackID()
	}

	if s.storage != nil {
		if err := s.storage.Store(s.key, id); err == nil {
			return id
		}
	}
	s.ephemeral = id
	return id
}

// CurrentID reports the identity without minting one.
func (s *IdentityStore) CurrentID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage != nil {
		if value, ok, err := s.storage.Load(s.key); err == nil && ok && value != "" {
			return value, true
		}
	}
	if s.ephemeral != "" {
		return s.ephemeral, true
	}
	return "", false
}

// Clear removes the stored identity so the next checkout gets a fresh one.
func (s *IdentityStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ephemeral = ""
	if s.storage != nil {
		_ = s.storage.Delete(s.key)
	}
}

func fallbackID() string {
	return fmt.Sprintf("cs_%d_%06d", time.Now().UnixNano(), rand.Intn(1_000_000))
}
