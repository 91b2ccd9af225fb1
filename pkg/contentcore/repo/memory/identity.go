package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// IdentityStore implements contentcore.IdentityStore over an in-memory
// user map. Tests seed it with PutUser.
type IdentityStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*contentcore.User
}

// NewIdentityStore creates an empty in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{users: make(map[uuid.UUID]*contentcore.User)}
}

// PutUser adds or replaces a user.
func (s *IdentityStore) PutUser(user *contentcore.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *user
	s.users[user.ID] = &cp
}

func (s *IdentityStore) GetUser(ctx context.Context, id uuid.UUID) (*contentcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, &contentcore.NotFoundError{Resource: "user"}
	}
	cp := *user
	return &cp, nil
}
