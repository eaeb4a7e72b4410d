package credentials

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore keeps credentials in process memory. It is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{credentials: map[string]Credential{}}
}

func (s *MemoryStore) Get(_ context.Context, organizationID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[organizationID]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, organizationID)
	}
	return &c, nil
}

func (s *MemoryStore) Put(_ context.Context, credential *Credential) error {
	if credential == nil || credential.OrganizationID == "" {
		return errors.New("credential without organization id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.OrganizationID] = *credential
	return nil
}
