package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/authguard/authguard/internal/interfaces"
	"github.com/authguard/authguard/internal/model"
)

// Common errors that can be returned by a credential store
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// MemoryCredentialStore keeps credentials in a mutex-guarded map. It is the
// default backend; credential durability is out of scope for the reference
// deployment.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	creds map[string]model.Credential

	now func() time.Time
}

// Verify that MemoryCredentialStore implements CredentialStore
var _ interfaces.CredentialStore = (*MemoryCredentialStore)(nil)

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		creds: make(map[string]model.Credential),
		now:   time.Now,
	}
}

// Create stores a new credential. The existence check and the insert happen
// under one lock so concurrent registrations for the same username cannot
// both succeed.
func (s *MemoryCredentialStore) Create(ctx context.Context, username, passwordHash, email string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.creds[username]; exists {
		return nil, ErrDuplicateUsername
	}

	cred := model.Credential{
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		CreatedAt:    s.now(),
	}
	s.creds[username] = cred

	out := cred
	return &out, nil
}

// Get returns a copy of the stored credential so callers cannot mutate the
// store's record.
func (s *MemoryCredentialStore) Get(ctx context.Context, username string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.creds[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	out := cred
	return &out, nil
}
