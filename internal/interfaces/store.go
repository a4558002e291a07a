package interfaces

import (
	"context"

	"github.com/authguard/authguard/internal/model"
)

// CredentialStore defines the storage operations for registered credentials.
// Implementations must make Create atomic with respect to its own existence
// check: two concurrent creates for the same username must not both succeed.
type CredentialStore interface {
	Create(ctx context.Context, username, passwordHash, email string) (*model.Credential, error)
	Get(ctx context.Context, username string) (*model.Credential, error)
}
