package core

import (
	"context"

	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

// Identity is the verified caller of an authenticated request.
type Identity struct {
	UserID domain.UserID
	Claims map[string]any
}

// IdentityProvider validates bearer credentials.
type IdentityProvider interface {
	// Verify resolves token to an identity or fails with
	// ErrUnauthenticated.
	Verify(ctx context.Context, token string) (Identity, error)
}
