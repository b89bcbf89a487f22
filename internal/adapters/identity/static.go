// Package identity provides the token verification adapter.
package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

// Static verifies bearer tokens against an in-process registry. It
// stands in for an external identity provider; the rest of the system
// only sees the core.IdentityProvider port.
type Static struct {
	mu     sync.RWMutex
	tokens map[string]core.Identity
}

func NewStatic(seed map[string]domain.UserID) *Static {
	s := &Static{tokens: make(map[string]core.Identity)}
	for token, uid := range seed {
		s.tokens[token] = core.Identity{UserID: uid}
	}
	return s
}

func (s *Static) Verify(ctx context.Context, token string) (core.Identity, error) {
	if token == "" {
		return core.Identity{}, core.ErrUnauthenticated
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return core.Identity{}, core.ErrUnauthenticated
	}
	return id, nil
}

// Issue mints a token for uid. Used by dev tooling and tests.
func (s *Static) Issue(uid domain.UserID, claims map[string]any) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = core.Identity{UserID: uid, Claims: claims}
	s.mu.Unlock()
	log.Debug().Str("module", "identity.static").Str("user", string(uid)).Msg("issued token")
	return token
}
