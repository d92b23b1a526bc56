package session

import (
	"context"
	"fmt"
	"time"
)

// Issuer mints sessions bound to a user uid and destroys them again. The
// validity window is fixed at construction; a session never returns to the
// issued state without a fresh login.
type Issuer struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue creates a session bound to uid with an opaque credential.
func (i *Issuer) Issue(ctx context.Context, uid string) (Session, error) {
	if uid == "" {
		return Session{}, fmt.Errorf("session: cannot issue for empty uid")
	}

	id, err := GenerateID()
	if err != nil {
		return Session{}, err
	}

	s := Session{
		SessionID: id,
		UserID:    uid,
		ExpiresAt: i.now().Add(i.ttl),
	}
	if err := i.store.Create(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Invalidate destroys the session. Idempotent.
func (i *Issuer) Invalidate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return i.store.Delete(ctx, sessionID)
}
