package session

import (
	"context"
	"time"
)

// Session binds an opaque credential to a user for a fixed validity
// window. It is created at login, destroyed at logout or expiry, and
// never otherwise mutated.
type Session struct {
	SessionID string    // opaque credential handed to the client
	UserID    string    // references users.uid
	ExpiresAt time.Time // absolute expiry time
}

// Store defines how sessions are stored and retrieved.
// Implementations (e.g., Redis) must remain stateless and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
