package users

import (
	"context"
	"errors"
)

// ErrConflict is returned when a write trips a uniqueness constraint the
// store cannot absorb on its own. Callers must resolve it by re-reading
// and updating, never by re-inserting.
var ErrConflict = errors.New("users: uniqueness conflict")

// Store is the durable row store behind the registry. All user writes go
// through it; implementations must make Upsert a single atomic
// insert-or-update keyed on the external_id uniqueness constraint so that
// racing reconciliations converge on one row.
type Store interface {
	// GetByUID returns the row with the given uid, or nil when absent.
	GetByUID(ctx context.Context, uid string) (*User, error)

	// GetByExternalID returns the row with the given third-party
	// identifier, or nil when absent.
	GetByExternalID(ctx context.Context, externalID string) (*User, error)

	// Upsert atomically inserts u or, if a row with u.ExternalID already
	// exists, updates that row's username in place. It returns the
	// authoritative row, which on a lost race is the winner's. A
	// uniqueness violation on any other constraint returns ErrConflict.
	Upsert(ctx context.Context, u User) (*User, error)

	// Insert adds a password-path row whose uid the provider issued.
	// A duplicate uid returns ErrConflict.
	Insert(ctx context.Context, u User) error

	// UpdateUsername rewrites the stored display name for uid.
	UpdateUsername(ctx context.Context, uid string, username string) error

	// UpdateTimezone sets the post-registration timezone for uid.
	UpdateTimezone(ctx context.Context, uid string, timezone string) error
}
