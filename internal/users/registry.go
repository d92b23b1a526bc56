package users

import (
	"context"
	"errors"
	"fmt"

	"eventinator/internal/auth"
)

// reconcile retries after an unresolvable uniqueness conflict. Each retry
// re-reads; nothing is ever re-inserted.
const maxReconcileAttempts = 3

// IDSource mints uids for third-party rows. Satisfied by
// snowflake.Generator.
type IDSource interface {
	Next() (string, error)
}

// Registry maps identity claims onto authoritative local users, creating
// or refreshing the backing row as needed. It is the only writer of user
// rows besides the post-registration timezone update.
type Registry struct {
	store Store
	ids   IDSource
}

func NewRegistry(store Store, ids IDSource) *Registry {
	return &Registry{store: store, ids: ids}
}

// Reconcile resolves claim to its canonical User.
//
// A known identity with an unchanged display name performs zero writes.
// A divergent display name is written through. An unknown discord identity
// gets a freshly minted uid via a single atomic upsert, so two racing
// calls for the same external_id converge on one row. An unknown password
// identity is inserted under the provider-issued uid; the provider is
// authoritative there and no id is minted.
func (r *Registry) Reconcile(ctx context.Context, claim auth.Claim) (*User, error) {
	if claim.ExternalID == "" || claim.DisplayName == "" {
		return nil, errors.New("users: claim missing identity fields")
	}

	var lastErr error
	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		var (
			u   *User
			err error
		)
		switch claim.Provider {
		case auth.ProviderDiscord:
			u, err = r.reconcileDiscord(ctx, claim)
		case auth.ProviderPassword:
			u, err = r.reconcilePassword(ctx, claim)
		default:
			return nil, fmt.Errorf("users: unknown claim provider %q", claim.Provider)
		}

		if errors.Is(err, ErrConflict) {
			// Lost a race on a constraint the upsert could not
			// absorb; the row now exists, so the next attempt
			// takes the lookup path.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, lastErr
}

func (r *Registry) reconcileDiscord(ctx context.Context, claim auth.Claim) (*User, error) {
	u, err := r.store.GetByExternalID(ctx, claim.ExternalID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return r.refresh(ctx, u, claim.DisplayName)
	}

	uid, err := r.ids.Next()
	if err != nil {
		return nil, fmt.Errorf("users: uid mint failed: %w", err)
	}

	return r.store.Upsert(ctx, User{
		UID:        uid,
		Username:   claim.DisplayName,
		ExternalID: claim.ExternalID,
	})
}

func (r *Registry) reconcilePassword(ctx context.Context, claim auth.Claim) (*User, error) {
	u, err := r.store.GetByUID(ctx, claim.ExternalID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return r.refresh(ctx, u, claim.DisplayName)
	}

	created := User{
		UID:      claim.ExternalID,
		Username: claim.DisplayName,
		Email:    claim.Email,
	}
	if err := r.store.Insert(ctx, created); err != nil {
		return nil, err
	}
	return &created, nil
}

// refresh writes the claimed display name through when it diverges from
// the stored one. Email and timezone are never touched here.
func (r *Registry) refresh(ctx context.Context, u *User, displayName string) (*User, error) {
	if u.Username == displayName {
		return u, nil
	}
	if err := r.store.UpdateUsername(ctx, u.UID, displayName); err != nil {
		return nil, err
	}
	u.Username = displayName
	return u, nil
}
