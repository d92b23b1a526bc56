package passwd

import (
	"context"
	"errors"
	"time"

	"eventinator/internal/auth"
)

var (
	ErrInvalidCredentials = errors.New("passwd: invalid credentials")
	ErrAlreadyRegistered  = errors.New("passwd: account already exists")
)

// ProviderUser is the identity the password provider asserts after a
// successful account creation or credential check. The provider is
// authoritative for its uid; the registry reuses it as the local uid.
type ProviderUser struct {
	UID         string
	DisplayName string
	Email       string
}

// ProviderSession is the provider-held session primitive. The provider
// can invalidate it independently of the local session.
type ProviderSession struct {
	Cookie    string
	ExpiresAt time.Time
}

// Provider is the managed password-based identity provider. Credential
// storage and verification live entirely behind this contract.
type Provider interface {
	// CreateUser registers a new account. A duplicate account fails
	// with ErrAlreadyRegistered.
	CreateUser(ctx context.Context, username, email, password string) (*ProviderUser, error)

	// AuthenticateUser verifies credentials and opens a provider-held
	// session. Bad credentials fail with ErrInvalidCredentials.
	AuthenticateUser(ctx context.Context, email, password string) (*ProviderUser, *ProviderSession, error)

	// DeleteSessionCookie invalidates the provider-held session.
	// Idempotent.
	DeleteSessionCookie(ctx context.Context, cookie string) error
}

// Claim maps the provider's asserted identity into the normalized claim
// consumed by the user registry.
func Claim(u ProviderUser) auth.Claim {
	return auth.Claim{
		Provider:    auth.ProviderPassword,
		ExternalID:  u.UID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
	}
}
