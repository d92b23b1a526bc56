package passwd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"eventinator/internal/db"
	"eventinator/internal/utils"
)

const (
	providerSessionPrefix = "passwd-session:"
	providerSessionTTL    = time.Hour
)

// ManagedProvider implements Provider with bcrypt-hashed credentials in
// postgres and provider-held sessions in redis. It models the remote
// managed identity provider the rest of the system delegates to, so
// nothing outside this package may touch its tables.
type ManagedProvider struct {
	db       *db.DB
	sessions *goredis.Client
	now      func() time.Time
}

func NewManagedProvider(db *db.DB, sessions *goredis.Client) *ManagedProvider {
	return &ManagedProvider{
		db:       db,
		sessions: sessions,
		now:      time.Now,
	}
}

func (p *ManagedProvider) CreateUser(
	ctx context.Context,
	username, email, password string,
) (*ProviderUser, error) {

	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email required", ErrInvalidCredentials)
	}

	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM provider_accounts WHERE LOWER(email) = LOWER($1)
		)
	`, email).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	hash, version, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	uid := uuid.NewString()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO provider_accounts (uid, username, email, password_hash, hash_version)
		VALUES ($1, $2, $3, $4, $5)
	`, uid, username, email, hash, version)
	if err != nil {
		return nil, err
	}

	return &ProviderUser{
		UID:         uid,
		DisplayName: username,
		Email:       email,
	}, nil
}

func (p *ManagedProvider) AuthenticateUser(
	ctx context.Context,
	email, password string,
) (*ProviderUser, *ProviderSession, error) {

	var (
		user ProviderUser
		hash string
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT uid, username, email, password_hash
		FROM provider_accounts
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&user.UID, &user.DisplayName, &user.Email, &hash)
	if err == sql.ErrNoRows {
		// hide whether the account exists
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := VerifyPassword(hash, password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	cookie := utils.RandomString(32)
	expiresAt := p.now().Add(providerSessionTTL)
	err = p.sessions.Set(
		ctx,
		providerSessionPrefix+cookie,
		user.UID,
		providerSessionTTL,
	).Err()
	if err != nil {
		return nil, nil, err
	}

	return &user, &ProviderSession{
		Cookie:    cookie,
		ExpiresAt: expiresAt,
	}, nil
}

func (p *ManagedProvider) DeleteSessionCookie(ctx context.Context, cookie string) error {
	if cookie == "" {
		return nil
	}
	return p.sessions.Del(ctx, providerSessionPrefix+cookie).Err()
}
