package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventinator/internal/db"
)

const uniqueViolation = "23505"

// PostgresStore is the canonical Store implementation.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByUID(ctx context.Context, uid string) (*User, error) {
	return s.getBy(ctx, `
		SELECT uid, username, COALESCE(email, ''), COALESCE(timezone, ''), COALESCE(external_id, '')
		FROM users
		WHERE uid = $1
	`, uid)
}

func (s *PostgresStore) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	return s.getBy(ctx, `
		SELECT uid, username, COALESCE(email, ''), COALESCE(timezone, ''), COALESCE(external_id, '')
		FROM users
		WHERE external_id = $1
	`, externalID)
}

func (s *PostgresStore) getBy(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.UID,
		&u.Username,
		&u.Email,
		&u.Timezone,
		&u.ExternalID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: lookup failed: %w", err)
	}
	return &u, nil
}

// Upsert is a single conditional insert-or-update keyed on the external_id
// uniqueness constraint. Two racing inserts for the same external_id both
// succeed and both return the same winning row.
func (s *PostgresStore) Upsert(ctx context.Context, u User) (*User, error) {
	if u.UID == "" || u.Username == "" || u.ExternalID == "" {
		return nil, errors.New("users: upsert requires uid, username and external_id")
	}

	var out User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (uid, username, external_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE
		SET username = EXCLUDED.username
		RETURNING uid, username, COALESCE(email, ''), COALESCE(timezone, ''), COALESCE(external_id, '')
	`, u.UID, u.Username, u.ExternalID).Scan(
		&out.UID,
		&out.Username,
		&out.Email,
		&out.Timezone,
		&out.ExternalID,
	)
	if err != nil {
		// A violation here is on a constraint other than external_id
		// (the conflict target absorbs that one).
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("users: upsert failed: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, u User) error {
	if u.UID == "" || u.Username == "" {
		return errors.New("users: insert requires uid and username")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (uid, username, email)
		VALUES ($1, $2, NULLIF($3, ''))
	`, u.UID, u.Username, u.Email)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("users: insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUsername(ctx context.Context, uid string, username string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $2, updated_at = NOW() WHERE uid = $1
	`, uid, username)
	if err != nil {
		return fmt.Errorf("users: username update failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTimezone(ctx context.Context, uid string, timezone string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET timezone = $2, updated_at = NOW() WHERE uid = $1
	`, uid, timezone)
	if err != nil {
		return fmt.Errorf("users: timezone update failed: %w", err)
	}
	return nil
}
