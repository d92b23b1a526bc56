package session

import (
	"context"
	"testing"
	"time"
)

type memSessionStore struct {
	sessions map[string]Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]Session)}
}

func (m *memSessionStore) Create(ctx context.Context, s Session) error {
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessionStore) Delete(ctx context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

func TestIssueBindsUserWithTTL(t *testing.T) {
	store := newMemSessionStore()
	issuer := NewIssuer(store, time.Hour)
	base := time.Unix(1700000000, 0)
	issuer.now = func() time.Time { return base }

	s, err := issuer.Issue(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if s.UserID != "uid-1" {
		t.Fatalf("session bound to %q", s.UserID)
	}
	if s.SessionID == "" {
		t.Fatalf("expected opaque credential")
	}
	if !s.ExpiresAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", s.ExpiresAt)
	}

	stored, err := store.Get(context.Background(), s.SessionID)
	if err != nil || stored == nil {
		t.Fatalf("session not persisted: %v", err)
	}
}

func TestIssueRejectsEmptyUID(t *testing.T) {
	issuer := NewIssuer(newMemSessionStore(), time.Hour)
	if _, err := issuer.Issue(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty uid")
	}
}

func TestIssueCredentialsAreUnique(t *testing.T) {
	issuer := NewIssuer(newMemSessionStore(), time.Hour)
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		s, err := issuer.Issue(context.Background(), "uid-1")
		if err != nil {
			t.Fatalf("issue failed: %v", err)
		}
		if _, dup := seen[s.SessionID]; dup {
			t.Fatalf("duplicate credential %q", s.SessionID)
		}
		seen[s.SessionID] = struct{}{}
	}
}

func TestInvalidateDestroysSession(t *testing.T) {
	store := newMemSessionStore()
	issuer := NewIssuer(store, time.Hour)

	s, err := issuer.Issue(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := issuer.Invalidate(context.Background(), s.SessionID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	stored, err := store.Get(context.Background(), s.SessionID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored != nil {
		t.Fatalf("session still present after invalidation")
	}

	// Invalidating again or with no credential is a no-op.
	if err := issuer.Invalidate(context.Background(), s.SessionID); err != nil {
		t.Fatalf("repeat invalidate failed: %v", err)
	}
	if err := issuer.Invalidate(context.Background(), ""); err != nil {
		t.Fatalf("empty invalidate failed: %v", err)
	}
}
