package middleware

import (
	"context"
	"net/http"
	"time"

	"eventinator/internal/auth"
	"eventinator/internal/session"
	"eventinator/internal/users"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// AuthMiddleware is the gate in front of protected operations. It admits a
// request only with a valid, unexpired session bound to a user that still
// exists; every other outcome fails closed.
type AuthMiddleware struct {
	Sessions session.Store
	Users    users.Store

	// now is the clock for expiry checks. Overridable in tests.
	now func() time.Time
}

func NewAuthMiddleware(sessions session.Store, userStore users.Store) *AuthMiddleware {
	return &AuthMiddleware{
		Sessions: sessions,
		Users:    userStore,
		now:      time.Now,
	}
}

// Check resolves the request's session cookie to a user uid, or reports
// auth.ErrUnauthenticated. Expired sessions are deleted on sight.
func (a *AuthMiddleware) Check(r *http.Request) (string, error) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return "", auth.ErrUnauthenticated
	}

	sessionID := cookie.Value

	sess, err := a.Sessions.Get(r.Context(), sessionID)
	if err != nil || sess == nil {
		return "", auth.ErrUnauthenticated
	}

	if a.now().After(sess.ExpiresAt) {
		_ = a.Sessions.Delete(r.Context(), sessionID)
		return "", auth.ErrUnauthenticated
	}

	// The session must resolve to a live user row; a dangling uid is as
	// unauthenticated as no session at all.
	u, err := a.Users.GetByUID(r.Context(), sess.UserID)
	if err != nil || u == nil {
		return "", auth.ErrUnauthenticated
	}

	return u.UID, nil
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := a.Check(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
