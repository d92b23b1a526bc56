package session

import (
	"net/http"
	"time"
)

// CookieName carries the local session credential. The __Host- prefix ties
// the cookie to this origin: Secure, Path=/, no Domain attribute.
const CookieName = "__Host-session"

// CookieOptions controls the transport attributes of issued session
// cookies. Path, HttpOnly and the empty Domain are fixed by the __Host-
// contract and not configurable.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/", // required for __Host-
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// SetCookie issues the session cookie to the client.
func SetCookie(
	w http.ResponseWriter,
	sessionID string,
	expiresAt time.Time,
	opts CookieOptions,
) {
	c := opts.cookie(sessionID)
	c.Expires = expiresAt
	http.SetCookie(w, c)
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	c := opts.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}
