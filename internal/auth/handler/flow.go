package handler

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventinator/internal/utils"
)

// One-shot cookies carry the OAuth flow's CSRF state and PKCE verifier
// between the login redirect and the provider callback. Both are expired
// the moment the callback consumes them.
const (
	stateCookieName = "__oauth_state"
	pkceCookieName  = "__oauth_pkce"
	flowCookieTTL   = 5 * time.Minute
)

// beginFlow issues the state and PKCE cookies and returns the state plus
// the S256 code challenge for the authorization URL. The verifier itself
// never leaves the cookie.
func beginFlow(c *gin.Context) (state string, codeChallenge string) {
	state = utils.RandomString(32)
	verifier := utils.RandomString(32)

	hash := sha256.Sum256([]byte(verifier))
	codeChallenge = base64.RawURLEncoding.EncodeToString(hash[:])

	setFlowCookie(c, stateCookieName, state)
	setFlowCookie(c, pkceCookieName, verifier)

	return state, codeChallenge
}

// consumeFlow checks the callback's state parameter against the state
// cookie and returns the PKCE verifier. The flow cookies are single-use:
// they expire here no matter the outcome.
func consumeFlow(c *gin.Context) (verifier string, ok bool) {
	defer clearFlowCookie(c, stateCookieName)
	defer clearFlowCookie(c, pkceCookieName)

	state := c.Query("state")
	if state == "" {
		return "", false
	}
	stateCookie, err := c.Request.Cookie(stateCookieName)
	if err != nil || stateCookie.Value != state {
		return "", false
	}

	pkceCookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil || pkceCookie.Value == "" {
		return "", false
	}
	return pkceCookie.Value, true
}

func setFlowCookie(c *gin.Context, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(flowCookieTTL.Seconds()),
	})
}

func clearFlowCookie(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
