package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventinator/internal/auth"
	"eventinator/internal/auth/passwd"
	"eventinator/internal/auth/provider"
	"eventinator/internal/middleware"
	"eventinator/internal/session"
	"eventinator/internal/users"
)

// providerCookieName carries the password provider's own session cookie so
// logout can ask the provider to invalidate it.
const providerCookieName = "__Host-passwd-session"

// Handler is the single boundary between HTTP and the auth core. Every
// error kind the core raises surfaces here as a re-authentication
// challenge; nothing proceeds past a failed component.
type Handler struct {
	providers *provider.Registry
	passwd    passwd.Provider
	registry  *users.Registry
	userStore users.Store
	issuer    *session.Issuer
	log       *zap.Logger
}

func NewHandler(
	providers *provider.Registry,
	passwdProvider passwd.Provider,
	registry *users.Registry,
	userStore users.Store,
	issuer *session.Issuer,
	log *zap.Logger,
) *Handler {
	return &Handler{
		providers: providers,
		passwd:    passwdProvider,
		registry:  registry,
		userStore: userStore,
		issuer:    issuer,
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.oauthLogin)
	r.GET("/oauth/callback/:provider", h.oauthCallback)
	r.POST("/users/new", h.Register)
	r.POST("/users/login", h.Login)
	r.POST("/users/logout", h.Logout)
}

// RegisterProtectedRoutes mounts the session-gated API.
func (h *Handler) RegisterProtectedRoutes(api *gin.RouterGroup) {
	api.GET("/me", h.Me)
	api.PUT("/me/timezone", h.UpdateTimezone)
}

func (h *Handler) oauthLogin(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	state, codeChallenge := beginFlow(c)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) oauthCallback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	codeVerifier, ok := consumeFlow(c)
	if !ok {
		h.challengeWeb(c)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		h.log.Warn("oauth callback returned error",
			zap.String("provider", providerName),
			zap.String("error", errParam),
			zap.String("desc", c.Query("error_description")),
		)
		c.Redirect(http.StatusFound, "/")
		return
	}

	code := c.Query("code")
	if code == "" {
		h.log.Error("oauth callback missing code and error")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	claim, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		h.log.Warn("oauth exchange failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		h.challengeWeb(c)
		return
	}

	h.finishLogin(c, *claim, nil)
}

// finishLogin reconciles the claim, issues the local session and sets the
// cookies. providerSession is non-nil on the password path only.
func (h *Handler) finishLogin(
	c *gin.Context,
	claim auth.Claim,
	providerSession *passwd.ProviderSession,
) {
	user, err := h.registry.Reconcile(c.Request.Context(), claim)
	if err != nil {
		h.log.Error("reconciliation failed",
			zap.String("provider", claim.Provider),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	sess, err := h.issuer.Issue(c.Request.Context(), user.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	if providerSession != nil {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     providerCookieName,
			Value:    providerSession.Cookie,
			Path:     "/",
			Expires:  providerSession.ExpiresAt,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	h.log.Info("login succeeded",
		zap.String("user_id", user.UID),
		zap.String("provider", claim.Provider),
		zap.String("ip", c.ClientIP()),
	)

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
		"uid":    user.UID,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	// Provider-held session first (best-effort), then the local one.
	if cookie, err := c.Request.Cookie(providerCookieName); err == nil && cookie.Value != "" {
		if err := h.passwd.DeleteSessionCookie(c.Request.Context(), cookie.Value); err != nil {
			h.log.Warn("provider session delete failed", zap.Error(err))
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     providerCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		_ = h.issuer.Invalidate(c.Request.Context(), cookie.Value)
	}

	session.ClearCookie(c.Writer, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		h.challenge(c)
		return
	}

	user, err := h.userStore.GetByUID(c.Request.Context(), uid)
	if err != nil || user == nil {
		h.challenge(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":      user.UID,
		"username": user.Username,
		"email":    user.Email,
		"timezone": user.Timezone,
	})
}

type timezoneRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

// UpdateTimezone is the one post-registration mutation the user row
// allows outside reconciliation.
func (h *Handler) UpdateTimezone(c *gin.Context) {
	uid, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		h.challenge(c)
		return
	}

	var req timezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.userStore.UpdateTimezone(c.Request.Context(), uid, req.Timezone); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update timezone"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// challenge converts an unauthenticated outcome on a JSON endpoint into a
// 401. Fail closed: the request never proceeds.
func (h *Handler) challenge(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
}

// challengeWeb is the browser-flow counterpart: send the user back to the
// landing page to start a fresh login.
func (h *Handler) challengeWeb(c *gin.Context) {
	c.Redirect(http.StatusFound, "/")
}

// isUnauthenticated reports whether err is one of the credential-rejection
// kinds the boundary maps to a challenge rather than a 5xx.
func isUnauthenticated(err error) bool {
	return errors.Is(err, auth.ErrUnauthenticated) ||
		errors.Is(err, passwd.ErrInvalidCredentials)
}
