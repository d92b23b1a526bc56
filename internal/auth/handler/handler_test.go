package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventinator/internal/auth"
	"eventinator/internal/auth/passwd"
	"eventinator/internal/auth/provider"
	"eventinator/internal/session"
	"eventinator/internal/users"
)

type fakeUserStore struct {
	mu    sync.Mutex
	byUID map[string]*users.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byUID: make(map[string]*users.User)}
}

func (f *fakeUserStore) GetByUID(ctx context.Context, uid string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byUID[uid]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserStore) GetByExternalID(ctx context.Context, externalID string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byUID {
		if u.ExternalID == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) Upsert(ctx context.Context, u users.User) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byUID {
		if existing.ExternalID == u.ExternalID {
			existing.Username = u.Username
			cp := *existing
			return &cp, nil
		}
	}
	cp := u
	f.byUID[u.UID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUserStore) Insert(ctx context.Context, u users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.byUID[u.UID]; taken {
		return users.ErrConflict
	}
	cp := u
	f.byUID[u.UID] = &cp
	return nil
}

func (f *fakeUserStore) UpdateUsername(ctx context.Context, uid, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byUID[uid]; ok {
		u.Username = username
	}
	return nil
}

func (f *fakeUserStore) UpdateTimezone(ctx context.Context, uid, timezone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byUID[uid]; ok {
		u.Timezone = timezone
	}
	return nil
}

type fakeSessionStore struct {
	sessions map[string]session.Session
}

func (f *fakeSessionStore) Create(ctx context.Context, s session.Session) error {
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

type fakePasswdProvider struct {
	accounts map[string]passwd.ProviderUser // keyed by email
	deleted  []string
}

func (f *fakePasswdProvider) CreateUser(ctx context.Context, username, email, password string) (*passwd.ProviderUser, error) {
	if _, exists := f.accounts[email]; exists {
		return nil, passwd.ErrAlreadyRegistered
	}
	u := passwd.ProviderUser{
		UID:         "provider-" + username,
		DisplayName: username,
		Email:       email,
	}
	f.accounts[email] = u
	return &u, nil
}

func (f *fakePasswdProvider) AuthenticateUser(ctx context.Context, email, password string) (*passwd.ProviderUser, *passwd.ProviderSession, error) {
	u, ok := f.accounts[email]
	if !ok || password != "correct horse battery" {
		return nil, nil, passwd.ErrInvalidCredentials
	}
	return &u, &passwd.ProviderSession{
		Cookie:    "provider-cookie",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakePasswdProvider) DeleteSessionCookie(ctx context.Context, cookie string) error {
	f.deleted = append(f.deleted, cookie)
	return nil
}

type fixedIDs struct{ next string }

func (f *fixedIDs) Next() (string, error) { return f.next, nil }

// stubOAuthProvider stands in for discord: any code other than "good-code"
// is a failed exchange, and the verifier must have survived the flow.
type stubOAuthProvider struct {
	claim auth.Claim
}

func (s *stubOAuthProvider) Name() string { return "discord" }

func (s *stubOAuthProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://provider.example/authorize?state=" + state
}

func (s *stubOAuthProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*auth.Claim, error) {
	if code != "good-code" || codeVerifier == "" {
		return nil, auth.ErrUnauthenticated
	}
	return &s.claim, nil
}

func newTestRouter(t *testing.T, providers ...provider.OAuthProvider) (*gin.Engine, *fakeUserStore, *fakeSessionStore, *fakePasswdProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userStore := newFakeUserStore()
	sessions := &fakeSessionStore{sessions: make(map[string]session.Session)}
	passwdProvider := &fakePasswdProvider{accounts: make(map[string]passwd.ProviderUser)}

	h := NewHandler(
		provider.NewRegistry(providers...),
		passwdProvider,
		users.NewRegistry(userStore, &fixedIDs{next: "id-1"}),
		userStore,
		session.NewIssuer(sessions, time.Hour),
		zap.NewNop(),
	)

	router := gin.New()
	h.RegisterRoutes(router)
	return router, userStore, sessions, passwdProvider
}

func postJSON(router *gin.Engine, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	router, userStore, sessions, _ := newTestRouter(t)

	rec := postJSON(router, "/users/new",
		`{"username":"bob","email":"bob@example.com","password":"correct horse battery"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	u, err := userStore.GetByUID(context.Background(), "provider-bob")
	if err != nil || u == nil {
		t.Fatalf("expected user row under provider uid, got %v %v", u, err)
	}
	if u.Email != "bob@example.com" {
		t.Fatalf("password path must persist email, got %q", u.Email)
	}
	if u.ExternalID != "" {
		t.Fatalf("password path row must have no external_id")
	}

	if len(sessions.sessions) != 1 {
		t.Fatalf("expected one issued session, got %d", len(sessions.sessions))
	}

	var sessionCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			sessionCookie = true
		}
	}
	if !sessionCookie {
		t.Fatalf("expected session cookie on response")
	}
}

func TestRegisterDuplicateAccountConflicts(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	body := `{"username":"bob","email":"bob@example.com","password":"correct horse battery"}`
	if rec := postJSON(router, "/users/new", body); rec.Code != http.StatusOK {
		t.Fatalf("first signup failed: %d", rec.Code)
	}
	if rec := postJSON(router, "/users/new", body); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate account, got %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	postJSON(router, "/users/new",
		`{"username":"bob","email":"bob@example.com","password":"correct horse battery"}`)

	rec := postJSON(router, "/users/login",
		`{"email":"bob@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad credentials, got %d", rec.Code)
	}
}

func TestLoginSetsProviderCookie(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	postJSON(router, "/users/new",
		`{"username":"bob","email":"bob@example.com","password":"correct horse battery"}`)

	rec := postJSON(router, "/users/login",
		`{"email":"bob@example.com","password":"correct horse battery"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d: %s", rec.Code, rec.Body.String())
	}

	var providerCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == providerCookieName && c.Value == "provider-cookie" {
			providerCookie = true
		}
	}
	if !providerCookie {
		t.Fatalf("expected provider session cookie on response")
	}
}

func callbackRequest(state string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet,
		"/oauth/callback/discord?code=good-code&state="+state, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func flowCookies(state, verifier string) []*http.Cookie {
	return []*http.Cookie{
		{Name: stateCookieName, Value: state},
		{Name: pkceCookieName, Value: verifier},
	}
}

func TestCallbackReconcilesAndIssuesSession(t *testing.T) {
	stub := &stubOAuthProvider{claim: auth.Claim{
		Provider:    auth.ProviderDiscord,
		ExternalID:  "42",
		DisplayName: "alice",
	}}
	router, userStore, sessions, _ := newTestRouter(t, stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, callbackRequest("st1", flowCookies("st1", "verifier")...))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	u, err := userStore.GetByExternalID(context.Background(), "42")
	if err != nil || u == nil {
		t.Fatalf("expected reconciled user row, got %v %v", u, err)
	}
	if u.UID != "id-1" || u.Username != "alice" {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected one issued session, got %d", len(sessions.sessions))
	}

	var sessionCookie bool
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case session.CookieName:
			sessionCookie = c.Value != ""
		case stateCookieName, pkceCookieName:
			if c.MaxAge >= 0 {
				t.Fatalf("flow cookie %s not expired on use", c.Name)
			}
		}
	}
	if !sessionCookie {
		t.Fatalf("expected session cookie on response")
	}
}

func TestCallbackForgedStateRedirectsHome(t *testing.T) {
	stub := &stubOAuthProvider{}
	router, userStore, sessions, _ := newTestRouter(t, stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, callbackRequest("forged", flowCookies("st1", "verifier")...))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 for forged state, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("no session may be issued on a forged state")
	}
	if rows, _ := userStore.GetByExternalID(context.Background(), "42"); rows != nil {
		t.Fatalf("no user may be created on a forged state")
	}
	for _, c := range rec.Result().Cookies() {
		if (c.Name == stateCookieName || c.Name == pkceCookieName) && c.MaxAge >= 0 {
			t.Fatalf("flow cookie %s not expired after failed callback", c.Name)
		}
	}
}

func TestCallbackExchangeFailureRedirectsHome(t *testing.T) {
	stub := &stubOAuthProvider{}
	router, _, sessions, _ := newTestRouter(t, stub)

	req := httptest.NewRequest(http.MethodGet,
		"/oauth/callback/discord?code=bad-code&state=st1", nil)
	for _, c := range flowCookies("st1", "verifier") {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 for failed exchange, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("no session may be issued on a failed exchange")
	}
}

func TestLogoutIsIdempotentAndDelegates(t *testing.T) {
	router, _, sessions, passwdProvider := newTestRouter(t)

	// Logout with no cookies at all still succeeds.
	if rec := postJSON(router, "/users/logout", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	postJSON(router, "/users/new",
		`{"username":"bob","email":"bob@example.com","password":"correct horse battery"}`)
	login := postJSON(router, "/users/login",
		`{"email":"bob@example.com","password":"correct horse battery"}`)

	rec := postJSON(router, "/users/logout", "", login.Result().Cookies()...)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	if len(passwdProvider.deleted) != 1 || passwdProvider.deleted[0] != "provider-cookie" {
		t.Fatalf("expected provider session delete, got %v", passwdProvider.deleted)
	}
	if len(sessions.sessions) != 1 {
		// register issued one, login issued one, logout destroyed login's
		t.Fatalf("expected one remaining session, got %d", len(sessions.sessions))
	}
}
