package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"eventinator/internal/auth"
)

const providerName = "discord"

// Provider implements OAuth authentication against Discord. Discord is not
// an OIDC issuer: identity comes from the bearer-token profile endpoint,
// not from a verifiable id_token.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBaseURL  string
	httpClient  *http.Client

	// retryInterval seeds the backoff used for transient profile-endpoint
	// failures. Overridable in tests.
	retryInterval time.Duration
}

func New(
	clientID string,
	clientSecret string,
	redirectURL string,
	apiBaseURL string,
) (*Provider, error) {

	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("discord oauth config missing required fields")
	}
	if apiBaseURL == "" {
		return nil, errors.New("discord api base url missing")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  apiBaseURL + "/oauth2/authorize",
			TokenURL: apiBaseURL + "/oauth2/token",
		},
		Scopes: []string{"identify"},
	}

	return &Provider{
		oauthConfig:   oauthCfg,
		apiBaseURL:    apiBaseURL,
		httpClient:    http.DefaultClient,
		retryInterval: 100 * time.Millisecond,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode exchanges the authorization code and returns a normalized
// claim built from the profile endpoint.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Claim, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("discord token exchange failed: %w", err)
	}

	return p.FetchIdentity(ctx, token.AccessToken)
}

// FetchIdentity calls the profile endpoint with the bearer token and maps
// the result into a claim. A missing token means the user never completed
// the provider's login flow. Transient failures (timeouts, 5xx) are retried
// with exponential backoff; a rejected token is not.
func (p *Provider) FetchIdentity(
	ctx context.Context,
	accessToken string,
) (*auth.Claim, error) {

	if accessToken == "" {
		return nil, fmt.Errorf("%w: no discord access token", auth.ErrUnauthenticated)
	}

	policy := backoff.WithContext(p.retryPolicy(), ctx)

	var profile struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}

	fetch := func() error {
		req, err := http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			p.apiBaseURL+"/users/@me",
			nil,
		)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err // network error, retryable
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(fmt.Errorf(
				"%w: discord rejected token (%d)",
				auth.ErrUnauthenticated, resp.StatusCode,
			))
		case resp.StatusCode >= 500:
			return fmt.Errorf("discord profile endpoint returned %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf(
				"discord profile endpoint returned %d", resp.StatusCode,
			))
		}

		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return backoff.Permanent(fmt.Errorf("discord profile decode failed: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(fetch, policy); err != nil {
		return nil, err
	}

	if profile.ID == "" || profile.Username == "" {
		return nil, errors.New("discord profile missing required fields")
	}

	return &auth.Claim{
		Provider:    providerName,
		ExternalID:  profile.ID,
		DisplayName: profile.Username,
	}, nil
}

func (p *Provider) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	return backoff.WithMaxRetries(b, 3)
}
