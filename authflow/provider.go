package authflow

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Identity holds the claims extracted from a verified identity token.
// Email is only populated after the token's signature and audience have
// been checked.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Provider abstracts the external authorization server. The production
// implementation wraps golang.org/x/oauth2 and go-oidc; tests substitute a
// fake so no flow logic depends on the network.
type Provider interface {
	// AuthCodeURL builds the authorization redirect URL for the given state
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// Exchange swaps an authorization code for a token set
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// VerifyIDToken checks the raw identity token's signature and audience
	// and returns its claims. A token that fails verification must never
	// yield an Identity.
	VerifyIDToken(ctx context.Context, rawIDToken string) (*Identity, error)

	// Refresh exchanges a refresh credential for a new access token
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// Revoke asks the provider to invalidate a token. Best effort.
	Revoke(ctx context.Context, token string) error
}

const revokeTimeout = 10 * time.Second

// OIDCProvider implements Provider against a real OIDC authorization server
// discovered from its issuer URL.
type OIDCProvider struct {
	oauthConfig   *oauth2.Config
	verifier      *oidc.IDTokenVerifier
	revocationURL string
	httpClient    *http.Client
}

var _ Provider = (*OIDCProvider)(nil)

// NewOIDCProvider discovers the issuer's endpoints and builds the immutable
// client configuration. Nothing here is mutated after construction, so one
// instance is safe to share across requests.
func NewOIDCProvider(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL, revocationURL string, scopes []string) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCProvider] oidc.NewProvider")
	}

	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	return &OIDCProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
		verifier:      provider.Verifier(&oidc.Config{ClientID: clientID}),
		revocationURL: revocationURL,
		httpClient:    &http.Client{Timeout: revokeTimeout},
	}, nil
}

func (p *OIDCProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Exchange] oauthConfig.Exchange")
	}
	return token, nil
}

func (p *OIDCProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.VerifyIDToken] verifier.Verify")
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.VerifyIDToken] idToken.Claims")
	}
	if claims.Email == "" {
		return nil, errors.New("[OIDCProvider.VerifyIDToken] identity token has no email claim")
	}

	return &Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

func (p *OIDCProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// A TokenSource seeded with only a refresh token always performs the
	// refresh grant on the first Token call.
	source := p.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCProvider.Refresh] source.Token")
	}
	return token, nil
}

func (p *OIDCProvider) Revoke(ctx context.Context, token string) error {
	if p.revocationURL == "" {
		return errors.New("[OIDCProvider.Revoke] no revocation endpoint configured")
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "[OIDCProvider.Revoke] http.NewRequestWithContext")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[OIDCProvider.Revoke] httpClient.Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("[OIDCProvider.Revoke] revocation endpoint returned %d", resp.StatusCode)
	}
	return nil
}
