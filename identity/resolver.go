// Package identity fetches the authenticated user's profile from the
// provider's userinfo endpoint.
package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/pkg/errors"
)

// ProfileFetchErr covers any transport or authorization failure against the
// userinfo endpoint. The resolver never retries internally; the caller
// decides between a forced refresh-and-retry and re-authorization.
var ProfileFetchErr = errors.New("profile fetch failed")

const fetchTimeout = 10 * time.Second

// Profile is the provider's view of the authenticated user
type Profile struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Resolver calls the provider's userinfo endpoint with bearer credentials
type Resolver struct {
	userinfoURL string
	httpClient  *http.Client
}

// NewResolver creates a Resolver for the given userinfo endpoint
func NewResolver(userinfoURL string) *Resolver {
	return &Resolver{
		userinfoURL: userinfoURL,
		httpClient:  &http.Client{Timeout: fetchTimeout},
	}
}

// FetchProfile applies the token set as bearer credentials and requests the
// profile. A rejected token (clock skew, external revocation) surfaces as
// ProfileFetchErr like any transport failure.
func (r *Resolver) FetchProfile(ctx context.Context, tokens *websession.TokenSet) (*Profile, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, errors.Wrap(ProfileFetchErr, "no access token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.userinfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(ProfileFetchErr, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(ProfileFetchErr, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ProfileFetchErr, "userinfo endpoint returned %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.Wrap(ProfileFetchErr, err.Error())
	}
	return &profile, nil
}
