package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/stretchr/testify/require"
)

func testTokens() *websession.TokenSet {
	return &websession.TokenSet{
		AccessToken: "access-1",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func TestFetchProfile(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":   "sub-1",
			"email": "john.doe@example.com",
			"name":  "John Doe",
		})
	}))
	defer server.Close()

	resolver := identity.NewResolver(server.URL)
	profile, err := resolver.FetchProfile(context.Background(), testTokens())
	require.NoError(t, err)
	require.Equal(t, "Bearer access-1", gotAuth)
	require.Equal(t, "john.doe@example.com", profile.Email)
	require.Equal(t, "John Doe", profile.Name)
}

func TestFetchProfileRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resolver := identity.NewResolver(server.URL)
	_, err := resolver.FetchProfile(context.Background(), testTokens())
	require.ErrorIs(t, err, identity.ProfileFetchErr)
}

func TestFetchProfileTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	resolver := identity.NewResolver(server.URL)
	_, err := resolver.FetchProfile(context.Background(), testTokens())
	require.ErrorIs(t, err, identity.ProfileFetchErr)
}

func TestFetchProfileWithoutAccessToken(t *testing.T) {
	resolver := identity.NewResolver("http://localhost:0")

	_, err := resolver.FetchProfile(context.Background(), nil)
	require.ErrorIs(t, err, identity.ProfileFetchErr)

	_, err = resolver.FetchProfile(context.Background(), &websession.TokenSet{})
	require.ErrorIs(t, err, identity.ProfileFetchErr)
}
