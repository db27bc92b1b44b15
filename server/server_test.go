package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/jrsteele09/go-auth-client/authflow/providerfakes"
	credentialfakes "github.com/jrsteele09/go-auth-client/credentials/repofakes"
	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/server"
	"github.com/jrsteele09/go-auth-client/websession"
	sessionfakes "github.com/jrsteele09/go-auth-client/websession/repofakes"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testEmail        = "john.doe@example.com"
	testRefreshToken = "refresh-token-1"
	testCookieName   = "session_id"
)

// testNow anchors token expiries to the present so the session TTL check,
// which uses the wall clock, still sees the seeded sessions as live.
var testNow = time.Now().UTC().Truncate(time.Second)

type testFixture struct {
	server         *server.Server
	provider       *providerfakes.FakeProvider
	sessionRepo    *sessionfakes.FakeSessionRepo
	credentialRepo *credentialfakes.FakeCredentialRepo
	userinfo       *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	provider := providerfakes.NewFakeProvider()
	sessionRepo := sessionfakes.NewFakeSessionRepo()
	credentialRepo := credentialfakes.NewFakeCredentialRepo()

	flow, err := authflow.NewService(authflow.Repos{
		Credentials: credentialRepo,
		Sessions:    sessionRepo,
	}, provider, zerolog.Nop(), authflow.WithNowTime(func() time.Time { return testNow }))
	require.NoError(t, err)

	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"sub":   "sub-1",
			"email": testEmail,
			"name":  "John Doe",
		})
	}))
	t.Cleanup(userinfo.Close)

	srv, err := server.New(config.New(), zerolog.Nop(), sessionRepo, flow, identity.NewResolver(userinfo.URL))
	require.NoError(t, err)

	return &testFixture{
		server:         srv,
		provider:       provider,
		sessionRepo:    sessionRepo,
		credentialRepo: credentialRepo,
		userinfo:       userinfo,
	}
}

// seedSession stores a session and returns a request cookie pointing at it
func (f *testFixture) seedSession(t *testing.T, session *websession.Session) *http.Cookie {
	t.Helper()
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = testNow.Add(14 * 24 * time.Hour)
	}
	require.NoError(t, f.sessionRepo.Upsert(session))
	return &http.Cookie{Name: testCookieName, Value: session.ID}
}

func (f *testFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func authenticatedSession(expiry time.Time) *websession.Session {
	return &websession.Session{
		ID: "session-1",
		Tokens: &websession.TokenSet{
			AccessToken:  "access-1",
			RefreshToken: testRefreshToken,
			Expiry:       expiry,
		},
	}
}

func TestSignInCreatesSessionAndRedirects(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/signIn", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	// A session cookie was issued and the stored session carries the state
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, testCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	stored, err := f.sessionRepo.Get(cookies[0].Value)
	require.NoError(t, err)
	require.Equal(t, state, stored.State)
}

func TestCallbackHappyPath(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, &websession.Session{ID: "session-1", State: "S1"})

	f.provider.ExchangeFunc = func(_ context.Context, code string) (*oauth2.Token, error) {
		require.Equal(t, "C1", code)
		token := &oauth2.Token{
			AccessToken:  "A1",
			RefreshToken: "R1",
			Expiry:       testNow.Add(time.Hour),
		}
		return token.WithExtra(map[string]interface{}{"id_token": "raw-id-token"}), nil
	}
	f.provider.VerifyIDTokenFunc = func(_ context.Context, _ string) (*authflow.Identity, error) {
		return &authflow.Identity{Subject: "sub-1", Email: testEmail}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=C1&state=S1", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/profile", rec.Header().Get("Location"))

	stored, err := f.sessionRepo.Get("session-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Tokens)
	require.Equal(t, "A1", stored.Tokens.AccessToken)
	require.Equal(t, "R1", stored.Tokens.RefreshToken)
	require.Equal(t, testNow.Add(time.Hour), stored.Tokens.Expiry)
	require.Equal(t, 1, f.credentialRepo.Count())
}

func TestCallbackStateMismatchRendersFailure(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, &websession.Session{ID: "session-1", State: "S1"})

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=C1&state=S2", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.provider.ExchangeCalls)

	stored, err := f.sessionRepo.Get("session-1")
	require.NoError(t, err)
	require.Nil(t, stored.Tokens)
}

func TestCallbackProviderErrorRendersFailure(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, &websession.Session{ID: "session-1", State: "S1"})

	req := httptest.NewRequest(http.MethodGet, "/oauth2callback?error=access_denied&state=S1", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.provider.ExchangeCalls)
}

func TestProfileRefreshesExpiringTokenBeforeHandler(t *testing.T) {
	f := setupTestFixture(t)
	// now = expiry - 30s, inside the refresh margin
	cookie := f.seedSession(t, authenticatedSession(testNow.Add(30*time.Second)))

	f.provider.RefreshFunc = func(_ context.Context, refreshToken string) (*oauth2.Token, error) {
		require.Equal(t, testRefreshToken, refreshToken)
		return &oauth2.Token{AccessToken: "fresh-access", Expiry: testNow.Add(time.Hour)}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.provider.RefreshCalls)
	require.Contains(t, rec.Body.String(), "John Doe")

	// The refreshed token was persisted before the handler ran
	stored, err := f.sessionRepo.Get("session-1")
	require.NoError(t, err)
	require.Equal(t, "fresh-access", stored.Tokens.AccessToken)
	require.Equal(t, testNow.Add(time.Hour), stored.Tokens.Expiry)
}

func TestProfileFreshTokenSkipsRefresh(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, authenticatedSession(testNow.Add(time.Hour)))

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, f.provider.RefreshCalls)
}

func TestProfileUnauthenticatedRedirectsToSignIn(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, &websession.Session{ID: "session-1"})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/signIn", rec.Header().Get("Location"))
}

func TestProfileExpiredWithoutRefreshTokenRedirectsToSignIn(t *testing.T) {
	f := setupTestFixture(t)
	session := authenticatedSession(testNow.Add(-time.Minute))
	session.Tokens.RefreshToken = ""
	cookie := f.seedSession(t, session)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/signIn", rec.Header().Get("Location"))
}

func TestProfileRefreshFailureRedirectsToSignIn(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, authenticatedSession(testNow.Add(-time.Minute)))

	f.provider.RefreshFunc = func(_ context.Context, _ string) (*oauth2.Token, error) {
		return nil, errors.New("credential revoked")
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/signIn", rec.Header().Get("Location"))
}

func TestProfileRefreshPersistFailureFailsClosed(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, authenticatedSession(testNow.Add(-time.Minute)))
	f.sessionRepo.UpsertErr = errors.New("disk full")

	f.provider.RefreshFunc = func(_ context.Context, _ string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "fresh-access", Expiry: testNow.Add(time.Hour)}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRevokeDestroysSessionAndClearsCookie(t *testing.T) {
	f := setupTestFixture(t)
	cookie := f.seedSession(t, authenticatedSession(testNow.Add(time.Hour)))

	req := httptest.NewRequest(http.MethodGet, "/revoke", nil)
	req.AddCookie(cookie)
	rec := f.do(req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	require.Equal(t, 1, f.provider.RevokeCalls)

	_, err := f.sessionRepo.Get("session-1")
	require.ErrorIs(t, err, websession.ErrNotFound)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestIndexRendersLandingPage(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/signIn")
}
