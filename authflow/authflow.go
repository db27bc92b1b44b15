// Package authflow drives the OAuth2 authorization-code flow against an
// external identity provider and owns the session token lifecycle:
// CSRF-state handling, code exchange, refresh-credential reconciliation and
// access-token renewal.
package authflow

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// stateLength is the number of random bytes in the anti-CSRF state.
	// 32 bytes = 256 bits, well above the 128-bit minimum.
	stateLength = 32

	// refreshMargin is how long before the declared expiry an access token
	// is treated as expiring and refreshed.
	refreshMargin = 60 * time.Second
)

// CallbackParams are the query parameters the provider sends to the
// redirect URI.
type CallbackParams struct {
	Code       string
	State      string
	ErrorParam string
}

// Repos holds the storage dependencies for the Service
type Repos struct {
	Credentials credentials.Repo
	Sessions    websession.Repo
}

// Service implements the authorization flow controller and the token
// refresh logic. It holds no per-request token state; every operation takes
// the session explicitly.
type Service struct {
	repos    Repos
	provider Provider
	log      zerolog.Logger
	nowTime  func() time.Time
}

// ServiceOption modifies a Service instance at construction time
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new flow Service with required dependencies.
func NewService(repos Repos, provider Provider, log zerolog.Logger, options ...ServiceOption) (*Service, error) {
	if repos.Credentials == nil {
		return nil, errors.New("[NewService] Credentials repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if provider == nil {
		return nil, errors.New("[NewService] provider is required")
	}

	service := &Service{
		repos:    repos,
		provider: provider,
		log:      log,
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Begin starts the authorization flow for a session: generates a fresh
// anti-CSRF state, persists it, and returns the provider authorization URL
// requesting offline access with incremental consent.
func (s *Service) Begin(session *websession.Session) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", errors.Wrap(err, "[Begin] generateState")
	}

	session.State = state
	if err := s.repos.Sessions.Upsert(session); err != nil {
		return "", errors.Wrap(SessionPersistErr, err.Error())
	}

	return s.provider.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// Callback completes the authorization flow. The pending state is consumed
// exactly once: whatever the outcome, the session leaves this method with
// no state value. On success the session holds the full token set and the
// credential store has been reconciled with the verified identity.
func (s *Service) Callback(ctx context.Context, session *websession.Session, params CallbackParams) (*Identity, error) {
	pendingState := session.State
	s.discardState(session)

	if params.ErrorParam != "" {
		return nil, errors.Wrap(ProviderDeniedErr, params.ErrorParam)
	}

	// Full-value constant-time comparison. An empty pending state means no
	// authorization redirect is outstanding and the callback is unsolicited.
	if pendingState == "" ||
		subtle.ConstantTimeCompare([]byte(params.State), []byte(pendingState)) != 1 {
		return nil, StateMismatchErr
	}

	token, err := s.provider.Exchange(ctx, params.Code)
	if err != nil {
		return nil, errors.Wrap(ExchangeFailedErr, err.Error())
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.Wrap(VerificationErr, "no identity token in exchange response")
	}

	// The email claim must not be trusted before the signature and audience
	// check passes. A forged or foreign-audience token aborts the flow here.
	identity, err := s.provider.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(VerificationErr, err.Error())
	}

	tokens := &websession.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}

	if token.RefreshToken != "" {
		// First consent (or re-consent after revocation): persist the fresh
		// refresh credential. Best effort; losing it only degrades a future
		// session to re-consent.
		if err := s.repos.Credentials.Upsert(ctx, identity.Email, token.RefreshToken); err != nil {
			s.log.Warn().Err(err).Str("email", identity.Email).Msg("failed to persist refresh credential")
		}
	} else {
		s.adoptStoredCredential(ctx, identity.Email, tokens)
	}

	session.Tokens = tokens
	if err := s.repos.Sessions.Upsert(session); err != nil {
		session.Tokens = nil
		return nil, errors.Wrap(SessionPersistErr, err.Error())
	}

	return identity, nil
}

// adoptStoredCredential recovers the refresh credential saved by an earlier
// consent. When none exists the session proceeds access-only and no silent
// refresh will be possible later.
func (s *Service) adoptStoredCredential(ctx context.Context, email string, tokens *websession.TokenSet) {
	record, err := s.repos.Credentials.FindByEmail(ctx, email)
	switch {
	case err == nil:
		tokens.RefreshToken = record.RefreshToken
	case errors.Is(err, credentials.ErrNotFound):
		s.log.Info().Str("email", email).Msg("no stored refresh credential, session is access-only")
	default:
		s.log.Error().Err(err).Str("email", email).Msg("credential lookup failed, session is access-only")
	}
}

// EnsureFresh is the request-time refresh gate. Within the safety margin of
// expiry it exchanges the refresh credential for a new access token and
// durably persists the session before returning, so the caller never uses a
// refreshed token that would not survive a process restart.
func (s *Service) EnsureFresh(ctx context.Context, session *websession.Session) (refreshed bool, err error) {
	if session.Tokens == nil {
		return false, NotAuthenticatedErr
	}
	if !session.Tokens.ExpiresWithin(s.nowTime(), refreshMargin) {
		return false, nil
	}
	if session.Tokens.RefreshToken == "" {
		return false, NoRefreshTokenErr
	}
	if err := s.Refresh(ctx, session); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh unconditionally performs the refresh exchange and persists the
// updated session. Persistence failure fails closed.
func (s *Service) Refresh(ctx context.Context, session *websession.Session) error {
	if session.Tokens == nil || session.Tokens.RefreshToken == "" {
		return NoRefreshTokenErr
	}

	token, err := s.provider.Refresh(ctx, session.Tokens.RefreshToken)
	if err != nil {
		return errors.Wrap(RefreshFailedErr, err.Error())
	}

	session.Tokens.AccessToken = token.AccessToken
	session.Tokens.Expiry = token.Expiry
	// Some providers rotate the refresh credential on use.
	if token.RefreshToken != "" {
		session.Tokens.RefreshToken = token.RefreshToken
	}

	if err := s.repos.Sessions.Upsert(session); err != nil {
		return errors.Wrap(SessionPersistErr, err.Error())
	}
	return nil
}

// Revoke asks the provider to invalidate the session's credentials and
// destroys the local session. Provider-side revocation is best effort; the
// local session is destroyed regardless.
func (s *Service) Revoke(ctx context.Context, session *websession.Session) error {
	if session.Tokens != nil {
		token := session.Tokens.RefreshToken
		if token == "" {
			token = session.Tokens.AccessToken
		}
		if err := s.provider.Revoke(ctx, token); err != nil {
			s.log.Warn().Err(err).Msg("provider-side revocation failed")
		}
	}

	if err := s.repos.Sessions.Delete(session.ID); err != nil {
		return errors.Wrap(err, "[Revoke] sessions.Delete")
	}
	session.Tokens = nil
	session.State = ""
	return nil
}

// discardState clears a pending anti-CSRF state. The write is best effort:
// the in-memory session is already cleared, so a failed write can at worst
// leave a state value that no longer matches anything.
func (s *Service) discardState(session *websession.Session) {
	if session.State == "" {
		return
	}
	session.State = ""
	if err := s.repos.Sessions.Upsert(session); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to discard pending state")
	}
}

func generateState() (string, error) {
	bytes := make([]byte, stateLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "generateState rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
