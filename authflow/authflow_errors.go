package authflow

import "errors"

var (
	ProviderDeniedErr   = errors.New("provider returned an authorization error")
	StateMismatchErr    = errors.New("state mismatch, possible CSRF attempt")
	ExchangeFailedErr   = errors.New("authorization code exchange failed")
	VerificationErr     = errors.New("identity token verification failed")
	NoRefreshTokenErr   = errors.New("no refresh credential available")
	RefreshFailedErr    = errors.New("refresh token exchange failed")
	SessionPersistErr   = errors.New("session could not be persisted")
	NotAuthenticatedErr = errors.New("session is not authenticated")
)
