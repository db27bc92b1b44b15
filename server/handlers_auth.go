package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/pkg/errors"
)

// SignInHandler begins the authorization flow: generates the anti-CSRF
// state, stores it on the session and redirects to the provider.
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())

		authURL, err := s.flow.Begin(session)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to begin authorization flow")
			s.renderFailure(w, http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusSeeOther)
	}
}

// OAuthCallbackHandler completes the authorization flow. Every failure
// branch resolves to the generic failure view; a state mismatch never
// reaches the token exchange.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())

		params := authflow.CallbackParams{
			Code:       r.URL.Query().Get("code"),
			State:      r.URL.Query().Get("state"),
			ErrorParam: r.URL.Query().Get("error"),
		}

		ident, err := s.flow.Callback(r.Context(), session, params)
		if err != nil {
			switch {
			case errors.Is(err, authflow.StateMismatchErr):
				s.log.Warn().Str("session_id", session.ID).Msg("state mismatch, possible CSRF attack")
			case errors.Is(err, authflow.ProviderDeniedErr):
				s.log.Info().Err(err).Msg("provider returned an error parameter")
			default:
				s.log.Error().Err(err).Msg("authorization callback failed")
			}
			s.renderFailure(w, http.StatusBadRequest)
			return
		}

		s.log.Info().Str("email", ident.Email).Msg("user authenticated")
		http.Redirect(w, r, RouteProfile, http.StatusSeeOther)
	}
}

// RevokeHandler invalidates the local credentials and asks the provider to
// revoke the token. Provider-side revocation is best effort; the response
// does not wait on its success.
func (s *Server) RevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())

		if err := s.flow.Revoke(r.Context(), session); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID).Msg("failed to revoke session")
			s.renderFailure(w, http.StatusInternalServerError)
			return
		}

		s.clearSessionCookie(w, r)
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}
