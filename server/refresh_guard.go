package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/pkg/errors"
)

// RefreshGuard gates protected routes. It inspects the session's token
// expiry and transparently refreshes inside the safety margin, persisting
// the refreshed session before the downstream handler runs. It never
// blocks an unauthenticated request: deciding what to do without tokens is
// the handler's job.
func (s *Server) RefreshGuard() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil || session.Tokens == nil {
				next(w, r)
				return
			}

			refreshed, err := s.flow.EnsureFresh(r.Context(), session)
			if err != nil {
				switch {
				case errors.Is(err, authflow.SessionPersistErr):
					// The new token may not survive a restart; fail closed
					// rather than proceed as authenticated.
					s.log.Error().Err(err).Str("session_id", session.ID).Msg("refresh persistence failed")
					s.renderFailure(w, http.StatusInternalServerError)
				case errors.Is(err, authflow.NoRefreshTokenErr):
					// Expired with no refresh credential: the session is
					// effectively dead.
					http.Redirect(w, r, RouteSignIn, http.StatusSeeOther)
				default:
					s.log.Warn().Err(err).Str("session_id", session.ID).Msg("token refresh failed")
					http.Redirect(w, r, RouteSignIn, http.StatusSeeOther)
				}
				return
			}

			if refreshed {
				s.log.Debug().Str("session_id", session.ID).Msg("access token refreshed")
			}
			next(w, r)
		}
	}
}
