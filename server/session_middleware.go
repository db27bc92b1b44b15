package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/websession"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the request's browser session
const ContextKeySession ContextKey = "session"

// SessionMiddleware resolves the browser session from the opaque cookie,
// creating a fresh one on the first unauthenticated request or when the
// stored session has passed its TTL.
func (s *Server) SessionMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session := s.resolveSession(r)
			if session == nil {
				now := time.Now()
				session = &websession.Session{
					ID:        uuid.New().String(),
					CreatedAt: now,
					ExpiresAt: now.Add(s.config.GetSessionTTL()),
				}
				if err := s.sessions.Upsert(session); err != nil {
					s.log.Error().Err(err).Msg("failed to create session")
					s.renderFailure(w, http.StatusInternalServerError)
					return
				}
				s.setSessionCookie(w, r, session.ID)
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

func (s *Server) resolveSession(r *http.Request) *websession.Session {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil {
		return nil
	}

	session, err := s.sessions.Get(cookie.Value)
	if err != nil || session.Expired(time.Now()) {
		return nil
	}
	return session
}

// SessionFromContext returns the session placed by SessionMiddleware, or
// nil when the handler runs outside the middleware chain.
func SessionFromContext(ctx context.Context) *websession.Session {
	session, _ := ctx.Value(ContextKeySession).(*websession.Session)
	return session
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetSessionTTL().Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
