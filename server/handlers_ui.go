package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/websession"
)

// IndexHandler renders the landing page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		panic("Failed to parse index template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"AppName":    s.config.GetAppName(),
			"SignInPath": RouteSignIn,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// ProfileHandler renders the authenticated user's profile. The refresh
// guard has already run, so a rejected access token here means clock skew
// or external revocation: force one refresh and retry before falling back
// to re-authorization.
func (s *Server) ProfileHandler() http.HandlerFunc {
	tmpl, err := ParseTemplate("profile.html")
	if err != nil {
		panic("Failed to parse profile template: " + err.Error())
	}

	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil || session.Tokens == nil {
			http.Redirect(w, r, RouteSignIn, http.StatusSeeOther)
			return
		}

		profile, err := s.fetchProfileWithRetry(r, session)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("profile fetch failed")
			http.Redirect(w, r, RouteSignIn, http.StatusSeeOther)
			return
		}

		data := map[string]interface{}{
			"AppName":    s.config.GetAppName(),
			"Profile":    profile,
			"RevokePath": RouteRevoke,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

func (s *Server) fetchProfileWithRetry(r *http.Request, sess *websession.Session) (*identity.Profile, error) {
	profile, err := s.resolver.FetchProfile(r.Context(), sess.Tokens)
	if err == nil {
		return profile, nil
	}
	if sess.Tokens.RefreshToken == "" {
		return nil, err
	}

	// One forced refresh-and-retry; the resolver itself never retries.
	if rerr := s.flow.Refresh(r.Context(), sess); rerr != nil {
		return nil, rerr
	}
	return s.resolver.FetchProfile(r.Context(), sess.Tokens)
}

// renderFailure serves the generic fallback view. Failure branches never
// leak provider error detail to the browser.
func (s *Server) renderFailure(w http.ResponseWriter, status int) {
	tmpl, err := ParseTemplate("error.html")
	if err != nil {
		http.Error(w, "Something went wrong", status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = tmpl.Execute(w, map[string]interface{}{
		"AppName":    s.config.GetAppName(),
		"SignInPath": RouteSignIn,
	})
}
