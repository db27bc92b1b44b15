package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleware()...))

	// AUTH FLOW
	s.RegisterRouteFunc("GET "+RouteSignIn, ChainMiddleware(s.SignInHandler(), s.HTMLMiddleware(s.SessionMiddleware())...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleware(s.SessionMiddleware())...))
	s.RegisterRouteFunc("GET "+RouteRevoke, ChainMiddleware(s.RevokeHandler(), s.HTMLMiddleware(s.SessionMiddleware())...))

	// PROTECTED
	// The refresh guard is the single mandatory gate: it runs once per
	// request, after the session middleware and before any handler that
	// calls the identity resolver.
	s.RegisterRouteFunc("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.HTMLMiddleware(s.SessionMiddleware(), s.RefreshGuard())...))
}
