package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex    = "/"
	RouteSignIn   = "/signIn"
	RouteCallback = "/oauth2callback"
	RouteProfile  = "/profile"
	RouteRevoke   = "/revoke"
)
