package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/authflow"
	"github.com/jrsteele09/go-auth-client/identity"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/websession"
	"github.com/rs/zerolog"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	log      zerolog.Logger
	sessions websession.Repo
	flow     *authflow.Service
	resolver *identity.Resolver
}

func New(config config.Config, log zerolog.Logger, sessionRepo websession.Repo, flow *authflow.Service, resolver *identity.Resolver) (*Server, error) {
	if sessionRepo == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}
	if flow == nil {
		return nil, fmt.Errorf("[Server New] auth flow service is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("[Server New] identity resolver is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		log:      log,
		sessions: sessionRepo,
		flow:     flow,
		resolver: resolver,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(s.log, parts[0], parts[1])
		} else {
			logRoute(s.log, "", parts[0])
		}
	}
}

func logRoute(log zerolog.Logger, method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
