package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/internal/config"
	"github.com/webcraft/account-gateway/internal/metrics"
	"github.com/webcraft/account-gateway/ledger"
	"github.com/webcraft/account-gateway/mailer"
	"github.com/webcraft/account-gateway/profiles"
	"github.com/webcraft/account-gateway/server/authstate"
	"github.com/webcraft/account-gateway/session"
)

// TokenVerifier validates a bearer ID token and returns the account uid it
// was issued for.
type TokenVerifier func(ctx context.Context, rawToken string) (string, error)

// Deps collects the services the HTTP layer is built on.
type Deps struct {
	Provider   identity.Provider
	Profiles   profiles.Repo
	Ledger     ledger.Store
	Mailer     mailer.Sender
	Controller *session.Controller
	Metrics    metrics.Collector
	Registry   *prometheus.Registry
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	deps   Deps
	logger zerolog.Logger

	github    *oauth2.Config
	authState authstate.Repo
	limiter   *clientLimiter

	verifyToken  TokenVerifier
	oidcVerifier *oidc.IDTokenVerifier
	oidcLock     sync.Mutex
}

type Option func(*Server)

// WithTokenVerifier replaces the OIDC bearer token verification. Used by
// tests to avoid discovery against a live issuer.
func WithTokenVerifier(verifier TokenVerifier) Option {
	return func(s *Server) {
		s.verifyToken = verifier
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(config config.Config, deps Deps, options ...Option) (*Server, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("[Server New] identity provider is required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("[Server New] profile repo is required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("[Server New] ledger store is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("[Server New] session controller is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		deps:      deps,
		logger:    zerolog.Nop(),
		authState: authstate.NewInMemoryRepo(config.GetStateTimeout()),
		github: &oauth2.Config{
			ClientID:     config.GetGitHubClientID(),
			ClientSecret: config.GetGitHubClientSecret(),
			Scopes:       config.GetGitHubScopes(),
			Endpoint:     githuboauth.Endpoint,
			RedirectURL:  config.GetBaseURL() + RouteAuthGitHubCallback,
		},
	}
	s.env = config.GetEnv()
	s.verifyToken = s.verifyWithOIDC

	if config.GetEnableRateLimiting() {
		s.limiter = newClientLimiter(config.GetRateLimitPerMinute(), config.GetRateLimitBurst())
	}

	for _, option := range options {
		option(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
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
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// verifyWithOIDC validates the bearer token against the identity provider's
// issuer. The verifier is built lazily so the server can start before the
// issuer is reachable.
func (s *Server) verifyWithOIDC(ctx context.Context, rawToken string) (string, error) {
	verifier, err := s.idTokenVerifier(ctx)
	if err != nil {
		return "", err
	}
	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", err
	}
	return idToken.Subject, nil
}

func (s *Server) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	s.oidcLock.Lock()
	defer s.oidcLock.Unlock()
	if s.oidcVerifier != nil {
		return s.oidcVerifier, nil
	}
	issuer := s.config.GetIdentityIssuerURL()
	if issuer == "" {
		return nil, fmt.Errorf("[idTokenVerifier] identity issuer not configured")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[idTokenVerifier] oidc discovery failed: %w", err)
	}
	s.oidcVerifier = provider.Verifier(&oidc.Config{ClientID: s.config.GetIdentityProjectID()})
	return s.oidcVerifier, nil
}
