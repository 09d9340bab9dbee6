// Package server wires the SSO flow, session handling and dashboard API into
// one http.Handler.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnehpets/capsuledash/config"
	"github.com/mnehpets/capsuledash/endpoint"
	"github.com/mnehpets/capsuledash/esi"
	"github.com/mnehpets/capsuledash/evesso"
	"github.com/mnehpets/capsuledash/securecookie"
	"github.com/mnehpets/capsuledash/session"
	"github.com/mnehpets/capsuledash/travel"
)

// StateCookieName is the name of the login state cookie.
const StateCookieName = "eve_sso_state"

// stateMaxAge bounds how long a pending login may take, in seconds.
const stateMaxAge = 600

// Server holds the wired application.
type Server struct {
	cfg config.Config
	log zerolog.Logger

	sso      *evesso.Client
	verifier evesso.Verifier
	esi      *esi.Client
	travel   travel.Source

	stateCookie *securecookie.Codec
	store       *session.Store
	validator   *session.Validator

	now func() time.Time
}

// Option adjusts a Server during construction.
type Option func(*Server)

// WithVerifier replaces the config-selected identity verifier.
func WithVerifier(v evesso.Verifier) Option {
	return func(s *Server) { s.verifier = v }
}

// WithTravelSource replaces the travel-history source.
func WithTravelSource(src travel.Source) Option {
	return func(s *Server) { s.travel = src }
}

// New wires a Server from configuration. ctx is used for verifier discovery
// when the jwt verify mode is selected.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...Option) (*Server, error) {
	stateCookie, err := securecookie.New(StateCookieName, cfg.SessionKeyID, cfg.SessionKeys,
		securecookie.WithSecure(cfg.CookiesSecure()))
	if err != nil {
		return nil, err
	}
	sessionCookie, err := securecookie.New(session.DefaultCookieName, cfg.SessionKeyID, cfg.SessionKeys,
		securecookie.WithSecure(cfg.CookiesSecure()))
	if err != nil {
		return nil, err
	}

	store := session.NewStore(sessionCookie)
	s := &Server{
		cfg:         cfg,
		log:         log,
		sso:         evesso.NewClient(cfg.SSOConfig(), log),
		esi:         esi.NewClient(cfg.ESIBaseURL, log),
		travel:      travel.NewStaticSource(),
		stateCookie: stateCookie,
		store:       store,
		validator:   session.NewValidator(store),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.verifier == nil {
		switch cfg.VerifyMode {
		case config.VerifyModeRemote:
			s.verifier = evesso.NewRemoteVerifier(cfg.VerifyURL, log)
		default:
			v, err := evesso.NewJWTVerifier(ctx, cfg.Issuer, cfg.ClientID, log)
			if err != nil {
				return nil, err
			}
			s.verifier = v
		}
	}

	return s, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	base := []endpoint.Processor{securityHeaders()}

	mux := http.NewServeMux()
	mux.Handle("GET /auth/login", endpoint.HandleFunc(s.handleLogin, base...))
	mux.Handle("GET /auth/callback", endpoint.HandleFunc(s.handleCallback, base...))
	mux.Handle("POST /auth/logout", endpoint.HandleFunc(s.handleLogout, base...))
	mux.Handle("GET /auth/session", endpoint.HandleFunc(s.handleSession, base...))

	api := func(fn endpoint.EndpointFunc[struct{}], scopes ...string) http.Handler {
		procs := append(append([]endpoint.Processor{}, base...), s.requireSession(scopes...))
		return endpoint.HandleFunc(fn, procs...)
	}
	mux.Handle("GET /api/profile", api(s.handleProfile))
	mux.Handle("GET /api/location", api(s.handleLocation, "esi-location.read_location.v1"))
	mux.Handle("GET /api/character/skills", api(s.handleSkills, "esi-skills.read_skills.v1"))
	mux.Handle("GET /api/character/skillqueue", api(s.handleSkillQueue, "esi-skills.read_skillqueue.v1"))
	mux.Handle("GET /api/visited-systems", api(s.handleVisitedSystems))

	return mux
}
