package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/daybook/internal/platform/timeouts"
	"github.com/louisbranch/daybook/internal/services/auth/ceremony"
	"github.com/louisbranch/daybook/internal/services/auth/session"
	"github.com/louisbranch/daybook/internal/services/auth/user"
	"github.com/louisbranch/daybook/internal/services/web/gate"
	"github.com/louisbranch/daybook/internal/services/web/platform/httpx"
	"github.com/louisbranch/daybook/internal/services/web/platform/observability"
	"github.com/louisbranch/daybook/internal/services/web/platform/requestmeta"
	"github.com/louisbranch/daybook/internal/services/web/platform/sessioncookie"
	"github.com/louisbranch/daybook/internal/services/web/routepath"
	"github.com/louisbranch/daybook/internal/services/web/static"
)

// Ceremonies runs passkey registration and authentication.
type Ceremonies interface {
	BeginRegistration(ctx context.Context, email, displayName string) (ceremony.Begin, error)
	CompleteRegistration(ctx context.Context, email string, response []byte) (ceremony.Result, error)
	BeginAuthentication(ctx context.Context, email string) (ceremony.Begin, error)
	CompleteAuthentication(ctx context.Context, email string, response []byte) (ceremony.Result, error)
}

// Users resolves the user behind a verified session.
type Users interface {
	GetUser(ctx context.Context, userID string) (user.User, error)
}

// SessionIssuer mints session tokens after a completed ceremony.
type SessionIssuer interface {
	Issue(userID string) (string, time.Time, error)
	Lifetime() time.Duration
}

// Config defines the inputs for the web server.
type Config struct {
	HTTPAddr string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// RequestSchemePolicy controls scheme resolution for same-origin checks.
	RequestSchemePolicy requestmeta.SchemePolicy
	// Logger receives request log lines; nil uses the standard logger.
	Logger *log.Logger
}

// Dependencies are the collaborators handlers call into.
type Dependencies struct {
	Ceremonies   Ceremonies
	Users        Users
	Issuer       SessionIssuer
	Verifier     session.TokenVerifier
	EdgeVerifier *session.EdgeVerifier
}

func (d Dependencies) validate() error {
	switch {
	case d.Ceremonies == nil:
		return errors.New("ceremony engine is required")
	case d.Users == nil:
		return errors.New("user store is required")
	case d.Issuer == nil:
		return errors.New("session issuer is required")
	case d.Verifier == nil:
		return errors.New("session verifier is required")
	case d.EdgeVerifier == nil:
		return errors.New("edge session verifier is required")
	}
	return nil
}

// NewHandler builds the root handler: middleware, the request gate, and
// every route.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	h := &handlers{
		ceremonies: deps.Ceremonies,
		users:      deps.Users,
		issuer:     deps.Issuer,
		verifier:   deps.Verifier,
		cookie: sessioncookie.Policy{
			Secure: cfg.SecureCookies,
			MaxAge: deps.Issuer.Lifetime(),
		},
	}

	mux := http.NewServeMux()
	mux.Handle(routepath.StaticPrefix, http.StripPrefix(routepath.StaticPrefix, http.FileServer(http.FS(static.FS))))
	mux.HandleFunc("GET "+routepath.Health, h.handleHealth)
	mux.HandleFunc("GET "+routepath.Favicon, h.handleFavicon)
	mux.HandleFunc("GET "+routepath.Login, h.handleLoginPage)
	mux.HandleFunc("GET /{$}", h.handleHome)

	api := http.NewServeMux()
	api.HandleFunc("POST "+routepath.AuthRegisterBegin, h.handleRegisterBegin)
	api.HandleFunc("POST "+routepath.AuthRegisterFinish, h.handleRegisterFinish)
	api.HandleFunc("POST "+routepath.AuthLoginBegin, h.handleLoginBegin)
	api.HandleFunc("POST "+routepath.AuthLoginFinish, h.handleLoginFinish)
	api.HandleFunc("GET "+routepath.AuthSession, h.handleSession)
	api.HandleFunc("POST "+routepath.AuthLogout, h.handleLogout)
	mux.Handle(routepath.AuthAPIPrefix, requestmeta.SameOriginGuard(cfg.RequestSchemePolicy)(api))

	return httpx.Chain(mux,
		httpx.RecoverPanic(),
		httpx.RequestID(),
		observability.RequestLogger(cfg.Logger),
		gate.New(deps.EdgeVerifier).Middleware(),
	), nil
}

// Server hosts the web HTTP server.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewServer builds a configured web server.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("build handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("web server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("web listening addr=%s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func readPage(name string) ([]byte, error) {
	return fs.ReadFile(static.FS, name)
}
