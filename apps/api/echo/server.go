// Package echoapi exposes the tables and the users write path over HTTP.
package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
)

type (
	Options struct {
		Address        string
		Debug          bool
		DisableReqLogs bool

		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Tokens     TokenIssuer

		Engine   *datatable.Engine
		Registry *tables.Registry
		Source   tables.Source
		UserSvc  UserService

		// Gatherer backs `GET /metrics`; the route is not mounted when nil.
		Gatherer prometheus.Gatherer

		// Shutdown is called when a handler fails with a core shutdown error.
		Shutdown func()
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV mode
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.Shutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)
	if s.opts.Gatherer != nil {
		s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/v1")
	jwt := s.opts.Tokens.jwtMiddleware()

	registerTableAPI(v1, jwt, s.opts.Engine, s.opts.Registry, s.opts.Source, s.opts.Logger)
	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.Tokens, s.opts.Validate)
}

// Start blocks until the server is stopped; it returns http.ErrServerClosed after Stop.
func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Masomo API!")
}
