package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/fs"
	"github.com/trezcool/mergington/services/metrics"
)

const staticIndexPath = "/static/index.html"

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		ReqLogger   *zerolog.Logger // request logs are disabled when nil
		Metrics     *metricsvc.Collector
		ActivitySvc activity.ServiceInterface
		Store       StorePinger // unexpected store errors shut the server down when its ping fails
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	StorePinger interface {
		Ping(ctx context.Context) error
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	// clients are served directly: X-Forwarded-For and X-Real-IP are not trusted
	s.app.IPExtractor = echo.ExtractIPDirect()
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs && s.deps.ReqLogger != nil {
		s.app.Use(requestLoggerMiddleware(s.deps.ReqLogger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	s.app.GET("/", home)
	s.app.StaticFS("/static", echo.MustSubFS(appfs.FS, appfs.StaticDir))

	registerActivityAPI(
		s.app.Group("/activities"),
		signupRateLimiter(conf.RateLimit),
		s.deps.ActivitySvc,
		s.deps.Store,
		s.deps.Validate,
	)
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

// Start blocks until the server stops; failures are sent to Errors.
func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.Redirect(http.StatusTemporaryRedirect, staticIndexPath)
}
