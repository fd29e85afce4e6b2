package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/security"
	"github.com/phoenixacademy/resultsportal/core/student"
)

var healthTimeout = 5 * time.Second

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DB             core.Pinger
		AccountSvc     *account.Service
		StudentSvc     *student.Service
		MarksheetSvc   *marksheet.Service
		SecuritySvc    *security.Service
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwtConf  jwtConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwtConf:  newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:  true,
			LogURI:     true,
			LogStatus:  true,
			LogLatency: true,
			LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
				s.deps.Logger.Info(fmt.Sprintf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency))
				return nil
			},
		}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	v1.GET("/health", s.health)

	jwt := s.jwtConf.middleware()
	registerAuthAPI(v1, jwt, s)
	registerStudentAPI(v1, jwt, s)
	registerMarksheetAPI(v1, jwt, s)
	registerSecurityAPI(v1, jwt, s)
	registerAccountAPI(v1, jwt, s)
}

// Start listens on the configured address. Listening errors are sent to Errors().
func (s *Server) Start() {
	s.deps.Logger.Info(fmt.Sprintf("API listening on %s", s.deps.Conf.Server.Address))
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+s.deps.Conf.AppName+" results portal!")
}

// health checks that the store answers.
func (s *Server) health(ctx echo.Context) error {
	c, cancel := context.WithTimeout(ctx.Request().Context(), healthTimeout)
	defer cancel()

	if err := s.deps.DB.Ping(c); err != nil {
		s.deps.Logger.Error(fmt.Sprintf("health check: %v", err), err)
		return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "Failed to connect to the database."})
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Message: "Connection to database successful!"})
}
