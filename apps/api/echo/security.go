package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core/security"
)

func registerSecurityAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	sg := g.Group("/security", jwt, adminMiddleware())
	sg.GET("/login-attempts", s.listLoginAttempts)
	sg.DELETE("/login-attempts", s.clearLoginAttempts)
}

func (s *Server) listLoginAttempts(ctx echo.Context) error {
	attempts, err := s.deps.SecuritySvc.List(ctx.Request().Context(), bindLimit(ctx))
	if err != nil {
		return errors.Wrap(err, "listing login attempts")
	}
	if attempts == nil {
		attempts = []security.LoginAttempt{}
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (s *Server) clearLoginAttempts(ctx echo.Context) error {
	n, msg, err := s.deps.SecuritySvc.Clear(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "clearing login attempts")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Message: msg, Data: echo.Map{"cleared": n}})
}
