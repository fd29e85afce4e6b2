package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core/account"
)

var errAccountNotFound = echo.NewHTTPError(
	http.StatusNotFound,
	"User account not found in Firebase Authentication. It may have been deleted already.",
)

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	ag := g.Group("/accounts", jwt, adminMiddleware())
	ag.DELETE("/:uid", s.destroyAccount)
}

func (s *Server) destroyAccount(ctx echo.Context) error {
	uid := ctx.Param("uid")

	// Say No to Suicide! admins cannot delete themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.Subject == uid {
		return errHttpForbidden
	}

	if err := s.deps.AccountSvc.Delete(ctx.Request().Context(), uid); err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return errAccountNotFound
		}
		return errors.Wrap(err, "deleting account")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Message: "User account deleted successfully."})
}
