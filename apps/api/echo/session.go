package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/student"
)

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", s.studentLogin)
	ag.POST("/admin/login", s.adminLogin)
	ag.POST("/password-reset", s.resetPassword)
	ag.POST("/password-reset-confirm", s.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", s.tokenRefresh, jwt)

	mg := g.Group("/me", jwt, studentMiddleware())
	mg.GET("", s.me)
	mg.GET("/marksheets", s.myMarksheets)
}

func (s *Server) bindCredentials(ctx echo.Context) (account.Credentials, error) {
	var creds account.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return creds, errors.Wrap(err, "binding to Credentials")
	}
	return creds, creds.Validate(s.deps.Validate)
}

// authenticate maps sign in failures to HTTP errors.
func (s *Server) authenticate(ctx echo.Context, creds account.Credentials) (account.Account, error) {
	acc, err := s.deps.AccountSvc.Authenticate(ctx.Request().Context(), creds)
	switch errors.Cause(err) {
	case nil:
		return acc, nil
	case account.ErrInvalidCredentials:
		return acc, errAuthenticationFailed
	case account.ErrAccountDisabled:
		return acc, errAccountDeactivated
	case account.ErrUnsupported:
		return acc, errPasswordUnsupported
	}
	return acc, errors.Wrap(err, "authenticating")
}

func (s *Server) studentLogin(ctx echo.Context) error {
	creds, err := s.bindCredentials(ctx)
	if err != nil {
		return err
	}

	acc, err := s.authenticate(ctx, creds)
	if err != nil {
		return err
	}
	if !acc.IsStudent() {
		return errHttpForbidden
	}

	st, err := s.deps.StudentSvc.GetByAccount(ctx.Request().Context(), acc)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errHttpForbidden
		}
		return errors.Wrap(err, "finding student of account")
	}

	token, err := s.GenerateToken(s.NewClaims(acc, st.RollNumber))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// adminLogin records every failure as a login attempt. Too many failures lock the email out.
// Rejected ID tokens carry no email: they are recorded but never lock anybody out.
func (s *Server) adminLogin(ctx echo.Context) error {
	creds, err := s.bindCredentials(ctx)
	if err != nil {
		return err
	}
	c := ctx.Request().Context()

	if err = s.deps.SecuritySvc.CheckAllowed(c, creds.Email); err != nil {
		return err
	}

	acc, err := s.authenticate(ctx, creds)
	if err == nil && !acc.IsAdmin() {
		err = errAuthenticationFailed
	}
	if err != nil {
		if errors.Cause(err) == errAuthenticationFailed {
			email := creds.Email
			if email == "" {
				email = acc.Email
			}
			if _, rErr := s.deps.SecuritySvc.RecordFailure(c, email); rErr != nil {
				s.deps.Logger.Error("recording login attempt", rErr)
			}
		}
		return err
	}

	s.deps.SecuritySvc.Reset(c, acc.Email)
	token, err := s.GenerateToken(s.NewClaims(acc, ""))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) tokenRefresh(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	st, err := s.deps.StudentSvc.Get(ctx.Request().Context(), claims.RollNumber)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *Server) myMarksheets(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sheets, err := s.deps.MarksheetSvc.List(ctx.Request().Context(), claims.RollNumber)
	if err != nil {
		return errors.Wrap(err, "listing marksheets")
	}
	if sheets == nil {
		sheets = []marksheet.Marksheet{}
	}
	return ctx.JSON(http.StatusOK, sheets)
}

func (s *Server) resetPassword(ctx echo.Context) error {
	var pr account.PasswordResetRequest
	if err := ctx.Bind(&pr); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := pr.Validate(s.deps.Validate); err != nil {
		return err
	}

	// the reply never tells whether the email is registered
	err := s.deps.AccountSvc.RequestPasswordReset(ctx.Request().Context(), pr.Email)
	if err != nil {
		switch errors.Cause(err) {
		case account.ErrNotFound, account.ErrAccountDisabled:
		default:
			s.deps.Logger.Error(fmt.Sprintf("requesting password reset: %v", err), err)
		}
	}

	return ctx.JSON(http.StatusOK, ActionResponse{
		Success: true,
		Message: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var rp account.ResetPassword
	if err := ctx.Bind(&rp); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := rp.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.AccountSvc.ConfirmPasswordReset(ctx.Request().Context(), rp); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, ActionResponse{Success: true, Message: "Password has been reset with the new password."})
}
