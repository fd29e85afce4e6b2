package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
)

const (
	contextTokenKey = "userToken"
	tokenAudience   = "results-portal"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	RollNumber   string   `json:"roll_number,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

type jwtConfig struct {
	issuer                 string
	signingKey             []byte
	expirationDelta        time.Duration
	refreshExpirationDelta time.Duration
}

func newJWTConfig(conf *core.Config) jwtConfig {
	return jwtConfig{
		issuer:                 conf.AppName,
		signingKey:             []byte(conf.SecretKey),
		expirationDelta:        conf.Server.JWTExpirationDelta,
		refreshExpirationDelta: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (jc jwtConfig) middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    jc.signingKey,
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(_ echo.Context, err error) error {
			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				return errJWTMissing
			}
			return errJWTInvalid
		},
	})
}

// NewClaims returns the claims of `acc`. `rollNumber` links a student account to its record.
func (s *Server) NewClaims(acc account.Account, rollNumber string, origIat ...int64) *Claims {
	now := time.Now()

	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtConf.issuer,
			Subject:   acc.UID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConf.expirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Name:         acc.DisplayName,
		Email:        acc.Email,
		IsStudent:    acc.IsStudent(),
		IsAdmin:      acc.IsAdmin(),
		RollNumber:   rollNumber,
		Roles:        acc.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (s *Server) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	ss, err := token.SignedString(s.jwtConf.signingKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (s *Server) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acc, err := s.deps.AccountSvc.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "getting context account")
	}

	// check if account is still active
	if acc.Disabled {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.jwtConf.refreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := s.GenerateToken(s.NewClaims(acc, claims.RollNumber, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
