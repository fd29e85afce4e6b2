package firebaseauth

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
)

// NewApp initializes the Firebase app from a service account file or JSON document.
// Application default credentials are used when neither is configured.
func NewApp(ctx context.Context, conf core.FirebaseConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if conf.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.CredentialsFile))
	} else if conf.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(conf.CredentialsJSON)))
	}

	var fbConf *firebase.Config
	if conf.ProjectID != "" {
		fbConf = &firebase.Config{ProjectID: conf.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	return app, nil
}

// Provider is an account.Provider backed by Firebase Authentication.
// Roles are stored as boolean custom claims (eg: {"admin": true}).
type Provider struct {
	client *auth.Client
}

var _ account.Provider = (*Provider)(nil)

func NewProvider(ctx context.Context, app *firebase.App) (*Provider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating firebase auth client")
	}
	return &Provider{client: client}, nil
}

func toAccount(rec *auth.UserRecord) account.Account {
	acc := account.Account{
		UID:         rec.UID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		Disabled:    rec.Disabled,
		Roles:       []string{},
	}
	for _, role := range account.AllRoles {
		if v, ok := rec.CustomClaims[role].(bool); ok && v {
			acc.Roles = append(acc.Roles, role)
		}
	}
	if rec.TokensValidAfterMillis > 0 {
		acc.PasswordChangedAt = time.UnixMilli(rec.TokensValidAfterMillis).UTC()
	}
	if rec.UserMetadata != nil {
		if rec.UserMetadata.CreationTimestamp > 0 {
			acc.CreatedAt = time.UnixMilli(rec.UserMetadata.CreationTimestamp).UTC()
		}
		if rec.UserMetadata.LastLogInTimestamp > 0 {
			acc.LastLogin = time.UnixMilli(rec.UserMetadata.LastLogInTimestamp).UTC()
		}
	}
	return acc
}

func translateErr(err error, action string) error {
	switch {
	case auth.IsUserNotFound(err):
		return account.ErrNotFound
	case auth.IsEmailAlreadyExists(err):
		return account.ErrEmailExists
	}
	return errors.Wrap(err, action)
}

func (p *Provider) CreateAccount(ctx context.Context, na account.NewAccount) (account.Account, error) {
	params := (&auth.UserToCreate{}).Email(na.Email).Password(na.Password)
	if na.DisplayName != "" {
		params = params.DisplayName(na.DisplayName)
	}
	rec, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return account.Account{}, translateErr(err, "creating firebase user")
	}

	if len(na.Roles) > 0 {
		if err = p.SetRoles(ctx, rec.UID, na.Roles...); err != nil {
			return account.Account{}, rollback(err, rec.UID, func() error { return p.client.DeleteUser(ctx, rec.UID) })
		}
		rec.CustomClaims = roleClaims(na.Roles)
	}
	return toAccount(rec), nil
}

// rollback deletes a half-created user. A failed delete is reported alongside `err`.
func rollback(err error, uid string, del func() error) error {
	if dErr := del(); dErr != nil {
		return errors.Wrapf(err, "rolling back firebase user %s failed (%v)", uid, dErr)
	}
	return err
}

func (p *Provider) GetAccount(ctx context.Context, uid string) (account.Account, error) {
	rec, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return account.Account{}, translateErr(err, "getting firebase user")
	}
	return toAccount(rec), nil
}

func (p *Provider) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	rec, err := p.client.GetUserByEmail(ctx, email)
	if err != nil {
		return account.Account{}, translateErr(err, "getting firebase user by email")
	}
	return toAccount(rec), nil
}

func (p *Provider) UpdateAccount(ctx context.Context, uid string, ua account.UpdateAccount) (account.Account, error) {
	params := &auth.UserToUpdate{}
	if ua.Email != "" {
		params = params.Email(ua.Email)
	}
	if ua.Password != "" {
		params = params.Password(ua.Password)
	}
	if ua.DisplayName != "" {
		params = params.DisplayName(ua.DisplayName)
	}
	if ua.Disabled != nil {
		params = params.Disabled(*ua.Disabled)
	}
	rec, err := p.client.UpdateUser(ctx, uid, params)
	if err != nil {
		return account.Account{}, translateErr(err, "updating firebase user")
	}
	if ua.Password == "" {
		return toAccount(rec), nil
	}

	// sessions and reset links issued before a password change must stop working
	if err = p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return account.Account{}, translateErr(err, "revoking refresh tokens")
	}
	return p.GetAccount(ctx, uid)
}

func (p *Provider) DeleteAccount(ctx context.Context, uid string) error {
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		return translateErr(err, "deleting firebase user")
	}
	return nil
}

// SignIn verifies a Firebase ID token obtained by the client.
// The Admin SDK cannot check passwords: password sign in is done client side.
func (p *Provider) SignIn(ctx context.Context, creds account.Credentials) (account.Account, error) {
	if creds.IDToken == "" {
		return account.Account{}, account.ErrUnsupported
	}
	token, err := p.client.VerifyIDToken(ctx, creds.IDToken)
	if err != nil {
		return account.Account{}, account.ErrInvalidCredentials
	}
	return p.GetAccount(ctx, token.UID)
}

// SetLastLogin is a no-op: Firebase records sign ins itself.
func (p *Provider) SetLastLogin(context.Context, string, time.Time) error { return nil }

// SetRoles replaces the role claims of the account.
func (p *Provider) SetRoles(ctx context.Context, uid string, roles ...string) error {
	if err := p.client.SetCustomUserClaims(ctx, uid, roleClaims(roles)); err != nil {
		return translateErr(err, "setting custom claims")
	}
	return nil
}

func roleClaims(roles []string) map[string]interface{} {
	claims := make(map[string]interface{}, len(roles))
	for _, role := range roles {
		claims[role] = true
	}
	return claims
}
