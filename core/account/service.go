package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUnsupported        = errors.New("operation not supported by the identity provider")
)

// Provider is the contract of the managed identity service.
type Provider interface {
	CreateAccount(ctx context.Context, na NewAccount) (Account, error)
	GetAccount(ctx context.Context, uid string) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	UpdateAccount(ctx context.Context, uid string, ua UpdateAccount) (Account, error)
	DeleteAccount(ctx context.Context, uid string) error
	// SignIn exchanges credentials for the matching Account.
	// It returns ErrInvalidCredentials when the credentials do not match any account.
	SignIn(ctx context.Context, creds Credentials) (Account, error)
	SetLastLogin(ctx context.Context, uid string, t time.Time) error
}

type Service struct {
	provider Provider
	tokens   TokenGenerator
	mailSvc  core.EmailService
}

func NewService(provider Provider, tokens TokenGenerator, mailSvc core.EmailService) *Service {
	return &Service{provider: provider, tokens: tokens, mailSvc: mailSvc}
}

// Create creates a new Account. An existing email is reported as a validation error.
func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	acc, err := svc.provider.CreateAccount(ctx, na)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Account{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return Account{}, errors.Wrap(err, "creating account")
	}
	return acc, nil
}

func (svc *Service) Get(ctx context.Context, uid string) (Account, error) {
	return svc.provider.GetAccount(ctx, uid)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.provider.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, uid string, ua UpdateAccount) (Account, error) {
	acc, err := svc.provider.UpdateAccount(ctx, uid, ua)
	if err != nil && errors.Cause(err) == ErrEmailExists {
		return Account{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}
	return acc, err
}

// Delete deletes the Account identified by `uid`. It returns ErrNotFound when no such account exists.
func (svc *Service) Delete(ctx context.Context, uid string) error {
	return svc.provider.DeleteAccount(ctx, uid)
}

// Authenticate signs in with `creds`, rejects disabled accounts and records the login time.
func (svc *Service) Authenticate(ctx context.Context, creds Credentials) (Account, error) {
	acc, err := svc.provider.SignIn(ctx, creds)
	if err != nil {
		if cause := errors.Cause(err); cause == ErrNotFound || cause == ErrInvalidCredentials {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, errors.Wrap(err, "signing in")
	}
	if acc.Disabled {
		return Account{}, ErrAccountDisabled
	}

	now := time.Now().UTC()
	if err := svc.provider.SetLastLogin(ctx, acc.UID, now); err != nil {
		return Account{}, errors.Wrap(err, "setting lastLogin")
	}
	acc.LastLogin = now
	return acc, nil
}

// ResetPassword sets a new password on the account registered with `email`.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) (Account, error) {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	return svc.provider.UpdateAccount(ctx, acc.UID, UpdateAccount{Password: pwd})
}

// RequestPasswordReset emails a password reset link to the active account registered with `email`.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acc.Disabled {
		return ErrAccountDisabled
	}

	token, err := svc.tokens.MakeToken(acc)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: acc.DisplayName, Address: acc.Email}},
			Subject:      "Password reset",
			TemplateName: "password_reset",
			TemplateData: struct {
				Name  string
				UID   string
				Token string
			}{acc.DisplayName, EncodeUID(acc), token},
		})
	}
	return nil
}

// ConfirmPasswordReset sets the password of the account identified by the link data in `rp`.
// Bad link data is reported as a *core.ValidationError.
func (svc *Service) ConfirmPasswordReset(ctx context.Context, rp ResetPassword) error {
	invalid := func(field string) error {
		return core.NewValidationError(core.ErrInvalidData, core.FieldError{Field: field, Error: "invalid value"})
	}

	uid, err := DecodeUID(rp.UID)
	if err != nil {
		return invalid("uid")
	}
	acc, err := svc.Get(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid("uid")
		}
		return errors.Wrap(err, "getting account")
	}
	if err = svc.tokens.VerifyToken(acc, rp.Token); err != nil {
		if err == ErrInvalidToken || err == ErrTokenExpired {
			return invalid("token")
		}
		return errors.Wrap(err, "verifying token")
	}

	_, err = svc.provider.UpdateAccount(ctx, acc.UID, UpdateAccount{Password: rp.Password})
	return errors.Wrap(err, "setting new password")
}
