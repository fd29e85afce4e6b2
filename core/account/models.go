package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/phoenixacademy/resultsportal/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var AllRoles = []string{RoleAdmin, RoleStudent}

// Account is an identity managed by the auth provider.
type Account struct {
	UID          string   `json:"uid" bson:"_id"`
	Email        string   `json:"email" bson:"email"`
	DisplayName  string   `json:"display_name" bson:"display_name"`
	Roles        []string `json:"roles" bson:"roles"`
	Disabled     bool     `json:"disabled" bson:"disabled"`
	PasswordHash []byte   `json:"-" bson:"password_hash,omitempty"`

	// PasswordChangedAt moves forward on every password change (UTC, millisecond precision).
	// Providers that never expose a PasswordHash must still fill it.
	PasswordChangedAt time.Time `json:"-" bson:"password_changed_at"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"` // UTC
	LastLogin         time.Time `json:"last_login" bson:"last_login"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	changed := time.Now().UTC().Truncate(time.Millisecond)
	if !changed.After(a.PasswordChangedAt) {
		changed = a.PasswordChangedAt.Add(time.Millisecond)
	}
	a.PasswordChangedAt = changed
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a *Account) IsAdmin() bool   { return a.HasRole(RoleAdmin) }
func (a *Account) IsStudent() bool { return a.HasRole(RoleStudent) }

// NewAccount contains information needed to create a new Account.
type NewAccount struct {
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles" validate:"omitempty,dive,oneof=admin student"`
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.DisplayName = core.CleanString(na.DisplayName)
	return validate.Struct(na)
}

// UpdateAccount defines what information may be provided to modify an existing Account.
// Zero values leave the matching fields unchanged.
type UpdateAccount struct {
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Disabled    *bool  `json:"disabled"`
}

func (ua *UpdateAccount) Validate(validate *validator.Validate) error {
	ua.Email = core.CleanString(ua.Email, true /* lower */)
	ua.DisplayName = core.CleanString(ua.DisplayName)
	return validate.Struct(ua)
}

// Credentials are exchanged for an Account on sign in.
// A password or an ID token issued by the identity provider is required.
type Credentials struct {
	Email    string `json:"email" validate:"required_without=IDToken,omitempty,email"`
	Password string `json:"password" validate:"required_without=IDToken"`
	IDToken  string `json:"id_token"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.IDToken = core.CleanString(c.IDToken)
	return validate.Struct(c)
}

// PasswordResetRequest asks for a password reset link to be emailed.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// ResetPassword sets a new password using the UID and token of a password reset link.
type ResetPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.UID = core.CleanString(rp.UID)
	rp.Token = core.CleanString(rp.Token)
	return validate.Struct(rp)
}
