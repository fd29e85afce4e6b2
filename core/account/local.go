package account

import (
	"time"

	"github.com/google/uuid"
)

// Helpers shared by the providers that keep accounts (and password hashes) in our own store.

// BuildAccount returns a new enabled Account with a generated UID and a hashed password.
func BuildAccount(na NewAccount) (Account, error) {
	acc := Account{
		UID:         uuid.NewString(),
		Email:       na.Email,
		DisplayName: na.DisplayName,
		Roles:       na.Roles,
		CreatedAt:   time.Now().UTC(),
	}
	if acc.Roles == nil {
		acc.Roles = []string{}
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// ApplyUpdate applies the non-zero fields of `ua` to `acc`.
func ApplyUpdate(acc *Account, ua UpdateAccount) error {
	if ua.Email != "" {
		acc.Email = ua.Email
	}
	if ua.DisplayName != "" {
		acc.DisplayName = ua.DisplayName
	}
	if ua.Disabled != nil {
		acc.Disabled = *ua.Disabled
	}
	if ua.Password != "" {
		return acc.SetPassword(ua.Password)
	}
	return nil
}

// CheckCredentials verifies a password sign in against `acc`.
// ID tokens can only be verified by a managed identity provider.
func CheckCredentials(acc Account, creds Credentials) error {
	if creds.IDToken != "" {
		return ErrUnsupported
	}
	if len(acc.PasswordHash) == 0 || acc.CheckPassword(creds.Password) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
