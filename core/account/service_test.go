package account_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
	testutil "github.com/phoenixacademy/resultsportal/tests"
)

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv()
	env.Reset()
	ctx := context.Background()

	acc := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
	gone := testutil.CreateAccount(t, env, "gone@phoenix.test", "Gone", account.RoleAdmin)
	yes := true
	_, err := env.Svcs.Accounts.Update(ctx, gone.UID, account.UpdateAccount{Disabled: &yes})
	require.NoError(t, err)

	tests := []struct {
		name    string
		creds   account.Credentials
		wantErr error
	}{
		{name: "unknown email", creds: account.Credentials{Email: "lol@phoenix.test", Password: testutil.DefaultPassword}, wantErr: account.ErrInvalidCredentials},
		{name: "wrong password", creds: account.Credentials{Email: acc.Email, Password: "nope"}, wantErr: account.ErrInvalidCredentials},
		{name: "id token", creds: account.Credentials{IDToken: "eyJ..."}, wantErr: account.ErrUnsupported},
		{name: "disabled", creds: account.Credentials{Email: gone.Email, Password: testutil.DefaultPassword}, wantErr: account.ErrAccountDisabled},
		{name: "success", creds: account.Credentials{Email: acc.Email, Password: testutil.DefaultPassword}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Svcs.Accounts.Authenticate(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, acc.UID, got.UID)
			assert.False(t, got.LastLogin.IsZero())
		})
	}
}

func TestService_CreateUpdate(t *testing.T) {
	env := testutil.NewEnv()
	env.Reset()
	ctx := context.Background()

	acc := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
	other := testutil.CreateAccount(t, env, "other@phoenix.test", "Other")
	assert.Equal(t, []string{}, other.Roles)
	assert.NotEmpty(t, other.PasswordHash)

	_, err := env.Svcs.Accounts.Create(ctx, account.NewAccount{Email: acc.Email, Password: testutil.DefaultPassword})
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, map[string]string{"email": account.ErrEmailExists.Error()}, vErr.FieldsMap())

	_, err = env.Svcs.Accounts.Update(ctx, other.UID, account.UpdateAccount{Email: acc.Email})
	_, ok = errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok, "got %v", err)

	_, err = env.Svcs.Accounts.Update(ctx, "nope", account.UpdateAccount{DisplayName: "x"})
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))

	updated, err := env.Svcs.Accounts.Update(ctx, other.UID, account.UpdateAccount{Email: "new@phoenix.test", DisplayName: "New"})
	require.NoError(t, err)
	assert.Equal(t, "new@phoenix.test", updated.Email)
	assert.Equal(t, "New", updated.DisplayName)

	require.NoError(t, env.Svcs.Accounts.Delete(ctx, other.UID))
	assert.Equal(t, account.ErrNotFound, errors.Cause(env.Svcs.Accounts.Delete(ctx, other.UID)))
}

func TestNewAccount_Validate(t *testing.T) {
	env := testutil.NewEnv()

	tests := []struct {
		name string
		na   account.NewAccount
		want map[string]string
	}{
		{name: "valid", na: account.NewAccount{Email: " Admin@Phoenix.test ", Password: testutil.DefaultPassword, Roles: []string{account.RoleAdmin}}},
		{name: "required", na: account.NewAccount{}, want: map[string]string{"email": "this field is required", "password": "this field is required"}},
		{name: "short password", na: account.NewAccount{Email: "a@phoenix.test", Password: "Zq8!"}, want: map[string]string{"password": "password must be at least 6 characters"}},
		{name: "spaces", na: account.NewAccount{Email: "a@phoenix.test", Password: "Zq8! mw4#"}, want: map[string]string{"password": "password must not contain whitespace"}},
		{
			name: "similar to email", na: account.NewAccount{Email: "principal@phoenix.test", Password: "principal@phoenix"},
			want: map[string]string{"password": "password cannot be similar to the account details"},
		},
		{name: "unknown role", na: account.NewAccount{Email: "a@phoenix.test", Password: testutil.DefaultPassword, Roles: []string{"teacher"}}, want: map[string]string{"roles[0]": "roles[0] must be one of [admin student]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(env.Validate)
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, "admin@phoenix.test", tt.na.Email)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.want, core.TranslateErrors(vErrs, env.Translator))
		})
	}
}

func TestService_PasswordReset(t *testing.T) {
	env := testutil.NewEnv()
	env.Reset()
	ctx := context.Background()

	acc := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
	gone := testutil.CreateAccount(t, env, "gone@phoenix.test", "Gone", account.RoleAdmin)
	yes := true
	_, err := env.Svcs.Accounts.Update(ctx, gone.UID, account.UpdateAccount{Disabled: &yes})
	require.NoError(t, err)

	assert.Equal(t, account.ErrNotFound, errors.Cause(env.Svcs.Accounts.RequestPasswordReset(ctx, "lol@phoenix.test")))
	assert.Equal(t, account.ErrAccountDisabled, errors.Cause(env.Svcs.Accounts.RequestPasswordReset(ctx, gone.Email)))
	require.NoError(t, env.Svcs.Accounts.RequestPasswordReset(ctx, acc.Email))

	tokens := account.NewTokenGenerator(env.Conf.SecretKey, env.Conf.Security.PasswordResetTimeout)
	acc, err = env.Svcs.Accounts.Get(ctx, acc.UID)
	require.NoError(t, err)
	token, err := tokens.MakeToken(acc)
	require.NoError(t, err)

	fieldErr := func(err error) map[string]string {
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		return vErr.FieldsMap()
	}

	err = env.Svcs.Accounts.ConfirmPasswordReset(ctx, account.ResetPassword{UID: "%%", Token: token, Password: "n3w-Secret"})
	assert.Equal(t, map[string]string{"uid": "invalid value"}, fieldErr(err))

	err = env.Svcs.Accounts.ConfirmPasswordReset(ctx, account.ResetPassword{UID: account.EncodeUID(gone), Token: token, Password: "n3w-Secret"})
	assert.Equal(t, map[string]string{"token": "invalid value"}, fieldErr(err))

	require.NoError(t, env.Svcs.Accounts.ConfirmPasswordReset(ctx, account.ResetPassword{UID: account.EncodeUID(acc), Token: token, Password: "n3w-Secret"}))
	_, err = env.Svcs.Accounts.Authenticate(ctx, account.Credentials{Email: acc.Email, Password: "n3w-Secret"})
	assert.NoError(t, err)
}

// hashlessProvider hides password hashes the way managed identity services do.
type hashlessProvider struct {
	account.Provider
}

func (p hashlessProvider) GetAccount(ctx context.Context, uid string) (account.Account, error) {
	acc, err := p.Provider.GetAccount(ctx, uid)
	acc.PasswordHash = nil
	return acc, err
}

func (p hashlessProvider) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	acc, err := p.Provider.GetAccountByEmail(ctx, email)
	acc.PasswordHash = nil
	return acc, err
}

func TestService_ConfirmPasswordReset_singleUse(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	tokens := account.NewTokenGenerator(env.Conf.SecretKey, env.Conf.Security.PasswordResetTimeout)

	tests := []struct {
		name     string
		provider account.Provider
	}{
		{name: "local provider", provider: env.Store.Accounts},
		{name: "provider without hashes", provider: hashlessProvider{env.Store.Accounts}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.Reset()
			svc := account.NewService(tt.provider, tokens, nil)

			acc := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
			acc, err := svc.Get(ctx, acc.UID)
			require.NoError(t, err)
			token, err := tokens.MakeToken(acc)
			require.NoError(t, err)
			uid := account.EncodeUID(acc)

			require.NoError(t, svc.ConfirmPasswordReset(ctx, account.ResetPassword{UID: uid, Token: token, Password: "n3w-Secret"}))

			err = svc.ConfirmPasswordReset(ctx, account.ResetPassword{UID: uid, Token: token, Password: "0ther-Secret"})
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, map[string]string{"token": "invalid value"}, vErr.FieldsMap())

			_, err = svc.Authenticate(ctx, account.Credentials{Email: acc.Email, Password: "n3w-Secret"})
			assert.NoError(t, err)
		})
	}
}
