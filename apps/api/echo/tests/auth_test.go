package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/phoenixacademy/resultsportal/apps/api/echo"
	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/security"
	"github.com/phoenixacademy/resultsportal/core/student"
	emailsvc "github.com/phoenixacademy/resultsportal/services/email"
	testutil "github.com/phoenixacademy/resultsportal/tests"
)

func parseClaims(t *testing.T, body []byte) *echoapi.Claims {
	t.Helper()
	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Token)

	claims := new(echoapi.Claims)
	_, _, err := jwt.NewParser().ParseUnverified(resp.Token, claims)
	require.NoError(t, err)
	return claims
}

func credentials(t *testing.T, email, pwd string) []byte {
	return marchallObj(t, account.Credentials{Email: email, Password: pwd})
}

func Test_home_health(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the Phoenix Science Academy results portal!", rec.Body.String())

	runHTTPTests(t, srv, []httpTest{
		{
			name: "health", path: "/v1/health", wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"message":"Connection to database successful!","data":null}`),
		},
		{name: "unknown route", path: "/v1/lol", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Message: "Not Found"})},
	})
}

func Test_authApi_studentLogin(t *testing.T) {
	srv, env := setup(t)

	st := testutil.CreateStudent(t, env, "PSA-001", "Asha Patil", "asha@phoenix.test", student.StreamJEE)
	testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
	testutil.CreateAccount(t, env, "orphan@phoenix.test", "Orphan", account.RoleStudent)

	authFailed := marchallObj(t, httpErr{Message: "authentication failed"})

	runHTTPTests(t, srv, []httpTest{
		{
			name: "empty body", method: http.MethodPost, path: "/v1/auth/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{
				Message: "Invalid data provided.",
				Errors:  map[string]string{"email": "this field is required", "password": "this field is required"},
			}),
		},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/login",
			body: credentials(t, "nobody@phoenix.test", testutil.DefaultPassword), wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body: credentials(t, st.Email, "wrong-password"), wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "admins use the admin login", method: http.MethodPost, path: "/v1/auth/login",
			body: credentials(t, "admin@phoenix.test", testutil.DefaultPassword), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "account without student record", method: http.MethodPost, path: "/v1/auth/login",
			body: credentials(t, "orphan@phoenix.test", testutil.DefaultPassword), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", credentials(t, " ASHA@phoenix.test ", testutil.DefaultPassword))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		claims := parseClaims(t, rec.Body.Bytes())
		assert.Equal(t, st.UID, claims.Subject)
		assert.Equal(t, st.RollNumber, claims.RollNumber)
		assert.True(t, claims.IsStudent)
		assert.False(t, claims.IsAdmin)
	})
}

func Test_authApi_adminLogin(t *testing.T) {
	srv, env := setup(t)
	ctx := context.Background()

	st := testutil.CreateStudent(t, env, "PSA-001", "Asha Patil", "asha@phoenix.test", student.StreamJEE)
	admin := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)

	authFailed := marchallObj(t, httpErr{Message: "authentication failed"})

	runHTTPTests(t, srv, []httpTest{
		{
			name: "student credentials", method: http.MethodPost, path: "/v1/auth/admin/login",
			body: credentials(t, st.Email, testutil.DefaultPassword), wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/admin/login",
			body: credentials(t, admin.Email, "wrong-password"), wantCode: http.StatusBadRequest, wantData: authFailed,
		},
	})

	attempts, err := env.Svcs.Security.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, admin.Email, attempts[0].Email)
	assert.Equal(t, security.StatusFailed, attempts[0].Status)
	assert.Equal(t, st.Email, attempts[1].Email)
	assert.Equal(t, st.StudentName, attempts[1].StudentName, "failed attempts carry the name of the student using the email")

	t.Run("success resets the throttle", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/admin/login", credentials(t, admin.Email, testutil.DefaultPassword))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		claims := parseClaims(t, rec.Body.Bytes())
		assert.Equal(t, admin.UID, claims.Subject)
		assert.True(t, claims.IsAdmin)
		assert.Empty(t, claims.RollNumber)
		require.NoError(t, env.Svcs.Security.CheckAllowed(ctx, admin.Email))
	})

	t.Run("lockout", func(t *testing.T) {
		for i := 0; i < env.Conf.Security.MaxLoginAttempts; i++ {
			req, rec := newRequest(http.MethodPost, "/v1/auth/admin/login", credentials(t, admin.Email, "wrong-password"))
			srv.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		}

		// even the right password is refused until the window expires
		req, rec := newRequest(http.MethodPost, "/v1/auth/admin/login", credentials(t, admin.Email, testutil.DefaultPassword))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		ok, err := jsonBytesEqual(t, rec.Body.Bytes(), marchallObj(t, httpErr{Message: security.ErrLockedOut.Error()}))
		require.NoError(t, err)
		assert.True(t, ok, rec.Body.String())
	})
}

// idTokenProvider accepts a single ID token, signing in the account registered with `email`.
type idTokenProvider struct {
	account.Provider
	token string
	email string
}

func (p idTokenProvider) SignIn(ctx context.Context, creds account.Credentials) (account.Account, error) {
	if creds.IDToken == "" {
		return p.Provider.SignIn(ctx, creds)
	}
	if creds.IDToken != p.token {
		return account.Account{}, account.ErrInvalidCredentials
	}
	return p.GetAccountByEmail(ctx, p.email)
}

func Test_authApi_adminLogin_idToken(t *testing.T) {
	env := testutil.NewEnv()
	env.Reset()
	admin := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)

	accounts := account.NewService(
		idTokenProvider{Provider: env.Store.Accounts, token: "admin-id-token", email: admin.Email},
		account.NewTokenGenerator(env.Conf.SecretKey, env.Conf.Security.PasswordResetTimeout),
		nil,
	)
	srv := newServer(t, env, accounts)

	authFailed := marchallObj(t, httpErr{Message: "authentication failed"})
	var tests []httpTest
	for i := 0; i <= env.Conf.Security.MaxLoginAttempts; i++ {
		tests = append(tests, httpTest{
			name: fmt.Sprintf("rejected token %d", i+1), method: http.MethodPost, path: "/v1/auth/admin/login",
			body: []byte(`{"id_token":"forged-token"}`), wantCode: http.StatusBadRequest, wantData: authFailed,
		})
	}
	runHTTPTests(t, srv, tests)

	attempts, err := env.Svcs.Security.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, attempts, env.Conf.Security.MaxLoginAttempts+1)

	t.Run("valid token is not locked out", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/admin/login", []byte(`{"id_token":"admin-id-token"}`))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, admin.UID, parseClaims(t, rec.Body.Bytes()).Subject)
	})

	t.Run("password login is not locked out", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/admin/login", credentials(t, admin.Email, testutil.DefaultPassword))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_authApi_tokenRefresh(t *testing.T) {
	srv, env := setup(t)

	admin := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)
	disabled := testutil.CreateAccount(t, env, "gone@phoenix.test", "Gone", account.RoleAdmin)
	yes := true
	_, err := env.Svcs.Accounts.Update(context.Background(), disabled.UID, account.UpdateAccount{Disabled: &yes})
	require.NoError(t, err)

	expired := srv.NewClaims(admin, "", 1) // issued in 1970
	expiredToken, err := srv.GenerateToken(expired)
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "invalid token", method: http.MethodPost, path: "/v1/auth/token-refresh", token: "not.a.jwt",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Message: "invalid or expired jwt"}),
		},
		{
			name: "deactivated account", method: http.MethodPost, path: "/v1/auth/token-refresh", token: getToken(t, srv, disabled),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Message: "account deactivated"}),
		},
		{
			name: "refresh expired", method: http.MethodPost, path: "/v1/auth/token-refresh", token: expiredToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Message: "refresh has expired"}),
		},
	})

	t.Run("success keeps the original issue time", func(t *testing.T) {
		orig := srv.NewClaims(admin, "")
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, srv, admin))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		claims := parseClaims(t, rec.Body.Bytes())
		assert.Equal(t, admin.UID, claims.Subject)
		assert.InDelta(t, orig.OrigIssuedAt, claims.OrigIssuedAt, 2)
	})
}

func Test_meApi(t *testing.T) {
	srv, env := setup(t)

	st := testutil.CreateStudent(t, env, "PSA-001", "Asha Patil", "asha@phoenix.test", student.StreamJEE)
	acc, err := env.Svcs.Accounts.Get(context.Background(), st.UID)
	require.NoError(t, err)
	admin := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)

	token := getToken(t, srv, acc, st.RollNumber)

	runHTTPTests(t, srv, []httpTest{
		{name: "auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "student required", path: "/v1/me", token: getToken(t, srv, admin), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "student without roll number", path: "/v1/me", token: getToken(t, srv, acc), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "profile", path: "/v1/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, st)},
		{name: "no marksheets", path: "/v1/me/marksheets", token: token, wantCode: http.StatusOK, wantData: marchallList(t)},
	})
}

var resetLinkRe = regexp.MustCompile(`/password-reset/([^/\s]+)/([^/\s]+)`)

func Test_authApi_passwordReset(t *testing.T) {
	srv, env := setup(t)

	st := testutil.CreateStudent(t, env, "PSA-001", "Asha Patil", "asha@phoenix.test", student.StreamJEE)
	disabled := testutil.CreateAccount(t, env, "gone@phoenix.test", "Gone", account.RoleAdmin)
	yes := true
	_, err := env.Svcs.Accounts.Update(context.Background(), disabled.UID, account.UpdateAccount{Disabled: &yes})
	require.NoError(t, err)

	resetSent := []byte(`{"success":true,"message":"If the email address supplied is associated with an active account on this system, an email will arrive in your inbox shortly with instructions to reset your password.","data":null}`)

	emailsvc.ResetSent()
	runHTTPTests(t, srv, []httpTest{
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/auth/password-reset", body: []byte(`{"email":"asha"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "Invalid data provided.", Errors: map[string]string{"email": "email must be a valid email address"}}),
		},
		{name: "unknown email", method: http.MethodPost, path: "/v1/auth/password-reset", body: []byte(`{"email":"nobody@phoenix.test"}`), wantCode: http.StatusOK, wantData: resetSent},
		{name: "disabled account", method: http.MethodPost, path: "/v1/auth/password-reset", body: []byte(`{"email":"gone@phoenix.test"}`), wantCode: http.StatusOK, wantData: resetSent},
	})
	assert.Empty(t, emailsvc.Sent())

	req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset", []byte(`{"email":"Asha@Phoenix.test"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].TemplateName)
	assert.Equal(t, st.Email, sent[0].To[0].Address)
	m := resetLinkRe.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, m, 3, sent[0].TextContent)
	uid, token := m[1], m[2]

	confirm := func(uid, token, pwd, confirm string) []byte {
		return marchallObj(t, account.ResetPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: confirm})
	}
	invalid := func(field string) []byte {
		return marchallObj(t, httpErr{Message: "Invalid data provided.", Errors: map[string]string{field: "invalid value"}})
	}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/auth/password-reset-confirm", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{
				Message: "Invalid data provided.",
				Errors: map[string]string{
					"uid": "this field is required", "token": "this field is required",
					"password": "this field is required", "password_confirm": "this field is required",
				},
			}),
		},
		{
			name: "passwords differ", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token, "n3w-Secret", "n3w-Secre"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Message: "Invalid data provided.", Errors: map[string]string{"password_confirm": "passwords do not match"}}),
		},
		{
			name: "bad uid", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm("!!", token, "n3w-Secret", "n3w-Secret"), wantCode: http.StatusBadRequest, wantData: invalid("uid"),
		},
		{
			name: "unknown uid", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(account.EncodeUID(account.Account{UID: "nope"}), token, "n3w-Secret", "n3w-Secret"), wantCode: http.StatusBadRequest, wantData: invalid("uid"),
		},
		{
			name: "bad token", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, "abc-def", "n3w-Secret", "n3w-Secret"), wantCode: http.StatusBadRequest, wantData: invalid("token"),
		},
		{
			name: "success", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token, "n3w-Secret", "n3w-Secret"), wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"message":"Password has been reset with the new password.","data":null}`),
		},
		{
			name: "link is single use", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: confirm(uid, token, "0ther-Secret", "0ther-Secret"), wantCode: http.StatusBadRequest, wantData: invalid("token"),
		},
	})

	_, err = env.Svcs.Accounts.Authenticate(context.Background(), account.Credentials{Email: st.Email, Password: "n3w-Secret"})
	assert.NoError(t, err)
}
