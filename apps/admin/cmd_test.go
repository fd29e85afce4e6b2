package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/student"
	testutil "github.com/phoenixacademy/resultsportal/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewEnv()
	env.Reset()

	out := new(bytes.Buffer)
	return &commandLine{
		svcs:       env.Svcs,
		validate:   env.Validate,
		translator: env.Translator,
		out:        out,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func checkErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"clearlogs", "-lol"}, wantErr: errHelp},
		{name: "addadmin: no email", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "resetpassword: no email", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "importstudents: no file", args: []string{"importstudents"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			checkErr(t, cli.run(args), tt)
			assert.NotEmpty(t, out.String(), "usage should be printed")
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli, env, out := setup(t)
	testutil.CreateAccount(t, env, "taken@phoenix.test", "Taken", account.RoleAdmin)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "email but no password", args: []string{"addadmin", "-email", "new@phoenix.test"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"addadmin", "-email", "lol"}, extra: extra{pwd: testutil.DefaultPassword}, wantErrStr: core.ErrInvalidData.Error()},
		{name: "short password", args: []string{"addadmin", "-email", "new@phoenix.test"}, extra: extra{pwd: "abc"}, wantErrStr: core.ErrInvalidData.Error()},
		{name: "email taken", args: []string{"addadmin", "-email", "taken@phoenix.test"}, extra: extra{pwd: testutil.DefaultPassword}, wantErrStr: account.ErrEmailExists.Error()},
		{name: "success", args: []string{"addadmin", "-email", "New@phoenix.test", "-name", "Principal"}, extra: extra{pwd: testutil.DefaultPassword}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd := ""
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			mockPassword(pwd)
			out.Reset()
			checkErr(t, cli.run(args), tt)
		})
	}

	acc, err := env.Svcs.Accounts.GetByEmail(context.Background(), "new@phoenix.test")
	require.NoError(t, err)
	assert.True(t, acc.IsAdmin())
	assert.Equal(t, "Principal", acc.DisplayName)
	assert.Contains(t, out.String(), "Admin new@phoenix.test created")

	t.Run("password policy errors are translated", func(t *testing.T) {
		mockPassword("abc")
		err := cli.run([]string{"admin", "addadmin", "-email", "other@phoenix.test"})
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, map[string]string{"password": "password must be at least 6 characters"}, vErr.FieldsMap())
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	ctx := context.Background()

	acc := testutil.CreateAccount(t, env, "admin@phoenix.test", "Admin", account.RoleAdmin)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "email but no password", args: []string{"resetpassword", "-email", acc.Email}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@phoenix.test"}, extra: extra{pwd: "n3w-Secret"}, wantErr: account.ErrNotFound},
		{name: "password with spaces", args: []string{"resetpassword", "-email", acc.Email}, extra: extra{pwd: "n3w Secret"}, wantErrStr: core.ErrInvalidData.Error()},
		{name: "reset", args: []string{"resetpassword", "-email", "ADMIN@phoenix.test"}, extra: extra{pwd: "n3w-Secret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd := ""
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			mockPassword(pwd)
			checkErr(t, cli.run(args), tt)
		})
	}

	_, err := env.Svcs.Accounts.Authenticate(ctx, account.Credentials{Email: acc.Email, Password: "n3w-Secret"})
	assert.NoError(t, err)
	_, err = env.Svcs.Accounts.Authenticate(ctx, account.Credentials{Email: acc.Email, Password: testutil.DefaultPassword})
	assert.Equal(t, account.ErrInvalidCredentials, errors.Cause(err))
}

func Test_commandLine_clearLogs(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	for _, email := range []string{"a@phoenix.test", "b@phoenix.test"} {
		_, err := env.Svcs.Security.RecordFailure(ctx, email)
		require.NoError(t, err)
	}

	require.NoError(t, cli.run([]string{"admin", "clearlogs"}))
	assert.Equal(t, "Successfully cleared 2 log(s).\n", out.String())

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "clearlogs"}))
	assert.Equal(t, "No logs to clear.\n", out.String())
}

func writeStudentsSheet(t *testing.T, rows ...[]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Roll Number", "Student Name", "Parents Name", "Date of Birth", "Email", "Class", "Stream", "Batch", "Password"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "students.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func Test_commandLine_importStudents(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	testutil.CreateStudent(t, env, "PSA-001", "Asha Patil", "asha@phoenix.test", student.StreamJEE)

	path := writeStudentsSheet(t,
		[]interface{}{"PSA-002", "Rohan Kale", "Sunita Kale", "2007-02-11", "rohan@phoenix.test", 11, "NEET", "2024-2026", testutil.DefaultPassword},
		[]interface{}{"PSA-001", "Asha Again", "Someone", "2007-02-11", "asha2@phoenix.test", 11, "JEE", "2024-2026", testutil.DefaultPassword},
		[]interface{}{"PSA-003", "Meera Joshi", "Anil Joshi", "2007-09-30", "meera@phoenix.test", 12, "Commerce", "2024-2026", testutil.DefaultPassword},
	)

	missing := filepath.Join(t.TempDir(), "nope.xlsx")
	tests := []cliTest{
		{name: "missing file", args: []string{"importstudents", "-file", missing}, wantErrStr: "opening spreadsheet: open " + missing + ": no such file or directory"},
		{name: "import", args: []string{"importstudents", "-file", path}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, cli.run(args), tt)
		})
	}

	printed := out.String()
	assert.Contains(t, printed, "added PSA-002 (Rohan Kale)")
	assert.Contains(t, printed, "row 3 (PSA-001): A student with Roll Number PSA-001 already exists.")
	assert.Contains(t, printed, "row 4 (PSA-003): Invalid data provided.")
	assert.Contains(t, printed, "    stream: stream must be one of JEE, NEET, MHT-CET or Regular Batch")
	assert.Contains(t, printed, "Imported 1 of 3 student(s).")

	st, err := env.Svcs.Students.Get(ctx, "PSA-002")
	require.NoError(t, err)
	assert.Equal(t, "Rohan Kale", st.StudentName)
	assert.NotEmpty(t, st.UID)
}
