package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/services/spreadsheet"
)

func (cli *commandLine) addAdmin(email, name, pwd string) error {
	na := account.NewAccount{
		Email:       email,
		Password:    pwd,
		DisplayName: name,
		Roles:       []string{account.RoleAdmin},
	}
	if err := na.Validate(cli.validate); err != nil {
		return cli.translate(err)
	}

	acc, err := cli.svcs.Accounts.Create(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Admin %s created (uid: %s).\n", acc.Email, acc.UID)
	return nil
}

func (cli *commandLine) resetPassword(email, pwd string) error {
	ua := account.UpdateAccount{Password: pwd}
	if err := ua.Validate(cli.validate); err != nil {
		return cli.translate(err)
	}

	acc, err := cli.svcs.Accounts.ResetPassword(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password of %s has been reset.\n", acc.Email)
	return nil
}

func (cli *commandLine) clearLogs() error {
	_, msg, err := cli.svcs.Security.Clear(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, msg)
	return nil
}

func (cli *commandLine) importStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening spreadsheet")
	}
	defer func() { _ = f.Close() }()

	rows, err := spreadsheet.ReadStudents(f)
	if err != nil {
		return err
	}

	report := cli.svcs.Students.Import(context.Background(), rows, cli.validate, cli.translator)
	for _, st := range report.Created {
		fmt.Fprintf(cli.out, "added %s (%s)\n", st.RollNumber, st.StudentName)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(cli.out, "row %d (%s): %s\n", f.Row, f.RollNumber, f.Error)
		for fld, msg := range f.Fields {
			fmt.Fprintf(cli.out, "    %s: %s\n", fld, msg)
		}
	}
	fmt.Fprintf(cli.out, "Imported %d of %d student(s).\n", len(report.Created), len(rows))
	return nil
}
