package main

import (
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/phoenixacademy/resultsportal/apps/shared"
	"github.com/phoenixacademy/resultsportal/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	svcs       *shared.Services
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  addadmin -email EMAIL [-name NAME] - create an admin account")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset an account's password")
	fmt.Fprintln(cli.out, "  clearlogs - delete every recorded login attempt")
	fmt.Fprintln(cli.out, "  importstudents -file FILE.xlsx - add the students listed in a spreadsheet")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ContinueOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addAdminName := addAdminCmd.String("name", "", "The admin's display name.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	clearLogsCmd := flag.NewFlagSet("clearlogs", flag.ContinueOnError)

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The xlsx spreadsheet listing the students.")

	for _, fs := range []*flag.FlagSet{addAdminCmd, resetPasswordCmd, clearLogsCmd, importCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addAdminCmd)
		if err != nil {
			return err
		}
		return cli.addAdmin(*addAdminEmail, *addAdminName, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "clearlogs":
		if err := clearLogsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.clearLogs()

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile)

	default:
		cli.printUsage()
		return errHelp
	}
}

// translate turns validator errors into a *core.ValidationError.
func (cli *commandLine) translate(err error) error {
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		fields := core.TranslateErrors(vErrs, cli.translator)
		fldErrs := make([]core.FieldError, 0, len(fields))
		for fld, msg := range fields {
			fldErrs = append(fldErrs, core.FieldError{Field: fld, Error: msg})
		}
		return core.NewValidationError(core.ErrInvalidData, fldErrs...)
	}
	return err
}
