// Package shared wires the services used by both the API and the admin CLI.
package shared

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/security"
	"github.com/phoenixacademy/resultsportal/core/student"
	logsvc "github.com/phoenixacademy/resultsportal/services/logger"
	"github.com/phoenixacademy/resultsportal/services/spreadsheet"
	"github.com/phoenixacademy/resultsportal/storage/database"
)

type Services struct {
	Accounts   *account.Service
	Students   *student.Service
	Marksheets *marksheet.Service
	Security   *security.Service
}

// NewLogger returns a Rollbar logger writing to stdout with `prefix`.
// Rollbar only reports outside debug mode.
func NewLogger(prefix string, conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug && !conf.TestMode && conf.RollbarToken != "")
	return logger
}

func NewTranslator() ut.Translator {
	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator knowing every custom tag of the portal.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	marksheet.InitValidators(validate, translator)
	return validate
}

func NewServices(store *database.Store, conf *core.Config, mailSvc core.EmailService, logger core.Logger) *Services {
	accounts := account.NewService(
		store.Accounts,
		account.NewTokenGenerator(conf.SecretKey, conf.Security.PasswordResetTimeout),
		mailSvc,
	)
	students := student.NewService(store.Students, accounts, store.Marksheets, mailSvc, logger)
	return &Services{
		Accounts:   accounts,
		Students:   students,
		Marksheets: marksheet.NewService(store.Marksheets, students, spreadsheet.NewExporter(), mailSvc, logger),
		Security:   security.NewService(store.LoginAttempts, store.Throttle, students, conf.Security.MaxLoginAttempts, logger),
	}
}
