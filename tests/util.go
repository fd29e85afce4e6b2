// Package testutil builds a test environment backed by the in-memory store.
package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/phoenixacademy/resultsportal/apps/shared"
	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/student"
	emailsvc "github.com/phoenixacademy/resultsportal/services/email"
	logsvc "github.com/phoenixacademy/resultsportal/services/logger"
	"github.com/phoenixacademy/resultsportal/storage/database"
	inmemdb "github.com/phoenixacademy/resultsportal/storage/database/inmem"
)

const DefaultPassword = "Zq8!mw4#Lp"

type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Store      *database.Store
	DB         *inmemdb.DB
	Svcs       *shared.Services
	Validate   *validator.Validate
	Translator ut.Translator
}

// NewConfig loads the TEST configuration with the in-memory backends.
func NewConfig() *core.Config {
	_ = os.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.Store.Backend = core.BackendMemory
	conf.Redis.Address = ""
	return conf
}

// NewEnv wires every service on a fresh in-memory store.
// Emails are recorded by the console mock (see emailsvc.Sent).
func NewEnv() *Env {
	conf := NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	logger.Enable(false)

	store := &database.Store{Backend: core.BackendMemory}
	db := database.OpenMemory(store)
	store.Throttle = inmemdb.NewThrottle(conf.Security.LockoutWindow)

	core.ParseEmailTemplates(conf, logger)
	translator := shared.NewTranslator()

	return &Env{
		Conf:       conf,
		Logger:     logger,
		Store:      store,
		DB:         db,
		Svcs:       shared.NewServices(store, conf, emailsvc.NewConsoleServiceMock(conf, logger), logger),
		Validate:   shared.NewValidator(translator),
		Translator: translator,
	}
}

// Reset empties the store and forgets sent emails.
func (env *Env) Reset() {
	env.DB.Reset()
	emailsvc.ResetSent()
}

func CreateAccount(t *testing.T, env *Env, email, name string, roles ...string) account.Account {
	t.Helper()
	acc, err := env.Svcs.Accounts.Create(context.Background(), account.NewAccount{
		Email:       email,
		Password:    DefaultPassword,
		DisplayName: name,
		Roles:       roles,
	})
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acc
}

// NewStudent returns valid student data for `roll`.
func NewStudent(roll, name, email, stream string) student.NewStudent {
	return student.NewStudent{
		RollNumber:  roll,
		StudentName: name,
		ParentsName: "Parent of " + name,
		DateOfBirth: "2007-05-14",
		Email:       email,
		Class:       11,
		Stream:      stream,
		Batch:       "2024-2026",
		Password:    DefaultPassword,
	}
}

// CreateStudent adds a student along with their account.
func CreateStudent(t *testing.T, env *Env, roll, name, email, stream string) student.Student {
	t.Helper()
	st, err := env.Svcs.Students.Add(context.Background(), NewStudent(roll, name, email, stream))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func Score(marks, maxMarks int) *marksheet.SubjectScore {
	return &marksheet.SubjectScore{Marks: marks, MaxMarks: maxMarks}
}

func CreateMarksheet(t *testing.T, env *Env, roll string, nm marksheet.NewMarksheet) marksheet.Marksheet {
	t.Helper()
	ms, err := env.Svcs.Marksheets.Add(context.Background(), roll, nm)
	if err != nil {
		t.Fatalf("CreateMarksheet() failed: %v", err)
	}
	return ms
}
