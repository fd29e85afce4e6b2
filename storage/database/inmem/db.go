package inmemdb

import (
	"context"
	"sync"

	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/security"
	"github.com/phoenixacademy/resultsportal/core/student"
)

type (
	// DB is a mutex-guarded in-memory store. Used for local development and tests.
	DB struct {
		student   *studentTable
		marksheet *marksheetTable
		attempt   *attemptTable
		account   *accountTable
	}

	studentTable struct {
		table map[string]*student.Student // {key: student}
		mutex sync.RWMutex
	}

	marksheetTable struct {
		table map[string]map[string]*marksheet.Marksheet // {studentID: {id: marksheet}}
		mutex sync.RWMutex
	}

	attemptTable struct {
		table map[string]*security.LoginAttempt
		mutex sync.RWMutex
	}

	accountTable struct {
		table map[string]*account.Account // {uid: account}
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		student:   &studentTable{table: make(map[string]*student.Student)},
		marksheet: &marksheetTable{table: make(map[string]map[string]*marksheet.Marksheet)},
		attempt:   &attemptTable{table: make(map[string]*security.LoginAttempt)},
		account:   &accountTable{table: make(map[string]*account.Account)},
	}
}

func (db *DB) Ping(ctx context.Context) error { return ctx.Err() }

// Reset empties every table.
func (db *DB) Reset() {
	db.student.mutex.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.mutex.Unlock()

	db.marksheet.mutex.Lock()
	db.marksheet.table = make(map[string]map[string]*marksheet.Marksheet)
	db.marksheet.mutex.Unlock()

	db.attempt.mutex.Lock()
	db.attempt.table = make(map[string]*security.LoginAttempt)
	db.attempt.mutex.Unlock()

	db.account.mutex.Lock()
	db.account.table = make(map[string]*account.Account)
	db.account.mutex.Unlock()
}
