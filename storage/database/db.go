package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
	"github.com/phoenixacademy/resultsportal/core/marksheet"
	"github.com/phoenixacademy/resultsportal/core/security"
	"github.com/phoenixacademy/resultsportal/core/student"
	rediscache "github.com/phoenixacademy/resultsportal/storage/cache/redis"
	firestoredb "github.com/phoenixacademy/resultsportal/storage/database/firestore"
	inmemdb "github.com/phoenixacademy/resultsportal/storage/database/inmem"
	mongodb "github.com/phoenixacademy/resultsportal/storage/database/mongo"
	"github.com/phoenixacademy/resultsportal/storage/identity/firebaseauth"
)

// Store bundles the repositories of the configured backend.
type Store struct {
	Backend       string
	Students      student.Repository
	Marksheets    marksheet.Repository
	LoginAttempts security.Repository
	Accounts      account.Provider
	Throttle      security.Throttle
	DB            core.Pinger

	closers []func(ctx context.Context) error
}

// Open connects to the backend selected by `conf.Store.Backend`.
// The login throttle lives in Redis when an address is configured, in memory otherwise.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (*Store, error) {
	var (
		store = &Store{Backend: conf.Store.Backend}
		err   error
	)
	switch conf.Store.Backend {
	case core.BackendMemory, "":
		store.Backend = core.BackendMemory
		OpenMemory(store)
	case core.BackendMongo:
		err = openMongo(ctx, conf, store)
	case core.BackendFirestore:
		err = openFirestore(ctx, conf, store)
	default:
		return nil, errors.Errorf("unknown store backend %q", conf.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	if conf.Redis.Address != "" {
		rdb, err := rediscache.Open(ctx, conf.Redis)
		if err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		store.Throttle = rediscache.NewThrottle(rdb, conf.Security.LockoutWindow)
		store.closers = append(store.closers, func(context.Context) error { return rdb.Close() })
	} else {
		store.Throttle = inmemdb.NewThrottle(conf.Security.LockoutWindow)
	}

	if err = waitReady(ctx, store.DB); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	logger.Info(fmt.Sprintf("store: %s backend ready", store.Backend))
	return store, nil
}

// OpenMemory fills `store` with in-memory repositories and returns the underlying DB.
func OpenMemory(store *Store) *inmemdb.DB {
	db := inmemdb.Open()
	store.Students = inmemdb.NewStudentRepository(db)
	store.Marksheets = inmemdb.NewMarksheetRepository(db)
	store.LoginAttempts = inmemdb.NewLoginAttemptRepository(db)
	store.Accounts = inmemdb.NewAccountProvider(db)
	store.DB = db
	return db
}

func openMongo(ctx context.Context, conf *core.Config, store *Store) error {
	db, err := mongodb.Open(ctx, conf.Mongo)
	if err != nil {
		return errors.Wrap(err, "opening mongo database")
	}
	store.Students = mongodb.NewStudentRepository(db)
	store.Marksheets = mongodb.NewMarksheetRepository(db)
	store.LoginAttempts = mongodb.NewLoginAttemptRepository(db)
	store.Accounts = mongodb.NewAccountProvider(db)
	store.DB = db
	store.closers = append(store.closers, db.Close)
	return nil
}

func openFirestore(ctx context.Context, conf *core.Config, store *Store) error {
	app, err := firebaseauth.NewApp(ctx, conf.Firebase)
	if err != nil {
		return err
	}
	db, err := firestoredb.Open(ctx, app)
	if err != nil {
		return errors.Wrap(err, "opening firestore")
	}
	accounts, err := firebaseauth.NewProvider(ctx, app)
	if err != nil {
		_ = db.Close(ctx)
		return err
	}
	store.Students = firestoredb.NewStudentRepository(db)
	store.Marksheets = firestoredb.NewMarksheetRepository(db)
	store.LoginAttempts = firestoredb.NewLoginAttemptRepository(db)
	store.Accounts = accounts
	store.DB = db
	store.closers = append(store.closers, db.Close)
	return nil
}

// waitReady waits for the database to answer. Waits 100ms longer between each attempt.
func waitReady(ctx context.Context, db core.Pinger) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Close releases every connection of the store.
func (s *Store) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
