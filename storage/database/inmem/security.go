package inmemdb

import (
	"context"
	"sort"

	"github.com/phoenixacademy/resultsportal/core/security"
)

type loginAttemptRepository struct {
	db *attemptTable
}

var _ security.Repository = (*loginAttemptRepository)(nil)

func NewLoginAttemptRepository(db *DB) security.Repository {
	return &loginAttemptRepository{db: db.attempt}
}

func (repo *loginAttemptRepository) CreateLoginAttempt(_ context.Context, la security.LoginAttempt) (security.LoginAttempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[la.ID] = &la
	return la, nil
}

func (repo *loginAttemptRepository) ListLoginAttempts(_ context.Context, limit int) ([]security.LoginAttempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	attempts := make([]security.LoginAttempt, 0, len(repo.db.table))
	for _, la := range repo.db.table {
		attempts = append(attempts, *la)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].Timestamp.After(attempts[j].Timestamp) })
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

func (repo *loginAttemptRepository) ClearLoginAttempts(_ context.Context) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := len(repo.db.table)
	repo.db.table = make(map[string]*security.LoginAttempt)
	return n, nil
}
