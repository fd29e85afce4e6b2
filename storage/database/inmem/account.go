package inmemdb

import (
	"context"
	"time"

	"github.com/phoenixacademy/resultsportal/core/account"
)

type accountProvider struct {
	db *accountTable
}

var _ account.Provider = (*accountProvider)(nil)

// NewAccountProvider returns an identity provider keeping accounts in memory.
func NewAccountProvider(db *DB) account.Provider {
	return &accountProvider{db: db.account}
}

func (p *accountProvider) findByEmail(email string) (*account.Account, bool) {
	for _, acc := range p.db.table {
		if acc.Email == email {
			return acc, true
		}
	}
	return nil, false
}

func (p *accountProvider) CreateAccount(_ context.Context, na account.NewAccount) (account.Account, error) {
	p.db.mutex.Lock()
	defer p.db.mutex.Unlock()

	if _, ok := p.findByEmail(na.Email); ok {
		return account.Account{}, account.ErrEmailExists
	}
	acc, err := account.BuildAccount(na)
	if err != nil {
		return account.Account{}, err
	}
	p.db.table[acc.UID] = &acc
	return acc, nil
}

func (p *accountProvider) GetAccount(_ context.Context, uid string) (account.Account, error) {
	p.db.mutex.RLock()
	defer p.db.mutex.RUnlock()

	if acc, ok := p.db.table[uid]; ok {
		return *acc, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (p *accountProvider) GetAccountByEmail(_ context.Context, email string) (account.Account, error) {
	p.db.mutex.RLock()
	defer p.db.mutex.RUnlock()

	if acc, ok := p.findByEmail(email); ok {
		return *acc, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (p *accountProvider) UpdateAccount(_ context.Context, uid string, ua account.UpdateAccount) (account.Account, error) {
	p.db.mutex.Lock()
	defer p.db.mutex.Unlock()

	orig, ok := p.db.table[uid]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	if ua.Email != "" && ua.Email != orig.Email {
		if _, ok := p.findByEmail(ua.Email); ok {
			return account.Account{}, account.ErrEmailExists
		}
	}
	acc := *orig
	if err := account.ApplyUpdate(&acc, ua); err != nil {
		return account.Account{}, err
	}
	p.db.table[uid] = &acc
	return acc, nil
}

func (p *accountProvider) DeleteAccount(_ context.Context, uid string) error {
	p.db.mutex.Lock()
	defer p.db.mutex.Unlock()

	if _, ok := p.db.table[uid]; !ok {
		return account.ErrNotFound
	}
	delete(p.db.table, uid)
	return nil
}

func (p *accountProvider) SignIn(_ context.Context, creds account.Credentials) (account.Account, error) {
	p.db.mutex.RLock()
	defer p.db.mutex.RUnlock()

	if creds.IDToken != "" {
		return account.Account{}, account.ErrUnsupported
	}
	acc, ok := p.findByEmail(creds.Email)
	if !ok {
		return account.Account{}, account.ErrInvalidCredentials
	}
	if err := account.CheckCredentials(*acc, creds); err != nil {
		return account.Account{}, err
	}
	return *acc, nil
}

func (p *accountProvider) SetLastLogin(_ context.Context, uid string, t time.Time) error {
	p.db.mutex.Lock()
	defer p.db.mutex.Unlock()

	acc, ok := p.db.table[uid]
	if !ok {
		return account.ErrNotFound
	}
	acc.LastLogin = t
	return nil
}
