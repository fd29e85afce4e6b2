package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phoenixacademy/resultsportal/core/account"
)

type accountProvider struct {
	coll *mongo.Collection
}

var _ account.Provider = (*accountProvider)(nil)

// NewAccountProvider returns an identity provider keeping accounts in the `accounts` collection.
// Only password sign in is supported.
func NewAccountProvider(db *DB) account.Provider {
	return &accountProvider{coll: db.db.Collection(accountsCollection)}
}

func (p *accountProvider) findOne(ctx context.Context, filter bson.M) (account.Account, error) {
	var acc account.Account
	if err := p.coll.FindOne(ctx, filter).Decode(&acc); err != nil {
		if err == mongo.ErrNoDocuments {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	return acc, nil
}

func (p *accountProvider) CreateAccount(ctx context.Context, na account.NewAccount) (account.Account, error) {
	acc, err := account.BuildAccount(na)
	if err != nil {
		return account.Account{}, err
	}
	if _, err = p.coll.InsertOne(ctx, acc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (p *accountProvider) GetAccount(ctx context.Context, uid string) (account.Account, error) {
	return p.findOne(ctx, bson.M{"_id": uid})
}

func (p *accountProvider) GetAccountByEmail(ctx context.Context, email string) (account.Account, error) {
	return p.findOne(ctx, bson.M{"email": email})
}

func (p *accountProvider) UpdateAccount(ctx context.Context, uid string, ua account.UpdateAccount) (account.Account, error) {
	acc, err := p.GetAccount(ctx, uid)
	if err != nil {
		return account.Account{}, err
	}
	if err = account.ApplyUpdate(&acc, ua); err != nil {
		return account.Account{}, err
	}
	res, err := p.coll.ReplaceOne(ctx, bson.M{"_id": uid}, acc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "replacing account")
	}
	if res.MatchedCount == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acc, nil
}

func (p *accountProvider) DeleteAccount(ctx context.Context, uid string) error {
	res, err := p.coll.DeleteOne(ctx, bson.M{"_id": uid})
	if err != nil {
		return errors.Wrap(err, "deleting account")
	}
	if res.DeletedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (p *accountProvider) SignIn(ctx context.Context, creds account.Credentials) (account.Account, error) {
	if creds.IDToken != "" {
		return account.Account{}, account.ErrUnsupported
	}
	acc, err := p.GetAccountByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return account.Account{}, account.ErrInvalidCredentials
		}
		return account.Account{}, err
	}
	if err = account.CheckCredentials(acc, creds); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (p *accountProvider) SetLastLogin(ctx context.Context, uid string, t time.Time) error {
	res, err := p.coll.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"last_login": t}})
	if err != nil {
		return errors.Wrap(err, "updating last login")
	}
	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}
