package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/phoenixacademy/resultsportal/core/security"
)

type loginAttemptRepository struct {
	db *DB
}

var _ security.Repository = (*loginAttemptRepository)(nil)

func NewLoginAttemptRepository(db *DB) security.Repository {
	return &loginAttemptRepository{db: db}
}

func (repo *loginAttemptRepository) coll() *firestore.CollectionRef {
	return repo.db.client.Collection(loginAttemptsCollection)
}

func (repo *loginAttemptRepository) CreateLoginAttempt(ctx context.Context, la security.LoginAttempt) (security.LoginAttempt, error) {
	if _, err := repo.coll().Doc(la.ID).Set(ctx, la); err != nil {
		return security.LoginAttempt{}, errors.Wrap(err, "creating login attempt")
	}
	return la, nil
}

func (repo *loginAttemptRepository) ListLoginAttempts(ctx context.Context, limit int) ([]security.LoginAttempt, error) {
	query := repo.coll().OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	attempts := make([]security.LoginAttempt, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "querying login attempts")
		}
		var la security.LoginAttempt
		if err = doc.DataTo(&la); err != nil {
			return nil, errors.Wrapf(err, "decoding login attempt %s", doc.Ref.ID)
		}
		la.ID = doc.Ref.ID
		attempts = append(attempts, la)
	}
	return attempts, nil
}

func (repo *loginAttemptRepository) ClearLoginAttempts(ctx context.Context) (int, error) {
	return repo.db.deleteAll(ctx, repo.coll().Documents(ctx))
}
