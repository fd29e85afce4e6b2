package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phoenixacademy/resultsportal/core/security"
)

type loginAttemptRepository struct {
	coll *mongo.Collection
}

var _ security.Repository = (*loginAttemptRepository)(nil)

func NewLoginAttemptRepository(db *DB) security.Repository {
	return &loginAttemptRepository{coll: db.db.Collection(loginAttemptsCollection)}
}

func (repo *loginAttemptRepository) CreateLoginAttempt(ctx context.Context, la security.LoginAttempt) (security.LoginAttempt, error) {
	if _, err := repo.coll.InsertOne(ctx, la); err != nil {
		return security.LoginAttempt{}, errors.Wrap(err, "inserting login attempt")
	}
	return la, nil
}

func (repo *loginAttemptRepository) ListLoginAttempts(ctx context.Context, limit int) ([]security.LoginAttempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := repo.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying login attempts")
	}
	defer cursor.Close(ctx)

	attempts := make([]security.LoginAttempt, 0)
	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, errors.Wrap(err, "decoding login attempts")
	}
	return attempts, nil
}

func (repo *loginAttemptRepository) ClearLoginAttempts(ctx context.Context) (int, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrap(err, "deleting login attempts")
	}
	return int(res.DeletedCount), nil
}
