package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/phoenixacademy/resultsportal/core"
)

// Collections
const (
	studentsCollection      = "students"
	marksheetsCollection    = "marksheets"
	loginAttemptsCollection = "login_attempts"
	accountsCollection      = "accounts"
)

// DB wraps a MongoDB client and the portal database.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB, waits for the primary to answer and makes sure the indexes exist.
func Open(ctx context.Context, conf core.MongoConfig) (*DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, conf.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(conf.URI).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize).
		SetConnectTimeout(conf.ConnectTimeout).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to MongoDB")
	}
	if err = client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging MongoDB")
	}

	db := &DB{client: client, db: client.Database(conf.Database)}
	if err = db.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		studentsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "class", Value: 1}, {Key: "stream", Value: 1}, {Key: "batch", Value: 1}}},
		},
		marksheetsCollection: {
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "date_of_test", Value: -1}}},
		},
		loginAttemptsCollection: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		accountsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range indexes {
		if _, err := db.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Drop drops the whole database. Used by tests.
func (db *DB) Drop(ctx context.Context) error {
	return db.db.Drop(ctx)
}
