package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phoenixacademy/resultsportal/core/marksheet"
)

type marksheetRepository struct {
	coll *mongo.Collection
}

var _ marksheet.Repository = (*marksheetRepository)(nil)

func NewMarksheetRepository(db *DB) marksheet.Repository {
	return &marksheetRepository{coll: db.db.Collection(marksheetsCollection)}
}

func (repo *marksheetRepository) CreateMarksheet(ctx context.Context, ms marksheet.Marksheet) (marksheet.Marksheet, error) {
	if _, err := repo.coll.InsertOne(ctx, ms); err != nil {
		return marksheet.Marksheet{}, errors.Wrap(err, "inserting marksheet")
	}
	return ms, nil
}

func (repo *marksheetRepository) GetMarksheet(ctx context.Context, studentID, id string) (marksheet.Marksheet, error) {
	var ms marksheet.Marksheet
	err := repo.coll.FindOne(ctx, bson.M{"_id": id, "student_id": studentID}).Decode(&ms)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return marksheet.Marksheet{}, marksheet.ErrNotFound
		}
		return marksheet.Marksheet{}, errors.Wrap(err, "finding marksheet")
	}
	return ms, nil
}

func (repo *marksheetRepository) ListMarksheets(ctx context.Context, studentID string) ([]marksheet.Marksheet, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date_of_test", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := repo.coll.Find(ctx, bson.M{"student_id": studentID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying marksheets")
	}
	defer cursor.Close(ctx)

	sheets := make([]marksheet.Marksheet, 0)
	if err = cursor.All(ctx, &sheets); err != nil {
		return nil, errors.Wrap(err, "decoding marksheets")
	}
	return sheets, nil
}

func (repo *marksheetRepository) UpdateMarksheet(ctx context.Context, ms marksheet.Marksheet) (marksheet.Marksheet, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": ms.ID, "student_id": ms.StudentID}, ms)
	if err != nil {
		return marksheet.Marksheet{}, errors.Wrap(err, "replacing marksheet")
	}
	if res.MatchedCount == 0 {
		return marksheet.Marksheet{}, marksheet.ErrNotFound
	}
	return ms, nil
}

func (repo *marksheetRepository) DeleteMarksheet(ctx context.Context, studentID, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id, "student_id": studentID})
	if err != nil {
		return errors.Wrap(err, "deleting marksheet")
	}
	if res.DeletedCount == 0 {
		return marksheet.ErrNotFound
	}
	return nil
}

func (repo *marksheetRepository) DeleteMarksheets(ctx context.Context, studentID string) (int, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return 0, errors.Wrap(err, "deleting marksheets")
	}
	return int(res.DeletedCount), nil
}
