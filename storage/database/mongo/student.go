package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/student"
)

// case-insensitive comparisons
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type studentRepository struct {
	coll *mongo.Collection
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{coll: db.db.Collection(studentsCollection)}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if _, err := repo.coll.InsertOne(ctx, st); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return student.Student{}, student.ErrRollNumberExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo *studentRepository) findOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (student.Student, error) {
	var st student.Student
	if err := repo.coll.FindOne(ctx, filter, opts...).Decode(&st); err != nil {
		if err == mongo.ErrNoDocuments {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	return st, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, key string) (student.Student, error) {
	return repo.findOne(ctx, bson.M{"_id": key})
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	return repo.findOne(ctx, bson.M{"email": email}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (repo *studentRepository) QueryStudents(
	ctx context.Context,
	filter student.QueryFilter,
	orderings []core.DBOrdering,
) ([]student.Student, error) {
	query := bson.M{}
	if filter.Class != 0 {
		query["class"] = filter.Class
	}
	if filter.Stream != "" {
		query["stream"] = filter.Stream
	}
	if filter.Batch != "" {
		query["batch"] = filter.Batch
	}
	if filter.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"roll_number": pattern},
			bson.M{"student_name": pattern},
			bson.M{"email": pattern},
		}
	}

	opts := options.Find().SetSort(sortDoc(orderings)).SetCollation(caseInsensitive)
	cursor, err := repo.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	defer cursor.Close(ctx)

	students := make([]student.Student, 0)
	if err = cursor.All(ctx, &students); err != nil {
		return nil, errors.Wrap(err, "decoding students")
	}
	return students, nil
}

// sortDoc translates orderings to a sort document. Ties are broken by key.
func sortDoc(orderings []core.DBOrdering) bson.D {
	doc := make(bson.D, 0, len(orderings)+1)
	for _, ord := range orderings {
		field := ord.Field
		if field == "roll_number" {
			field = "_id"
		}
		direction := -1
		if ord.Ascending {
			direction = 1
		}
		doc = append(doc, bson.E{Key: field, Value: direction})
	}
	return append(doc, bson.E{Key: "_id", Value: 1})
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": st.ID}, st)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "replacing student")
	}
	if res.MatchedCount == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, key string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if res.DeletedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}
