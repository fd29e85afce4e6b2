package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/student"
)

type studentRepository struct {
	coll *firestore.CollectionRef
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{coll: db.client.Collection(studentsCollection)}
}

func toStudent(doc *firestore.DocumentSnapshot) (student.Student, error) {
	var st student.Student
	if err := doc.DataTo(&st); err != nil {
		return student.Student{}, errors.Wrapf(err, "decoding student %s", doc.Ref.ID)
	}
	st.ID = doc.Ref.ID
	return st, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	if _, err := repo.coll.Doc(st.ID).Create(ctx, st); err != nil {
		if isAlreadyExists(err) {
			return student.Student{}, student.ErrRollNumberExists
		}
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, key string) (student.Student, error) {
	doc, err := repo.coll.Doc(key).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return toStudent(doc)
}

func (repo *studentRepository) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	iter := repo.coll.Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, errors.Wrap(err, "querying student by email")
	}
	return toStudent(doc)
}

// QueryStudents runs the equality filters on Firestore.
// Search and ordering are applied in memory: Firestore has no substring matching.
func (repo *studentRepository) QueryStudents(
	ctx context.Context,
	filter student.QueryFilter,
	orderings []core.DBOrdering,
) ([]student.Student, error) {
	query := repo.coll.Query
	if filter.Class != 0 {
		query = query.Where("class", "==", filter.Class)
	}
	if filter.Stream != "" {
		query = query.Where("stream", "==", filter.Stream)
	}
	if filter.Batch != "" {
		query = query.Where("batch", "==", filter.Batch)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	students := make([]student.Student, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "querying students")
		}
		st, err := toStudent(doc)
		if err != nil {
			return nil, err
		}
		if filter.Match(st) {
			students = append(students, st)
		}
	}
	student.Sort(students, orderings)
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	_, err := repo.coll.Doc(st.ID).Update(ctx, []firestore.Update{
		{Path: "studentName", Value: st.StudentName},
		{Path: "parentsName", Value: st.ParentsName},
		{Path: "dateOfBirth", Value: st.DateOfBirth},
		{Path: "email", Value: st.Email},
		{Path: "class", Value: st.Class},
		{Path: "stream", Value: st.Stream},
		{Path: "batch", Value: st.Batch},
	})
	if err != nil {
		if isNotFound(err) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return st, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, key string) error {
	if _, err := repo.coll.Doc(key).Delete(ctx, firestore.Exists); err != nil {
		if isNotFound(err) {
			return student.ErrNotFound
		}
		return errors.Wrap(err, "deleting student")
	}
	return nil
}
