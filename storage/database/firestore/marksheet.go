package firestoredb

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"

	"github.com/phoenixacademy/resultsportal/core/marksheet"
)

type marksheetRepository struct {
	db *DB
}

var _ marksheet.Repository = (*marksheetRepository)(nil)

func NewMarksheetRepository(db *DB) marksheet.Repository {
	return &marksheetRepository{db: db}
}

func (repo *marksheetRepository) marks(studentID string) *firestore.CollectionRef {
	return repo.db.client.Collection(studentsCollection).Doc(studentID).Collection(marksCollection)
}

func toMarksheet(studentID string, doc *firestore.DocumentSnapshot) (marksheet.Marksheet, error) {
	var ms marksheet.Marksheet
	if err := doc.DataTo(&ms); err != nil {
		return marksheet.Marksheet{}, errors.Wrapf(err, "decoding marksheet %s", doc.Ref.ID)
	}
	ms.ID = doc.Ref.ID
	ms.StudentID = studentID
	return ms, nil
}

func (repo *marksheetRepository) CreateMarksheet(ctx context.Context, ms marksheet.Marksheet) (marksheet.Marksheet, error) {
	if _, err := repo.marks(ms.StudentID).Doc(ms.ID).Create(ctx, ms); err != nil {
		return marksheet.Marksheet{}, errors.Wrap(err, "creating marksheet")
	}
	return ms, nil
}

func (repo *marksheetRepository) GetMarksheet(ctx context.Context, studentID, id string) (marksheet.Marksheet, error) {
	doc, err := repo.marks(studentID).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return marksheet.Marksheet{}, marksheet.ErrNotFound
		}
		return marksheet.Marksheet{}, errors.Wrap(err, "getting marksheet")
	}
	return toMarksheet(studentID, doc)
}

func (repo *marksheetRepository) ListMarksheets(ctx context.Context, studentID string) ([]marksheet.Marksheet, error) {
	iter := repo.marks(studentID).OrderBy("dateOfTest", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	sheets := make([]marksheet.Marksheet, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "querying marksheets")
		}
		ms, err := toMarksheet(studentID, doc)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, ms)
	}
	// newest first among tests of the same day
	marksheet.SortNewestFirst(sheets)
	return sheets, nil
}

func (repo *marksheetRepository) UpdateMarksheet(ctx context.Context, ms marksheet.Marksheet) (marksheet.Marksheet, error) {
	ref := repo.marks(ms.StudentID).Doc(ms.ID)
	err := repo.db.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, ms)
	})
	if err != nil {
		if isNotFound(err) {
			return marksheet.Marksheet{}, marksheet.ErrNotFound
		}
		return marksheet.Marksheet{}, errors.Wrap(err, "updating marksheet")
	}
	return ms, nil
}

func (repo *marksheetRepository) DeleteMarksheet(ctx context.Context, studentID, id string) error {
	if _, err := repo.marks(studentID).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if isNotFound(err) {
			return marksheet.ErrNotFound
		}
		return errors.Wrap(err, "deleting marksheet")
	}
	return nil
}

func (repo *marksheetRepository) DeleteMarksheets(ctx context.Context, studentID string) (int, error) {
	return repo.db.deleteAll(ctx, repo.marks(studentID).Documents(ctx))
}
