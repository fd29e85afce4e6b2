package inmemdb

import (
	"context"

	"github.com/phoenixacademy/resultsportal/core/marksheet"
)

type marksheetRepository struct {
	db *marksheetTable
}

var _ marksheet.Repository = (*marksheetRepository)(nil)

func NewMarksheetRepository(db *DB) marksheet.Repository {
	return &marksheetRepository{db: db.marksheet}
}

func (repo *marksheetRepository) CreateMarksheet(_ context.Context, ms marksheet.Marksheet) (marksheet.Marksheet, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sheets, ok := repo.db.table[ms.StudentID]
	if !ok {
		sheets = make(map[string]*marksheet.Marksheet)
		repo.db.table[ms.StudentID] = sheets
	}
	sheets[ms.ID] = &ms
	return ms, nil
}

func (repo *marksheetRepository) GetMarksheet(_ context.Context, studentID, id string) (marksheet.Marksheet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ms, ok := repo.db.table[studentID][id]; ok {
		return *ms, nil
	}
	return marksheet.Marksheet{}, marksheet.ErrNotFound
}

func (repo *marksheetRepository) ListMarksheets(_ context.Context, studentID string) ([]marksheet.Marksheet, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sheets := make([]marksheet.Marksheet, 0, len(repo.db.table[studentID]))
	for _, ms := range repo.db.table[studentID] {
		sheets = append(sheets, *ms)
	}
	marksheet.SortNewestFirst(sheets)
	return sheets, nil
}

func (repo *marksheetRepository) UpdateMarksheet(_ context.Context, ms marksheet.Marksheet) (marksheet.Marksheet, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[ms.StudentID][ms.ID]; !ok {
		return marksheet.Marksheet{}, marksheet.ErrNotFound
	}
	repo.db.table[ms.StudentID][ms.ID] = &ms
	return ms, nil
}

func (repo *marksheetRepository) DeleteMarksheet(_ context.Context, studentID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[studentID][id]; !ok {
		return marksheet.ErrNotFound
	}
	delete(repo.db.table[studentID], id)
	return nil
}

func (repo *marksheetRepository) DeleteMarksheets(_ context.Context, studentID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := len(repo.db.table[studentID])
	delete(repo.db.table, studentID)
	return n, nil
}
