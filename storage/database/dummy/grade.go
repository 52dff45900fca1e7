package dummydb

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func gradeKey(studentID string, sectionID int, slot attendance.Slot, termID int) string {
	return fmt.Sprintf("%s/%d/%s/%d", studentID, sectionID, slot, termID)
}

func finalKey(studentID string, termID int) string {
	return fmt.Sprintf("%s/%d", studentID, termID)
}

func (repo *gradeRepository) UpsertGrade(ctx context.Context, rec grade.Record, exec ...core.DBExecutor) (grade.Record, error) {
	if err := repo.db.takeWriteErr(); err != nil {
		return grade.Record{}, err
	}

	repo.db.grade.Lock()
	defer repo.db.grade.Unlock()

	key := gradeKey(rec.StudentID, rec.SectionID, rec.Slot, rec.TermID)
	if prev, ok := repo.db.grade.table[key]; ok {
		rec.ID = prev.ID
	} else if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	repo.db.grade.table[key] = &rec
	return rec, nil
}

func (repo *gradeRepository) GetGrade(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) (grade.Record, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	if rec, ok := repo.db.grade.table[gradeKey(studentID, sectionID, slot, termID)]; ok {
		return *rec, nil
	}
	return grade.Record{}, grade.ErrNotFound
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) ([]grade.Record, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	recs := make([]grade.Record, 0)
	for _, rec := range repo.db.grade.table {
		if rec.StudentID == studentID && rec.TermID == termID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Slot < recs[j].Slot })
	return recs, nil
}

func (repo *gradeRepository) QuerySlotGrades(ctx context.Context, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) ([]grade.Record, error) {
	repo.db.grade.RLock()
	defer repo.db.grade.RUnlock()

	recs := make([]grade.Record, 0)
	for _, rec := range repo.db.grade.table {
		if rec.SectionID == sectionID && rec.Slot == slot && rec.TermID == termID {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StudentID < recs[j].StudentID })
	return recs, nil
}

func (repo *gradeRepository) ReplaceFinalGrade(ctx context.Context, fg grade.FinalGrade, exec ...core.DBExecutor) (grade.FinalGrade, error) {
	if err := repo.db.takeWriteErr(); err != nil {
		return grade.FinalGrade{}, err
	}

	repo.db.finalGrade.Lock()
	defer repo.db.finalGrade.Unlock()

	fg.ID = uuid.New().String()
	key := finalKey(fg.StudentID, fg.TermID)
	delete(repo.db.finalGrade.table, key)
	repo.db.finalGrade.table[key] = &fg
	return fg, nil
}

func (repo *gradeRepository) GetFinalGrade(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (grade.FinalGrade, error) {
	repo.db.finalGrade.RLock()
	defer repo.db.finalGrade.RUnlock()

	if fg, ok := repo.db.finalGrade.table[finalKey(studentID, termID)]; ok {
		return *fg, nil
	}
	return grade.FinalGrade{}, grade.ErrFinalNotFound
}

func (repo *gradeRepository) QueryFinalGrades(ctx context.Context, termID int, exec ...core.DBExecutor) ([]grade.FinalGrade, error) {
	repo.db.finalGrade.RLock()
	defer repo.db.finalGrade.RUnlock()

	finals := make([]grade.FinalGrade, 0)
	for _, fg := range repo.db.finalGrade.table {
		if fg.TermID == termID {
			finals = append(finals, *fg)
		}
	}
	sort.Slice(finals, func(i, j int) bool { return finals[i].StudentID < finals[j].StudentID })
	return finals, nil
}
