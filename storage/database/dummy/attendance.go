package dummydb

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func attendanceKey(studentID string, sectionID int, slot attendance.Slot, termID int) string {
	return fmt.Sprintf("%s/%d/%s/%d", studentID, sectionID, slot, termID)
}

func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, recs []attendance.Record, exec ...core.DBExecutor) error {
	if err := repo.db.takeWriteErr(); err != nil {
		return err
	}

	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()

	for _, rec := range recs {
		key := attendanceKey(rec.StudentID, rec.SectionID, rec.Slot, rec.TermID)
		if prev, ok := repo.db.attendance.table[key]; ok {
			rec.ID = prev.ID
		} else if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		rec := rec
		repo.db.attendance.table[key] = &rec
	}
	return nil
}

func (repo *attendanceRepository) GetAttendance(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) (attendance.Record, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	if rec, ok := repo.db.attendance.table[attendanceKey(studentID, sectionID, slot, termID)]; ok {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) ([]attendance.Record, error) {
	return repo.QuerySlotAttendance(ctx, sectionID, []attendance.Slot{slot}, termID)
}

func (repo *attendanceRepository) QuerySlotAttendance(ctx context.Context, sectionID int, slots []attendance.Slot, termID int, exec ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.attendance.RLock()
	defer repo.db.attendance.RUnlock()

	wanted := make(map[attendance.Slot]bool, len(slots))
	for _, slot := range slots {
		wanted[slot] = true
	}

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.attendance.table {
		if rec.SectionID == sectionID && rec.TermID == termID && wanted[rec.Slot] {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].StudentID < recs[j].StudentID })
	return recs, nil
}
