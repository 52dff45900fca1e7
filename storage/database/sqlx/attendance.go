package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type attendanceRow struct {
	ID        string `db:"id"`
	StudentID string `db:"student_id"`
	SectionID int    `db:"section_id"`
	Slot      string `db:"exercise_slot"`
	Status    string `db:"status"`
	Timestamp string `db:"recorded_at"`
	TermID    int    `db:"term_id"`
}

func (r attendanceRow) toCore() attendance.Record {
	return attendance.Record{
		ID:        r.ID,
		StudentID: r.StudentID,
		SectionID: r.SectionID,
		Slot:      attendance.Slot(r.Slot),
		Status:    attendance.Status(r.Status),
		Timestamp: r.Timestamp,
		TermID:    r.TermID,
	}
}

func (repo attendanceRepository) UpsertAttendance(ctx context.Context, recs []attendance.Record, exec ...core.DBExecutor) error {
	if len(recs) == 0 {
		return nil
	}

	run := func(exe core.DBExecutor) error {
		for _, rec := range recs {
			if rec.ID == "" {
				rec.ID = uuid.New().String()
			}
			_, err := exe.ExecContext(ctx,
				`INSERT INTO attendance (id, student_id, section_id, exercise_slot, status, recorded_at, term_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (student_id, section_id, exercise_slot, term_id)
				 DO UPDATE SET status = EXCLUDED.status, recorded_at = EXCLUDED.recorded_at`,
				rec.ID, rec.StudentID, rec.SectionID, string(rec.Slot), string(rec.Status), rec.Timestamp, rec.TermID)
			if err != nil {
				return errors.Wrap(err, "upserting attendance record")
			}
		}
		return nil
	}

	if len(exec) > 0 {
		return run(exec[0])
	}
	return NewTransactor(repo.db).InTx(ctx, run)
}

func (repo attendanceRepository) GetAttendance(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) (attendance.Record, error) {
	var row attendanceRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, student_id, section_id, exercise_slot, status, recorded_at, term_id
		 FROM attendance
		 WHERE student_id = $1 AND section_id = $2 AND exercise_slot = $3 AND term_id = $4`,
		studentID, sectionID, string(slot), termID)
	if err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance record")
	}
	return row.toCore(), nil
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) ([]attendance.Record, error) {
	return repo.query(ctx, getExec(repo.db, exec),
		`SELECT id, student_id, section_id, exercise_slot, status, recorded_at, term_id
		 FROM attendance
		 WHERE section_id = $1 AND exercise_slot = $2 AND term_id = $3`,
		sectionID, string(slot), termID)
}

func (repo attendanceRepository) QuerySlotAttendance(ctx context.Context, sectionID int, slots []attendance.Slot, termID int, exec ...core.DBExecutor) ([]attendance.Record, error) {
	names := make([]string, 0, len(slots))
	for _, slot := range slots {
		names = append(names, string(slot))
	}
	query, args, err := sqlx.In(
		`SELECT id, student_id, section_id, exercise_slot, status, recorded_at, term_id
		 FROM attendance
		 WHERE section_id = ? AND exercise_slot IN (?) AND term_id = ?`,
		sectionID, names, termID)
	if err != nil {
		return nil, errors.Wrap(err, "binding slot list")
	}
	exe := getExec(repo.db, exec)
	return repo.query(ctx, exe, exe.Rebind(query), args...)
}

func (repo attendanceRepository) query(ctx context.Context, exe sqlx.ExtContext, query string, args ...interface{}) ([]attendance.Record, error) {
	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toCore())
	}
	return recs, nil
}
