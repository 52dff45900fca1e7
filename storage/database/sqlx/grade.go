package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/grade"
)

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

type (
	gradeRow struct {
		ID        string  `db:"id"`
		StudentID string  `db:"student_id"`
		SectionID int     `db:"section_id"`
		Slot      string  `db:"exercise_slot"`
		Grade     float64 `db:"grade"`
		Timestamp string  `db:"recorded_at"`
		TermID    int     `db:"term_id"`
	}

	finalGradeRow struct {
		ID         string       `db:"id"`
		StudentID  string       `db:"student_id"`
		TermID     int          `db:"term_id"`
		LabAverage null.Float64 `db:"lab_average"`
		JunExam    null.Float64 `db:"jun_exam"`
		SepExam    null.Float64 `db:"sep_exam"`
		Final      null.Float64 `db:"final"`
	}
)

func (r gradeRow) toCore() grade.Record {
	return grade.Record{
		ID:        r.ID,
		StudentID: r.StudentID,
		SectionID: r.SectionID,
		Slot:      attendance.Slot(r.Slot),
		Grade:     r.Grade,
		Timestamp: r.Timestamp,
		TermID:    r.TermID,
	}
}

func (r finalGradeRow) toCore() grade.FinalGrade {
	return grade.FinalGrade{
		ID:         r.ID,
		StudentID:  r.StudentID,
		TermID:     r.TermID,
		LabAverage: r.LabAverage,
		JunExam:    r.JunExam,
		SepExam:    r.SepExam,
		Final:      r.Final,
	}
}

func (repo gradeRepository) UpsertGrade(ctx context.Context, rec grade.Record, exec ...core.DBExecutor) (grade.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := getExec(repo.db, exec).ExecContext(ctx,
		`INSERT INTO grade (id, student_id, section_id, exercise_slot, grade, recorded_at, term_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (student_id, section_id, exercise_slot, term_id)
		 DO UPDATE SET grade = EXCLUDED.grade, recorded_at = EXCLUDED.recorded_at`,
		rec.ID, rec.StudentID, rec.SectionID, string(rec.Slot), rec.Grade, rec.Timestamp, rec.TermID)
	if err != nil {
		return grade.Record{}, errors.Wrap(err, "upserting grade record")
	}
	return rec, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) (grade.Record, error) {
	var row gradeRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, student_id, section_id, exercise_slot, grade, recorded_at, term_id
		 FROM grade
		 WHERE student_id = $1 AND section_id = $2 AND exercise_slot = $3 AND term_id = $4`,
		studentID, sectionID, string(slot), termID)
	if err != nil {
		return grade.Record{}, trapNoRowsErr(err, grade.ErrNotFound, "finding grade record")
	}
	return row.toCore(), nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) ([]grade.Record, error) {
	return repo.query(ctx, getExec(repo.db, exec),
		`SELECT id, student_id, section_id, exercise_slot, grade, recorded_at, term_id
		 FROM grade
		 WHERE student_id = $1 AND term_id = $2`,
		studentID, termID)
}

func (repo gradeRepository) QuerySlotGrades(ctx context.Context, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) ([]grade.Record, error) {
	return repo.query(ctx, getExec(repo.db, exec),
		`SELECT id, student_id, section_id, exercise_slot, grade, recorded_at, term_id
		 FROM grade
		 WHERE section_id = $1 AND exercise_slot = $2 AND term_id = $3`,
		sectionID, string(slot), termID)
}

func (repo gradeRepository) query(ctx context.Context, exe sqlx.ExtContext, query string, args ...interface{}) ([]grade.Record, error) {
	var rows []gradeRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	recs := make([]grade.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toCore())
	}
	return recs, nil
}

func (repo gradeRepository) ReplaceFinalGrade(ctx context.Context, fg grade.FinalGrade, exec ...core.DBExecutor) (grade.FinalGrade, error) {
	fg.ID = uuid.New().String()

	run := func(exe core.DBExecutor) error {
		if _, err := exe.ExecContext(ctx,
			`DELETE FROM final_grade WHERE student_id = $1 AND term_id = $2`,
			fg.StudentID, fg.TermID); err != nil {
			return errors.Wrap(err, "deleting final grade")
		}
		if _, err := exe.ExecContext(ctx,
			`INSERT INTO final_grade (id, student_id, term_id, lab_average, jun_exam, sep_exam, final)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			fg.ID, fg.StudentID, fg.TermID, fg.LabAverage, fg.JunExam, fg.SepExam, fg.Final); err != nil {
			return errors.Wrap(err, "inserting final grade")
		}
		return nil
	}

	if len(exec) > 0 {
		if err := run(exec[0]); err != nil {
			return grade.FinalGrade{}, err
		}
		return fg, nil
	}
	if err := NewTransactor(repo.db).InTx(ctx, run); err != nil {
		return grade.FinalGrade{}, err
	}
	return fg, nil
}

func (repo gradeRepository) GetFinalGrade(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (grade.FinalGrade, error) {
	var row finalGradeRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, student_id, term_id, lab_average, jun_exam, sep_exam, final
		 FROM final_grade
		 WHERE student_id = $1 AND term_id = $2`,
		studentID, termID)
	if err != nil {
		return grade.FinalGrade{}, trapNoRowsErr(err, grade.ErrFinalNotFound, "finding final grade")
	}
	return row.toCore(), nil
}

func (repo gradeRepository) QueryFinalGrades(ctx context.Context, termID int, exec ...core.DBExecutor) ([]grade.FinalGrade, error) {
	var rows []finalGradeRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT fg.id, fg.student_id, fg.term_id, fg.lab_average, fg.jun_exam, fg.sep_exam, fg.final
		 FROM final_grade fg JOIN student s ON s.id = fg.student_id
		 WHERE fg.term_id = $1
		 ORDER BY s.name`,
		termID)
	if err != nil {
		return nil, errors.Wrap(err, "querying final grades")
	}
	finals := make([]grade.FinalGrade, 0, len(rows))
	for _, row := range rows {
		finals = append(finals, row.toCore())
	}
	return finals, nil
}
