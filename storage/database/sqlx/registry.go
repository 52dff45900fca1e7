package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/registry"
)

type registryRepository struct {
	db *sqlx.DB
}

var _ registry.Repository = (*registryRepository)(nil) // interface compliance check

func NewRegistryRepository(db *sqlx.DB) *registryRepository {
	return &registryRepository{db: db}
}

type (
	termRow struct {
		ID       int    `db:"id"`
		Semester string `db:"semester"`
		Year     int    `db:"year"`
	}

	sectionRow struct {
		ID     int    `db:"id"`
		Name   string `db:"name"`
		TermID int    `db:"term_id"`
	}

	studentRow struct {
		ID                 string `db:"id"`
		Name               string `db:"name"`
		Email              string `db:"email"`
		RegistrationNumber string `db:"registration_number"`
	}

	enrollmentRow struct {
		ID        string `db:"id"`
		StudentID string `db:"student_id"`
		SectionID int    `db:"section_id"`
		TermID    int    `db:"term_id"`
	}

	studentInfoRow struct {
		studentRow
		SectionName string `db:"section_name"`
		TeamNumber  int    `db:"team_number"`
		Semester    string `db:"semester"`
		Year        int    `db:"year"`
	}
)

func (r termRow) toCore() registry.Term {
	return registry.Term{ID: r.ID, Semester: r.Semester, Year: r.Year}
}

func (r sectionRow) toCore() registry.Section {
	return registry.Section{ID: r.ID, Name: r.Name, TermID: r.TermID}
}

func (r studentRow) toCore() registry.Student {
	return registry.Student{ID: r.ID, Name: r.Name, Email: r.Email, RegistrationNumber: r.RegistrationNumber}
}

func (r enrollmentRow) toCore() registry.Enrollment {
	return registry.Enrollment{ID: r.ID, StudentID: r.StudentID, SectionID: r.SectionID, TermID: r.TermID}
}

func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo registryRepository) CreateTerm(ctx context.Context, t registry.Term, exec ...core.DBExecutor) (registry.Term, error) {
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &t.ID,
		`INSERT INTO term (semester, year) VALUES ($1, $2) RETURNING id`, t.Semester, t.Year)
	if err != nil {
		return registry.Term{}, errors.Wrap(err, "inserting term")
	}
	return t, nil
}

func (repo registryRepository) GetTerm(ctx context.Context, id int, exec ...core.DBExecutor) (registry.Term, error) {
	var row termRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, semester, year FROM term WHERE id = $1`, id)
	if err != nil {
		return registry.Term{}, trapNoRowsErr(err, registry.ErrTermNotFound, "finding term by ID")
	}
	return row.toCore(), nil
}

func (repo registryRepository) GetTermBySemesterYear(ctx context.Context, semester string, year int, exec ...core.DBExecutor) (registry.Term, error) {
	var row termRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, semester, year FROM term WHERE semester = $1 AND year = $2`, semester, year)
	if err != nil {
		return registry.Term{}, trapNoRowsErr(err, registry.ErrTermNotFound, "finding term")
	}
	return row.toCore(), nil
}

func (repo registryRepository) QueryTerms(ctx context.Context, exec ...core.DBExecutor) ([]registry.Term, error) {
	var rows []termRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT id, semester, year FROM term ORDER BY year, semester`)
	if err != nil {
		return nil, errors.Wrap(err, "querying terms")
	}
	terms := make([]registry.Term, 0, len(rows))
	for _, row := range rows {
		terms = append(terms, row.toCore())
	}
	return terms, nil
}

func (repo registryRepository) CreateSection(ctx context.Context, s registry.Section, exec ...core.DBExecutor) (registry.Section, error) {
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &s.ID,
		`INSERT INTO section (name, term_id) VALUES ($1, $2) RETURNING id`, s.Name, s.TermID)
	if err != nil {
		return registry.Section{}, errors.Wrap(err, "inserting section")
	}
	return s, nil
}

func (repo registryRepository) GetSection(ctx context.Context, id int, exec ...core.DBExecutor) (registry.Section, error) {
	var row sectionRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, name, term_id FROM section WHERE id = $1`, id)
	if err != nil {
		return registry.Section{}, trapNoRowsErr(err, registry.ErrSectionNotFound, "finding section by ID")
	}
	return row.toCore(), nil
}

func (repo registryRepository) GetSectionByName(ctx context.Context, termID int, name string, exec ...core.DBExecutor) (registry.Section, error) {
	var row sectionRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, name, term_id FROM section WHERE term_id = $1 AND name = $2`, termID, name)
	if err != nil {
		return registry.Section{}, trapNoRowsErr(err, registry.ErrSectionNotFound, "finding section by name")
	}
	return row.toCore(), nil
}

func (repo registryRepository) QuerySections(ctx context.Context, termID int, exec ...core.DBExecutor) ([]registry.Section, error) {
	var rows []sectionRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT id, name, term_id FROM section WHERE term_id = $1 ORDER BY name`, termID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	sections := make([]registry.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, row.toCore())
	}
	return sections, nil
}

func (repo registryRepository) CreateStudent(ctx context.Context, s registry.Student, exec ...core.DBExecutor) (registry.Student, error) {
	_, err := getExec(repo.db, exec).ExecContext(ctx,
		`INSERT INTO student (id, name, email, registration_number) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, s.Email, s.RegistrationNumber)
	if err != nil {
		return registry.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo registryRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (registry.Student, error) {
	var row studentRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, name, email, registration_number FROM student WHERE id = $1`, id)
	if err != nil {
		return registry.Student{}, trapNoRowsErr(err, registry.ErrStudentNotFound, "finding student by ID")
	}
	return row.toCore(), nil
}

func (repo registryRepository) SearchStudents(ctx context.Context, q string, exec ...core.DBExecutor) ([]registry.StudentInfo, error) {
	var rows []studentInfoRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT s.id, s.name, s.email, s.registration_number,
		        sec.name AS section_name, COALESCE(tm.team_number, 0) AS team_number,
		        t.semester, t.year
		 FROM student s
		 JOIN enrollment e ON e.student_id = s.id
		 JOIN section sec ON sec.id = e.section_id
		 JOIN term t ON t.id = e.term_id
		 LEFT JOIN team_membership tm ON tm.student_id = s.id AND tm.section_id = sec.id
		 WHERE s.id = $1 OR s.name ILIKE $2
		 ORDER BY t.year DESC, t.semester DESC, s.name`,
		q, "%"+q+"%")
	if err != nil {
		return nil, errors.Wrap(err, "searching students")
	}
	infos := make([]registry.StudentInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, registry.StudentInfo{
			Student:     row.studentRow.toCore(),
			SectionName: row.SectionName,
			TeamNumber:  row.TeamNumber,
			Semester:    row.Semester,
			Year:        row.Year,
		})
	}
	return infos, nil
}

func (repo registryRepository) CreateEnrollment(ctx context.Context, e registry.Enrollment, exec ...core.DBExecutor) (registry.Enrollment, error) {
	e.ID = uuid.New().String()
	_, err := getExec(repo.db, exec).ExecContext(ctx,
		`INSERT INTO enrollment (id, student_id, section_id, term_id) VALUES ($1, $2, $3, $4)`,
		e.ID, e.StudentID, e.SectionID, e.TermID)
	if err != nil {
		return registry.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo registryRepository) GetEnrollment(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (registry.Enrollment, error) {
	var row enrollmentRow
	err := sqlx.GetContext(ctx, getExec(repo.db, exec), &row,
		`SELECT id, student_id, section_id, term_id FROM enrollment WHERE student_id = $1 AND term_id = $2`,
		studentID, termID)
	if err != nil {
		return registry.Enrollment{}, trapNoRowsErr(err, registry.ErrNotEnrolled, "finding enrollment")
	}
	return row.toCore(), nil
}

func (repo registryRepository) QueryRoster(ctx context.Context, sectionID, termID int, exec ...core.DBExecutor) ([]registry.Student, error) {
	return repo.queryStudents(ctx, getExec(repo.db, exec),
		`SELECT s.id, s.name, s.email, s.registration_number
		 FROM student s JOIN enrollment e ON e.student_id = s.id
		 WHERE e.section_id = $1 AND e.term_id = $2
		 ORDER BY s.name`,
		sectionID, termID)
}

func (repo registryRepository) QueryTermStudents(ctx context.Context, termID int, exec ...core.DBExecutor) ([]registry.Student, error) {
	return repo.queryStudents(ctx, getExec(repo.db, exec),
		`SELECT s.id, s.name, s.email, s.registration_number
		 FROM student s JOIN enrollment e ON e.student_id = s.id
		 WHERE e.term_id = $1
		 ORDER BY s.name`,
		termID)
}

func (repo registryRepository) queryStudents(ctx context.Context, exe sqlx.ExtContext, query string, args ...interface{}) ([]registry.Student, error) {
	var rows []studentRow
	if err := sqlx.SelectContext(ctx, exe, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]registry.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toCore())
	}
	return students, nil
}

func (repo registryRepository) TransferEnrollment(ctx context.Context, studentID string, termID, newSectionID int, exec ...core.DBExecutor) error {
	run := func(exe core.DBExecutor) error {
		if _, err := exe.ExecContext(ctx,
			`UPDATE enrollment SET section_id = $1 WHERE student_id = $2 AND term_id = $3`,
			newSectionID, studentID, termID); err != nil {
			return errors.Wrap(err, "repointing enrollment")
		}
		if _, err := exe.ExecContext(ctx,
			`UPDATE attendance SET section_id = $1 WHERE student_id = $2 AND term_id = $3`,
			newSectionID, studentID, termID); err != nil {
			return errors.Wrap(err, "moving attendance records")
		}
		return nil
	}

	// already inside a caller-owned transaction
	if len(exec) > 0 {
		return run(exec[0])
	}
	return NewTransactor(repo.db).InTx(ctx, run)
}
