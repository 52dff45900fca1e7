package registry

import (
	"context"
	"errors"

	"github.com/mkaralis/labreg/core"
)

var (
	// errors
	ErrTermNotFound       = errors.New("term not found")
	ErrSectionNotFound    = errors.New("section not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrTermExists         = errors.New("a term with this semester and year already exists")
	ErrSectionExists      = errors.New("a section with this name already exists in this term")
	ErrStudentExists      = errors.New("a student with this id already exists")
	ErrAlreadyEnrolled    = errors.New("student already has an active enrollment in this term")
	ErrNotEnrolled        = errors.New("student is not enrolled in this term")
	ErrSectionTermMismatch = errors.New("section does not belong to this term")
)

type (
	Repository interface {
		CreateTerm(ctx context.Context, t Term, exec ...core.DBExecutor) (Term, error)
		GetTerm(ctx context.Context, id int, exec ...core.DBExecutor) (Term, error)
		GetTermBySemesterYear(ctx context.Context, semester string, year int, exec ...core.DBExecutor) (Term, error)
		QueryTerms(ctx context.Context, exec ...core.DBExecutor) ([]Term, error)

		CreateSection(ctx context.Context, s Section, exec ...core.DBExecutor) (Section, error)
		GetSection(ctx context.Context, id int, exec ...core.DBExecutor) (Section, error)
		GetSectionByName(ctx context.Context, termID int, name string, exec ...core.DBExecutor) (Section, error)
		QuerySections(ctx context.Context, termID int, exec ...core.DBExecutor) ([]Section, error)

		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// SearchStudents matches on student id or a case-insensitive name fragment,
		// newest enrollment context first.
		SearchStudents(ctx context.Context, q string, exec ...core.DBExecutor) ([]StudentInfo, error)

		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (Enrollment, error)
		// QueryRoster returns the section's enrolled students, name ascending.
		QueryRoster(ctx context.Context, sectionID, termID int, exec ...core.DBExecutor) ([]Student, error)
		// QueryTermStudents returns every student enrolled in the term, name ascending.
		QueryTermStudents(ctx context.Context, termID int, exec ...core.DBExecutor) ([]Student, error)
		// TransferEnrollment repoints the enrollment at newSectionID and moves the
		// student's attendance rows for the term along with it, atomically.
		TransferEnrollment(ctx context.Context, studentID string, termID, newSectionID int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateTerm(ctx context.Context, nt NewTerm) (Term, error) {
	if err := nt.Validate(); err != nil {
		return Term{}, err
	}
	if _, err := svc.repo.GetTermBySemesterYear(ctx, nt.Semester, nt.Year); err == nil {
		return Term{}, core.NewValidationError(ErrTermExists,
			core.FieldError{Field: "semester", Error: ErrTermExists.Error()})
	} else if err != ErrTermNotFound {
		return Term{}, err
	}
	return svc.repo.CreateTerm(ctx, Term{Semester: nt.Semester, Year: nt.Year})
}

func (svc *Service) Terms(ctx context.Context) ([]Term, error) {
	return svc.repo.QueryTerms(ctx)
}

func (svc *Service) GetTerm(ctx context.Context, semester string, year int) (Term, error) {
	return svc.repo.GetTermBySemesterYear(ctx, core.CleanString(semester), year)
}

func (svc *Service) CreateSection(ctx context.Context, ns NewSection) (Section, error) {
	if err := ns.Validate(); err != nil {
		return Section{}, err
	}
	if _, err := svc.repo.GetTerm(ctx, ns.TermID); err != nil {
		return Section{}, err
	}
	if _, err := svc.repo.GetSectionByName(ctx, ns.TermID, ns.Name); err == nil {
		return Section{}, core.NewValidationError(ErrSectionExists,
			core.FieldError{Field: "name", Error: ErrSectionExists.Error()})
	} else if err != ErrSectionNotFound {
		return Section{}, err
	}
	return svc.repo.CreateSection(ctx, Section{Name: ns.Name, TermID: ns.TermID})
}

func (svc *Service) GetSectionByName(ctx context.Context, termID int, name string) (Section, error) {
	return svc.repo.GetSectionByName(ctx, termID, core.CleanString(name))
}

func (svc *Service) Sections(ctx context.Context, termID int) ([]Section, error) {
	return svc.repo.QuerySections(ctx, termID)
}

func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	if _, err := svc.repo.GetStudent(ctx, ns.ID); err == nil {
		return Student{}, core.NewValidationError(ErrStudentExists,
			core.FieldError{Field: "student_id", Error: ErrStudentExists.Error()})
	} else if err != ErrStudentNotFound {
		return Student{}, err
	}
	s := Student{
		ID:                 ns.ID,
		Name:               ns.Name,
		Email:              ns.Email,
		RegistrationNumber: ns.RegistrationNumber,
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Search(ctx context.Context, q string) ([]StudentInfo, error) {
	return svc.repo.SearchStudents(ctx, core.CleanString(q))
}

// Enroll gives the student their single active enrollment for the term.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if err := ne.Validate(); err != nil {
		return Enrollment{}, err
	}
	if _, err := svc.repo.GetStudent(ctx, ne.StudentID); err != nil {
		return Enrollment{}, err
	}
	section, err := svc.repo.GetSection(ctx, ne.SectionID)
	if err != nil {
		return Enrollment{}, err
	}
	if section.TermID != ne.TermID {
		return Enrollment{}, ErrSectionTermMismatch
	}
	if _, err := svc.repo.GetEnrollment(ctx, ne.StudentID, ne.TermID); err == nil {
		return Enrollment{}, ErrAlreadyEnrolled
	} else if err != ErrNotEnrolled {
		return Enrollment{}, err
	}
	e := Enrollment{StudentID: ne.StudentID, SectionID: ne.SectionID, TermID: ne.TermID}
	return svc.repo.CreateEnrollment(ctx, e)
}

// Roster returns the ordered roster the ledgers record against.
func (svc *Service) Roster(ctx context.Context, sectionID, termID int) ([]Student, error) {
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRoster(ctx, sectionID, termID)
}

func (svc *Service) TermStudents(ctx context.Context, termID int) ([]Student, error) {
	return svc.repo.QueryTermStudents(ctx, termID)
}

// Transfer moves the student's enrollment to another section of the same term.
// Attendance follows the enrollment; grades and team memberships stay put.
func (svc *Service) Transfer(ctx context.Context, studentID string, termID int, newSectionName string) error {
	enr, err := svc.repo.GetEnrollment(ctx, core.CleanString(studentID), termID)
	if err != nil {
		return err
	}
	section, err := svc.repo.GetSectionByName(ctx, termID, core.CleanString(newSectionName))
	if err != nil {
		return err
	}
	if section.ID == enr.SectionID {
		return nil
	}
	return svc.repo.TransferEnrollment(ctx, enr.StudentID, termID, section.ID)
}
