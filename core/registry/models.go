package registry

import (
	"fmt"

	"github.com/mkaralis/labreg/core"
)

// Term partitions all data; a (semester, year) pair, immutable once created.
type Term struct {
	ID       int    `json:"id"`
	Semester string `json:"semester"`
	Year     int    `json:"year"`
}

func (t Term) String() string {
	return fmt.Sprintf("%s %d", t.Semester, t.Year)
}

// Section is a lab meeting slot within a Term.
type Section struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	TermID int    `json:"term_id"`
}

type Student struct {
	ID                 string `json:"student_id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	RegistrationNumber string `json:"registration_number"`
}

// Enrollment ties a student to exactly one section per term.
type Enrollment struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	SectionID int    `json:"section_id"`
	TermID    int    `json:"term_id"`
}

// StudentInfo is a search result: a student with their latest enrollment context.
type StudentInfo struct {
	Student
	SectionName string `json:"section"`
	TeamNumber  int    `json:"team_number"` // 0 when unassigned
	Semester    string `json:"semester"`
	Year        int    `json:"year"`
}

// NewTerm contains information needed to create a new Term.
type NewTerm struct {
	Semester string `json:"semester" validate:"required"`
	Year     int    `json:"year" validate:"required,min=2000,max=2100"`
}

func (nt *NewTerm) Validate() error {
	nt.Semester = core.CleanString(nt.Semester)
	return core.Validate.Struct(nt)
}

type NewSection struct {
	Name   string `json:"name" validate:"required"`
	TermID int    `json:"term_id" validate:"required"`
}

func (ns *NewSection) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

type NewStudent struct {
	ID                 string `json:"student_id" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"omitempty,email"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,alphanum_"`
}

func (ns *NewStudent) Validate() error {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.RegistrationNumber = core.CleanString(ns.RegistrationNumber)
	return core.Validate.Struct(ns)
}

type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required"`
	SectionID int    `json:"section_id" validate:"required"`
	TermID    int    `json:"term_id" validate:"required"`
}

func (ne *NewEnrollment) Validate() error {
	ne.StudentID = core.CleanString(ne.StudentID)
	return core.Validate.Struct(ne)
}
