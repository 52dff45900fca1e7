package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/registry"
)

func CreateTerm(t *testing.T, repo registry.Repository, semester string, year int) registry.Term {
	t.Helper()
	term, err := repo.CreateTerm(context.Background(), registry.Term{Semester: semester, Year: year})
	if err != nil {
		t.Fatalf("createTerm() failed: %v", err)
	}
	return term
}

func CreateSection(t *testing.T, repo registry.Repository, name string, termID int) registry.Section {
	t.Helper()
	section, err := repo.CreateSection(context.Background(), registry.Section{Name: name, TermID: termID})
	if err != nil {
		t.Fatalf("createSection() failed: %v", err)
	}
	return section
}

func CreateStudent(t *testing.T, repo registry.Repository, id, name string) registry.Student {
	t.Helper()
	stu, err := repo.CreateStudent(context.Background(), registry.Student{ID: id, Name: name})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return stu
}

func Enroll(t *testing.T, repo registry.Repository, studentID string, sectionID, termID int) registry.Enrollment {
	t.Helper()
	enr, err := repo.CreateEnrollment(context.Background(), registry.Enrollment{
		StudentID: studentID,
		SectionID: sectionID,
		TermID:    termID,
	})
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	return enr
}

func RecordAttendance(
	t *testing.T,
	repo attendance.Repository,
	studentID string,
	sectionID int,
	slot attendance.Slot,
	status attendance.Status,
	termID int,
) attendance.Record {
	t.Helper()
	rec := attendance.Record{
		StudentID: studentID,
		SectionID: sectionID,
		Slot:      slot,
		Status:    status,
		Timestamp: core.Timestamp(time.Now()),
		TermID:    termID,
	}
	if err := repo.UpsertAttendance(context.Background(), []attendance.Record{rec}); err != nil {
		t.Fatalf("recordAttendance() failed: %v", err)
	}
	return rec
}
