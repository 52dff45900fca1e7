package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/registry"
	dummydb "github.com/mkaralis/labreg/storage/database/dummy"
	testutil "github.com/mkaralis/labreg/tests"
)

func setup(t *testing.T) (*registry.Service, *dummydb.DB, registry.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewRegistryRepository(db)
	return registry.NewService(repo), db, repo
}

func wantValidationErr(t *testing.T, err, sentinel error) {
	t.Helper()
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if vErr.Err != sentinel {
		t.Errorf("ValidationError.Err = %v, want %v", vErr.Err, sentinel)
	}
}

func TestService_CreateTerm(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	term, err := svc.CreateTerm(ctx, registry.NewTerm{Semester: "Spring", Year: 2026})
	if err != nil {
		t.Fatalf("CreateTerm() failed: %v", err)
	}
	if term.ID == 0 {
		t.Error("CreateTerm() did not assign an id")
	}

	_, err = svc.CreateTerm(ctx, registry.NewTerm{Semester: "Spring", Year: 2026})
	wantValidationErr(t, err, registry.ErrTermExists)

	// same semester in another year is a different term
	if _, err = svc.CreateTerm(ctx, registry.NewTerm{Semester: "Spring", Year: 2027}); err != nil {
		t.Errorf("CreateTerm() failed: %v", err)
	}
}

func TestService_CreateSection(t *testing.T) {
	svc, _, repo := setup(t)
	ctx := context.Background()

	term := testutil.CreateTerm(t, repo, "Spring", 2026)

	if _, err := svc.CreateSection(ctx, registry.NewSection{Name: "Tue 10:00", TermID: 999}); err != registry.ErrTermNotFound {
		t.Errorf("CreateSection() error = %v, want %v", err, registry.ErrTermNotFound)
	}

	if _, err := svc.CreateSection(ctx, registry.NewSection{Name: "Tue 10:00", TermID: term.ID}); err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	_, err := svc.CreateSection(ctx, registry.NewSection{Name: "Tue 10:00", TermID: term.ID})
	wantValidationErr(t, err, registry.ErrSectionExists)
}

func TestService_RegisterStudent(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.RegisterStudent(ctx, registry.NewStudent{ID: "S100", Name: "Ada Lovelace"}); err != nil {
		t.Fatalf("RegisterStudent() failed: %v", err)
	}
	_, err := svc.RegisterStudent(ctx, registry.NewStudent{ID: "S100", Name: "Someone Else"})
	wantValidationErr(t, err, registry.ErrStudentExists)
}

func TestService_Enroll(t *testing.T) {
	svc, _, repo := setup(t)
	ctx := context.Background()

	term := testutil.CreateTerm(t, repo, "Spring", 2026)
	otherTerm := testutil.CreateTerm(t, repo, "Fall", 2026)
	section := testutil.CreateSection(t, repo, "Tue 10:00", term.ID)
	otherSection := testutil.CreateSection(t, repo, "Thu 14:00", term.ID)
	testutil.CreateStudent(t, repo, "S100", "Ada Lovelace")

	tests := []struct {
		name    string
		ne      registry.NewEnrollment
		wantErr error
	}{
		{
			name:    "unknown student",
			ne:      registry.NewEnrollment{StudentID: "lol", SectionID: section.ID, TermID: term.ID},
			wantErr: registry.ErrStudentNotFound,
		},
		{
			name:    "unknown section",
			ne:      registry.NewEnrollment{StudentID: "S100", SectionID: 999, TermID: term.ID},
			wantErr: registry.ErrSectionNotFound,
		},
		{
			name:    "section from another term",
			ne:      registry.NewEnrollment{StudentID: "S100", SectionID: section.ID, TermID: otherTerm.ID},
			wantErr: registry.ErrSectionTermMismatch,
		},
		{
			name: "enroll",
			ne:   registry.NewEnrollment{StudentID: "S100", SectionID: section.ID, TermID: term.ID},
		},
		{
			name:    "one enrollment per term",
			ne:      registry.NewEnrollment{StudentID: "S100", SectionID: otherSection.ID, TermID: term.ID},
			wantErr: registry.ErrAlreadyEnrolled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Enroll(ctx, tt.ne); err != tt.wantErr {
				t.Errorf("Enroll() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_Roster_orderedByName(t *testing.T) {
	svc, _, repo := setup(t)
	ctx := context.Background()

	term := testutil.CreateTerm(t, repo, "Spring", 2026)
	section := testutil.CreateSection(t, repo, "Tue 10:00", term.ID)
	for _, stu := range []struct{ id, name string }{
		{"S3", "Mary Shelley"},
		{"S1", "Ada Lovelace"},
		{"S2", "Grace Hopper"},
	} {
		testutil.CreateStudent(t, repo, stu.id, stu.name)
		testutil.Enroll(t, repo, stu.id, section.ID, term.ID)
	}

	roster, err := svc.Roster(ctx, section.ID, term.ID)
	if err != nil {
		t.Fatalf("Roster() failed: %v", err)
	}
	want := []string{"S1", "S2", "S3"}
	if len(roster) != len(want) {
		t.Fatalf("roster size = %d, want %d", len(roster), len(want))
	}
	for i, id := range want {
		if roster[i].ID != id {
			t.Errorf("roster[%d] = %s, want %s", i, roster[i].ID, id)
		}
	}
}

func TestService_Transfer(t *testing.T) {
	svc, db, repo := setup(t)
	ctx := context.Background()

	term := testutil.CreateTerm(t, repo, "Spring", 2026)
	src := testutil.CreateSection(t, repo, "Tue 10:00", term.ID)
	dst := testutil.CreateSection(t, repo, "Thu 14:00", term.ID)
	testutil.CreateStudent(t, repo, "S100", "Ada Lovelace")
	testutil.Enroll(t, repo, "S100", src.ID, term.ID)

	attRepo := dummydb.NewAttendanceRepository(db)
	testutil.RecordAttendance(t, attRepo, "S100", src.ID, attendance.SlotLab1, attendance.StatusPresent, term.ID)
	testutil.RecordAttendance(t, attRepo, "S100", src.ID, attendance.SlotLab2, attendance.StatusAbsent, term.ID)

	if err := svc.Transfer(ctx, "S100", term.ID, "Thu 14:00"); err != nil {
		t.Fatalf("Transfer() failed: %v", err)
	}

	enr, err := repo.GetEnrollment(ctx, "S100", term.ID)
	if err != nil {
		t.Fatalf("GetEnrollment() failed: %v", err)
	}
	if enr.SectionID != dst.ID {
		t.Errorf("SectionID = %d, want %d", enr.SectionID, dst.ID)
	}

	// attendance rows follow the enrollment
	for _, slot := range []attendance.Slot{attendance.SlotLab1, attendance.SlotLab2} {
		if _, err := attRepo.GetAttendance(ctx, "S100", dst.ID, slot, term.ID); err != nil {
			t.Errorf("attendance %s did not move: %v", slot, err)
		}
	}

	// transferring into the current section is a no-op
	if err := svc.Transfer(ctx, "S100", term.ID, "Thu 14:00"); err != nil {
		t.Errorf("Transfer() error = %v, want nil", err)
	}

	if err := svc.Transfer(ctx, "S100", term.ID, "lol"); err != registry.ErrSectionNotFound {
		t.Errorf("Transfer() error = %v, want %v", err, registry.ErrSectionNotFound)
	}
}

func TestService_Search(t *testing.T) {
	svc, _, repo := setup(t)
	ctx := context.Background()

	term := testutil.CreateTerm(t, repo, "Spring", 2026)
	section := testutil.CreateSection(t, repo, "Tue 10:00", term.ID)
	testutil.CreateStudent(t, repo, "S100", "Ada Lovelace")
	testutil.CreateStudent(t, repo, "S200", "Grace Hopper")
	testutil.Enroll(t, repo, "S100", section.ID, term.ID)

	infos, err := svc.Search(ctx, "love")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("results = %d, want 1", len(infos))
	}
	info := infos[0]
	if info.ID != "S100" || info.SectionName != "Tue 10:00" || info.Semester != "Spring" || info.Year != 2026 {
		t.Errorf("Search() = %+v, want S100 in Tue 10:00, Spring 2026", info)
	}

	// id matches are exact
	infos, err = svc.Search(ctx, "S100")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "S100" {
		t.Errorf("Search(S100) = %v, want the one student", infos)
	}

	// unenrolled students carry no enrollment context rows
	infos, err = svc.Search(ctx, "hopper")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Search(hopper) = %v, want none", infos)
	}
}
