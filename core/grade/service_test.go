package grade

import (
	"context"
	"testing"
	"time"

	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/registry"
)

type fakeAttendance struct {
	recs map[string]attendance.Record // studentID/slot
}

func (f *fakeAttendance) Get(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int) (attendance.Record, error) {
	if rec, ok := f.recs[studentID+"/"+string(slot)]; ok {
		return rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (f *fakeAttendance) BySlot(ctx context.Context, sectionID int, slot attendance.Slot, termID int) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	for _, rec := range f.recs {
		if rec.Slot == slot {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (f *fakeAttendance) set(studentID string, slot attendance.Slot, status attendance.Status) {
	f.recs[studentID+"/"+string(slot)] = attendance.Record{
		StudentID: studentID,
		SectionID: 1,
		Slot:      slot,
		Status:    status,
		TermID:    1,
	}
}

type fakeRoster struct {
	students []registry.Student
}

func (f *fakeRoster) Roster(ctx context.Context, sectionID, termID int) ([]registry.Student, error) {
	return f.students, nil
}

func (f *fakeRoster) TermStudents(ctx context.Context, termID int) ([]registry.Student, error) {
	return f.students, nil
}

func setupService() (*Service, *fakeStore, *fakeAttendance) {
	store := newFakeStore()
	att := &fakeAttendance{recs: make(map[string]attendance.Record)}
	roster := &fakeRoster{students: []registry.Student{
		{ID: "S1", Name: "Ada Lovelace"},
		{ID: "S2", Name: "Grace Hopper"},
	}}
	return NewService(store, att, roster, newTestCoordinator(store)), store, att
}

func TestService_RecordGrade(t *testing.T) {
	svc, store, att := setupService()
	ctx := context.Background()

	att.set("S1", attendance.SlotLab1, attendance.StatusPresent)
	att.set("S2", attendance.SlotLab1, attendance.StatusAbsent)

	tests := []struct {
		name      string
		studentID string
		raw       string
		wantErr   error
	}{
		{name: "not a number", studentID: "S1", raw: "lol", wantErr: ErrInvalidGrade},
		{name: "absent student", studentID: "S2", raw: "8", wantErr: ErrGradeForAbsentStudent},
		{name: "no attendance record", studentID: "S3", raw: "8", wantErr: ErrGradeForAbsentStudent},
		{name: "present student", studentID: "S1", raw: "8.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RecordGrade(ctx, tt.studentID, 1, attendance.SlotLab1, 1, tt.raw)
			if err != tt.wantErr {
				t.Errorf("RecordGrade() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	rec, err := store.GetGrade(ctx, "S1", 1, attendance.SlotLab1, 1)
	if err != nil {
		t.Fatalf("GetGrade() failed: %v", err)
	}
	if rec.Grade != 8.5 {
		t.Errorf("Grade = %v, want 8.5", rec.Grade)
	}
	fg, err := svc.Final(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("Final() failed: %v", err)
	}
	if !fg.LabAverage.Valid || fg.LabAverage.Float64 != 8.5 {
		t.Errorf("LabAverage = %v, want 8.5", fg.LabAverage)
	}
}

func TestService_sessionWorkflow(t *testing.T) {
	svc, store, att := setupService()
	ctx := context.Background()

	att.set("S1", attendance.SlotLab1, attendance.StatusPresent)
	att.set("S2", attendance.SlotLab1, attendance.StatusAbsent)

	sess, err := svc.StartSession(ctx, 1, attendance.SlotLab1, 1)
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}

	if err := sess.Enter("S2", "8"); err != ErrGradeForAbsentStudent {
		t.Errorf("Enter(absent) error = %v, want %v", err, ErrGradeForAbsentStudent)
	}
	if err := sess.Enter("S9", "8"); err != ErrStudentNotInRoster {
		t.Errorf("Enter(stranger) error = %v, want %v", err, ErrStudentNotInRoster)
	}
	if err := sess.Enter("S1", "oops"); err != ErrInvalidGrade {
		t.Errorf("Enter(garbage) error = %v, want %v", err, ErrInvalidGrade)
	}
	if err := sess.Enter("S1", "8"); err != nil {
		t.Fatalf("Enter() failed: %v", err)
	}

	select {
	case err := <-svc.SaveSession(ctx, sess):
		if err != nil {
			t.Fatalf("SaveSession() failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("SaveSession() did not complete")
	}

	if _, err := store.GetGrade(ctx, "S1", 1, attendance.SlotLab1, 1); err != nil {
		t.Fatalf("grade row not written: %v", err)
	}

	// a saved grade is read-only until the roster is unlocked again
	sess, err = svc.StartSession(ctx, 1, attendance.SlotLab1, 1)
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}
	if sess.Editable("S1") {
		t.Error("Editable(saved) = true, want false")
	}
	if err := sess.Enter("S1", "9"); err != ErrGradeLocked {
		t.Errorf("Enter(locked) error = %v, want %v", err, ErrGradeLocked)
	}
	sess.AllowChanges()
	if err := sess.Enter("S1", "9"); err != nil {
		t.Fatalf("Enter() after AllowChanges failed: %v", err)
	}
	if err := <-svc.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession() failed: %v", err)
	}

	rec, err := store.GetGrade(ctx, "S1", 1, attendance.SlotLab1, 1)
	if err != nil {
		t.Fatalf("GetGrade() failed: %v", err)
	}
	if rec.Grade != 9 {
		t.Errorf("Grade = %v, want 9", rec.Grade)
	}
}

func TestService_SaveSession_nothingStaged(t *testing.T) {
	svc, _, att := setupService()
	ctx := context.Background()

	att.set("S1", attendance.SlotLab1, attendance.StatusPresent)

	sess, err := svc.StartSession(ctx, 1, attendance.SlotLab1, 1)
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}
	if err := <-svc.SaveSession(ctx, sess); err != nil {
		t.Errorf("SaveSession() error = %v, want nil", err)
	}
}

func TestService_RecomputeTerm(t *testing.T) {
	svc, store, _ := setupService()
	ctx := context.Background()

	for _, rec := range []Record{
		{StudentID: "S1", SectionID: 1, Slot: attendance.SlotLab1, Grade: 8, TermID: 1},
		{StudentID: "S1", SectionID: 1, Slot: attendance.SlotExamJun, Grade: 7, TermID: 1},
		{StudentID: "S2", SectionID: 1, Slot: attendance.SlotLab1, Grade: 6, TermID: 1},
	} {
		if _, err := store.UpsertGrade(ctx, rec); err != nil {
			t.Fatalf("UpsertGrade() failed: %v", err)
		}
	}

	if err := svc.RecomputeTerm(ctx, 1); err != nil {
		t.Fatalf("RecomputeTerm() failed: %v", err)
	}

	finals, err := svc.Finals(ctx, 1)
	if err != nil {
		t.Fatalf("Finals() failed: %v", err)
	}
	if len(finals) != 2 {
		t.Errorf("final grades = %d, want 2", len(finals))
	}
}
