package grade

import (
	"context"
	"errors"
	"time"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/registry"
)

var (
	// errors
	ErrNotFound              = errors.New("grade record not found")
	ErrFinalNotFound         = errors.New("final grade not found")
	ErrInvalidGrade          = errors.New("grade is not a number")
	ErrGradeForAbsentStudent = errors.New("cannot grade a student without a Present attendance record")
	ErrGradeLocked           = errors.New("grade already saved; allow changes before editing")
	ErrStudentNotInRoster    = errors.New("student is not on this roster")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		UpsertGrade(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error)
		GetGrade(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) (Record, error)
		// QueryGrades returns every grade row of (studentID, termID), all slots.
		QueryGrades(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) ([]Record, error)
		QuerySlotGrades(ctx context.Context, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) ([]Record, error)
		// ReplaceFinalGrade deletes any prior aggregate of the (student, term)
		// and inserts the new one.
		ReplaceFinalGrade(ctx context.Context, fg FinalGrade, exec ...core.DBExecutor) (FinalGrade, error)
		GetFinalGrade(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (FinalGrade, error)
		QueryFinalGrades(ctx context.Context, termID int, exec ...core.DBExecutor) ([]FinalGrade, error)
	}

	// AttendanceReader is the slice of the attendance ledger this service
	// needs; satisfied by attendance.Service.
	AttendanceReader interface {
		Get(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int) (attendance.Record, error)
		BySlot(ctx context.Context, sectionID int, slot attendance.Slot, termID int) ([]attendance.Record, error)
	}

	// RosterProvider is satisfied by registry.Service.
	RosterProvider interface {
		Roster(ctx context.Context, sectionID, termID int) ([]registry.Student, error)
		TermStudents(ctx context.Context, termID int) ([]registry.Student, error)
	}

	Service struct {
		repo   Repository
		att    AttendanceReader
		roster RosterProvider
		coord  *Coordinator
	}
)

func NewService(repo Repository, att AttendanceReader, roster RosterProvider, coord *Coordinator) *Service {
	return &Service{repo: repo, att: att, roster: roster, coord: coord}
}

// RecordGrade upserts one grade and recomputes the student's final grade as
// part of the same write. The raw value must parse as a real number and the
// student must hold a Present attendance record under the same key.
func (svc *Service) RecordGrade(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, raw string) error {
	v, err := ParseGrade(raw)
	if err != nil {
		return err
	}
	if err := svc.requirePresent(ctx, studentID, sectionID, slot, termID); err != nil {
		return err
	}
	return svc.coord.Run(ctx, Batch{
		SectionID: sectionID,
		Slot:      slot,
		TermID:    termID,
		Entries:   []BatchEntry{{StudentID: studentID, Grade: v}},
	})
}

func (svc *Service) requirePresent(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int) error {
	rec, err := svc.att.Get(ctx, studentID, sectionID, slot, termID)
	if err != nil {
		if err == attendance.ErrNotFound {
			return ErrGradeForAbsentStudent
		}
		return err
	}
	if rec.Status != attendance.StatusPresent {
		return ErrGradeForAbsentStudent
	}
	return nil
}

// StartSession loads the roster, its attendance statuses and any saved
// grades for the key.
func (svc *Service) StartSession(ctx context.Context, sectionID int, slot attendance.Slot, termID int) (*Session, error) {
	roster, err := svc.roster.Roster(ctx, sectionID, termID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, attendance.ErrEmptyRoster
	}

	attRecs, err := svc.att.BySlot(ctx, sectionID, slot, termID)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]attendance.Status, len(attRecs))
	for _, rec := range attRecs {
		statuses[rec.StudentID] = rec.Status
	}

	gradeRecs, err := svc.repo.QuerySlotGrades(ctx, sectionID, slot, termID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]Record, len(gradeRecs))
	for _, rec := range gradeRecs {
		existing[rec.StudentID] = rec
	}

	return &Session{
		SectionID: sectionID,
		Slot:      slot,
		TermID:    termID,
		roster:    roster,
		att:       statuses,
		existing:  existing,
		pending:   make(map[string]float64),
	}, nil
}

// SaveSession hands the session's staged entries to the write coordinator
// off the caller's goroutine and relocks the session. The returned channel
// delivers the single completion signal; callers disable further saves until
// it fires.
func (svc *Service) SaveSession(ctx context.Context, sess *Session) <-chan error {
	batch := Batch{
		SectionID: sess.SectionID,
		Slot:      sess.Slot,
		TermID:    sess.TermID,
		Entries:   sess.entries(),
	}
	sess.pending = make(map[string]float64)
	sess.unlocked = false

	if len(batch.Entries) == 0 {
		done := make(chan error, 1)
		done <- nil
		return done
	}
	return svc.coord.Submit(ctx, batch)
}

func (svc *Service) Get(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int) (Record, error) {
	return svc.repo.GetGrade(ctx, studentID, sectionID, slot, termID)
}

// BySlot returns a section's stored grades for one slot.
func (svc *Service) BySlot(ctx context.Context, sectionID int, slot attendance.Slot, termID int) ([]Record, error) {
	return svc.repo.QuerySlotGrades(ctx, sectionID, slot, termID)
}

func (svc *Service) Final(ctx context.Context, studentID string, termID int) (FinalGrade, error) {
	return svc.repo.GetFinalGrade(ctx, studentID, termID)
}

func (svc *Service) Finals(ctx context.Context, termID int) ([]FinalGrade, error) {
	return svc.repo.QueryFinalGrades(ctx, termID)
}

// RecomputeTerm rebuilds every enrolled student's final grade for the term
// from the stored grade rows.
func (svc *Service) RecomputeTerm(ctx context.Context, termID int) error {
	students, err := svc.roster.TermStudents(ctx, termID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(students))
	for _, stu := range students {
		ids = append(ids, stu.ID)
	}
	return svc.coord.RunRecompute(ctx, termID, ids)
}
