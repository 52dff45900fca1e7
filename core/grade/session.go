package grade

import (
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/registry"
)

// Session is one roster-wide grade recording pass over a
// (section, slot, term) key. The lock workflow mirrors the attendance one,
// applied per field: a student with a saved grade is read-only until the
// roster-wide AllowChanges, and entry is only possible for Present students.
// Entered values accumulate in the session; nothing is written until
// Service.SaveSession.
type Session struct {
	SectionID int
	Slot      attendance.Slot
	TermID    int

	roster   []registry.Student
	att      map[string]attendance.Status
	existing map[string]Record
	pending  map[string]float64
	unlocked bool
}

func (s *Session) Roster() []registry.Student {
	return s.roster
}

// AllowChanges re-enables entry for students holding a saved grade.
func (s *Session) AllowChanges() {
	s.unlocked = true
}

// Editable reports whether the recording workflow accepts a value for the
// student right now.
func (s *Session) Editable(studentID string) bool {
	if s.att[studentID] != attendance.StatusPresent {
		return false
	}
	if _, saved := s.existing[studentID]; saved && !s.unlocked {
		return false
	}
	return true
}

// Saved returns the student's stored grade row, if any.
func (s *Session) Saved(studentID string) (Record, bool) {
	rec, ok := s.existing[studentID]
	return rec, ok
}

// Enter stages a raw grade value for the student.
func (s *Session) Enter(studentID, raw string) error {
	if !s.inRoster(studentID) {
		return ErrStudentNotInRoster
	}
	if s.att[studentID] != attendance.StatusPresent {
		return ErrGradeForAbsentStudent
	}
	if _, saved := s.existing[studentID]; saved && !s.unlocked {
		return ErrGradeLocked
	}
	v, err := ParseGrade(raw)
	if err != nil {
		return err
	}
	s.pending[studentID] = v
	return nil
}

func (s *Session) inRoster(studentID string) bool {
	for _, stu := range s.roster {
		if stu.ID == studentID {
			return true
		}
	}
	return false
}

// entries returns the staged values in roster order.
func (s *Session) entries() []BatchEntry {
	out := make([]BatchEntry, 0, len(s.pending))
	for _, stu := range s.roster {
		if v, ok := s.pending[stu.ID]; ok {
			out = append(out, BatchEntry{StudentID: stu.ID, Grade: v})
		}
	}
	return out
}
