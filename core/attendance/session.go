package attendance

import (
	"errors"
	"fmt"

	"github.com/mkaralis/labreg/core/registry"
)

var (
	ErrSessionLocked      = errors.New("attendance already recorded; allow changes before editing")
	ErrStudentNotInRoster = errors.New("student is not on this roster")
	ErrInvalidStatus      = errors.New("status must be Present or Absent")
)

// IncompleteAttendanceError reports the first roster student without an
// explicit status on a first save.
type IncompleteAttendanceError struct {
	StudentID string
	Name      string
}

func (e *IncompleteAttendanceError) Error() string {
	return fmt.Sprintf("missing attendance status for %s (%s)", e.Name, e.StudentID)
}

// SessionState is the roster-wide recording state for one
// (section, slot, term) key, not a per-student state.
type SessionState int

const (
	Unrecorded SessionState = iota
	RecordedLocked
	UnlockedEditing
)

func (s SessionState) String() string {
	switch s {
	case Unrecorded:
		return "unrecorded"
	case RecordedLocked:
		return "recorded"
	case UnlockedEditing:
		return "editing"
	}
	return "unknown"
}

// Session is one roster-wide recording pass over a (section, slot, term) key.
// Pending statuses accumulate in the session and are diffed against the
// stored records at save time; nothing is written until Service.Save.
type Session struct {
	SectionID int
	Slot      Slot
	TermID    int

	roster   []registry.Student
	existing map[string]Record // by student id
	pending  map[string]Status
	unlocked bool
}

func (s *Session) Roster() []registry.Student {
	return s.roster
}

func (s *Session) State() SessionState {
	if len(s.existing) == 0 {
		return Unrecorded
	}
	if s.unlocked {
		return UnlockedEditing
	}
	return RecordedLocked
}

// AllowChanges re-enables editing of an already recorded roster.
func (s *Session) AllowChanges() {
	s.unlocked = true
}

// Status returns the student's effective status: a pending edit if one was
// made in this session, the stored one otherwise.
func (s *Session) Status(studentID string) (Status, bool) {
	if st, ok := s.pending[studentID]; ok {
		return st, true
	}
	if rec, ok := s.existing[studentID]; ok {
		return rec.Status, true
	}
	return "", false
}

// Timestamp returns the stored timestamp for the student, if any.
func (s *Session) Timestamp(studentID string) string {
	if rec, ok := s.existing[studentID]; ok {
		return rec.Timestamp
	}
	return ""
}

// SetStatus stages a status for the student. Recorded rosters reject edits
// until AllowChanges is called.
func (s *Session) SetStatus(studentID string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if s.State() == RecordedLocked {
		return ErrSessionLocked
	}
	if !s.inRoster(studentID) {
		return ErrStudentNotInRoster
	}
	s.pending[studentID] = status
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

// firstUnset returns the first roster student (roster order) with neither a
// stored nor a pending status.
func (s *Session) firstUnset() (registry.Student, bool) {
	for _, stu := range s.roster {
		if _, ok := s.Status(stu.ID); !ok {
			return stu, true
		}
	}
	return registry.Student{}, false
}

// changed returns the roster students (roster order) whose pending status
// differs from the stored record, plus students with no stored record at all.
func (s *Session) changed() []registry.Student {
	var out []registry.Student
	for _, stu := range s.roster {
		pend, ok := s.pending[stu.ID]
		if !ok {
			continue
		}
		if rec, ok := s.existing[stu.ID]; ok && rec.Status == pend {
			continue
		}
		out = append(out, stu)
	}
	return out
}
