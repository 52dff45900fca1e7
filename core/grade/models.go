package grade

import (
	"strconv"

	"github.com/volatiletech/null/v8"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
)

// Record is one grade row; at most one per (student, section, slot, term)
// key — writes are upserts. A row may only exist where a Present attendance
// record exists for the same key.
type Record struct {
	ID        string          `json:"id"`
	StudentID string          `json:"student_id"`
	SectionID int             `json:"section_id"`
	Slot      attendance.Slot `json:"exercise_slot"`
	Grade     float64         `json:"grade"`
	Timestamp string          `json:"timestamp"`
	TermID    int             `json:"term_id"`
}

// FinalGrade is the derived aggregate per (student, term), fully recomputed
// whenever any contributing grade changes. Null fields mean "not derivable
// yet": no lab grades, no exam sat, or either of the two.
type FinalGrade struct {
	ID         string       `json:"id"`
	StudentID  string       `json:"student_id"`
	TermID     int          `json:"term_id"`
	LabAverage null.Float64 `json:"lab_average"`
	JunExam    null.Float64 `json:"jun_exam_grade"`
	SepExam    null.Float64 `json:"sep_exam_grade"`
	Final      null.Float64 `json:"final_grade"`
}

// ParseGrade parses a raw grade value as entered in the recording workflow.
func ParseGrade(raw string) (float64, error) {
	v, err := strconv.ParseFloat(core.CleanString(raw), 64)
	if err != nil {
		return 0, ErrInvalidGrade
	}
	return v, nil
}
