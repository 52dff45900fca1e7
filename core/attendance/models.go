package attendance

import (
	"github.com/go-playground/validator/v10"

	"github.com/mkaralis/labreg/core"
)

// Slot labels one of the fixed graded/attended activities of a term. Both the
// attendance and grade ledgers key on these exact labels.
type Slot string

const (
	SlotLab1         Slot = "Lab1"
	SlotLab2         Slot = "Lab2"
	SlotLab3         Slot = "Lab3"
	SlotLab4         Slot = "Lab4"
	SlotLab5         Slot = "Lab5"
	SlotReplacement1 Slot = "Replacement1"
	SlotReplacement2 Slot = "Replacement2"
	SlotExamJun      Slot = "Exam.Jun"
	SlotExamSep      Slot = "Exam.Sep"
)

// Slots is the full label set in iteration order; reports and absence
// counting follow this order.
var Slots = []Slot{
	SlotLab1, SlotLab2, SlotLab3, SlotLab4, SlotLab5,
	SlotReplacement1, SlotReplacement2,
	SlotExamJun, SlotExamSep,
}

// LabSlots are the slots contributing to the lab average; exam sittings excluded.
var LabSlots = []Slot{
	SlotLab1, SlotLab2, SlotLab3, SlotLab4, SlotLab5,
	SlotReplacement1, SlotReplacement2,
}

func (s Slot) Valid() bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// IsLab reports whether the slot counts towards the lab average.
func (s Slot) IsLab() bool {
	return s.Valid() && s != SlotExamJun && s != SlotExamSep
}

func (s Slot) IsExam() bool {
	return s == SlotExamJun || s == SlotExamSep
}

func init() {
	// "slot" tag for input structs carrying an exercise-slot label
	_ = core.Validate.RegisterValidation(slotTag, func(fl validator.FieldLevel) bool {
		return Slot(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(core.Validate, core.Translator, slotTag, slotText)
}

var (
	slotTag  = "slot"
	slotText = "unknown exercise slot label"
)

type Status string

const (
	StatusPresent Status = "Present"
	StatusAbsent  Status = "Absent"
)

func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Record is one attendance row; at most one per
// (student, section, slot, term) key — writes are upserts.
type Record struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	SectionID int    `json:"section_id"`
	Slot      Slot   `json:"exercise_slot"`
	Status    Status `json:"status"`
	Timestamp string `json:"timestamp"`
	TermID    int    `json:"term_id"`
}

// AbsenceFlag marks how loudly a student's Nth absence should be called out
// when rendering history. Reporting concern only.
type AbsenceFlag int

const (
	FlagNone    AbsenceFlag = iota
	FlagNotice              // first absence
	FlagWarning             // second and later
)

// HistoryEntry is a student's state for one slot in a history query. A slot
// with no stored record reads as Absent with an empty timestamp.
type HistoryEntry struct {
	Slot      Slot        `json:"exercise_slot"`
	Status    Status      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Flag      AbsenceFlag `json:"flag"`
}

type StudentHistory struct {
	StudentID string         `json:"student_id"`
	Name      string         `json:"name"`
	Entries   []HistoryEntry `json:"entries"`
	Absences  int            `json:"absences"`
}

// AbsentReport summarizes stored Absent records across the queried slots.
type AbsentReport struct {
	Students []StudentAbsences `json:"students"`
	Totals   map[Slot]int      `json:"totals"`
}

type StudentAbsences struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Slots     []Slot `json:"slots"`
}
