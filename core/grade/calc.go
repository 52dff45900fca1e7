package grade

import (
	"github.com/montanaflynn/stats"
	"github.com/volatiletech/null/v8"

	"github.com/mkaralis/labreg/core/attendance"
)

// Weights splits the final grade between the lab average and the exam grade.
type Weights struct {
	Lab  float64
	Exam float64
}

var (
	// DefaultWeights is the authoritative weighting, applied by every
	// recompute path.
	DefaultWeights = Weights{Lab: 0.25, Exam: 0.75}

	// BulkWeights is a second weighting found in term-wide recomputes of
	// earlier versions of this system. Kept so the discrepancy stays visible;
	// see DESIGN.md before using it.
	BulkWeights = Weights{Lab: 0.40, Exam: 0.60}
)

// Calculator derives one FinalGrade from a student's grade rows for a term.
// Pure; persistence belongs to the caller.
type Calculator struct {
	weights Weights
}

func NewCalculator(w Weights) Calculator {
	return Calculator{weights: w}
}

// Compute derives the aggregate from recs, which must all belong to
// (studentID, termID). Recomputing with unchanged inputs yields an identical
// result.
//
// The lab average is the mean over the lab and replacement slots; the exam
// grade is the September sitting when present, the June one otherwise — the
// later sitting always wins. The final grade exists only when both do.
func (c Calculator) Compute(studentID string, termID int, recs []Record) FinalGrade {
	fg := FinalGrade{StudentID: studentID, TermID: termID}

	labGrades := make([]float64, 0, len(recs))
	for _, rec := range recs {
		switch {
		case rec.Slot.IsLab():
			labGrades = append(labGrades, rec.Grade)
		case rec.Slot == attendance.SlotExamJun:
			fg.JunExam = null.Float64From(rec.Grade)
		case rec.Slot == attendance.SlotExamSep:
			fg.SepExam = null.Float64From(rec.Grade)
		}
	}

	if mean, err := stats.Mean(labGrades); err == nil {
		fg.LabAverage = null.Float64From(mean)
	}

	exam := fg.SepExam
	if !exam.Valid {
		exam = fg.JunExam
	}
	if fg.LabAverage.Valid && exam.Valid {
		fg.Final = null.Float64From(c.weights.Lab*fg.LabAverage.Float64 + c.weights.Exam*exam.Float64)
	}
	return fg
}
