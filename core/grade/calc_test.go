package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/mkaralis/labreg/core/attendance"
)

func rec(slot attendance.Slot, v float64) Record {
	return Record{StudentID: "S1", Slot: slot, Grade: v, TermID: 1}
}

func TestCalculator_Compute(t *testing.T) {
	calc := NewCalculator(DefaultWeights)

	tests := []struct {
		name string
		recs []Record
		want FinalGrade
	}{
		{
			name: "no records",
			want: FinalGrade{StudentID: "S1", TermID: 1},
		},
		{
			name: "labs only",
			recs: []Record{rec(attendance.SlotLab1, 8), rec(attendance.SlotLab2, 6)},
			want: FinalGrade{StudentID: "S1", TermID: 1, LabAverage: null.Float64From(7)},
		},
		{
			name: "exam only",
			recs: []Record{rec(attendance.SlotExamJun, 7)},
			want: FinalGrade{StudentID: "S1", TermID: 1, JunExam: null.Float64From(7)},
		},
		{
			name: "labs and june exam",
			recs: []Record{rec(attendance.SlotLab1, 8), rec(attendance.SlotLab2, 6), rec(attendance.SlotExamJun, 7)},
			want: FinalGrade{
				StudentID:  "S1",
				TermID:     1,
				LabAverage: null.Float64From(7),
				JunExam:    null.Float64From(7),
				Final:      null.Float64From(7),
			},
		},
		{
			name: "september sitting wins",
			recs: []Record{
				rec(attendance.SlotLab1, 8), rec(attendance.SlotLab2, 6),
				rec(attendance.SlotExamJun, 7), rec(attendance.SlotExamSep, 9),
			},
			want: FinalGrade{
				StudentID:  "S1",
				TermID:     1,
				LabAverage: null.Float64From(7),
				JunExam:    null.Float64From(7),
				SepExam:    null.Float64From(9),
				Final:      null.Float64From(8.5),
			},
		},
		{
			name: "replacement slots count as labs",
			recs: []Record{
				rec(attendance.SlotLab1, 4), rec(attendance.SlotReplacement1, 10),
				rec(attendance.SlotExamJun, 6),
			},
			want: FinalGrade{
				StudentID:  "S1",
				TermID:     1,
				LabAverage: null.Float64From(7),
				JunExam:    null.Float64From(6),
				Final:      null.Float64From(6.25),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.Compute("S1", 1, tt.recs))
		})
	}
}

func TestCalculator_Compute_idempotent(t *testing.T) {
	calc := NewCalculator(DefaultWeights)
	recs := []Record{
		rec(attendance.SlotLab1, 8.3), rec(attendance.SlotLab2, 6.1), rec(attendance.SlotLab3, 9.9),
		rec(attendance.SlotExamJun, 7.7),
	}

	first := calc.Compute("S1", 1, recs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, calc.Compute("S1", 1, recs))
	}
}
