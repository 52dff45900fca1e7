package grade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
)

var errBusy = errors.New("store is busy")

// fakeStore backs both the Repository and core.Transactor sides of the
// coordinator, failing the first failTx transactions with errBusy.
type fakeStore struct {
	grades map[string]Record // studentID/slot
	finals map[string]FinalGrade
	txs    int
	failTx int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		grades: make(map[string]Record),
		finals: make(map[string]FinalGrade),
	}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	s.txs++
	if s.failTx > 0 {
		s.failTx--
		return errBusy
	}
	return fn(nil)
}

func (s *fakeStore) UpsertGrade(ctx context.Context, rec Record, exec ...core.DBExecutor) (Record, error) {
	s.grades[fmt.Sprintf("%s/%s", rec.StudentID, rec.Slot)] = rec
	return rec, nil
}

func (s *fakeStore) GetGrade(ctx context.Context, studentID string, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) (Record, error) {
	if rec, ok := s.grades[fmt.Sprintf("%s/%s", studentID, slot)]; ok {
		return rec, nil
	}
	return Record{}, ErrNotFound
}

func (s *fakeStore) QueryGrades(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) ([]Record, error) {
	recs := make([]Record, 0)
	for _, rec := range s.grades {
		if rec.StudentID == studentID && rec.TermID == termID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (s *fakeStore) QuerySlotGrades(ctx context.Context, sectionID int, slot attendance.Slot, termID int, exec ...core.DBExecutor) ([]Record, error) {
	recs := make([]Record, 0)
	for _, rec := range s.grades {
		if rec.SectionID == sectionID && rec.Slot == slot && rec.TermID == termID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (s *fakeStore) ReplaceFinalGrade(ctx context.Context, fg FinalGrade, exec ...core.DBExecutor) (FinalGrade, error) {
	s.finals[fmt.Sprintf("%s/%d", fg.StudentID, fg.TermID)] = fg
	return fg, nil
}

func (s *fakeStore) GetFinalGrade(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (FinalGrade, error) {
	if fg, ok := s.finals[fmt.Sprintf("%s/%d", studentID, termID)]; ok {
		return fg, nil
	}
	return FinalGrade{}, ErrFinalNotFound
}

func (s *fakeStore) QueryFinalGrades(ctx context.Context, termID int, exec ...core.DBExecutor) ([]FinalGrade, error) {
	finals := make([]FinalGrade, 0)
	for _, fg := range s.finals {
		if fg.TermID == termID {
			finals = append(finals, fg)
		}
	}
	return finals, nil
}

func newTestCoordinator(store *fakeStore) *Coordinator {
	return NewCoordinator(
		store,
		store,
		NewCalculator(DefaultWeights),
		func(err error) bool { return errors.Is(err, errBusy) },
		core.WriteRetryConfig{MaxAttempts: 5, Backoff: time.Second},
	)
}

func TestCoordinator_Run_retriesWhileBusy(t *testing.T) {
	store := newFakeStore()
	store.failTx = 4

	var slept []time.Duration
	sleepFunc = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleepFunc = time.Sleep }()

	coord := newTestCoordinator(store)
	batch := Batch{
		SectionID: 1,
		Slot:      attendance.SlotLab1,
		TermID:    1,
		Entries:   []BatchEntry{{StudentID: "S1", Grade: 8}},
	}

	if err := coord.Run(context.Background(), batch); err != nil {
		t.Fatalf("Run() error = %v, want success on attempt 5", err)
	}
	if store.txs != 5 {
		t.Errorf("transactions = %d, want 5", store.txs)
	}
	if len(slept) != 4 {
		t.Fatalf("backoffs = %d, want 4", len(slept))
	}
	for _, d := range slept {
		if d != time.Second {
			t.Errorf("backoff = %v, want %v", d, time.Second)
		}
	}
	if _, err := store.GetGrade(context.Background(), "S1", 1, attendance.SlotLab1, 1); err != nil {
		t.Errorf("grade row not written: %v", err)
	}
}

func TestCoordinator_Run_givesUpAfterMaxAttempts(t *testing.T) {
	store := newFakeStore()
	store.failTx = 5

	sleepFunc = func(time.Duration) {}
	defer func() { sleepFunc = time.Sleep }()

	coord := newTestCoordinator(store)
	batch := Batch{
		SectionID: 1,
		Slot:      attendance.SlotLab1,
		TermID:    1,
		Entries:   []BatchEntry{{StudentID: "S1", Grade: 8}},
	}

	err := coord.Run(context.Background(), batch)
	if err == nil {
		t.Fatal("Run() error = nil, want terminal busy error")
	}
	if !errors.Is(err, errBusy) {
		t.Errorf("Run() error = %v, want wrapped %v", err, errBusy)
	}
	if store.txs != 5 {
		t.Errorf("transactions = %d, want 5", store.txs)
	}
	if len(store.grades) != 0 {
		t.Errorf("grades written = %d, want none", len(store.grades))
	}
}

func TestCoordinator_Run_nonBusyErrorIsNotRetried(t *testing.T) {
	store := newFakeStore()

	errFatal := errors.New("constraint violation")
	coord := NewCoordinator(
		transactorFunc(func(ctx context.Context, fn func(exec core.DBExecutor) error) error {
			store.txs++
			return errFatal
		}),
		store,
		NewCalculator(DefaultWeights),
		func(err error) bool { return errors.Is(err, errBusy) },
		core.WriteRetryConfig{MaxAttempts: 5, Backoff: time.Second},
	)

	err := coord.Run(context.Background(), Batch{Entries: []BatchEntry{{StudentID: "S1", Grade: 8}}})
	if err != errFatal {
		t.Errorf("Run() error = %v, want %v", err, errFatal)
	}
	if store.txs != 1 {
		t.Errorf("transactions = %d, want 1", store.txs)
	}
}

type transactorFunc func(ctx context.Context, fn func(exec core.DBExecutor) error) error

func (f transactorFunc) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	return f(ctx, fn)
}

func TestCoordinator_Run_recomputesFinalPerRow(t *testing.T) {
	store := newFakeStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	run := func(slot attendance.Slot, entries ...BatchEntry) {
		t.Helper()
		if err := coord.Run(ctx, Batch{SectionID: 1, Slot: slot, TermID: 1, Entries: entries}); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
	}

	run(attendance.SlotLab1, BatchEntry{StudentID: "S1", Grade: 8}, BatchEntry{StudentID: "S2", Grade: 5})
	run(attendance.SlotLab2, BatchEntry{StudentID: "S1", Grade: 6})
	run(attendance.SlotExamJun, BatchEntry{StudentID: "S1", Grade: 7})

	fg, err := store.GetFinalGrade(ctx, "S1", 1)
	if err != nil {
		t.Fatalf("GetFinalGrade() failed: %v", err)
	}
	if !fg.LabAverage.Valid || fg.LabAverage.Float64 != 7 {
		t.Errorf("LabAverage = %v, want 7", fg.LabAverage)
	}
	if !fg.Final.Valid || fg.Final.Float64 != 7 {
		t.Errorf("Final = %v, want 7", fg.Final)
	}

	// S2 sat no exam; their aggregate holds a lab average only
	fg, err = store.GetFinalGrade(ctx, "S2", 1)
	if err != nil {
		t.Fatalf("GetFinalGrade() failed: %v", err)
	}
	if !fg.LabAverage.Valid || fg.LabAverage.Float64 != 5 {
		t.Errorf("LabAverage = %v, want 5", fg.LabAverage)
	}
	if fg.Final.Valid {
		t.Errorf("Final = %v, want null", fg.Final)
	}
}

func TestCoordinator_RunRecompute(t *testing.T) {
	store := newFakeStore()
	coord := newTestCoordinator(store)
	ctx := context.Background()

	for _, rec := range []Record{
		{StudentID: "S1", SectionID: 1, Slot: attendance.SlotLab1, Grade: 8, TermID: 1},
		{StudentID: "S1", SectionID: 1, Slot: attendance.SlotExamJun, Grade: 7, TermID: 1},
		{StudentID: "S2", SectionID: 1, Slot: attendance.SlotLab1, Grade: 9, TermID: 1},
	} {
		if _, err := store.UpsertGrade(ctx, rec); err != nil {
			t.Fatalf("UpsertGrade() failed: %v", err)
		}
	}

	if err := coord.RunRecompute(ctx, 1, []string{"S1", "S2"}); err != nil {
		t.Fatalf("RunRecompute() failed: %v", err)
	}

	finals, err := store.QueryFinalGrades(ctx, 1)
	if err != nil {
		t.Fatalf("QueryFinalGrades() failed: %v", err)
	}
	if len(finals) != 2 {
		t.Errorf("final grades = %d, want 2", len(finals))
	}
}
