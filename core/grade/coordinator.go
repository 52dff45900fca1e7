package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
)

var sleepFunc = time.Sleep // mockable

type (
	// Batch is one roster's worth of grades from a recording session, applied
	// together with their triggered final-grade recomputes.
	Batch struct {
		SectionID int
		Slot      attendance.Slot
		TermID    int
		Entries   []BatchEntry
	}

	BatchEntry struct {
		StudentID string
		Grade     float64
	}

	// Coordinator serializes ledger writes against a store that may reject
	// them under contention. A batch runs inside one transaction; on a
	// transient busy failure it backs off a fixed interval and retries, up to
	// the configured attempt count, then propagates the failure. Success and
	// exhaustion are the only terminal outcomes; callers never observe a
	// partial commit.
	Coordinator struct {
		tx   core.Transactor
		repo Repository
		calc Calculator
		busy func(error) bool

		maxAttempts int
		backoff     time.Duration
	}
)

func NewCoordinator(tx core.Transactor, repo Repository, calc Calculator, busy func(error) bool, conf core.WriteRetryConfig) *Coordinator {
	return &Coordinator{
		tx:          tx,
		repo:        repo,
		calc:        calc,
		busy:        busy,
		maxAttempts: conf.MaxAttempts,
		backoff:     conf.Backoff,
	}
}

// Run applies the batch synchronously, retrying on contention.
func (c *Coordinator) Run(ctx context.Context, batch Batch) error {
	return c.execute(ctx, func(exec core.DBExecutor) error {
		return c.apply(ctx, batch, exec)
	})
}

// Submit runs the batch off the caller's goroutine. The returned channel
// delivers a single completion signal: nil, or the terminal error after
// retries are exhausted. Callers must not submit a second batch for the same
// recording session while one is in flight.
func (c *Coordinator) Submit(ctx context.Context, batch Batch) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, batch)
	}()
	return done
}

// RunRecompute rebuilds the final grades of the given students from their
// stored grade rows, inside one retried transaction.
func (c *Coordinator) RunRecompute(ctx context.Context, termID int, studentIDs []string) error {
	return c.execute(ctx, func(exec core.DBExecutor) error {
		for _, studentID := range studentIDs {
			if err := c.recompute(ctx, studentID, termID, exec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Coordinator) execute(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.tx.InTx(ctx, fn); err == nil {
			return nil
		}
		if !c.busy(err) {
			return err
		}
		if attempt < c.maxAttempts {
			sleepFunc(c.backoff)
		}
	}
	return errors.Wrapf(err, "store busy after %d attempts", c.maxAttempts)
}

// apply upserts the batch rows in roster order; each row's final-grade
// recompute runs before the next row is applied.
func (c *Coordinator) apply(ctx context.Context, batch Batch, exec core.DBExecutor) error {
	tstamp := core.Timestamp(nowFunc())
	for _, entry := range batch.Entries {
		rec := Record{
			StudentID: entry.StudentID,
			SectionID: batch.SectionID,
			Slot:      batch.Slot,
			Grade:     entry.Grade,
			Timestamp: tstamp,
			TermID:    batch.TermID,
		}
		if _, err := c.repo.UpsertGrade(ctx, rec, exec); err != nil {
			return err
		}
		if err := c.recompute(ctx, entry.StudentID, batch.TermID, exec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) recompute(ctx context.Context, studentID string, termID int, exec core.DBExecutor) error {
	recs, err := c.repo.QueryGrades(ctx, studentID, termID, exec)
	if err != nil {
		return err
	}
	fg := c.calc.Compute(studentID, termID, recs)
	_, err = c.repo.ReplaceFinalGrade(ctx, fg, exec)
	return err
}
