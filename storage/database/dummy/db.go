package dummydb

import (
	"context"
	"sync"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/grade"
	"github.com/mkaralis/labreg/core/registry"
	"github.com/mkaralis/labreg/core/team"
)

type (
	DB struct {
		term       *termTable
		section    *sectionTable
		student    *studentTable
		enrollment *enrollmentTable
		attendance *attendanceTable
		grade      *gradeTable
		finalGrade *finalGradeTable
		membership *membershipTable

		mut       sync.Mutex
		failWrite int
		writeErr  error
	}

	termTable struct {
		sync.RWMutex
		seq   int
		table map[int]*registry.Term
	}

	sectionTable struct {
		sync.RWMutex
		seq   int
		table map[int]*registry.Section
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*registry.Student
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*registry.Enrollment
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.Record
	}

	finalGradeTable struct {
		sync.RWMutex
		table map[string]*grade.FinalGrade
	}

	membershipTable struct {
		sync.RWMutex
		table map[string]*team.Membership
	}
)

func Open() (*DB, error) {
	db := &DB{
		term:       &termTable{table: make(map[int]*registry.Term)},
		section:    &sectionTable{table: make(map[int]*registry.Section)},
		student:    &studentTable{table: make(map[string]*registry.Student)},
		enrollment: &enrollmentTable{table: make(map[string]*registry.Enrollment)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		grade:      &gradeTable{table: make(map[string]*grade.Record)},
		finalGrade: &finalGradeTable{table: make(map[string]*grade.FinalGrade)},
		membership: &membershipTable{table: make(map[string]*team.Membership)},
	}
	return db, nil
}

// FailWrites makes the next n transactions fail with err before touching any
// table.
func (db *DB) FailWrites(n int, err error) {
	db.mut.Lock()
	defer db.mut.Unlock()
	db.failWrite = n
	db.writeErr = err
}

func (db *DB) takeWriteErr() error {
	db.mut.Lock()
	defer db.mut.Unlock()
	if db.failWrite > 0 {
		db.failWrite--
		return db.writeErr
	}
	return nil
}

// Transactor fakes core.Transactor; the dummy tables have no real
// transactions so fn runs directly against them.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	if err := t.db.takeWriteErr(); err != nil {
		return err
	}
	return fn(nil)
}
