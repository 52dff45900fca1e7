package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/registry"
)

var (
	ErrNotFound    = errors.New("attendance record not found")
	ErrEmptyRoster = errors.New("no students enrolled in this section")

	nowFunc = time.Now // mockable
)

type (
	// RosterProvider yields the ordered students a session records against;
	// satisfied by registry.Service.
	RosterProvider interface {
		Roster(ctx context.Context, sectionID, termID int) ([]registry.Student, error)
	}

	Repository interface {
		// UpsertAttendance writes the records by their natural key, inserting or
		// replacing; all rows or none.
		UpsertAttendance(ctx context.Context, recs []Record, exec ...core.DBExecutor) error
		GetAttendance(ctx context.Context, studentID string, sectionID int, slot Slot, termID int, exec ...core.DBExecutor) (Record, error)
		QueryAttendance(ctx context.Context, sectionID int, slot Slot, termID int, exec ...core.DBExecutor) ([]Record, error)
		QuerySlotAttendance(ctx context.Context, sectionID int, slots []Slot, termID int, exec ...core.DBExecutor) ([]Record, error)
	}

	Service struct {
		repo   Repository
		roster RosterProvider
	}
)

func NewService(repo Repository, roster RosterProvider) *Service {
	return &Service{repo: repo, roster: roster}
}

// StartSession loads the roster and any stored records for the key and
// returns a Session in the matching state.
func (svc *Service) StartSession(ctx context.Context, sectionID int, slot Slot, termID int) (*Session, error) {
	roster, err := svc.roster.Roster(ctx, sectionID, termID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}

	recs, err := svc.repo.QueryAttendance(ctx, sectionID, slot, termID)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]Record, len(recs))
	for _, rec := range recs {
		existing[rec.StudentID] = rec
	}

	return &Session{
		SectionID: sectionID,
		Slot:      slot,
		TermID:    termID,
		roster:    roster,
		existing:  existing,
		pending:   make(map[string]Status),
		unlocked:  false,
	}, nil
}

// Save persists the session's pending statuses and relocks it.
//
// A first save requires an explicit status for every roster student and
// writes the whole roster. A save after AllowChanges upserts only the rows
// whose status actually changed, refreshing just their timestamps. On any
// error nothing is written.
func (svc *Service) Save(ctx context.Context, sess *Session) error {
	firstSave := sess.State() == Unrecorded

	if firstSave {
		if stu, missing := sess.firstUnset(); missing {
			return &IncompleteAttendanceError{StudentID: stu.ID, Name: stu.Name}
		}
	}

	students := sess.changed()
	if firstSave {
		students = sess.roster
	}

	tstamp := core.Timestamp(nowFunc())
	recs := make([]Record, 0, len(students))
	for _, stu := range students {
		status, _ := sess.Status(stu.ID)
		recs = append(recs, Record{
			StudentID: stu.ID,
			SectionID: sess.SectionID,
			Slot:      sess.Slot,
			Status:    status,
			Timestamp: tstamp,
			TermID:    sess.TermID,
		})
	}

	if len(recs) > 0 {
		if err := svc.repo.UpsertAttendance(ctx, recs); err != nil {
			return err
		}
		refreshed, err := svc.repo.QueryAttendance(ctx, sess.SectionID, sess.Slot, sess.TermID)
		if err != nil {
			return err
		}
		for _, rec := range refreshed {
			sess.existing[rec.StudentID] = rec
		}
	}

	sess.pending = make(map[string]Status)
	sess.unlocked = false
	return nil
}

func (svc *Service) Get(ctx context.Context, studentID string, sectionID int, slot Slot, termID int) (Record, error) {
	return svc.repo.GetAttendance(ctx, studentID, sectionID, slot, termID)
}

// BySlot returns all stored records for one (section, slot, term) key.
func (svc *Service) BySlot(ctx context.Context, sectionID int, slot Slot, termID int) ([]Record, error) {
	return svc.repo.QueryAttendance(ctx, sectionID, slot, termID)
}

// History renders the roster's attendance across the given slots in slot
// order. Slots without a stored record read as Absent; a student's Nth
// absence is flagged for attention (Notice at 1, Warning from 2 on).
func (svc *Service) History(ctx context.Context, sectionID int, slots []Slot, termID int) ([]StudentHistory, error) {
	roster, err := svc.roster.Roster(ctx, sectionID, termID)
	if err != nil {
		return nil, err
	}
	recs, err := svc.repo.QuerySlotAttendance(ctx, sectionID, slots, termID)
	if err != nil {
		return nil, err
	}

	type key struct {
		student string
		slot    Slot
	}
	byKey := make(map[key]Record, len(recs))
	for _, rec := range recs {
		byKey[key{rec.StudentID, rec.Slot}] = rec
	}

	histories := make([]StudentHistory, 0, len(roster))
	for _, stu := range roster {
		hist := StudentHistory{StudentID: stu.ID, Name: stu.Name}
		for _, slot := range slots {
			entry := HistoryEntry{Slot: slot, Status: StatusAbsent}
			if rec, ok := byKey[key{stu.ID, slot}]; ok {
				entry.Status = rec.Status
				entry.Timestamp = rec.Timestamp
			}
			if entry.Status == StatusAbsent {
				hist.Absences++
				if hist.Absences == 1 {
					entry.Flag = FlagNotice
				} else {
					entry.Flag = FlagWarning
				}
			}
			hist.Entries = append(hist.Entries, entry)
		}
		histories = append(histories, hist)
	}
	return histories, nil
}

// Absents summarizes only stored Absent records across the queried slots,
// with per-slot totals.
func (svc *Service) Absents(ctx context.Context, sectionID int, slots []Slot, termID int) (AbsentReport, error) {
	roster, err := svc.roster.Roster(ctx, sectionID, termID)
	if err != nil {
		return AbsentReport{}, err
	}
	recs, err := svc.repo.QuerySlotAttendance(ctx, sectionID, slots, termID)
	if err != nil {
		return AbsentReport{}, err
	}

	absent := make(map[string][]Slot)
	report := AbsentReport{Totals: make(map[Slot]int, len(slots))}
	for _, slot := range slots {
		report.Totals[slot] = 0
	}
	for _, slot := range slots { // keep slot order within each student
		for _, rec := range recs {
			if rec.Slot != slot || rec.Status != StatusAbsent {
				continue
			}
			absent[rec.StudentID] = append(absent[rec.StudentID], slot)
			report.Totals[slot]++
		}
	}
	for _, stu := range roster {
		if slots, ok := absent[stu.ID]; ok {
			report.Students = append(report.Students, StudentAbsences{
				StudentID: stu.ID,
				Name:      stu.Name,
				Slots:     slots,
			})
		}
	}
	return report, nil
}
