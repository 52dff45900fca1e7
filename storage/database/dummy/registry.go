package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/registry"
)

type registryRepository struct {
	db *DB
}

var _ registry.Repository = (*registryRepository)(nil) // interface compliance check

func NewRegistryRepository(db *DB) *registryRepository {
	return &registryRepository{db: db}
}

func (repo *registryRepository) CreateTerm(ctx context.Context, t registry.Term, exec ...core.DBExecutor) (registry.Term, error) {
	repo.db.term.Lock()
	defer repo.db.term.Unlock()

	repo.db.term.seq++
	t.ID = repo.db.term.seq
	repo.db.term.table[t.ID] = &t
	return t, nil
}

func (repo *registryRepository) GetTerm(ctx context.Context, id int, exec ...core.DBExecutor) (registry.Term, error) {
	repo.db.term.RLock()
	defer repo.db.term.RUnlock()

	if t, ok := repo.db.term.table[id]; ok {
		return *t, nil
	}
	return registry.Term{}, registry.ErrTermNotFound
}

func (repo *registryRepository) GetTermBySemesterYear(ctx context.Context, semester string, year int, exec ...core.DBExecutor) (registry.Term, error) {
	repo.db.term.RLock()
	defer repo.db.term.RUnlock()

	for _, t := range repo.db.term.table {
		if t.Semester == semester && t.Year == year {
			return *t, nil
		}
	}
	return registry.Term{}, registry.ErrTermNotFound
}

func (repo *registryRepository) QueryTerms(ctx context.Context, exec ...core.DBExecutor) ([]registry.Term, error) {
	repo.db.term.RLock()
	defer repo.db.term.RUnlock()

	terms := make([]registry.Term, 0, len(repo.db.term.table))
	for _, t := range repo.db.term.table {
		terms = append(terms, *t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Year != terms[j].Year {
			return terms[i].Year < terms[j].Year
		}
		return terms[i].Semester < terms[j].Semester
	})
	return terms, nil
}

func (repo *registryRepository) CreateSection(ctx context.Context, s registry.Section, exec ...core.DBExecutor) (registry.Section, error) {
	repo.db.section.Lock()
	defer repo.db.section.Unlock()

	repo.db.section.seq++
	s.ID = repo.db.section.seq
	repo.db.section.table[s.ID] = &s
	return s, nil
}

func (repo *registryRepository) GetSection(ctx context.Context, id int, exec ...core.DBExecutor) (registry.Section, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	if s, ok := repo.db.section.table[id]; ok {
		return *s, nil
	}
	return registry.Section{}, registry.ErrSectionNotFound
}

func (repo *registryRepository) GetSectionByName(ctx context.Context, termID int, name string, exec ...core.DBExecutor) (registry.Section, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	for _, s := range repo.db.section.table {
		if s.TermID == termID && s.Name == name {
			return *s, nil
		}
	}
	return registry.Section{}, registry.ErrSectionNotFound
}

func (repo *registryRepository) QuerySections(ctx context.Context, termID int, exec ...core.DBExecutor) ([]registry.Section, error) {
	repo.db.section.RLock()
	defer repo.db.section.RUnlock()

	sections := make([]registry.Section, 0)
	for _, s := range repo.db.section.table {
		if s.TermID == termID {
			sections = append(sections, *s)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Name < sections[j].Name })
	return sections, nil
}

func (repo *registryRepository) CreateStudent(ctx context.Context, s registry.Student, exec ...core.DBExecutor) (registry.Student, error) {
	repo.db.student.Lock()
	defer repo.db.student.Unlock()

	repo.db.student.table[s.ID] = &s
	return s, nil
}

func (repo *registryRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (registry.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	if s, ok := repo.db.student.table[id]; ok {
		return *s, nil
	}
	return registry.Student{}, registry.ErrStudentNotFound
}

func (repo *registryRepository) SearchStudents(ctx context.Context, q string, exec ...core.DBExecutor) ([]registry.StudentInfo, error) {
	repo.db.student.RLock()
	matched := make([]registry.Student, 0)
	for _, s := range repo.db.student.table {
		if s.ID == q || strings.Contains(strings.ToLower(s.Name), strings.ToLower(q)) {
			matched = append(matched, *s)
		}
	}
	repo.db.student.RUnlock()

	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	infos := make([]registry.StudentInfo, 0, len(matched))
	for _, stu := range matched {
		for _, enr := range repo.db.enrollment.table {
			if enr.StudentID != stu.ID {
				continue
			}
			info := registry.StudentInfo{Student: stu}
			if sec, err := repo.GetSection(ctx, enr.SectionID); err == nil {
				info.SectionName = sec.Name
			}
			if t, err := repo.GetTerm(ctx, enr.TermID); err == nil {
				info.Semester = t.Semester
				info.Year = t.Year
			}
			repo.db.membership.RLock()
			for _, m := range repo.db.membership.table {
				if m.StudentID == stu.ID && m.SectionID == enr.SectionID {
					info.TeamNumber = m.TeamNumber
					break
				}
			}
			repo.db.membership.RUnlock()
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Year != infos[j].Year {
			return infos[i].Year > infos[j].Year
		}
		if infos[i].Semester != infos[j].Semester {
			return infos[i].Semester > infos[j].Semester
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func (repo *registryRepository) CreateEnrollment(ctx context.Context, e registry.Enrollment, exec ...core.DBExecutor) (registry.Enrollment, error) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	e.ID = uuid.New().String()
	repo.db.enrollment.table[e.ID] = &e
	return e, nil
}

func (repo *registryRepository) GetEnrollment(ctx context.Context, studentID string, termID int, exec ...core.DBExecutor) (registry.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	for _, e := range repo.db.enrollment.table {
		if e.StudentID == studentID && e.TermID == termID {
			return *e, nil
		}
	}
	return registry.Enrollment{}, registry.ErrNotEnrolled
}

func (repo *registryRepository) QueryRoster(ctx context.Context, sectionID, termID int, exec ...core.DBExecutor) ([]registry.Student, error) {
	repo.db.enrollment.RLock()
	ids := make([]string, 0)
	for _, e := range repo.db.enrollment.table {
		if e.SectionID == sectionID && e.TermID == termID {
			ids = append(ids, e.StudentID)
		}
	}
	repo.db.enrollment.RUnlock()
	return repo.students(ids), nil
}

func (repo *registryRepository) QueryTermStudents(ctx context.Context, termID int, exec ...core.DBExecutor) ([]registry.Student, error) {
	repo.db.enrollment.RLock()
	ids := make([]string, 0)
	for _, e := range repo.db.enrollment.table {
		if e.TermID == termID {
			ids = append(ids, e.StudentID)
		}
	}
	repo.db.enrollment.RUnlock()
	return repo.students(ids), nil
}

func (repo *registryRepository) students(ids []string) []registry.Student {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	students := make([]registry.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := repo.db.student.table[id]; ok {
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students
}

func (repo *registryRepository) TransferEnrollment(ctx context.Context, studentID string, termID, newSectionID int, exec ...core.DBExecutor) error {
	repo.db.enrollment.Lock()
	for _, e := range repo.db.enrollment.table {
		if e.StudentID == studentID && e.TermID == termID {
			e.SectionID = newSectionID
		}
	}
	repo.db.enrollment.Unlock()

	repo.db.attendance.Lock()
	defer repo.db.attendance.Unlock()
	for key, rec := range repo.db.attendance.table {
		if rec.StudentID == studentID && rec.TermID == termID {
			delete(repo.db.attendance.table, key)
			rec.SectionID = newSectionID
			repo.db.attendance.table[attendanceKey(rec.StudentID, rec.SectionID, rec.Slot, rec.TermID)] = rec
		}
	}
	return nil
}
