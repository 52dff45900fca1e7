package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/team"
)

type teamRepository struct {
	db *DB
}

var _ team.Repository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *DB) *teamRepository {
	return &teamRepository{db: db}
}

func (repo *teamRepository) QueryTeamNumbers(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]int, error) {
	repo.db.membership.RLock()
	defer repo.db.membership.RUnlock()

	seen := make(map[int]bool)
	numbers := make([]int, 0)
	for _, m := range repo.db.membership.table {
		if m.SectionID == sectionID && !seen[m.TeamNumber] {
			seen[m.TeamNumber] = true
			numbers = append(numbers, m.TeamNumber)
		}
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (repo *teamRepository) QueryMemberships(ctx context.Context, sectionID int, studentIDs []string, exec ...core.DBExecutor) ([]team.Membership, error) {
	repo.db.membership.RLock()
	defer repo.db.membership.RUnlock()

	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}

	members := make([]team.Membership, 0)
	for _, m := range repo.db.membership.table {
		if m.SectionID == sectionID && wanted[m.StudentID] {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (repo *teamRepository) ReplaceMemberships(ctx context.Context, sectionID, teamNumber int, studentIDs []string, exec ...core.DBExecutor) error {
	if err := repo.db.takeWriteErr(); err != nil {
		return err
	}

	repo.db.membership.Lock()
	defer repo.db.membership.Unlock()

	for id, m := range repo.db.membership.table {
		if m.SectionID == sectionID && m.TeamNumber == teamNumber {
			delete(repo.db.membership.table, id)
		}
	}
	repo.delete(sectionID, studentIDs)
	for _, studentID := range studentIDs {
		m := team.Membership{
			ID:         uuid.New().String(),
			TeamNumber: teamNumber,
			StudentID:  studentID,
			SectionID:  sectionID,
		}
		repo.db.membership.table[m.ID] = &m
	}
	return nil
}

func (repo *teamRepository) DeleteMemberships(ctx context.Context, sectionID int, studentIDs []string, exec ...core.DBExecutor) error {
	repo.db.membership.Lock()
	defer repo.db.membership.Unlock()
	repo.delete(sectionID, studentIDs)
	return nil
}

// callers hold the membership lock
func (repo *teamRepository) delete(sectionID int, studentIDs []string) {
	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	for id, m := range repo.db.membership.table {
		if m.SectionID == sectionID && wanted[m.StudentID] {
			delete(repo.db.membership.table, id)
		}
	}
}

func (repo *teamRepository) QueryTeamMembers(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]team.TeamMember, error) {
	repo.db.membership.RLock()
	members := make([]team.TeamMember, 0)
	for _, m := range repo.db.membership.table {
		if m.SectionID == sectionID {
			members = append(members, team.TeamMember{TeamNumber: m.TeamNumber, StudentID: m.StudentID})
		}
	}
	repo.db.membership.RUnlock()

	repo.db.student.RLock()
	defer repo.db.student.RUnlock()
	for i, m := range members {
		if s, ok := repo.db.student.table[m.StudentID]; ok {
			members[i].Name = s.Name
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].TeamNumber != members[j].TeamNumber {
			return members[i].TeamNumber < members[j].TeamNumber
		}
		return members[i].Name < members[j].Name
	})
	return members, nil
}
