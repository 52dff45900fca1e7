package team

import (
	"context"
	"errors"
	"sort"

	"github.com/mkaralis/labreg/core"
)

var (
	// errors
	ErrInvalidTeamSize  = errors.New("a team must have 2 or 3 members")
	ErrTeamNumberTaken  = errors.New("this team number is already in use in this section")
	ErrAlreadyAssigned  = errors.New("some students are already assigned to a team in this section")
	ErrNoTeamsAvailable = errors.New("no available team numbers in this section")
)

type (
	Repository interface {
		QueryTeamNumbers(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]int, error)
		QueryMemberships(ctx context.Context, sectionID int, studentIDs []string, exec ...core.DBExecutor) ([]Membership, error)
		// ReplaceMemberships makes teamNumber's membership in the section exactly
		// studentIDs, atomically: rows already under teamNumber and the listed
		// students' memberships on other teams are deleted first.
		ReplaceMemberships(ctx context.Context, sectionID, teamNumber int, studentIDs []string, exec ...core.DBExecutor) error
		DeleteMemberships(ctx context.Context, sectionID int, studentIDs []string, exec ...core.DBExecutor) error
		QueryTeamMembers(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]TeamMember, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Assign places the listed students on a team. Claiming a number already in
// use needs Overwrite and replaces that team wholesale; moving a subset of a
// team to a free number leaves the remaining members under their original
// number.
func (svc *Service) Assign(ctx context.Context, na NewAssignment) error {
	if len(na.StudentIDs) < MinTeamSize || len(na.StudentIDs) > MaxTeamSize {
		return ErrInvalidTeamSize
	}
	if err := na.Validate(); err != nil {
		return err
	}

	inUse, err := svc.repo.QueryTeamNumbers(ctx, na.SectionID)
	if err != nil {
		return err
	}
	if !na.Overwrite {
		for _, n := range inUse {
			if n == na.TeamNumber {
				return ErrTeamNumberTaken
			}
		}
		assigned, err := svc.repo.QueryMemberships(ctx, na.SectionID, na.StudentIDs)
		if err != nil {
			return err
		}
		if len(assigned) > 0 {
			return ErrAlreadyAssigned
		}
	}

	return svc.repo.ReplaceMemberships(ctx, na.SectionID, na.TeamNumber, na.StudentIDs)
}

// Remove drops the students' memberships in the section; removing a student
// with no membership is a no-op.
func (svc *Service) Remove(ctx context.Context, sectionID int, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	return svc.repo.DeleteMemberships(ctx, sectionID, studentIDs)
}

// AvailableNumbers returns the unused team numbers of the section, ascending,
// against the fixed ceiling.
func (svc *Service) AvailableNumbers(ctx context.Context, sectionID int) ([]int, error) {
	inUse, err := svc.repo.QueryTeamNumbers(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	used := make(map[int]bool, len(inUse))
	for _, n := range inUse {
		used[n] = true
	}
	available := make([]int, 0, MaxTeamNumber)
	for n := 1; n <= MaxTeamNumber; n++ {
		if !used[n] {
			available = append(available, n)
		}
	}
	sort.Ints(available)
	if len(available) == 0 {
		return nil, ErrNoTeamsAvailable
	}
	return available, nil
}

// Teams lists the section's members ordered by (team number, student name).
func (svc *Service) Teams(ctx context.Context, sectionID int) ([]TeamMember, error) {
	return svc.repo.QueryTeamMembers(ctx, sectionID)
}
