package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/team"
)

type teamRepository struct {
	db *sqlx.DB
}

var _ team.Repository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *sqlx.DB) *teamRepository {
	return &teamRepository{db: db}
}

type membershipRow struct {
	ID         string `db:"id"`
	TeamNumber int    `db:"team_number"`
	StudentID  string `db:"student_id"`
	SectionID  int    `db:"section_id"`
}

func (r membershipRow) toCore() team.Membership {
	return team.Membership{ID: r.ID, TeamNumber: r.TeamNumber, StudentID: r.StudentID, SectionID: r.SectionID}
}

func (repo teamRepository) QueryTeamNumbers(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]int, error) {
	var numbers []int
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &numbers,
		`SELECT DISTINCT team_number FROM team_membership WHERE section_id = $1 ORDER BY team_number`,
		sectionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying team numbers")
	}
	return numbers, nil
}

func (repo teamRepository) QueryMemberships(ctx context.Context, sectionID int, studentIDs []string, exec ...core.DBExecutor) ([]team.Membership, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT id, team_number, student_id, section_id
		 FROM team_membership
		 WHERE section_id = ? AND student_id IN (?)`,
		sectionID, studentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "binding student list")
	}

	exe := getExec(repo.db, exec)
	var rows []membershipRow
	if err = sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying memberships")
	}
	members := make([]team.Membership, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toCore())
	}
	return members, nil
}

func (repo teamRepository) ReplaceMemberships(ctx context.Context, sectionID, teamNumber int, studentIDs []string, exec ...core.DBExecutor) error {
	run := func(exe sqlx.ExtContext) error {
		_, err := exe.ExecContext(ctx,
			exe.Rebind(`DELETE FROM team_membership WHERE section_id = ? AND team_number = ?`),
			sectionID, teamNumber)
		if err != nil {
			return errors.Wrap(err, "clearing team number")
		}
		if err = repo.deleteIn(ctx, exe, sectionID, studentIDs); err != nil {
			return err
		}
		for _, studentID := range studentIDs {
			_, err = exe.ExecContext(ctx,
				exe.Rebind(`INSERT INTO team_membership (id, team_number, student_id, section_id) VALUES (?, ?, ?, ?)`),
				uuid.New().String(), teamNumber, studentID, sectionID)
			if err != nil {
				return errors.Wrap(err, "inserting membership")
			}
		}
		return nil
	}

	if len(exec) > 0 {
		return run(getExec(repo.db, exec))
	}
	return NewTransactor(repo.db).InTx(ctx, func(exe core.DBExecutor) error {
		return run(getExec(repo.db, []core.DBExecutor{exe}))
	})
}

func (repo teamRepository) DeleteMemberships(ctx context.Context, sectionID int, studentIDs []string, exec ...core.DBExecutor) error {
	return repo.deleteIn(ctx, getExec(repo.db, exec), sectionID, studentIDs)
}

func (repo teamRepository) deleteIn(ctx context.Context, exe sqlx.ExtContext, sectionID int, studentIDs []string) error {
	if len(studentIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`DELETE FROM team_membership WHERE section_id = ? AND student_id IN (?)`, sectionID, studentIDs)
	if err != nil {
		return errors.Wrap(err, "binding student list")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting memberships")
	}
	return nil
}

func (repo teamRepository) QueryTeamMembers(ctx context.Context, sectionID int, exec ...core.DBExecutor) ([]team.TeamMember, error) {
	var rows []struct {
		TeamNumber int    `db:"team_number"`
		StudentID  string `db:"student_id"`
		Name       string `db:"name"`
	}
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows,
		`SELECT tm.team_number, tm.student_id, s.name
		 FROM team_membership tm JOIN student s ON s.id = tm.student_id
		 WHERE tm.section_id = $1
		 ORDER BY tm.team_number, s.name`,
		sectionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying team members")
	}
	members := make([]team.TeamMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, team.TeamMember{TeamNumber: row.TeamNumber, StudentID: row.StudentID, Name: row.Name})
	}
	return members, nil
}
