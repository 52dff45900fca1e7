package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/grade"
	"github.com/mkaralis/labreg/core/registry"
	"github.com/mkaralis/labreg/core/team"
	dummydb "github.com/mkaralis/labreg/storage/database/dummy"
	testutil "github.com/mkaralis/labreg/tests"
)

var (
	regRepo registry.Repository

	testRetryConf = core.WriteRetryConfig{MaxAttempts: 5, Backoff: 0}
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	regRepo = dummydb.NewRegistryRepository(db)
	gradeRepo := dummydb.NewGradeRepository(db)

	regSvc := registry.NewService(regRepo)
	attSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), regSvc)
	coord := grade.NewCoordinator(
		dummydb.NewTransactor(db),
		gradeRepo,
		grade.NewCalculator(grade.DefaultWeights),
		func(error) bool { return false },
		testRetryConf,
	)

	// start CLI
	return &commandLine{
		regSvc:   regSvc,
		attSvc:   attSvc,
		teamSvc:  team.NewService(dummydb.NewTeamRepository(db)),
		gradeSvc: grade.NewService(gradeRepo, attSvc, regSvc, coord),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()

	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want %v%s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	runCliTests(t, cli, tests)
}

func Test_commandLine_addterm(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "missing args", args: []string{"addterm", "-semester", "Spring"}, wantErr: errHelp},
		{name: "create", args: []string{"addterm", "-semester", "Spring", "-year", "2026"}},
		{name: "duplicate", args: []string{"addterm", "-semester", "Spring", "-year", "2026"},
			wantErrStr: registry.ErrTermExists.Error()},
	}
	runCliTests(t, cli, tests)
}

func Test_commandLine_enroll(t *testing.T) {
	cli := setup(t)

	term := testutil.CreateTerm(t, regRepo, "Spring", 2026)
	testutil.CreateSection(t, regRepo, "Tue 10:00", term.ID)
	testutil.CreateStudent(t, regRepo, "S100", "Ada Lovelace")

	tests := []cliTest{
		{name: "missing args", args: []string{"enroll", "-student", "S100"}, wantErr: errHelp},
		{name: "unknown student", args: []string{"enroll", "-student", "lol", "-semester", "Spring", "-year", "2026", "-section", "Tue 10:00"},
			wantErr: registry.ErrStudentNotFound},
		{name: "unknown section", args: []string{"enroll", "-student", "S100", "-semester", "Spring", "-year", "2026", "-section", "lol"},
			wantErr: registry.ErrSectionNotFound},
		{name: "enroll", args: []string{"enroll", "-student", "S100", "-semester", "Spring", "-year", "2026", "-section", "Tue 10:00"}},
		{name: "already enrolled", args: []string{"enroll", "-student", "S100", "-semester", "Spring", "-year", "2026", "-section", "Tue 10:00"},
			wantErr: registry.ErrAlreadyEnrolled},
	}
	runCliTests(t, cli, tests)

	roster, err := cli.regSvc.TermStudents(context.Background(), term.ID)
	if err != nil {
		t.Fatalf("TermStudents() failed: %v", err)
	}
	if len(roster) != 1 || roster[0].ID != "S100" {
		t.Errorf("TermStudents() = %v, want [S100]", roster)
	}
}
