package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/grade"
	"github.com/mkaralis/labreg/core/registry"
	"github.com/mkaralis/labreg/core/team"
	logsvc "github.com/mkaralis/labreg/services/logger"
	"github.com/mkaralis/labreg/storage/database"
	sqlxrepos "github.com/mkaralis/labreg/storage/database/sqlx"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && !conf.TestMode)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	errAndDie(database.Migrate(db))

	sdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	regSvc := registry.NewService(sqlxrepos.NewRegistryRepository(sdb))
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(sdb), regSvc)
	gradeRepo := sqlxrepos.NewGradeRepository(sdb)
	coord := grade.NewCoordinator(
		sqlxrepos.NewTransactor(sdb),
		gradeRepo,
		grade.NewCalculator(grade.DefaultWeights),
		database.IsBusy,
		conf.WriteRetry,
	)
	gradeSvc := grade.NewService(gradeRepo, attSvc, regSvc, coord)
	teamSvc := team.NewService(sqlxrepos.NewTeamRepository(sdb))

	// start CLI
	cli := commandLine{
		db:       db,
		regSvc:   regSvc,
		attSvc:   attSvc,
		teamSvc:  teamSvc,
		gradeSvc: gradeSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error())
	}
}
