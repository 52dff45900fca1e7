package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/mkaralis/labreg/core"
	"github.com/mkaralis/labreg/core/attendance"
	"github.com/mkaralis/labreg/core/grade"
	"github.com/mkaralis/labreg/core/registry"
	"github.com/mkaralis/labreg/core/team"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	regSvc   *registry.Service
	attSvc   *attendance.Service
	teamSvc  *team.Service
	gradeSvc *grade.Service
}

// slotInput validates a -slot flag value against the known labels.
type slotInput struct {
	Slot string `json:"slot" validate:"required,slot"`
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args]                                     - run database migrations")
	fmt.Println("  addterm -semester SEMESTER -year YEAR                      - create a term")
	fmt.Println("  addsection -semester SEMESTER -year YEAR -name NAME        - create a section")
	fmt.Println("  addstudent -id ID -name NAME [-email EMAIL] [-regnum NUM]  - register a student")
	fmt.Println("  enroll -student ID -semester SEMESTER -year YEAR -section NAME")
	fmt.Println("                                                             - enroll a student")
	fmt.Println("  transfer -student ID -semester SEMESTER -year YEAR -section NAME")
	fmt.Println("                                                             - move a student to another section")
	fmt.Println("  attendance -student ID -semester SEMESTER -year YEAR -section NAME -slot SLOT -status STATUS")
	fmt.Println("                                                             - record or correct one attendance status")
	fmt.Println("  grade -student ID -semester SEMESTER -year YEAR -section NAME -slot SLOT -value GRADE")
	fmt.Println("                                                             - record or correct one grade")
	fmt.Println("  roster -semester SEMESTER -year YEAR -section NAME         - print a section roster")
	fmt.Println("  teams -semester SEMESTER -year YEAR -section NAME          - print a section's teams")
	fmt.Println("  recompute -semester SEMESTER -year YEAR                    - rebuild the term's final grades")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addTermCmd := flag.NewFlagSet("addterm", flag.ExitOnError)
	addTermSemester := addTermCmd.String("semester", "", "The term's semester.")
	addTermYear := addTermCmd.Int("year", 0, "The term's year.")

	addSectionCmd := flag.NewFlagSet("addsection", flag.ExitOnError)
	addSectionSemester := addSectionCmd.String("semester", "", "The term's semester.")
	addSectionYear := addSectionCmd.Int("year", 0, "The term's year.")
	addSectionName := addSectionCmd.String("name", "", "The section's name.")

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ExitOnError)
	addStudentID := addStudentCmd.String("id", "", "The student's id.")
	addStudentName := addStudentCmd.String("name", "", "The student's full name.")
	addStudentEmail := addStudentCmd.String("email", "", "The student's email.")
	addStudentRegNum := addStudentCmd.String("regnum", "", "The student's registration number.")

	enrollCmd := flag.NewFlagSet("enroll", flag.ExitOnError)
	enrollStudent := enrollCmd.String("student", "", "The student's id.")
	enrollSemester := enrollCmd.String("semester", "", "The term's semester.")
	enrollYear := enrollCmd.Int("year", 0, "The term's year.")
	enrollSection := enrollCmd.String("section", "", "The section's name.")

	transferCmd := flag.NewFlagSet("transfer", flag.ExitOnError)
	transferStudent := transferCmd.String("student", "", "The student's id.")
	transferSemester := transferCmd.String("semester", "", "The term's semester.")
	transferYear := transferCmd.Int("year", 0, "The term's year.")
	transferSection := transferCmd.String("section", "", "The destination section's name.")

	attendanceCmd := flag.NewFlagSet("attendance", flag.ExitOnError)
	attendanceStudent := attendanceCmd.String("student", "", "The student's id.")
	attendanceSemester := attendanceCmd.String("semester", "", "The term's semester.")
	attendanceYear := attendanceCmd.Int("year", 0, "The term's year.")
	attendanceSection := attendanceCmd.String("section", "", "The section's name.")
	attendanceSlot := attendanceCmd.String("slot", "", "The exercise slot label.")
	attendanceStatus := attendanceCmd.String("status", "", "Present or Absent.")

	gradeCmd := flag.NewFlagSet("grade", flag.ExitOnError)
	gradeStudent := gradeCmd.String("student", "", "The student's id.")
	gradeSemester := gradeCmd.String("semester", "", "The term's semester.")
	gradeYear := gradeCmd.Int("year", 0, "The term's year.")
	gradeSection := gradeCmd.String("section", "", "The section's name.")
	gradeSlot := gradeCmd.String("slot", "", "The exercise slot label.")
	gradeValue := gradeCmd.String("value", "", "The grade value.")

	rosterCmd := flag.NewFlagSet("roster", flag.ExitOnError)
	rosterSemester := rosterCmd.String("semester", "", "The term's semester.")
	rosterYear := rosterCmd.Int("year", 0, "The term's year.")
	rosterSection := rosterCmd.String("section", "", "The section's name.")

	teamsCmd := flag.NewFlagSet("teams", flag.ExitOnError)
	teamsSemester := teamsCmd.String("semester", "", "The term's semester.")
	teamsYear := teamsCmd.Int("year", 0, "The term's year.")
	teamsSection := teamsCmd.String("section", "", "The section's name.")

	recomputeCmd := flag.NewFlagSet("recompute", flag.ExitOnError)
	recomputeSemester := recomputeCmd.String("semester", "", "The term's semester.")
	recomputeYear := recomputeCmd.Int("year", 0, "The term's year.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addterm":
		if err := addTermCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTermSemester == "" || *addTermYear == 0 {
			addTermCmd.Usage()
			return errHelp
		}
		term, err := cli.regSvc.CreateTerm(ctx, registry.NewTerm{Semester: *addTermSemester, Year: *addTermYear})
		if err != nil {
			return err
		}
		fmt.Printf("created term %s\n", term)
		return nil

	case "addsection":
		if err := addSectionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSectionSemester == "" || *addSectionYear == 0 || *addSectionName == "" {
			addSectionCmd.Usage()
			return errHelp
		}
		term, err := cli.regSvc.GetTerm(ctx, *addSectionSemester, *addSectionYear)
		if err != nil {
			return err
		}
		section, err := cli.regSvc.CreateSection(ctx, registry.NewSection{Name: *addSectionName, TermID: term.ID})
		if err != nil {
			return err
		}
		fmt.Printf("created section %s in %s\n", section.Name, term)
		return nil

	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStudentID == "" || *addStudentName == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		stu, err := cli.regSvc.RegisterStudent(ctx, registry.NewStudent{
			ID:                 *addStudentID,
			Name:               *addStudentName,
			Email:              *addStudentEmail,
			RegistrationNumber: *addStudentRegNum,
		})
		if err != nil {
			return err
		}
		fmt.Printf("registered student %s (%s)\n", stu.Name, stu.ID)
		return nil

	case "enroll":
		if err := enrollCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *enrollStudent == "" || *enrollSemester == "" || *enrollYear == 0 || *enrollSection == "" {
			enrollCmd.Usage()
			return errHelp
		}
		return cli.enroll(ctx, *enrollStudent, *enrollSemester, *enrollYear, *enrollSection)

	case "transfer":
		if err := transferCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *transferStudent == "" || *transferSemester == "" || *transferYear == 0 || *transferSection == "" {
			transferCmd.Usage()
			return errHelp
		}
		term, err := cli.regSvc.GetTerm(ctx, *transferSemester, *transferYear)
		if err != nil {
			return err
		}
		return cli.regSvc.Transfer(ctx, *transferStudent, term.ID, *transferSection)

	case "attendance":
		if err := attendanceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *attendanceStudent == "" || *attendanceSemester == "" || *attendanceYear == 0 ||
			*attendanceSection == "" || *attendanceSlot == "" || *attendanceStatus == "" {
			attendanceCmd.Usage()
			return errHelp
		}
		return cli.recordAttendance(ctx, *attendanceStudent, *attendanceSemester, *attendanceYear,
			*attendanceSection, *attendanceSlot, *attendanceStatus)

	case "grade":
		if err := gradeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *gradeStudent == "" || *gradeSemester == "" || *gradeYear == 0 ||
			*gradeSection == "" || *gradeSlot == "" || *gradeValue == "" {
			gradeCmd.Usage()
			return errHelp
		}
		return cli.recordGrade(ctx, *gradeStudent, *gradeSemester, *gradeYear,
			*gradeSection, *gradeSlot, *gradeValue)

	case "roster":
		if err := rosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rosterSemester == "" || *rosterYear == 0 || *rosterSection == "" {
			rosterCmd.Usage()
			return errHelp
		}
		return cli.printRoster(ctx, *rosterSemester, *rosterYear, *rosterSection)

	case "teams":
		if err := teamsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *teamsSemester == "" || *teamsYear == 0 || *teamsSection == "" {
			teamsCmd.Usage()
			return errHelp
		}
		return cli.printTeams(ctx, *teamsSemester, *teamsYear, *teamsSection)

	case "recompute":
		if err := recomputeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recomputeSemester == "" || *recomputeYear == 0 {
			recomputeCmd.Usage()
			return errHelp
		}
		term, err := cli.regSvc.GetTerm(ctx, *recomputeSemester, *recomputeYear)
		if err != nil {
			return err
		}
		return cli.gradeSvc.RecomputeTerm(ctx, term.ID)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) section(ctx context.Context, semester string, year int, name string) (registry.Section, error) {
	term, err := cli.regSvc.GetTerm(ctx, semester, year)
	if err != nil {
		return registry.Section{}, err
	}
	return cli.regSvc.GetSectionByName(ctx, term.ID, name)
}

func (cli *commandLine) enroll(ctx context.Context, studentID, semester string, year int, sectionName string) error {
	section, err := cli.section(ctx, semester, year, sectionName)
	if err != nil {
		return err
	}
	_, err = cli.regSvc.Enroll(ctx, registry.NewEnrollment{
		StudentID: studentID,
		SectionID: section.ID,
		TermID:    section.TermID,
	})
	return err
}

// recordAttendance records or corrects a single student's status through the
// session workflow. A first recording of the roster still requires every
// student's status; that incompleteness surfaces as an error here.
func (cli *commandLine) recordAttendance(ctx context.Context, studentID, semester string, year int, sectionName, slotName, statusName string) error {
	in := slotInput{Slot: slotName}
	if err := core.Validate.Struct(&in); err != nil {
		return err
	}
	section, err := cli.section(ctx, semester, year, sectionName)
	if err != nil {
		return err
	}
	sess, err := cli.attSvc.StartSession(ctx, section.ID, attendance.Slot(slotName), section.TermID)
	if err != nil {
		return err
	}
	if sess.State() == attendance.RecordedLocked {
		sess.AllowChanges()
	}
	if err := sess.SetStatus(studentID, attendance.Status(statusName)); err != nil {
		return err
	}
	return cli.attSvc.Save(ctx, sess)
}

func (cli *commandLine) recordGrade(ctx context.Context, studentID, semester string, year int, sectionName, slotName, raw string) error {
	in := slotInput{Slot: slotName}
	if err := core.Validate.Struct(&in); err != nil {
		return err
	}
	section, err := cli.section(ctx, semester, year, sectionName)
	if err != nil {
		return err
	}
	return cli.gradeSvc.RecordGrade(ctx, studentID, section.ID, attendance.Slot(slotName), section.TermID, raw)
}

func (cli *commandLine) printRoster(ctx context.Context, semester string, year int, sectionName string) error {
	section, err := cli.section(ctx, semester, year, sectionName)
	if err != nil {
		return err
	}
	roster, err := cli.regSvc.Roster(ctx, section.ID, section.TermID)
	if err != nil {
		return err
	}
	for _, stu := range roster {
		fmt.Printf("%-12s %s\n", stu.ID, stu.Name)
	}
	return nil
}

func (cli *commandLine) printTeams(ctx context.Context, semester string, year int, sectionName string) error {
	section, err := cli.section(ctx, semester, year, sectionName)
	if err != nil {
		return err
	}
	members, err := cli.teamSvc.Teams(ctx, section.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		fmt.Printf("team %d: %-12s %s\n", m.TeamNumber, m.StudentID, m.Name)
	}
	return nil
}
