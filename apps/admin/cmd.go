package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/campusrecords/campus/core/result"
	"github.com/campusrecords/campus/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB // nil in TEST mode
	validate  *validator.Validate
	usrSvc    *user.Service
	resultSvc *result.Service
	cachePath string // transcript cache, empty when disabled
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo, ...)")
	fmt.Println("  adduser -email EMAIL -name NAME -role student|teacher -department DEPT [-designation TITLE] - create a user or reset their password")
	fmt.Println("  resetpassword -email EMAIL - reset user's password")
	fmt.Println("  recompute -student ID -semester N - recompute and store a semester result")
	fmt.Println("  purgecache - drop every cached transcript (stop the API first)")
}

// promptPassword reads a password from the terminal. An empty password prints the usage of fs.
func promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", user.RoleTeacher, "One of student or teacher.")
	addUserDept := addUserCmd.String("department", "", "The user's department.")
	addUserDesignation := addUserCmd.String("designation", "", "The teacher's designation, e.g. Lecturer.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	recomputeCmd := flag.NewFlagSet("recompute", flag.ContinueOnError)
	recomputeStudent := recomputeCmd.String("student", "", "The student's ID.")
	recomputeSemester := recomputeCmd.Int("semester", 0, "The semester, 1 to 8.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" || *addUserDept == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(user.NewUser{
			Name:            *addUserName,
			Email:           *addUserEmail,
			Department:      *addUserDept,
			Role:            *addUserRole,
			Designation:     *addUserDesignation,
			Password:        pwd,
			PasswordConfirm: pwd,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "recompute":
		if err := recomputeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recomputeStudent == "" || *recomputeSemester < 1 || *recomputeSemester > 8 {
			recomputeCmd.Usage()
			return errHelp
		}
		return cli.recompute(*recomputeStudent, *recomputeSemester)

	case "purgecache":
		return cli.purgeCache()

	default:
		cli.printUsage()
		return errHelp
	}
}
