package main

import (
	"context"
	"fmt"

	"github.com/campusrecords/campus/core/user"
)

// recompute refreshes the stored result of a student's semester from their current marks.
func (cli *commandLine) recompute(studentID string, semester int) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !usr.IsStudent() {
		return user.ErrNotFound
	}

	rep, err := cli.resultSvc.Compute(ctx, usr.ID, semester)
	if err != nil {
		return err
	}
	if rep.Empty() {
		fmt.Printf("%s: no marks recorded for semester %d\n", usr.Name, semester)
		return nil
	}
	sum := rep.Summary
	fmt.Printf("%s, semester %d: %.2f%%, CGPA %.2f, %s\n", usr.Name, semester, sum.OverallPercentage, sum.CGPA, sum.FinalResult)
	return nil
}
