// Package grading maps percentages to letter grades and aggregates graded records
// into a credit-weighted CGPA and a semester pass/fail result.
//
// Every function is pure: inputs are never mutated and results only depend on inputs.
package grading

import "math"

type Grade string

const (
	APlus Grade = "A+"
	A     Grade = "A"
	BPlus Grade = "B+"
	B     Grade = "B"
	CPlus Grade = "C+"
	C     Grade = "C"
	D     Grade = "D"
	F     Grade = "F"
)

type Result string

const (
	Pass Result = "PASS"
	Fail Result = "FAIL"
)

// ladder is ordered by descending lower bound; the first match wins.
var ladder = []struct {
	min   float64
	grade Grade
}{
	{90, APlus},
	{80, A},
	{70, BPlus},
	{60, B},
	{50, CPlus},
	{40, C},
	{35, D},
}

var points = map[Grade]int{
	APlus: 10,
	A:     9,
	BPlus: 8,
	B:     7,
	CPlus: 6,
	C:     5,
	D:     4,
	F:     0,
}

// GradeFor maps a percentage to its letter grade. Lower bounds are inclusive.
// Out of range values are not rejected: they fall through the same ladder.
func GradeFor(percentage float64) Grade {
	for _, step := range ladder {
		if percentage >= step.min {
			return step.grade
		}
	}
	return F
}

// PointsFor returns the grade points of g. Unknown grades are worth 0.
func PointsFor(g Grade) int {
	return points[g]
}

// Percentage returns 100*obtained/total, or 0 when total is not positive.
func Percentage(obtained, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return obtained * 100 / total
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Weighted is a graded record and the credit weight of its course.
type Weighted struct {
	Grade  Grade
	Credit int
}

// CGPA is the credit-weighted mean of grade points, rounded to 2 decimals.
// Records without a resolvable (positive) credit count with credit 1. Empty input yields 0.
func CGPA(records []Weighted) float64 {
	var weighted, credits int
	for _, r := range records {
		credit := r.Credit
		if credit <= 0 {
			credit = 1
		}
		weighted += PointsFor(r.Grade) * credit
		credits += credit
	}
	if credits == 0 {
		return 0
	}
	return Round2(float64(weighted) / float64(credits))
}
