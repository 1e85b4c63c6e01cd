package grading

import (
	"reflect"
	"testing"
)

func row(obtained, total float64, credit int) Row {
	return Row{MarksObtained: obtained, TotalMarks: total, Grade: GradeFor(Percentage(obtained, total)), Credit: credit}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		subjects []Row
		labs     []Row
		want     Summary
	}{
		{
			name:     "subject and lab passed",
			subjects: []Row{row(78, 100, 3)},
			labs:     []Row{row(45, 50, 1)},
			want: Summary{
				TotalSubjects: 1, TotalLabs: 1, SubjectsPassed: 1, LabsPassed: 1,
				OverallPercentage: 82, CGPA: 8.5, FinalResult: Pass,
			},
		},
		{
			name: "no records",
			want: Summary{FinalResult: Fail},
		},
		{
			name: "labs only",
			labs: []Row{row(50, 50, 1)},
			want: Summary{
				TotalLabs: 1, LabsPassed: 1, OverallPercentage: 100, CGPA: 10, FinalResult: Fail,
			},
		},
		{
			name:     "one subject failed",
			subjects: []Row{row(90, 100, 4), row(20, 100, 2)},
			want: Summary{
				TotalSubjects: 2, SubjectsPassed: 1, OverallPercentage: 55, CGPA: 6.67, FinalResult: Fail,
			},
		},
		{
			name:     "one lab failed",
			subjects: []Row{row(60, 100, 3)},
			labs:     []Row{row(10, 50, 1)},
			want: Summary{
				TotalSubjects: 1, TotalLabs: 1, SubjectsPassed: 1, LabsPassed: 0,
				OverallPercentage: 46.67, CGPA: 5.25, FinalResult: Fail,
			},
		},
		{
			name:     "zero total marks",
			subjects: []Row{{MarksObtained: 0, TotalMarks: 0, Grade: A, Credit: 2}},
			want: Summary{
				TotalSubjects: 1, SubjectsPassed: 1, OverallPercentage: 0, CGPA: 9, FinalResult: Pass,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.subjects, tt.labs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Aggregate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregate_doesNotMutate(t *testing.T) {
	subjects := []Row{row(78, 100, 0)}
	labs := []Row{row(45, 50, 1)}
	origSubjects := append([]Row(nil), subjects...)
	origLabs := append([]Row(nil), labs...)

	_ = Aggregate(subjects, labs)

	if !reflect.DeepEqual(subjects, origSubjects) || !reflect.DeepEqual(labs, origLabs) {
		t.Error("Aggregate() mutated its inputs")
	}
}
