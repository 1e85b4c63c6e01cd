package grading

// Row is one subject or lab mark as seen by the aggregator.
type Row struct {
	MarksObtained float64
	TotalMarks    float64
	Grade         Grade
	Credit        int
}

func (r Row) Passed() bool { return r.Grade != F }

// Summary is the aggregated result of a semester.
type Summary struct {
	TotalSubjects     int     `json:"total_subjects"`
	TotalLabs         int     `json:"total_labs"`
	SubjectsPassed    int     `json:"subjects_passed"`
	LabsPassed        int     `json:"labs_passed"`
	OverallPercentage float64 `json:"overall_percentage"`
	CGPA              float64 `json:"cgpa"`
	FinalResult       Result  `json:"final_result"`
}

// Aggregate computes the semester Summary of subject and lab rows.
//
// A semester is PASS only when every subject and every lab is passed and
// there is at least one subject. A semester without subjects is FAIL.
func Aggregate(subjects, labs []Row) Summary {
	sum := Summary{
		TotalSubjects: len(subjects),
		TotalLabs:     len(labs),
	}

	var obtained, total float64
	weighted := make([]Weighted, 0, len(subjects)+len(labs))
	tally := func(rows []Row, passed *int) {
		for _, r := range rows {
			if r.Passed() {
				*passed++
			}
			obtained += r.MarksObtained
			total += r.TotalMarks
			weighted = append(weighted, Weighted{Grade: r.Grade, Credit: r.Credit})
		}
	}
	tally(subjects, &sum.SubjectsPassed)
	tally(labs, &sum.LabsPassed)

	sum.OverallPercentage = Round2(Percentage(obtained, total))
	sum.CGPA = CGPA(weighted)

	sum.FinalResult = Fail
	if sum.TotalSubjects > 0 && sum.SubjectsPassed == sum.TotalSubjects && sum.LabsPassed == sum.TotalLabs {
		sum.FinalResult = Pass
	}
	return sum
}
