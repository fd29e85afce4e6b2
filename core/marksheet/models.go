package marksheet

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/student"
)

// Subjects
const (
	Physics   = "physics"
	Chemistry = "chemistry"
	Maths     = "maths"
	Botany    = "botany"
	Zoology   = "zoology"
)

// Results
const (
	ResultPass = "Pass"
	ResultFail = "Fail"
)

var (
	AllSubjects = []string{Physics, Chemistry, Maths, Botany, Zoology}

	// StreamSubjects lists the subjects examined in each stream.
	StreamSubjects = map[string][]string{
		student.StreamJEE:     {Physics, Chemistry, Maths},
		student.StreamNEET:    {Physics, Chemistry, Botany, Zoology},
		student.StreamMHTCET:  AllSubjects,
		student.StreamRegular: AllSubjects,
	}
)

type SubjectScore struct {
	Topic    string `json:"topic" firestore:"topic" bson:"topic" validate:"max=200"`
	Marks    int    `json:"marks" firestore:"marks" bson:"marks" validate:"min=0,ltefield=MaxMarks"`
	MaxMarks int    `json:"max_marks" firestore:"maxMarks" bson:"max_marks" validate:"required,min=1"`
}

type Marksheet struct {
	ID         string        `json:"id" firestore:"-" bson:"_id"`
	StudentID  string        `json:"-" firestore:"-" bson:"student_id"`
	RollNumber string        `json:"roll_number" firestore:"rollNumber" bson:"roll_number"`
	TestName   string        `json:"test_name" firestore:"testName" bson:"test_name"`
	DateOfTest string        `json:"date_of_test" firestore:"dateOfTest" bson:"date_of_test"` // YYYY-MM-DD
	Physics    *SubjectScore `json:"physics" firestore:"physics" bson:"physics"`
	Chemistry  *SubjectScore `json:"chemistry" firestore:"chemistry" bson:"chemistry"`
	Maths      *SubjectScore `json:"maths" firestore:"maths" bson:"maths"`
	Botany     *SubjectScore `json:"botany" firestore:"botany" bson:"botany"`
	Zoology    *SubjectScore `json:"zoology" firestore:"zoology" bson:"zoology"`
	Total      int           `json:"total" firestore:"total" bson:"total"`
	TotalMax   int           `json:"total_max" firestore:"totalMax" bson:"total_max"`
	Result     string        `json:"result" firestore:"result" bson:"result"`
	CreatedAt  time.Time     `json:"created_at" firestore:"createdAt" bson:"created_at"` // UTC
	UpdatedAt  time.Time     `json:"updated_at" firestore:"updatedAt" bson:"updated_at"` // UTC
}

// Subjects returns the present subject scores keyed by subject name.
func (ms *Marksheet) Subjects() map[string]*SubjectScore {
	subjects := make(map[string]*SubjectScore, len(AllSubjects))
	for name, score := range map[string]*SubjectScore{
		Physics:   ms.Physics,
		Chemistry: ms.Chemistry,
		Maths:     ms.Maths,
		Botany:    ms.Botany,
		Zoology:   ms.Zoology,
	} {
		if score != nil {
			subjects[name] = score
		}
	}
	return subjects
}

// Compute sets Total, TotalMax and Result from the present subjects.
// A marksheet is passed when the total is strictly greater than half the maximum.
func (ms *Marksheet) Compute() {
	ms.Total, ms.TotalMax = 0, 0
	for _, score := range ms.Subjects() {
		ms.Total += score.Marks
		ms.TotalMax += score.MaxMarks
	}
	if ms.TotalMax > 0 && 2*ms.Total > ms.TotalMax {
		ms.Result = ResultPass
	} else {
		ms.Result = ResultFail
	}
}

// NewMarksheet contains the information needed to create (or fully replace) a Marksheet.
type NewMarksheet struct {
	TestName   string        `json:"test_name" validate:"required,notblank,max=200"`
	DateOfTest string        `json:"date_of_test" validate:"required,isodate,notfuture"`
	Physics    *SubjectScore `json:"physics" validate:"required"`
	Chemistry  *SubjectScore `json:"chemistry" validate:"required"`
	Maths      *SubjectScore `json:"maths" validate:"omitempty"`
	Botany     *SubjectScore `json:"botany" validate:"omitempty"`
	Zoology    *SubjectScore `json:"zoology" validate:"omitempty"`
}

func (nm *NewMarksheet) Validate(validate *validator.Validate) error {
	nm.TestName = core.CleanString(nm.TestName)
	nm.DateOfTest = core.CleanString(nm.DateOfTest)
	for _, score := range []*SubjectScore{nm.Physics, nm.Chemistry, nm.Maths, nm.Botany, nm.Zoology} {
		if score != nil {
			score.Topic = core.CleanString(score.Topic)
		}
	}
	return validate.Struct(nm)
}

func (nm *NewMarksheet) subjects() map[string]*SubjectScore {
	ms := Marksheet{Physics: nm.Physics, Chemistry: nm.Chemistry, Maths: nm.Maths, Botany: nm.Botany, Zoology: nm.Zoology}
	return ms.Subjects()
}

// SortNewestFirst orders `sheets` by test date, then creation time, newest first.
// Dates are YYYY-MM-DD: lexical order is chronological order. Ties are broken on the ID.
func SortNewestFirst(sheets []Marksheet) {
	sort.Slice(sheets, func(i, j int) bool {
		a, b := sheets[i], sheets[j]
		if a.DateOfTest != b.DateOfTest {
			return a.DateOfTest > b.DateOfTest
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
