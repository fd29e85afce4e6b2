package student

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phoenixacademy/resultsportal/core"
)

// Streams
const (
	StreamJEE     = "JEE"
	StreamNEET    = "NEET"
	StreamMHTCET  = "MHT-CET"
	StreamRegular = "Regular Batch"
)

var Streams = []string{StreamJEE, StreamNEET, StreamMHTCET, StreamRegular}

// Key returns the document key of the student identified by `rollNumber`.
// Roll numbers are case-insensitive.
func Key(rollNumber string) string {
	return core.CleanString(rollNumber, true /* lower */)
}

type Student struct {
	ID          string `json:"id" firestore:"-" bson:"_id"`
	RollNumber  string `json:"roll_number" firestore:"rollNumber" bson:"roll_number"`
	StudentName string `json:"student_name" firestore:"studentName" bson:"student_name"`
	ParentsName string `json:"parents_name" firestore:"parentsName" bson:"parents_name"`
	DateOfBirth string `json:"date_of_birth" firestore:"dateOfBirth" bson:"date_of_birth"` // YYYY-MM-DD
	Email       string `json:"email" firestore:"email" bson:"email"`
	Class       int    `json:"class" firestore:"class" bson:"class"`
	Stream      string `json:"stream" firestore:"stream" bson:"stream"`
	Batch       string `json:"batch" firestore:"batch" bson:"batch"` // eg: 2022-2024
	UID         string `json:"uid,omitempty" firestore:"uid,omitempty" bson:"uid,omitempty"`
}

// NewStudent contains information needed to create a new Student.
// Password is used to create the student's account. UID links an existing account instead;
// giving both is invalid.
type NewStudent struct {
	RollNumber  string `json:"roll_number" validate:"required,notblank,max=32,excludesall=/"`
	StudentName string `json:"student_name" validate:"required,max=100"`
	ParentsName string `json:"parents_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,isodate,pastdate"`
	Email       string `json:"email" validate:"required,email"`
	Class       int    `json:"class" validate:"required,oneof=11 12"`
	Stream      string `json:"stream" validate:"required,stream"`
	Batch       string `json:"batch" validate:"required,batch"`
	Password    string `json:"password,omitempty" validate:"required_without=UID"`
	UID         string `json:"uid,omitempty"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.RollNumber = core.CleanString(ns.RollNumber)
	ns.StudentName = core.CleanString(ns.StudentName)
	ns.ParentsName = core.CleanString(ns.ParentsName)
	ns.DateOfBirth = core.CleanString(ns.DateOfBirth)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Stream = core.CleanString(ns.Stream)
	ns.Batch = core.CleanString(ns.Batch)
	ns.UID = core.CleanString(ns.UID)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// The roll number cannot be changed.
type UpdateStudent struct {
	StudentName string `json:"student_name" validate:"required,max=100"`
	ParentsName string `json:"parents_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,isodate,pastdate"`
	Email       string `json:"email" validate:"required,email"`
	Class       int    `json:"class" validate:"required,oneof=11 12"`
	Stream      string `json:"stream" validate:"required,stream"`
	Batch       string `json:"batch" validate:"required,batch"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.StudentName = core.CleanString(us.StudentName)
	us.ParentsName = core.CleanString(us.ParentsName)
	us.DateOfBirth = core.CleanString(us.DateOfBirth)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Stream = core.CleanString(us.Stream)
	us.Batch = core.CleanString(us.Batch)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string `query:"search"`
	Class  int    `query:"class"`
	Stream string `query:"stream"`
	Batch  string `query:"batch"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Class == 0 && qf.Stream == "" && qf.Batch == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Stream = core.CleanString(qf.Stream)
	qf.Batch = core.CleanString(qf.Batch)
}

// Match reports whether `st` satisfies every field of the filter.
// Search does a case-insensitive match on one of RollNumber, StudentName or Email.
func (qf *QueryFilter) Match(st Student) bool {
	if qf.Class != 0 && st.Class != qf.Class {
		return false
	}
	if qf.Stream != "" && st.Stream != qf.Stream {
		return false
	}
	if qf.Batch != "" && st.Batch != qf.Batch {
		return false
	}
	if qf.Search != "" {
		search := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(st.RollNumber), search) ||
			strings.Contains(strings.ToLower(st.StudentName), search) ||
			strings.Contains(strings.ToLower(st.Email), search)
	}
	return true
}

// OrderingFields are the fields students can be ordered by.
var OrderingFields = []string{"roll_number", "student_name", "class", "stream", "batch"}

// DefaultOrdering is applied when no valid ordering is requested.
var DefaultOrdering = []core.DBOrdering{{Field: "roll_number", Ascending: true}}

// CleanOrderings drops unknown ordering fields and falls back to DefaultOrdering.
func CleanOrderings(orderings []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		for _, fld := range OrderingFields {
			if ord.Field == fld {
				cleaned = append(cleaned, ord)
				break
			}
		}
	}
	if len(cleaned) == 0 {
		return DefaultOrdering
	}
	return cleaned
}

// Sort orders `students` in place. Ties are broken by roll number.
func Sort(students []Student, orderings []core.DBOrdering) {
	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareField(students[i], students[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return students[i].ID < students[j].ID
	})
}

func compareField(a, b Student, field string) int {
	switch field {
	case "roll_number":
		return strings.Compare(Key(a.RollNumber), Key(b.RollNumber))
	case "student_name":
		return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
	case "class":
		return a.Class - b.Class
	case "stream":
		return strings.Compare(a.Stream, b.Stream)
	case "batch":
		return strings.Compare(a.Batch, b.Batch)
	}
	return 0
}
