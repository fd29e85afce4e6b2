package student

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phoenixacademy/resultsportal/core"
)

func TestQueryFilter_Match(t *testing.T) {
	st := Student{RollNumber: "PSA-001", StudentName: "Asha Patil", Email: "asha@phoenix.test", Class: 11, Stream: StreamJEE, Batch: "2024-2026"}

	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty", filter: QueryFilter{}, want: true},
		{name: "search name", filter: QueryFilter{Search: "PATIL"}, want: true},
		{name: "search email", filter: QueryFilter{Search: "phoenix.test"}, want: true},
		{name: "search roll", filter: QueryFilter{Search: "psa-0"}, want: true},
		{name: "search miss", filter: QueryFilter{Search: "rohan"}, want: false},
		{name: "every field", filter: QueryFilter{Search: "asha", Class: 11, Stream: StreamJEE, Batch: "2024-2026"}, want: true},
		{name: "class miss", filter: QueryFilter{Class: 12}, want: false},
		{name: "stream miss", filter: QueryFilter{Stream: StreamNEET}, want: false},
		{name: "batch miss", filter: QueryFilter{Batch: "2023-2025"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(st))
		})
	}
}

func TestSort(t *testing.T) {
	a := Student{ID: "psa-001", RollNumber: "PSA-001", StudentName: "asha", Class: 12, Stream: StreamNEET}
	b := Student{ID: "psa-002", RollNumber: "psa-002", StudentName: "Bhavesh", Class: 11, Stream: StreamJEE}
	c := Student{ID: "psa-010", RollNumber: "PSA-010", StudentName: "Chaitanya", Class: 11, Stream: StreamNEET}

	tests := []struct {
		name      string
		orderings []core.DBOrdering
		want      []Student
	}{
		{name: "default", orderings: CleanOrderings(nil), want: []Student{a, b, c}},
		{name: "unknown fields", orderings: CleanOrderings([]core.DBOrdering{{Field: "email"}}), want: []Student{a, b, c}},
		{name: "name descending", orderings: []core.DBOrdering{{Field: "student_name"}}, want: []Student{c, b, a}},
		{name: "class then roll", orderings: []core.DBOrdering{{Field: "class", Ascending: true}}, want: []Student{b, c, a}},
		{name: "stream then name descending", orderings: []core.DBOrdering{{Field: "stream", Ascending: true}, {Field: "student_name"}}, want: []Student{b, c, a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students := []Student{c, a, b}
			Sort(students, tt.orderings)
			assert.Equal(t, tt.want, students)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "psa-001", Key("  PSA-001 "))
}
