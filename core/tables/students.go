package tables

import (
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

const StudentsTable = "students"

// Student statuses
const (
	StudentActive    = "active"
	StudentSuspended = "suspended"
	StudentGraduated = "graduated"
)

type StudentRecord struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ClassName  string  `json:"class_name"`
	Status     string  `json:"status"`
	EnrolledAt *string `json:"enrolled_at"`
}

func Students() Table {
	return Table{
		Dataset: &datatable.Dataset{
			Name:        StudentsTable,
			CachePrefix: StudentsTable,
			Searchable:  []string{"name", "email", "class_name"},
			Columns: map[int]string{
				0: "name",
				1: "email",
				2: "class_name",
				3: "status",
				4: "enrolled_at",
			},
			Filters: map[string]datatable.Filter{
				"status":        datatable.EqualityFilter{Column: "status"},
				"class":         datatable.EqualityFilter{Column: "class_name"},
				"enrolled_from": sinceFilter("enrolled_at"),
			},
			DefaultOrder: datatable.Order{Column: "name", Dir: datatable.Asc},
			Transform:    studentRecord,
		},
		Kinds: []string{user.KindAdmin},
		Base: func(src Source, _ datatable.Principal) datatable.Query {
			return src.Query(StudentsTable)
		},
	}
}

func studentRecord(row datatable.Row) (interface{}, error) {
	return StudentRecord{
		ID:         row.String("id"),
		Name:       row.String("name"),
		Email:      row.String("email"),
		ClassName:  row.String("class_name"),
		Status:     row.String("status"),
		EnrolledAt: formatTime(row, "enrolled_at"),
	}, nil
}
