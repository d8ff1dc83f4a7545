package tables

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

const SubmissionsTable = "submissions"

// Submission statuses
const (
	SubmissionPending  = "pending"
	SubmissionGraded   = "graded"
	SubmissionReturned = "returned"
)

type SubmissionRecord struct {
	ID          string  `json:"id"`
	StudentName string  `json:"student_name"`
	Assignment  string  `json:"assignment"`
	Course      string  `json:"course"`
	Status      string  `json:"status"`
	Score       *int    `json:"score"`
	SubmittedAt *string `json:"submitted_at"`
}

// Submissions lists the course submissions. Teachers only see the submissions of their own courses.
func Submissions() Table {
	return Table{
		Dataset: &datatable.Dataset{
			Name:        SubmissionsTable,
			CachePrefix: SubmissionsTable,
			Searchable:  []string{"student_name", "assignment", "course"},
			Columns: map[int]string{
				0: "student_name",
				1: "assignment",
				2: "course",
				3: "score",
				4: "submitted_at",
			},
			Filters: map[string]datatable.Filter{
				"status":    datatable.EqualityFilter{Column: "status"},
				"course":    datatable.EqualityFilter{Column: "course"},
				"graded":    nullFilter("score"),
				"min_score": minFilter("score"),
			},
			DefaultOrder: datatable.Order{Column: "submitted_at", Dir: datatable.Desc},
			Transform:    submissionRecord,
		},
		Kinds: []string{user.KindAdmin, user.KindTeacher},
		Base: func(src Source, p datatable.Principal) datatable.Query {
			q := src.Query(SubmissionsTable)
			if p.Kind != user.KindAdmin {
				q = q.Where(sq.Eq{"teacher_id": p.ID})
			}
			return q
		},
	}
}

func submissionRecord(row datatable.Row) (interface{}, error) {
	rec := SubmissionRecord{
		ID:          row.String("id"),
		StudentName: row.String("student_name"),
		Assignment:  row.String("assignment"),
		Course:      row.String("course"),
		Status:      row.String("status"),
		SubmittedAt: formatTime(row, "submitted_at"),
	}
	if !row.IsNull("score") {
		score := row.Int("score")
		rec.Score = &score
	}
	return rec, nil
}
