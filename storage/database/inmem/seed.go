package inmemdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
	"github.com/trezcool/masomo/core/user"
)

var (
	seedClasses  = []string{"Form 1A", "Form 1B", "Form 2A", "Form 3C"}
	seedCourses  = []string{"Mathematics", "Physics", "History", "Kiswahili"}
	seedStatuses = []string{tables.StudentActive, tables.StudentActive, tables.StudentSuspended, tables.StudentGraduated}
	seedNames    = []string{"Amani", "Baraka", "Chausiku", "Daudi", "Eshe", "Faraji", "Gasira", "Hamisi", "Imani", "Jabari"}
)

// seedID returns a stable id so the seeded rows are the same on every run.
func seedID(table string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", table, i))).String()
}

// Seed fills db with demo staff, students and submissions. It is used by the `inMemory` dev mode.
// Staff passwords are not set: accounts are created through the admin CLI or the API.
func Seed(db *DB, now time.Time) {
	now = now.UTC().Truncate(time.Second)

	staff := db.Table(user.TableName)
	teachers := make([]string, 0, 3)
	for i := 0; i < 6; i++ {
		roles := []string{user.RoleTeacher}
		if i < 2 {
			roles = []string{user.RoleAdmin}
		}
		usr := user.User{
			ID:        seedID(user.TableName, i),
			Name:      fmt.Sprintf("%s Mwalimu", seedNames[i]),
			Username:  fmt.Sprintf("staff%d", i),
			Email:     fmt.Sprintf("staff%d@masomo.test", i),
			IsActive:  i != 5,
			Roles:     roles,
			CreatedAt: now.AddDate(0, 0, -30+i),
			UpdatedAt: now.AddDate(0, 0, -30+i),
		}
		if usr.IsTeacher() {
			teachers = append(teachers, usr.ID)
		}
		staff.Insert(UserRow(usr))
	}

	students := db.Table(tables.StudentsTable)
	for i := 0; i < 40; i++ {
		students.Insert(datatable.Row{
			"id":          seedID(tables.StudentsTable, i),
			"name":        fmt.Sprintf("%s %d", seedNames[i%len(seedNames)], i),
			"email":       fmt.Sprintf("student%d@masomo.test", i),
			"class_name":  seedClasses[i%len(seedClasses)],
			"status":      seedStatuses[i%len(seedStatuses)],
			"enrolled_at": now.AddDate(0, -i, 0),
		})
	}

	submissions := db.Table(tables.SubmissionsTable)
	for i := 0; i < 60; i++ {
		row := datatable.Row{
			"id":           seedID(tables.SubmissionsTable, i),
			"student_name": fmt.Sprintf("%s %d", seedNames[i%len(seedNames)], i%40),
			"assignment":   fmt.Sprintf("Assignment %d", i%5+1),
			"course":       seedCourses[i%len(seedCourses)],
			"status":       tables.SubmissionPending,
			"score":        nil,
			"teacher_id":   teachers[i%len(teachers)],
			"submitted_at": now.Add(-time.Duration(i) * time.Hour),
		}
		if i%3 != 0 {
			row["status"] = tables.SubmissionGraded
			row["score"] = 40 + (i*7)%61
		}
		submissions.Insert(row)
	}
}
