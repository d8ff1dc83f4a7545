package tables

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

// UserRecord is the wire format of a users table row.
type UserRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Kind      string  `json:"kind"`
	IsActive  bool    `json:"is_active"`
	CreatedAt *string `json:"created_at"`
	LastLogin *string `json:"last_login"`
}

// Users lists the staff accounts (admins and teachers). Students are listed by the students table.
func Users() Table {
	return Table{
		Dataset: &datatable.Dataset{
			Name:        user.TableName,
			CachePrefix: user.TableName,
			Searchable:  []string{"name", "username", "email"},
			Columns: map[int]string{
				0: "name",
				1: "username",
				2: "email",
				3: "kind",
				4: "created_at",
			},
			Filters: map[string]datatable.Filter{
				"kind":         datatable.EqualityFilter{Column: "kind"},
				"is_active":    boolFilter("is_active"),
				"created_from": sinceFilter("created_at"),
				"created_to":   untilFilter("created_at"),
			},
			DefaultOrder: datatable.Order{Column: "created_at", Dir: datatable.Desc},
			Transform:    userRecord,
		},
		Kinds: []string{user.KindAdmin},
		Base: func(src Source, _ datatable.Principal) datatable.Query {
			return src.Query(user.TableName).Where(sq.Eq{"kind": user.StaffKinds})
		},
	}
}

func userRecord(row datatable.Row) (interface{}, error) {
	return UserRecord{
		ID:        row.String("id"),
		Name:      row.String("name"),
		Username:  row.String("username"),
		Email:     row.String("email"),
		Kind:      row.String("kind"),
		IsActive:  row.Bool("is_active"),
		CreatedAt: formatTime(row, "created_at"),
		LastLogin: formatTime(row, "last_login"),
	}, nil
}
