package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/user"
)

type userRepository struct {
	table *Table
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{table: db.Table(user.TableName)}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string) error {
	for _, row := range repo.table.snapshot() {
		if username != "" && row.String("username") == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.String("email") == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	repo.table.Insert(UserRow(usr))
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	for _, row := range repo.table.snapshot() {
		if row.String("id") == id {
			return rowUser(row), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, uname string) (user.User, error) {
	if uname == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, row := range repo.table.snapshot() {
		if row.String("username") == uname || row.String("email") == uname {
			return rowUser(row), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	updated := UserRow(usr)
	n := repo.table.Update(
		func(row datatable.Row) bool { return row.String("id") == usr.ID },
		func(row datatable.Row) {
			for col, v := range updated {
				if col != "id" && col != "created_at" {
					row[col] = v
				}
			}
		},
	)
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	n := repo.table.Delete(func(row datatable.Row) bool {
		_, ok := set[row.String("id")]
		return ok
	})
	return n, nil
}

// UserRow maps a user to its users table row.
func UserRow(usr user.User) datatable.Row {
	roles := make([]string, len(usr.Roles))
	copy(roles, usr.Roles)
	row := datatable.Row{
		"id":            usr.ID,
		"name":          usr.Name,
		"username":      usr.Username,
		"email":         usr.Email,
		"kind":          usr.Kind(),
		"roles":         roles,
		"is_active":     usr.IsActive,
		"password_hash": usr.PasswordHash,
		"created_at":    usr.CreatedAt.UTC(),
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    nil,
	}
	if !usr.LastLogin.IsZero() {
		row["last_login"] = usr.LastLogin.UTC()
	}
	return row
}

func rowUser(row datatable.Row) user.User {
	usr := user.User{
		ID:        row.String("id"),
		Name:      row.String("name"),
		Username:  row.String("username"),
		Email:     row.String("email"),
		IsActive:  row.Bool("is_active"),
		CreatedAt: row.Time("created_at"),
		UpdatedAt: row.Time("updated_at"),
	}
	if roles, ok := row["roles"].([]string); ok {
		usr.Roles = append([]string(nil), roles...)
	}
	if hash, ok := row["password_hash"].([]byte); ok {
		usr.PasswordHash = hash
	}
	if !row.IsNull("last_login") {
		usr.LastLogin = row.Time("last_login")
	}
	return usr
}
