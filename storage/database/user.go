package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	Kind         string         `db:"kind"`
	Roles        pq.StringArray `db:"roles"`
	IsActive     bool           `db:"is_active"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

var userColumns = []string{
	"id", "name", "username", "email", "kind", "roles", "is_active", "password_hash", "created_at", "updated_at", "last_login",
}

func (r userRow) user() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		Roles:        []string(r.Roles),
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db sqlx.ExtContext
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db sqlx.ExtContext) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string) error {
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if len(or) == 0 {
		return nil
	}

	query, args, err := psql.Select("username", "email").From(user.TableName).Where(or).Limit(1).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var found struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err = sqlx.GetContext(ctx, repo.db, &found, query, args...)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking username uniqueness")
	case username != "" && found.Username == username:
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()

	var lastLogin sql.NullTime
	if !usr.LastLogin.IsZero() {
		lastLogin = sql.NullTime{Time: usr.LastLogin, Valid: true}
	}
	query, args, err := psql.Insert(user.TableName).
		Columns(userColumns...).
		Values(
			usr.ID, usr.Name, usr.Username, usr.Email, usr.Kind(), pq.StringArray(usr.Roles), usr.IsActive,
			usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, lastLogin,
		).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	query, args, err := psql.Select(userColumns...).From(user.TableName).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	if uname == "" {
		return user.User{}, user.ErrNotFound
	}
	query, args, err := psql.Select(userColumns...).
		From(user.TableName).
		Where(sq.Or{sq.Eq{"username": uname}, sq.Eq{"email": uname}}).
		Limit(1).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = sqlx.GetContext(ctx, repo.db, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := uuid.Parse(usr.ID); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var lastLogin sql.NullTime
	if !usr.LastLogin.IsZero() {
		lastLogin = sql.NullTime{Time: usr.LastLogin, Valid: true}
	}
	query, args, err := psql.Update(user.TableName).
		SetMap(map[string]interface{}{
			"name":          usr.Name,
			"username":      usr.Username,
			"email":         usr.Email,
			"kind":          usr.Kind(),
			"roles":         pq.StringArray(usr.Roles),
			"is_active":     usr.IsActive,
			"password_hash": usr.PasswordHash,
			"updated_at":    usr.UpdatedAt,
			"last_login":    lastLogin,
		}).
		Where(sq.Eq{"id": usr.ID}).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete(user.TableName).Where(sq.Eq{"id": valid}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(n), nil
}
