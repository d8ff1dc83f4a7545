package database

import (
	"context"
	"database/sql"
	"embed"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/masomo/core"
)

const driverName = "postgres"

//go:embed migrations/*.sql
var migrations embed.FS

// URL returns the connection string of the named database.
func URL(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   driverName,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	return sqlx.Open(driverName, URL(dbName, admin, conf))
}

// Open connects to the app database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	err := db.Get(&found, query, name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := "CREATE USER " + pq.QuoteIdentifier(conf.Database.User) +
			" CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the app user (as admin) and the app database (as app user).
func CreateIfNotExist(conf *core.Config) error {
	db, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	return createDB(appDB, conf)
}

// gooseRunFunc is mockable in tests.
var gooseRunFunc = goose.RunContext

// Migrate runs a goose command (up, down, status, version, redo, reset, up-to, down-to...) with the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := gooseRunFunc(ctx, command, db, "migrations", args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
