package main

import (
	"context"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
	"github.com/trezcool/masomo/core/user"
	"github.com/trezcool/masomo/storage/cache"
	"github.com/trezcool/masomo/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	openDBFunc       = database.Open     // mockable
	migrateFunc      = database.Migrate  // mockable

	errEmptyPassword  = errors.New("empty password")
	errInProcessCache = errors.New("the table cache lives in the API process")
	errCacheDisabled  = errors.New("caching is disabled")
)

// commandLine holds the dependencies of the admin commands. They are opened on first use so that
// each command only touches what it needs.
type commandLine struct {
	conf   *core.Config
	logger core.Logger

	db       *sqlx.DB
	usrRepo  user.Repository
	store    cache.Store
	registry *tables.Registry
}

func newRootCmd(cli *commandLine) *cobra.Command {
	root := &cobra.Command{
		Use:          "masomo-admin",
		Short:        "Masomo administration commands",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCmd(cli),
		newAddUserCmd(cli),
		newResetPasswordCmd(cli),
		newTokenCmd(cli),
		newCacheCmd(cli),
	)
	return root
}

func (cli *commandLine) openDB() (*sqlx.DB, error) {
	if cli.db != nil {
		return cli.db, nil
	}
	db, err := openDBFunc(cli.conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	cli.db = db
	return db, nil
}

func (cli *commandLine) userRepository() (user.Repository, error) {
	if cli.usrRepo != nil {
		return cli.usrRepo, nil
	}
	db, err := cli.openDB()
	if err != nil {
		return nil, err
	}
	cli.usrRepo = database.NewUserRepository(db)
	return cli.usrRepo, nil
}

func (cli *commandLine) userService() (*user.Service, error) {
	repo, err := cli.userRepository()
	if err != nil {
		return nil, err
	}
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return user.NewService(repo, cli, validate, cli.logger), nil
}

// cacheStore opens the table cache in place. Only a persistent badger cache can be shared with the
// API, and only while the API is down since badger locks its directory.
func (cli *commandLine) cacheStore() (cache.Store, error) {
	if cli.store != nil {
		return cli.store, nil
	}
	dc := cli.conf.Datatable
	if dc.CacheBackend == core.CacheBackendRistretto || (dc.CacheBackend == core.CacheBackendBadger && dc.CachePath == "") {
		return nil, errInProcessCache
	}
	store, err := cache.Open(dc, cli.logger)
	if err != nil {
		return nil, errors.Wrap(err, "opening table cache")
	}
	if store == nil {
		return nil, errCacheDisabled
	}
	cli.store = store
	return store, nil
}

func (cli *commandLine) api() apiClient {
	return newAPIClient(cli.conf.Server.BaseURL(), []byte(cli.conf.SecretKey), cli.conf.AppName)
}

// flushCache drops the cached responses of the table, or of every table when it is empty.
// The running API flushes its own cache; when it is down, a persistent cache is flushed in place.
func (cli *commandLine) flushCache(ctx context.Context, table string) error {
	dc := cli.conf.Datatable
	if !dc.CacheEnabled || dc.CacheBackend == core.CacheBackendNone || dc.CacheBackend == "" {
		return errCacheDisabled
	}

	err := cli.api().flushCache(ctx, table)
	if errors.Cause(err) != errAPIUnreachable {
		return err
	}
	store, sErr := cli.cacheStore()
	if sErr != nil {
		if errors.Cause(sErr) == errInProcessCache {
			return err // nothing outlives the API
		}
		return sErr
	}
	cli.logger.Info("API unreachable; flushing the table cache in place", "error", err)

	engine, err := datatable.NewEngine(datatable.Options{
		Config: datatable.ConfigFrom(dc),
		Store:  store,
		Logger: cli.logger,
	})
	if err != nil {
		return errors.Wrap(err, "creating datatable engine")
	}
	inv := tables.Invalidator{Engine: engine, Registry: cli.tables()}
	if table == "" {
		return inv.Flush(ctx)
	}
	return inv.Invalidate(ctx, table)
}

// Invalidate implements user.Invalidator for the writes of the admin commands.
func (cli *commandLine) Invalidate(ctx context.Context, table string) error {
	if err := cli.flushCache(ctx, table); errors.Cause(err) != errCacheDisabled {
		return err
	}
	return nil
}

func (cli *commandLine) tables() *tables.Registry {
	if cli.registry == nil {
		cli.registry = tables.DefaultRegistry()
	}
	return cli.registry
}

func (cli *commandLine) close() {
	if cli.store != nil {
		if err := cli.store.Close(); err != nil {
			cli.logger.Error("closing table cache", "error", err)
		}
		cli.store = nil
	}
	if cli.db != nil {
		if err := cli.db.Close(); err != nil {
			cli.logger.Error("closing database", "error", err)
		}
		cli.db = nil
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}
