package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	echoapi "github.com/trezcool/masomo/apps/api/echo"
	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	"github.com/trezcool/masomo/core/tables"
	"github.com/trezcool/masomo/core/user"
	logsvc "github.com/trezcool/masomo/services/logger"
	"github.com/trezcool/masomo/storage/cache"
	"github.com/trezcool/masomo/storage/database"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
)

func main() {
	conf := core.NewConfig()

	zapLogger, zl, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	var logger core.Logger = zapLogger
	if conf.RollbarToken != "" {
		rl := logsvc.NewRollbarLogger(zapLogger, conf)
		rl.Enable(!conf.Debug)
		defer rl.Close()
		logger = rl
	}

	if err := run(conf, logger); err != nil {
		logger.Fatal("api stopped", "error", err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	// =========================================================================
	// Set up Dependencies

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build), "env", conf.Env)
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	// set up storage
	var (
		source   tables.Source
		userRepo user.Repository
	)
	if conf.InMemory {
		db := inmemdb.Open()
		inmemdb.Seed(db, time.Now())
		source, userRepo = db, inmemdb.NewUserRepository(db)
		logger.Warn("serving seeded in-memory tables")
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			return errors.Wrap(err, "setting up database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing database", "error", err)
			}
		}()
		source, userRepo = database.NewSource(db), database.NewUserRepository(db)
	}

	store, err := cache.Open(conf.Datatable, logger)
	if err != nil {
		return errors.Wrap(err, "opening table cache")
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("closing table cache", "error", err)
			}
		}()
	}

	// set up metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// set up the engine & services
	dtOpts := datatable.Options{
		Config:     datatable.ConfigFrom(conf.Datatable),
		Logger:     logger,
		Registerer: reg,
	}
	if store != nil {
		dtOpts.Store = store
	}
	engine, err := datatable.NewEngine(dtOpts)
	if err != nil {
		return errors.Wrap(err, "creating datatable engine")
	}
	registry := tables.DefaultRegistry()
	invalidator := tables.Invalidator{Engine: engine, Registry: registry}
	usrSvc := user.NewService(userRepo, invalidator, validate, logger)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        conf.Server.Address,
		Debug:          conf.Debug,
		DisableReqLogs: conf.Server.DisableReqLogs,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Tokens: echoapi.TokenIssuer{
			Issuer:            conf.AppName,
			SecretKey:         []byte(conf.SecretKey),
			Expiration:        conf.Server.JWTExpirationDelta,
			RefreshExpiration: conf.Server.JWTRefreshExpirationDelta,
		},
		Engine:   engine,
		Registry: registry,
		Source:   source,
		UserSvc:  usrSvc,
		Gatherer: reg,
		Shutdown: func() {
			select {
			case shutdown <- syscall.SIGTERM:
			default: // already shutting down
			}
		},
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening", "address", conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server error")
		}
		return nil

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
