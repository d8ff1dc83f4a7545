package cache

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
)

// Store is a datatable.Store owned by the app.
type Store interface {
	datatable.Store
	Flush(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*BadgerStore)(nil)
	_ Store = (*RistrettoStore)(nil)
)

// Open returns the store selected by the config, or nil when caching is disabled.
func Open(conf core.DatatableConfig, logger core.Logger) (Store, error) {
	if !conf.CacheEnabled {
		return nil, nil
	}
	switch conf.CacheBackend {
	case core.CacheBackendNone, "":
		return nil, nil
	case core.CacheBackendBadger:
		return OpenBadger(conf.CachePath, logger)
	case core.CacheBackendRistretto:
		return NewRistretto(DefaultRistrettoMaxCost)
	}
	return nil, errors.Errorf("unknown cache backend %q", conf.CacheBackend)
}
