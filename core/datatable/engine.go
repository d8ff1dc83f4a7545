// Package datatable implements the server side of the DataTables protocol for any dataset:
// it validates the paging/search/sort parameters, compiles them into predicates on the dataset's
// base query, counts, pages and transforms the rows, optionally caching the responses per principal.
package datatable

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/masomo/core"
)

type Options struct {
	Config Config

	// Store is the response cache; caching is disabled when nil.
	Store Store

	Logger core.Logger

	// Registerer is where the engine metrics are registered; they are not exported when nil.
	Registerer prometheus.Registerer
}

// Engine serves table requests. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	conf    Config
	store   Store
	logger  core.Logger
	metrics *metrics
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, errors.New("datatable engine requires a logger")
	}
	conf := opts.Config
	if conf.CacheTTL <= 0 {
		conf.CacheTTL = DefaultCacheTTL
	}
	if err := conf.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid datatable config")
	}
	return &Engine{
		conf:    conf,
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: newMetrics(opts.Registerer),
	}, nil
}

func (e *Engine) Config() Config {
	return e.conf
}

// Process parses the raw request parameters and serves them.
func (e *Engine) Process(ctx context.Context, p Principal, ds *Dataset, base Query, values url.Values) Envelope {
	return e.Serve(ctx, p, ds, base, ParseRequest(values, e.conf, ds))
}

// Serve runs req against the dataset's base query, reading through the cache when enabled.
// It never fails: errors are logged and turned into an empty envelope carrying a generic error message.
func (e *Engine) Serve(ctx context.Context, p Principal, ds *Dataset, base Query, req Request) (env Envelope) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			env = e.fail(p, ds, req, errors.Errorf("panic: %v", r))
		}
		result := "ok"
		if env.Failed() {
			result = "error"
		}
		e.metrics.requests.WithLabelValues(ds.Name, result).Inc()
		e.metrics.duration.WithLabelValues(ds.Name).Observe(time.Since(start).Seconds())
	}()

	key, cacheable := e.cacheKey(p, ds, req)
	if cacheable {
		if cached, ok := e.lookup(ctx, key, ds, req); ok {
			return cached
		}
	}

	env, err := e.run(ctx, ds, base, req)
	if err != nil {
		return e.fail(p, ds, req, err)
	}

	if cacheable {
		e.save(ctx, key, ds, env)
	}
	return env
}

// run is the query pipeline: total count, predicates, filtered count, order, page, fetch, transform.
func (e *Engine) run(ctx context.Context, ds *Dataset, base Query, req Request) (Envelope, error) {
	total, err := base.Count(ctx)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "counting total rows")
	}

	q := compile(base, ds, req)
	filtered, err := q.Count(ctx)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "counting filtered rows")
	}
	if filtered > total { // rows inserted between both counts
		filtered = total
	}

	ord := resolveOrder(ds, req)
	q = q.OrderBy(ord.Column, ord.Dir).Offset(uint64(req.Start)).Limit(uint64(req.Length))

	rows, err := q.Fetch(ctx)
	if err != nil {
		return Envelope{}, errors.Wrap(err, "fetching rows")
	}
	if len(rows) > req.Length {
		rows = rows[:req.Length]
	}
	if len(rows) > filtered { // rows inserted between the count and the fetch
		rows = rows[:filtered]
	}

	data, err := transform(ds.Transform, rows)
	if err != nil {
		return Envelope{}, err
	}
	return newEnvelope(req.Draw, total, filtered, data), nil
}

func transform(fn RowTransformer, rows []Row) ([]interface{}, error) {
	data := make([]interface{}, 0, len(rows))
	for i, row := range rows {
		if fn == nil {
			data = append(data, row)
			continue
		}
		rec, err := fn(row)
		if err != nil {
			return nil, errors.Wrapf(err, "transforming row %d", i)
		}
		data = append(data, rec)
	}
	return data, nil
}

// fail logs err with the request context and returns the degraded envelope.
func (e *Engine) fail(p Principal, ds *Dataset, req Request, err error) Envelope {
	e.logger.Error("datatable request failed",
		"error", err,
		"dataset", ds.Name,
		"principal_id", p.ID,
		"principal_kind", p.Kind,
		"draw", req.Draw,
		"start", req.Start,
		"length", req.Length,
		"search", req.Search,
		"order_column", req.OrderColumn,
		"order_dir", string(req.OrderDir),
		"filters", req.Filters,
	)
	return failedEnvelope(req.Draw)
}

// Cache

func (e *Engine) cachingEnabled(ds *Dataset) bool {
	return e.store != nil && e.conf.CacheEnabled && ds.CachePrefix != ""
}

func (e *Engine) cacheKey(p Principal, ds *Dataset, req Request) (string, bool) {
	if !e.cachingEnabled(ds) {
		e.metrics.cache.WithLabelValues(ds.Name, cacheBypass).Inc()
		return "", false
	}
	key, err := cacheKey(p, ds, req)
	if err != nil {
		e.logger.Warn("datatable cache key failed; serving uncached", "error", err, "dataset", ds.Name)
		e.metrics.cache.WithLabelValues(ds.Name, cacheFallback).Inc()
		return "", false
	}
	return key, true
}

// lookup returns the cached envelope for key, stamped with the current draw.
// Store failures are logged and reported as a miss.
func (e *Engine) lookup(ctx context.Context, key string, ds *Dataset, req Request) (Envelope, bool) {
	b, err := e.store.Get(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrCacheMiss {
			e.metrics.cache.WithLabelValues(ds.Name, cacheMiss).Inc()
		} else {
			e.logger.Warn("datatable cache read failed; serving uncached", "error", err, "dataset", ds.Name, "key", key)
			e.metrics.cache.WithLabelValues(ds.Name, cacheFallback).Inc()
		}
		return Envelope{}, false
	}

	env, err := decodeEnvelope(b, req.Draw)
	if err != nil {
		e.logger.Warn("datatable cache entry corrupted; serving uncached", "error", err, "dataset", ds.Name, "key", key)
		e.metrics.cache.WithLabelValues(ds.Name, cacheFallback).Inc()
		return Envelope{}, false
	}
	e.metrics.cache.WithLabelValues(ds.Name, cacheHit).Inc()
	return env, true
}

func (e *Engine) save(ctx context.Context, key string, ds *Dataset, env Envelope) {
	b, err := encodeEnvelope(env)
	if err != nil {
		e.logger.Warn("datatable cache encoding failed", "error", err, "dataset", ds.Name)
		return
	}
	if err = e.store.Set(ctx, key, b, e.conf.CacheTTL); err != nil {
		e.logger.Warn("datatable cache write failed", "error", err, "dataset", ds.Name, "key", key)
	}
}

// Invalidate removes the cached response of one (principal, request) pair.
func (e *Engine) Invalidate(ctx context.Context, p Principal, ds *Dataset, req Request) error {
	if e.store == nil || ds.CachePrefix == "" {
		return nil
	}
	key, err := cacheKey(p, ds, req)
	if err != nil {
		return err
	}
	return errors.Wrap(e.store.Delete(ctx, key), "deleting cache entry")
}

// InvalidateDataset removes every cached response of the dataset.
// It returns ErrPrefixInvalidationUnsupported when the store cannot delete by prefix,
// in which case stale responses expire with the cache TTL.
func (e *Engine) InvalidateDataset(ctx context.Context, ds *Dataset) error {
	if e.store == nil || ds.CachePrefix == "" {
		return nil
	}
	pd, ok := e.store.(PrefixDeleter)
	if !ok {
		return ErrPrefixInvalidationUnsupported
	}
	return errors.Wrap(pd.DeletePrefix(ctx, datasetKeyPrefix(ds)), "deleting cache entries")
}

// InvalidateAll removes every cached response of every dataset.
func (e *Engine) InvalidateAll(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	f, ok := e.store.(Flusher)
	if !ok {
		return errors.New("datatable: cache store cannot be flushed")
	}
	return errors.Wrap(f.Flush(ctx), "flushing cache")
}
