package datatable

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/pkg/errors"
)

const cacheKeyNamespace = "datatable"

var (
	// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
	ErrCacheMiss = errors.New("datatable: cache miss")

	// ErrPrefixInvalidationUnsupported is returned by InvalidateDataset when the store cannot delete by prefix.
	// Callers may flush the whole store instead, see InvalidateAll.
	ErrPrefixInvalidationUnsupported = errors.New("datatable: cache store cannot invalidate by prefix")
)

// Store is the external cache the engine reads through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by the stores able to delete all keys sharing a prefix.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// Flusher is implemented by the stores able to drop all their keys.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Principal is the authenticated actor issuing a request.
type Principal struct {
	ID   string
	Kind string
}

// fingerprint holds every request field that can change the response. Draw is left out on purpose:
// it never changes the output and is re-stamped on every hit.
type fingerprint struct {
	Start       int
	Length      int
	Search      string
	OrderColumn string
	OrderDir    string
	Filters     map[string]string
}

func datasetKeyPrefix(ds *Dataset) string {
	return cacheKeyNamespace + ":" + url.QueryEscape(ds.CachePrefix) + ":"
}

// cacheKey returns the key of the response for (principal, dataset, request).
// Principals never share keys; identical effective requests of a principal always do.
func cacheKey(p Principal, ds *Dataset, req Request) (string, error) {
	ord := resolveOrder(ds, req)
	fp := fingerprint{
		Start:       req.Start,
		Length:      req.Length,
		Search:      req.Search,
		OrderColumn: ord.Column,
		OrderDir:    string(ord.Dir),
		Filters:     make(map[string]string, len(req.Filters)),
	}
	for _, name := range ds.filterNames() {
		if val := req.Filters[name]; val != "" && val != FilterAll {
			fp.Filters[name] = val
		}
	}

	hash, err := hashstructure.Hash(fp, hashstructure.FormatV2, nil)
	if err != nil {
		return "", errors.Wrap(err, "hashing request")
	}
	return fmt.Sprintf("%s%s:%s:%016x", datasetKeyPrefix(ds), url.QueryEscape(p.Kind), url.QueryEscape(p.ID), hash), nil
}
