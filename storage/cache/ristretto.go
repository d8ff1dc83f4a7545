package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/datatable"
)

// DefaultRistrettoMaxCost bounds the total size of the cached responses, in bytes.
const DefaultRistrettoMaxCost = 64 << 20

// RistrettoStore is an in-process cache. It cannot enumerate its keys, so invalidating
// a dataset means flushing the whole store.
type RistrettoStore struct {
	cache *ristretto.Cache[string, []byte]
}

var _ datatable.Store = (*RistrettoStore)(nil)

// NewRistretto returns a store holding at most maxCost bytes of responses.
func NewRistretto(maxCost int64) (*RistrettoStore, error) {
	if maxCost <= 0 {
		maxCost = DefaultRistrettoMaxCost
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost / 1024 * 10, // ~10x the expected number of entries of 1KB
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating ristretto cache")
	}
	return &RistrettoStore{cache: c}, nil
}

func (s *RistrettoStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.cache.Get(key)
	if !ok {
		return nil, datatable.ErrCacheMiss
	}
	return val, nil
}

// Set waits for the write to be applied so the response is readable right away.
// A write may still be dropped by the admission policy, which is only a later miss.
func (s *RistrettoStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.SetWithTTL(key, value, int64(len(value)), ttl)
	s.cache.Wait()
	return nil
}

func (s *RistrettoStore) Delete(_ context.Context, key string) error {
	s.cache.Del(key)
	return nil
}

// Flush removes every cached response.
func (s *RistrettoStore) Flush(_ context.Context) error {
	s.cache.Clear()
	return nil
}

func (s *RistrettoStore) Close() error {
	s.cache.Close()
	return nil
}
