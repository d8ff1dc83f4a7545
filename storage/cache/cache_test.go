package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
	logsvc "github.com/trezcool/masomo/services/logger"
)

func newTestLogger() core.Logger {
	return logsvc.NewZapLogger(zap.NewNop())
}

func testStores(t *testing.T) map[string]Store {
	bdg, err := OpenBadger("", newTestLogger())
	require.NoError(t, err)
	rst, err := NewRistretto(1 << 20)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bdg.Close()
		_ = rst.Close()
	})
	return map[string]Store{"badger": bdg, "ristretto": rst}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "datatable:users:admin:1:00")
			assert.Equal(t, datatable.ErrCacheMiss, errors.Cause(err))

			require.NoError(t, store.Set(ctx, "datatable:users:admin:1:00", []byte(`{"recordsTotal":1}`), time.Minute))
			got, err := store.Get(ctx, "datatable:users:admin:1:00")
			require.NoError(t, err)
			assert.Equal(t, `{"recordsTotal":1}`, string(got))

			require.NoError(t, store.Delete(ctx, "datatable:users:admin:1:00"))
			_, err = store.Get(ctx, "datatable:users:admin:1:00")
			assert.Equal(t, datatable.ErrCacheMiss, errors.Cause(err))
		})
	}
}

func TestStore_Flush(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
			require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Minute))
			require.NoError(t, store.Flush(ctx))

			for _, key := range []string{"a", "b"} {
				_, err := store.Get(ctx, key)
				assert.Equal(t, datatable.ErrCacheMiss, errors.Cause(err), key)
			}
		})
	}
}

func TestBadgerStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBadger("", newTestLogger())
	require.NoError(t, err)
	defer store.Close()

	keys := []string{
		"datatable:users:admin:1:01",
		"datatable:users:admin:2:02",
		"datatable:students:admin:1:01",
	}
	for _, key := range keys {
		require.NoError(t, store.Set(ctx, key, []byte("{}"), time.Minute))
	}

	require.NoError(t, store.DeletePrefix(ctx, "datatable:users:"))

	for _, key := range keys[:2] {
		_, err := store.Get(ctx, key)
		assert.Equal(t, datatable.ErrCacheMiss, errors.Cause(err), key)
	}
	_, err = store.Get(ctx, keys[2])
	assert.NoError(t, err)
}

func TestBadgerStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, err := OpenBadger("", newTestLogger())
	require.NoError(t, err)
	defer store.Close()

	// badger TTLs have a one second resolution
	require.NoError(t, store.Set(ctx, "short", []byte("{}"), time.Second))
	require.NoError(t, store.Set(ctx, "long", []byte("{}"), time.Hour))

	time.Sleep(2100 * time.Millisecond)

	_, err = store.Get(ctx, "short")
	assert.Equal(t, datatable.ErrCacheMiss, errors.Cause(err))
	_, err = store.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestBadgerStore_persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenBadger(dir, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, store.Close())

	store, err = OpenBadger(dir, newTestLogger())
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name     string
		conf     core.DatatableConfig
		wantNil  bool
		wantType interface{}
		wantErr  bool
	}{
		{name: "disabled", conf: core.DatatableConfig{CacheEnabled: false, CacheBackend: core.CacheBackendBadger}, wantNil: true},
		{name: "none", conf: core.DatatableConfig{CacheEnabled: true, CacheBackend: core.CacheBackendNone}, wantNil: true},
		{name: "badger", conf: core.DatatableConfig{CacheEnabled: true, CacheBackend: core.CacheBackendBadger}, wantType: &BadgerStore{}},
		{name: "ristretto", conf: core.DatatableConfig{CacheEnabled: true, CacheBackend: core.CacheBackendRistretto}, wantType: &RistrettoStore{}},
		{name: "unknown", conf: core.DatatableConfig{CacheEnabled: true, CacheBackend: "redis"}, wantNil: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.conf, newTestLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, store)
				return
			}
			defer store.Close()
			assert.IsType(t, tt.wantType, store)
		})
	}
}
