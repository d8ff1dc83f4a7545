// Package cache provides the datatable.Store implementations.
package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/datatable"
)

const badgerGCInterval = 5 * time.Minute

// BadgerStore keeps the cached responses in badger; it supports invalidation by prefix.
type BadgerStore struct {
	db     *badger.DB
	logger core.Logger
	stopGC chan struct{}
	gcDone chan struct{}
	once   sync.Once
}

var (
	_ datatable.Store         = (*BadgerStore)(nil)
	_ datatable.PrefixDeleter = (*BadgerStore)(nil)
)

// badgerLogger adapts core.Logger to badger's logger.
type badgerLogger struct {
	logger core.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

// OpenBadger opens the store at path, or in memory when path is empty.
// Persistent stores run the value log GC periodically until closed.
func OpenBadger(path string, logger core.Logger) (*BadgerStore, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating cache directory %s", path)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger cache")
	}

	s := &BadgerStore{
		db:     db,
		logger: logger,
		stopGC: make(chan struct{}),
		gcDone: make(chan struct{}),
	}
	if path != "" {
		go s.runGC(badgerGCInterval)
	} else {
		close(s.gcDone)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing to collect
			if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				s.logger.Warn("badger value log GC failed", "error", err)
			}
		}
	}
}

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, datatable.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading badger cache")
	}
	return val, nil
}

func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	return errors.Wrap(err, "writing badger cache")
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrap(err, "deleting from badger cache")
}

func (s *BadgerStore) DeletePrefix(_ context.Context, prefix string) error {
	return errors.Wrap(s.db.DropPrefix([]byte(prefix)), "dropping badger cache prefix")
}

// Flush removes every cached response.
func (s *BadgerStore) Flush(_ context.Context) error {
	return errors.Wrap(s.db.DropAll(), "flushing badger cache")
}

func (s *BadgerStore) Close() error {
	s.once.Do(func() {
		select {
		case <-s.gcDone:
		default:
			close(s.stopGC)
			<-s.gcDone
		}
	})
	return s.db.Close()
}
