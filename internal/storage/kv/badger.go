package kv

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rsms/go-log"
)

// BadgerEngine is the default Engine, one badger instance per (shard, data-type)
// directory under <data_path>/shard-<id>/<type>/, matching the persisted state layout.
type BadgerEngine struct {
	db     *badger.DB
	logger *log.Logger
}

// OpenBadger opens (or creates) a badger instance rooted at dir.
func OpenBadger(dir string, logger *log.Logger) (*BadgerEngine, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(&badgerLogAdapter{logger}).
		WithSyncWrites(false)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerEngine{db: db, logger: logger}, nil
}

func (e *BadgerEngine) Get(key []byte) ([]byte, error) {
	var out []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *BadgerEngine) Set(key, value []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (e *BadgerEngine) SetWithTTL(key, value []byte, ttl time.Duration) error {
	return e.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (e *BadgerEngine) Delete(key []byte) error {
	return e.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (e *BadgerEngine) NewWriteBatch() WriteBatch {
	return &badgerWriteBatch{wb: e.db.NewWriteBatch()}
}

func (e *BadgerEngine) NewIterator(prefix []byte) Iterator {
	txn := e.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	it.Seek(prefix)
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: true}
}

// RunCompaction is Nimbis' stand-in for a pluggable compaction filter: badger has no
// per-record compaction-filter callback, so CompactionFilter drives a periodic full scan
// instead, reaping any key for which fn returns false. See DESIGN.md for the rationale.
func (e *BadgerEngine) RunCompaction(fn func(key []byte) bool) error {
	var toDelete [][]byte
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if !fn(key) {
				toDelete = append(toDelete, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	wb := e.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range toDelete {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (e *BadgerEngine) Close() error {
	return e.db.Close()
}

type badgerWriteBatch struct {
	wb *badger.WriteBatch
}

func (b *badgerWriteBatch) Set(key, value []byte) {
	_ = b.wb.Set(key, value)
}

func (b *badgerWriteBatch) SetWithTTL(key, value []byte, ttl time.Duration) {
	entry := badger.NewEntry(key, value)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	_ = b.wb.SetEntry(entry)
}

func (b *badgerWriteBatch) Delete(key []byte) {
	_ = b.wb.Delete(key)
}

func (b *badgerWriteBatch) Commit() error {
	return b.wb.Flush()
}

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
}

func (it *badgerIterator) Next() bool {
	if it.started {
		it.started = false
	} else {
		it.it.Next()
	}
	return it.it.ValidForPrefix(it.prefix)
}

func (it *badgerIterator) Key() []byte {
	return it.it.Item().KeyCopy(nil)
}

func (it *badgerIterator) Value() ([]byte, error) {
	return it.it.Item().ValueCopy(nil)
}

func (it *badgerIterator) Close() {
	it.it.Close()
	it.txn.Discard()
}

// badgerLogAdapter routes badger's internal logging through the process logger, the same
// pattern the oasis-core badger driver uses for its own logger adapter.
type badgerLogAdapter struct {
	l *log.Logger
}

func (a *badgerLogAdapter) Errorf(f string, v ...interface{})   { a.l.Error(f, v...) }
func (a *badgerLogAdapter) Warningf(f string, v ...interface{}) { a.l.Warn(f, v...) }
func (a *badgerLogAdapter) Infof(f string, v ...interface{})    { a.l.Debug(f, v...) }
func (a *badgerLogAdapter) Debugf(f string, v ...interface{})   { a.l.Debug(f, v...) }
