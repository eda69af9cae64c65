package state

import (
	"context"
	"errors"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"

	"launchsync/internal/model"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, Error.New("badger open: %v", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Get(_ context.Context, launchID string) (model.Launch, bool, error) {
	var (
		l     model.Launch
		found bool
	)
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(launchID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		l, err = decodeLaunch(v)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	return l, found, nil
}

func (b *BadgerStore) Put(_ context.Context, l model.Launch) error {
	if l.LaunchID == "" {
		return Error.New("empty launch_id")
	}
	v, err := encodeLaunch(l)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(l.LaunchID), v)
	}))
}

func (b *BadgerStore) Range(_ context.Context, fn func(l model.Launch) error) error {
	return Error.Wrap(b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			l, err := decodeLaunch(v)
			if err != nil {
				return err
			}
			if err := fn(l); err != nil {
				return err
			}
		}
		return nil
	}))
}
