package state

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/cockroachdb/pebble"

	"launchsync/internal/model"
)

// PebbleStore implements Store using PebbleDB. Values are JSON documents keyed by launch_id.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// The table holds a few hundred small documents; keep the memtable small.
		MemTableSize:          16 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 8,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, Error.New("pebble open: %v", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func encodeLaunch(l model.Launch) ([]byte, error) { return json.Marshal(l) }
func decodeLaunch(val []byte) (model.Launch, error) {
	var l model.Launch
	if err := json.Unmarshal(val, &l); err != nil {
		return model.Launch{}, err
	}
	return l, nil
}

func (p *PebbleStore) Get(_ context.Context, launchID string) (model.Launch, bool, error) {
	v, closer, err := p.db.Get([]byte(launchID))
	if errors.Is(err, pebble.ErrNotFound) {
		return model.Launch{}, false, nil
	}
	if err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	defer closer.Close()
	l, err := decodeLaunch(v)
	if err != nil {
		return model.Launch{}, false, Error.Wrap(err)
	}
	return l, true, nil
}

func (p *PebbleStore) Put(_ context.Context, l model.Launch) error {
	if l.LaunchID == "" {
		return Error.New("empty launch_id")
	}
	b, err := encodeLaunch(l)
	if err != nil {
		return Error.Wrap(err)
	}
	// Sync each write: runs are small and a scheduled run may be the last one for hours.
	return Error.Wrap(p.db.Set([]byte(l.LaunchID), b, pebble.Sync))
}

func (p *PebbleStore) Range(_ context.Context, fn func(l model.Launch) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return Error.Wrap(err)
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		v := append([]byte(nil), it.Value()...)
		l, err := decodeLaunch(v)
		if err != nil {
			return Error.New("decode %q: %v", it.Key(), err)
		}
		if err := fn(l); err != nil {
			return Error.Wrap(err)
		}
	}
	return Error.Wrap(it.Error())
}
