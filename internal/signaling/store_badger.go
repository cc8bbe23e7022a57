package signaling

import (
	"errors"

	"github.com/timshannon/badgerhold"
)

// BadgerStore persists room configuration on disk so rooms survive server
// restarts, not just socket churn.
type BadgerStore struct {
	store *badgerhold.Store
}

// OpenBadgerStore opens (or creates) a badgerhold-backed store at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = nil

	store, err := badgerhold.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{store: store}, nil
}

func (s *BadgerStore) Load(roomID string) (RoomConfig, bool, error) {
	var cfg RoomConfig
	err := s.store.Get(roomID, &cfg)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return RoomConfig{}, false, nil
	}
	if err != nil {
		return RoomConfig{}, false, err
	}
	return cfg, true, nil
}

func (s *BadgerStore) Save(cfg RoomConfig) error {
	err := s.store.Insert(cfg.RoomID, cfg)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return nil
	}
	return err
}

func (s *BadgerStore) Close() error { return s.store.Close() }
