package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/voronoi/src/common"
	"github.com/sirupsen/logrus"
)

const snapshotPrefix = "snapshot"

// BadgerStore persists snapshots in a Badger database.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger *logrus.Entry
}

// NewBadgerStore opens the database in path, creating it if it does not
// exist.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:     handle,
		path:   path,
		logger: logger,
	}, nil
}

// LoadBadgerStore opens an existing database.
func LoadBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return NewBadgerStore(path, logger)
}

// LoadOrCreateBadgerStore opens the database in path, or creates the
// directory and a fresh database when nothing can be loaded.
func LoadOrCreateBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	store, err := LoadBadgerStore(path, logger)

	if err != nil {
		if err := os.MkdirAll(path, 0700); err != nil {
			return nil, err
		}

		store, err = NewBadgerStore(path, logger)

		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

//==============================================================================
//Keys

func snapshotKey(id uint32) []byte {
	return []byte(fmt.Sprintf("%s_%d", snapshotPrefix, id))
}

func parseSnapshotKey(key []byte) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(string(key), snapshotPrefix+"_"), 10, 32)
	return uint32(id), err
}

//==============================================================================
//Implement the Store interface

// Put implements the Store interface.
func (s *BadgerStore) Put(snap *Snapshot) error {
	val, err := snap.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(snapshotKey(snap.NodeID), val); err != nil {
		return err
	}

	return tx.Commit()
}

// Get implements the Store interface.
func (s *BadgerStore) Get(id uint32) (*Snapshot, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if isDBKeyNotFound(err) {
			return nil, cm.NewStoreErr("Snapshot", cm.KeyNotFound, fmt.Sprint(id))
		}
		return nil, err
	}

	snap := new(Snapshot)
	if err := snap.Unmarshal(data); err != nil {
		return nil, err
	}

	return snap, nil
}

// List implements the Store interface. Badger iterates keys in byte order,
// so snapshots are sorted again by numeric id.
func (s *BadgerStore) List() ([]*Snapshot, error) {
	res := []*Snapshot{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(snapshotPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			if _, err := parseSnapshotKey(item.Key()); err != nil {
				s.logger.WithField("key", string(item.Key())).Warn("Skipping malformed snapshot key")
				continue
			}

			err := item.Value(func(data []byte) error {
				snap := new(Snapshot)
				if err := snap.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, snap)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	sortSnapshots(res)

	return res, nil
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}
