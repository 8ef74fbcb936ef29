package store

import (
	"fmt"
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/voronoi/src/common"
)

// InmemStore keeps encoded snapshots in memory, so callers never share
// state with the store.
type InmemStore struct {
	sync.Mutex
	snapshots map[uint32][]byte
	closed    bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		snapshots: make(map[uint32][]byte),
	}
}

// Put implements the Store interface.
func (s *InmemStore) Put(snap *Snapshot) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return cm.NewStoreErr("InmemStore", cm.Closed, "")
	}

	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	s.snapshots[snap.NodeID] = data
	return nil
}

// Get implements the Store interface.
func (s *InmemStore) Get(id uint32) (*Snapshot, error) {
	s.Lock()
	defer s.Unlock()

	data, ok := s.snapshots[id]
	if !ok {
		return nil, cm.NewStoreErr("Snapshot", cm.KeyNotFound, fmt.Sprint(id))
	}

	snap := new(Snapshot)
	if err := snap.Unmarshal(data); err != nil {
		return nil, err
	}
	return snap, nil
}

// List implements the Store interface.
func (s *InmemStore) List() ([]*Snapshot, error) {
	s.Lock()
	defer s.Unlock()

	res := make([]*Snapshot, 0, len(s.snapshots))
	for _, data := range s.snapshots {
		snap := new(Snapshot)
		if err := snap.Unmarshal(data); err != nil {
			return nil, err
		}
		res = append(res, snap)
	}
	sortSnapshots(res)
	return res, nil
}

func sortSnapshots(s []*Snapshot) {
	sort.Slice(s, func(i, j int) bool { return s[i].NodeID < s[j].NodeID })
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}

// StorePath implements the Store interface.
func (s *InmemStore) StorePath() string {
	return ""
}
