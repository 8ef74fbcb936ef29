package store

// Store ...
type Store interface {
	// Put replaces the snapshot of a node.
	Put(*Snapshot) error
	// Get returns the last snapshot of a node, or a KeyNotFound StoreErr.
	Get(uint32) (*Snapshot, error)
	// List returns every snapshot, sorted by node id.
	List() ([]*Snapshot, error)
	Close() error
	StorePath() string
}
