package store

import (
	"bytes"
	"time"

	"github.com/mosaicnetworks/voronoi/src/diagram"
	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/ugorji/go/codec"
)

// Snapshot is what a node knew at a given instant.
type Snapshot struct {
	NodeID      uint32
	Site        *site.Site
	Status      string
	State       string
	EventNumber uint64
	Diagram     diagram.Snapshot
	Known       []node.Entry
	Taken       int64
}

// NewSnapshot captures the current view of n.
func NewSnapshot(n *node.Node) *Snapshot {
	return &Snapshot{
		NodeID:      n.ID(),
		Site:        n.Site(),
		Status:      n.Status(),
		State:       n.GetState().String(),
		EventNumber: n.EventNumber(),
		Diagram:     n.Diagram(),
		Known:       n.Known(),
		Taken:       time.Now().UnixNano(),
	}
}

// Marshal - json encoding of Snapshot
func (s *Snapshot) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(s); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (s *Snapshot) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(s)
}
