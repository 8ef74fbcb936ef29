package store

import (
	"os"
	"path/filepath"
	"testing"

	cm "github.com/mosaicnetworks/voronoi/src/common"
	"github.com/mosaicnetworks/voronoi/src/geom"
	"github.com/mosaicnetworks/voronoi/src/net"
	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/sirupsen/logrus"
)

func testSnapshot(t *testing.T, id uint32, x, y int) *Snapshot {
	_, trans := net.NewInmemTransport("")
	n, err := node.NewNode(node.TestConfig(t), site.NewSite(id, x, y), trans, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewSnapshot(n)
}

func checkSnapshot(t *testing.T, got, want *Snapshot) {
	if got.NodeID != want.NodeID {
		t.Fatalf("NodeID should be %d, not %d", want.NodeID, got.NodeID)
	}
	if !got.Site.SamePos(want.Site) || got.Site.ID != want.Site.ID {
		t.Fatalf("Site should be %v, not %v", want.Site, got.Site)
	}
	if got.Status != want.Status || got.State != want.State {
		t.Fatalf("status should be %s/%s, not %s/%s", want.Status, want.State, got.Status, got.State)
	}
	if got.Diagram.Main != want.Diagram.Main {
		t.Fatalf("main point should be %s, not %s", want.Diagram.Main, got.Diagram.Main)
	}
	if len(got.Diagram.Triangles) != len(want.Diagram.Triangles) {
		t.Fatalf("snapshot should have %d triangles, not %d", len(want.Diagram.Triangles), len(got.Diagram.Triangles))
	}
	for i, tr := range want.Diagram.Triangles {
		if got.Diagram.Triangles[i] != tr {
			t.Fatalf("triangle %d should be %v, not %v", i, tr, got.Diagram.Triangles[i])
		}
	}
}

func testStore(t *testing.T, s Store) {
	if _, err := s.Get(1); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("Get on an empty store should return KeyNotFound, not %v", err)
	}

	snaps := []*Snapshot{
		testSnapshot(t, 12, 100, 100),
		testSnapshot(t, 2, 50, 60),
		testSnapshot(t, 7, 300, 200),
	}
	for _, snap := range snaps {
		if err := s.Put(snap); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Get(7)
	if err != nil {
		t.Fatal(err)
	}
	checkSnapshot(t, got, snaps[2])
	if got.Diagram.Main != geom.Pt(300, 200) {
		t.Fatalf("main point should be (300,200), not %s", got.Diagram.Main)
	}

	// replace
	replaced := testSnapshot(t, 7, 10, 20)
	if err := s.Put(replaced); err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(7)
	if err != nil {
		t.Fatal(err)
	}
	checkSnapshot(t, got, replaced)

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("List should return 3 snapshots, not %d", len(list))
	}
	for i, id := range []uint32{2, 7, 12} {
		if list[i].NodeID != id {
			t.Fatalf("List[%d] should be node %d, not %d", i, id, list[i].NodeID)
		}
	}
}

func TestInmemStore(t *testing.T) {
	s := NewInmemStore()
	testStore(t, s)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(testSnapshot(t, 1, 1, 1)); !cm.IsStore(err, cm.Closed) {
		t.Fatalf("Put on a closed store should return Closed, not %v", err)
	}
}

func TestBadgerStore(t *testing.T) {
	dir, err := os.MkdirTemp("", "voronoi")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "badger_db")
	logger := cm.NewTestEntry(t, logrus.InfoLevel)

	if _, err := LoadBadgerStore(path, logger); err == nil {
		t.Fatalf("LoadBadgerStore should fail on a missing directory")
	}

	s, err := LoadOrCreateBadgerStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// reopen and read back
	s, err = LoadOrCreateBadgerStore(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.StorePath() != path {
		t.Fatalf("StorePath should be %s, not %s", path, s.StorePath())
	}
	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("reloaded store should hold 3 snapshots, not %d", len(list))
	}
}
