package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mosaicnetworks/voronoi/src/common"
	"github.com/mosaicnetworks/voronoi/src/net"
	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/mosaicnetworks/voronoi/src/store"
	"github.com/sirupsen/logrus"
)

type testNetwork struct {
	nodes []*node.Node
}

func (tn *testNetwork) Nodes() []*node.Node {
	return tn.nodes
}

func (tn *testNetwork) Node(id uint32) (*node.Node, bool) {
	for _, n := range tn.nodes {
		if n.ID() == id {
			return n, true
		}
	}
	return nil, false
}

func newTestService(t *testing.T) *Service {
	tn := &testNetwork{}
	for i, p := range [][2]int{{100, 100}, {200, 150}} {
		_, trans := net.NewInmemTransport("")
		n, err := node.NewNode(node.TestConfig(t), site.NewSite(uint32(i), p[0], p[1]), trans, nil)
		if err != nil {
			t.Fatal(err)
		}
		tn.nodes = append(tn.nodes, n)
	}
	return NewService("127.0.0.1:0", tn, common.NewTestEntry(t, logrus.DebugLevel))
}

func get(t *testing.T, s *Service, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGetStats(t *testing.T) {
	s := newTestService(t)

	rec := get(t, s, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status should be 200, not %d", rec.Code)
	}

	var stats map[string]map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats should cover 2 nodes, not %d", len(stats))
	}
	if x := stats["1"]["x"]; x != "200" {
		t.Fatalf("node 1 x should be 200, not %s", x)
	}
}

func TestGetNode(t *testing.T) {
	s := newTestService(t)

	rec := get(t, s, "/nodes/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status should be 200, not %d", rec.Code)
	}
	snap := new(store.Snapshot)
	if err := snap.Unmarshal(rec.Body.Bytes()); err != nil {
		t.Fatal(err)
	}
	if snap.NodeID != 1 || snap.Site.X != 200 || snap.Site.Y != 150 {
		t.Fatalf("snapshot should describe node 1 at (200,150), not %d at %v", snap.NodeID, snap.Site)
	}

	if rec := get(t, s, "/nodes/7"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown nodes should return 404, not %d", rec.Code)
	}
	if rec := get(t, s, "/nodes/abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed ids should return 400, not %d", rec.Code)
	}
}

func TestGetMetrics(t *testing.T) {
	s := newTestService(t)

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status should be 200, not %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voronoi_") {
		t.Fatalf("metrics should expose the voronoi namespace")
	}
}
