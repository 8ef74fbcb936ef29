package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/node/state"
	"github.com/mosaicnetworks/voronoi/src/store"
	"github.com/mosaicnetworks/voronoi/src/topology"
)

func quietConfig(t *testing.T) *node.Config {
	conf := node.TestConfig(t)
	conf.AnnouncePeriodically = false
	conf.MovementDelay = 5 * time.Millisecond
	return conf
}

func startSimulation(t *testing.T, top *topology.Topology, conf *node.Config) *Simulation {
	sim, err := New(top, conf, 42)
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return sim
}

func waitQuiescent(t *testing.T, sim *Simulation) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := sim.WaitQuiescent(ctx, 100*time.Millisecond); err != nil {
		t.Fatalf("simulation should become quiescent, got %v", err)
	}
}

func TestLinearSimulation(t *testing.T) {
	sim := startSimulation(t, topology.Linear(), quietConfig(t))
	defer sim.Stop()

	waitQuiescent(t, sim)

	for _, n := range sim.Nodes() {
		if k := len(n.Known()); k != 3 {
			t.Fatalf("node %d should know 3 sites, not %d", n.ID(), k)
		}
	}

	if err := sim.Move(3, 150, 300); err != nil {
		t.Fatal(err)
	}
	waitQuiescent(t, sim)

	first, _ := sim.Node(0)
	var found bool
	for _, e := range first.Known() {
		if e.SiteID == 3 {
			found = true
			if e.X != 150 || e.Y != 300 {
				t.Fatalf("node 0 should see site 3 at (150,300), not (%d,%d)", e.X, e.Y)
			}
		}
	}
	if !found {
		t.Fatalf("node 0 should know site 3")
	}

	if err := sim.Stop(); err != nil {
		t.Fatal(err)
	}
	for _, n := range sim.Nodes() {
		if s := n.GetState(); s != state.Stopped {
			t.Fatalf("node %d should be Stopped, not %s", n.ID(), s)
		}
	}
}

func TestStartTwice(t *testing.T) {
	sim := startSimulation(t, topology.Basic(), quietConfig(t))
	defer sim.Stop()

	if err := sim.Start(context.Background()); err != ErrStarted {
		t.Fatalf("second Start should return ErrStarted, not %v", err)
	}
	if err := sim.Move(99, 0, 0); err == nil {
		t.Fatalf("moving an unknown site should fail")
	}
}

func TestWaitQuiescentNodeError(t *testing.T) {
	sim := startSimulation(t, topology.Basic(), quietConfig(t))
	defer sim.Stop()

	failure := errors.New("site 1: broken")
	sim.setErr(failure)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := sim.WaitQuiescent(ctx, time.Hour); err != failure {
		t.Fatalf("WaitQuiescent should return the node error, not %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("WaitQuiescent should return before the deadline")
	}
	if err := sim.Stop(); err != failure {
		t.Fatalf("Stop should return the node error, not %v", err)
	}
}

func TestSnapshots(t *testing.T) {
	sim := startSimulation(t, topology.Basic(), quietConfig(t))
	defer sim.Stop()

	waitQuiescent(t, sim)

	st := store.NewInmemStore()
	if err := sim.Save(st); err != nil {
		t.Fatal(err)
	}
	list, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 5 {
		t.Fatalf("store should hold 5 snapshots, not %d", len(list))
	}
	for _, snap := range list {
		if len(snap.Known) != 4 {
			t.Fatalf("node %d should know 4 sites, not %d", snap.NodeID, len(snap.Known))
		}
	}

	if n := len(sim.Statuses()); n != 5 {
		t.Fatalf("Statuses should return 5 lines, not %d", n)
	}
}

func TestMobileFeedClamps(t *testing.T) {
	f := NewMobileFeed(-5, 10000)
	if x, y := f.Position(); x != 0 || y != topology.CanvasHeight {
		t.Fatalf("position should be clamped to (0,%d), not (%d,%d)", topology.CanvasHeight, x, y)
	}
	f.Move(12, 34)
	if x, y := f.Position(); x != 12 || y != 34 {
		t.Fatalf("position should be (12,34), not (%d,%d)", x, y)
	}
}
