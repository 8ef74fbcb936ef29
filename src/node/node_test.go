package node

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/voronoi/src/net"
	"github.com/mosaicnetworks/voronoi/src/node/state"
	"github.com/mosaicnetworks/voronoi/src/site"
)

type testFeed struct {
	sync.Mutex
	x, y int
}

func (f *testFeed) Position() (int, int) {
	f.Lock()
	defer f.Unlock()
	return f.x, f.y
}

func (f *testFeed) set(x, y int) {
	f.Lock()
	defer f.Unlock()
	f.x, f.y = x, y
}

type testNet struct {
	clock  *fakeClock
	trans  []*net.InmemTransport
	nodes  []*Node
	feeds  []*testFeed
	config *Config
}

// newTestNet builds one node per position and links them in the given
// order. Channel indices follow the link order on each node.
func newTestNet(t *testing.T, conf *Config, positions [][2]int, links [][2]int) *testNet {
	tn := &testNet{
		clock:  newFakeClock(),
		config: conf,
	}
	conf.Clock = tn.clock.Now

	for range positions {
		_, tr := net.NewInmemTransport("")
		tn.trans = append(tn.trans, tr)
	}
	for _, l := range links {
		net.Connect(tn.trans[l[0]], tn.trans[l[1]])
	}

	for i, p := range positions {
		feed := &testFeed{x: p[0], y: p[1]}
		n, err := NewNode(conf, site.NewSite(uint32(i), p[0], p[1]), tn.trans[i], feed)
		if err != nil {
			t.Fatal(err)
		}
		tn.nodes = append(tn.nodes, n)
		tn.feeds = append(tn.feeds, feed)
	}
	return tn
}

// settle steps every node in turn until a full round does nothing.
func (tn *testNet) settle(t *testing.T) {
	t.Helper()
	for round := 0; round < 10000; round++ {
		busy := false
		for _, n := range tn.nodes {
			b, err := n.Step()
			if err != nil {
				t.Fatalf("node %d: %v", n.ID(), err)
			}
			busy = busy || b
		}
		if !busy {
			return
		}
	}
	t.Fatalf("network did not settle")
}

func knownIDs(n *Node) map[uint32]Entry {
	res := make(map[uint32]Entry)
	for _, e := range n.Known() {
		res[e.SiteID] = e
	}
	return res
}

func linearNet(t *testing.T, conf *Config) *testNet {
	return newTestNet(t, conf,
		[][2]int{{150, 100}, {150, 150}, {150, 200}, {150, 250}},
		[][2]int{{0, 1}, {1, 2}, {2, 3}},
	)
}

func TestLinearEndToEnd(t *testing.T) {
	tn := linearNet(t, TestConfig(t))
	tn.settle(t)

	// channel towards each site, per node
	want := []map[uint32]int{
		{1: 0, 2: 0, 3: 0},
		{0: 0, 2: 1, 3: 1},
		{0: 0, 1: 0, 3: 1},
		{0: 0, 1: 0, 2: 0},
	}

	for i, n := range tn.nodes {
		known := knownIDs(n)
		if len(known) != 3 {
			t.Fatalf("node %d should know 3 sites, not %d", i, len(known))
		}
		for id, c := range want[i] {
			if _, ok := known[id]; !ok {
				t.Fatalf("node %d should know site %d", i, id)
			}
			if got := n.ForwardChannel(id); got != c {
				t.Fatalf("node %d should reach site %d through channel %d, not %d", i, id, c, got)
			}
		}
		if tracked := len(n.TrackedSites()); tracked != 3 {
			t.Fatalf("node %d should track 3 sites, not %d", i, tracked)
		}
	}

	// hop counts follow the path
	if e := knownIDs(tn.nodes[0])[3]; e.Hops != 2 {
		t.Fatalf("node 0 should see site 3 at 2 hops, not %d", e.Hops)
	}
}

func TestHopBudget(t *testing.T) {
	conf := TestConfig(t)
	conf.MessageHops = 1
	tn := linearNet(t, conf)
	tn.settle(t)

	for i, n := range tn.nodes {
		for _, e := range n.Known() {
			if e.Hops > conf.MessageHops {
				t.Fatalf("node %d saw site %d at %d hops, more than the budget %d", i, e.SiteID, e.Hops, conf.MessageHops)
			}
		}
	}

	if _, ok := knownIDs(tn.nodes[3])[0]; ok {
		t.Fatalf("site 0 is 3 links away from node 3 and should stay unknown with a budget of 1")
	}
	if _, ok := knownIDs(tn.nodes[0])[3]; ok {
		t.Fatalf("site 3 is 3 links away from node 0 and should stay unknown with a budget of 1")
	}
	if _, ok := knownIDs(tn.nodes[0])[2]; !ok {
		t.Fatalf("site 2 is 2 links away from node 0 and should be known")
	}
}

func TestMovement(t *testing.T) {
	tn := newTestNet(t, TestConfig(t),
		[][2]int{{100, 100}, {200, 200}},
		[][2]int{{0, 1}},
	)
	tn.settle(t)

	tn.feeds[0].set(120, 130)
	tn.settle(t)

	if s := tn.nodes[0].Site(); s.X != 120 || s.Y != 130 {
		t.Fatalf("node 0 should have moved to (120,130), is at (%d,%d)", s.X, s.Y)
	}
	if e := knownIDs(tn.nodes[1])[0]; e.X != 100 {
		t.Fatalf("the movement should not be announced before the movement delay")
	}

	tn.clock.Advance(tn.config.MovementDelay + time.Millisecond)
	tn.settle(t)

	e := knownIDs(tn.nodes[1])[0]
	if e.Kind != net.Movement || e.X != 120 || e.Y != 130 {
		t.Fatalf("node 1 should know site 0 moved to (120,130), got %+v", e)
	}
	tracked := tn.nodes[1].TrackedSites()
	if len(tracked) != 1 || tracked[0].X != 120 {
		t.Fatalf("node 1 should track site 0 at its new position, got %v", tracked)
	}
	if snap := tn.nodes[0].Diagram(); snap.Main.X != 120 || snap.Main.Y != 130 {
		t.Fatalf("node 0 should be anchored at its new position, is at %s", snap.Main)
	}
}

func TestPeriodicPresence(t *testing.T) {
	_, peer := net.NewInmemTransport("")
	_, tr := net.NewInmemTransport("")
	net.Connect(tr, peer)

	clk := newFakeClock()
	conf := TestConfig(t)
	conf.Clock = clk.Now

	n, err := NewNode(conf, site.NewSite(0, 10, 10), tr, nil)
	if err != nil {
		t.Fatal(err)
	}

	n.Step()
	if m, _ := peer.Receive(0); m == nil || m.Kind != net.Presence || m.Time != 1 {
		t.Fatalf("the first step should announce presence, got %v", m)
	}

	clk.Advance(conf.PresenceDelay / 2)
	n.Step()
	if m, _ := peer.Receive(0); m != nil {
		t.Fatalf("nothing should be sent before the presence delay, got %v", m)
	}

	clk.Advance(conf.PresenceDelay/2 + time.Millisecond)
	n.Step()
	m, _ := peer.Receive(0)
	if m == nil || m.Kind != net.Presence || m.Time != 2 {
		t.Fatalf("presence should be re-announced after the presence delay, got %v", m)
	}

	// the next announcement comes between half and all of the delay
	clk.Advance(conf.PresenceDelay/2 - time.Millisecond)
	n.Step()
	if m, _ := peer.Receive(0); m != nil {
		t.Fatalf("nothing should be sent before half the presence delay, got %v", m)
	}
	clk.Advance(conf.PresenceDelay/2 + 2*time.Millisecond)
	n.Step()
	if m, _ := peer.Receive(0); m == nil || m.Kind != net.Presence {
		t.Fatalf("presence should be re-announced within the presence delay, got %v", m)
	}
}

func TestForwardFallback(t *testing.T) {
	for _, flood := range []bool{true, false} {
		_, tr := net.NewInmemTransport("")
		_, in := net.NewInmemTransport("")
		_, other := net.NewInmemTransport("")
		net.Connect(tr, in)
		net.Connect(tr, other)

		conf := TestConfig(t)
		conf.FloodOnForwardFail = flood
		n, err := NewNode(conf, site.NewSite(0, 10, 10), tr, nil)
		if err != nil {
			t.Fatal(err)
		}
		n.Step()
		other.Receive(0)

		m := net.NewUnicast(site.NewSite(5, 50, 50), 1, net.Presence, site.NewSite(9, 90, 90), 10)
		in.Send(0, m)
		n.Step()

		got, _ := other.Receive(0)
		if flood && got == nil {
			t.Fatalf("a unicast without route should be flooded when flood-on-forward-fail is set")
		}
		if !flood && got != nil {
			t.Fatalf("a unicast without route should be dropped, got %v", got)
		}
		if flood && got.Hops() != 1 {
			t.Fatalf("flooded message should have 1 hop, not %d", got.Hops())
		}
	}
}

// starNode links a node at (10,10) to k peers, channel i of the node leading
// to peers[i]. The initial Presence is already drained.
func starNode(t *testing.T, conf *Config, k int) (*Node, []*net.InmemTransport) {
	_, tr := net.NewInmemTransport("")
	peers := make([]*net.InmemTransport, k)
	for i := range peers {
		_, peers[i] = net.NewInmemTransport("")
		net.Connect(tr, peers[i])
	}

	conf.AnnouncePeriodically = false
	n, err := NewNode(conf, site.NewSite(0, 10, 10), tr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Step(); err != nil {
		t.Fatal(err)
	}
	for i, p := range peers {
		if got := drain(p); len(got) != 1 {
			t.Fatalf("peer %d should get 1 initial Presence, not %d", i, len(got))
		}
	}
	return n, peers
}

func drain(tr *net.InmemTransport) []*net.Message {
	var res []*net.Message
	for {
		m, err := tr.Receive(0)
		if err != nil || m == nil {
			return res
		}
		res = append(res, m)
	}
}

func TestFloodChannels(t *testing.T) {
	cases := []struct {
		out, in int
		want    map[int]bool
	}{
		{out: 1, in: 0, want: map[int]bool{}},
		{out: 2, in: 0, want: map[int]bool{1: true}},
		{out: 2, in: 1, want: map[int]bool{0: true}},
		{out: 3, in: 0, want: map[int]bool{1: true, 2: true}},
		{out: 4, in: 2, want: map[int]bool{0: true, 1: true, 3: true}},
	}

	for _, c := range cases {
		conf := TestConfig(t)
		conf.ForwardPresence = false
		n, peers := starNode(t, conf, c.out)

		peers[c.in].Send(0, net.NewBroadcast(site.NewSite(5, 50, 50), 1, net.Presence, 10))
		if _, err := n.Step(); err != nil {
			t.Fatal(err)
		}

		for i, p := range peers {
			got := drain(p)
			if !c.want[i] {
				if len(got) != 0 {
					t.Fatalf("out=%d in=%d: channel %d should get nothing, got %v", c.out, c.in, i, got)
				}
				continue
			}
			if len(got) != 1 {
				t.Fatalf("out=%d in=%d: channel %d should get the message once, not %d times", c.out, c.in, i, len(got))
			}
			if got[0].Origin.ID != 5 || got[0].Hops() != 1 || !got[0].IsBroadcast() {
				t.Fatalf("out=%d in=%d: channel %d got %v", c.out, c.in, i, got[0])
			}
		}
	}
}

func TestForwardPresenceReply(t *testing.T) {
	n, peers := starNode(t, TestConfig(t), 3)

	origin := site.NewSite(5, 50, 50)
	peers[1].Send(0, net.NewBroadcast(origin, 1, net.Presence, 10))
	if _, err := n.Step(); err != nil {
		t.Fatal(err)
	}

	reply := drain(peers[1])
	if len(reply) != 1 {
		t.Fatalf("inbound channel should carry 1 reply, not %d", len(reply))
	}
	r := reply[0]
	if r.Kind != net.Presence || r.Origin.ID != 0 || !r.IsTo(origin) || r.Hops() != 0 {
		t.Fatalf("reply should be a fresh unicast Presence from site 0 to site 5, not %v", r)
	}
	for _, i := range []int{0, 2} {
		if got := drain(peers[i]); len(got) != 1 || got[0].Origin.ID != 5 {
			t.Fatalf("channel %d should only carry the flooded Presence, got %v", i, got)
		}
	}

	// news about a site already tracked gets no reply
	peers[1].Send(0, net.NewBroadcast(origin, 2, net.Presence, 10))
	if _, err := n.Step(); err != nil {
		t.Fatal(err)
	}
	if got := drain(peers[1]); len(got) != 0 {
		t.Fatalf("a known site should not get another reply, got %v", got)
	}
}

func TestDirectedForward(t *testing.T) {
	conf := TestConfig(t)
	conf.ForwardPresence = false
	n, peers := starNode(t, conf, 3)

	target := site.NewSite(9, 90, 90)
	peers[2].Send(0, net.NewBroadcast(target, 1, net.Presence, 10))
	if _, err := n.Step(); err != nil {
		t.Fatal(err)
	}
	for _, p := range peers {
		drain(p)
	}
	if c := n.ForwardChannel(9); c != 2 {
		t.Fatalf("site 9 should be reached through channel 2, not %d", c)
	}

	peers[0].Send(0, net.NewUnicast(site.NewSite(5, 50, 50), 1, net.Presence, target, 10))
	if _, err := n.Step(); err != nil {
		t.Fatal(err)
	}

	got := drain(peers[2])
	if len(got) != 1 {
		t.Fatalf("channel 2 should carry the unicast once, not %d times", len(got))
	}
	if m := got[0]; m.Origin.ID != 5 || !m.IsTo(target) || m.Hops() != 1 {
		t.Fatalf("forwarded message should go from site 5 to site 9 with 1 hop, not %v", m)
	}
	for _, i := range []int{0, 1} {
		if got := drain(peers[i]); len(got) != 0 {
			t.Fatalf("channel %d should get nothing with a known route, got %v", i, got)
		}
	}
}

func TestAbsence(t *testing.T) {
	tn := newTestNet(t, TestConfig(t),
		[][2]int{{100, 100}, {200, 200}, {300, 100}},
		[][2]int{{0, 1}, {1, 2}},
	)
	tn.settle(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tn.nodes[2].Run(ctx); err != nil {
		t.Fatalf("Run should return nil on cancellation, not %v", err)
	}
	if s := tn.nodes[2].GetState(); s != state.Stopped {
		t.Fatalf("node should be Stopped, not %s", s)
	}

	remaining := &testNet{nodes: tn.nodes[:2]}
	remaining.settle(t)

	for i, n := range remaining.nodes {
		for _, s := range n.TrackedSites() {
			if s.ID == 2 {
				t.Fatalf("node %d should have removed site 2 after its Absence", i)
			}
		}
		if e, ok := knownIDs(n)[2]; !ok || e.Kind != net.Absence {
			t.Fatalf("node %d should remember the Absence of site 2, got %+v", i, e)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	_, peer := net.NewInmemTransport("")
	_, tr := net.NewInmemTransport("")
	net.Connect(tr, peer)

	conf := TestConfig(t)
	n, err := NewNode(conf, site.NewSite(3, 10, 10), tr, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- n.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run should return after cancellation")
	}

	var last *net.Message
	for {
		m, err := peer.Receive(0)
		if err != nil {
			t.Fatal(err)
		}
		if m == nil {
			break
		}
		last = m
	}
	if last == nil || last.Kind != net.Absence {
		t.Fatalf("the last message should be an Absence, got %v", last)
	}
}

func TestCleanupPeriodically(t *testing.T) {
	_, tr := net.NewInmemTransport("")
	_, feed := net.NewInmemTransport("")
	net.Connect(tr, feed)

	clk := newFakeClock()
	conf := TestConfig(t)
	conf.Clock = clk.Now
	conf.CleanupPeriodically = true
	conf.AnnouncePeriodically = false
	conf.ForwardPresence = false

	n, err := NewNode(conf, site.NewSite(0, 300, 300), tr, nil)
	if err != nil {
		t.Fatal(err)
	}

	var id uint32 = 1
	for x := 0; x <= 600; x += 100 {
		for y := 0; y <= 600; y += 100 {
			if x == 300 && y == 300 {
				continue
			}
			feed.Send(0, net.NewBroadcast(site.NewSite(id, x, y), 1, net.Presence, 10))
			id++
		}
	}
	for {
		busy, err := n.Step()
		if err != nil {
			t.Fatal(err)
		}
		if !busy {
			break
		}
	}

	before := len(n.TrackedSites())
	if before != 48 {
		t.Fatalf("node should track 48 sites, not %d", before)
	}

	clk.Advance(conf.CleanupDelay + time.Millisecond)
	if _, err := n.Step(); err != nil {
		t.Fatal(err)
	}

	after := len(n.TrackedSites())
	if after >= before {
		t.Fatalf("cleanup should have removed sites, still tracking %d", after)
	}
	if known := len(n.Known()); known != after {
		t.Fatalf("history should only keep the %d tracked sites, has %d", after, known)
	}
}

func TestStatus(t *testing.T) {
	_, tr := net.NewInmemTransport("")
	n, err := NewNode(TestConfig(t), site.NewSite(7, 1, 2), tr, nil)
	if err != nil {
		t.Fatal(err)
	}

	if s := n.Status(); s != "Node[site=Site#7 msg=nil count=0]" {
		t.Fatalf("Status should be Node[site=Site#7 msg=nil count=0], not %s", s)
	}

	n.Step()
	if s := n.Status(); !strings.HasSuffix(s, "count=1]") {
		t.Fatalf("Status should count the Presence announcement, got %s", s)
	}

	stats := n.GetStats()
	if stats["id"] != "7" || stats["state"] != "Running" || stats["event_number"] != "1" {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestConfigValidate(t *testing.T) {
	conf := DefaultConfig()
	if err := conf.Validate(); err != nil {
		t.Fatalf("default config should be valid, got %v", err)
	}

	conf.MessageHops = 0
	if err := conf.Validate(); err == nil {
		t.Fatalf("a zero hop budget should be rejected")
	}

	conf = DefaultConfig()
	conf.MovementDelay = -time.Second
	if _, err := NewNode(conf, site.NewSite(0, 0, 0), nil, nil); err == nil {
		t.Fatalf("NewNode should reject an invalid config")
	}
}
