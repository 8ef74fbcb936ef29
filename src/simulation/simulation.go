package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mosaicnetworks/voronoi/src/net"
	"github.com/mosaicnetworks/voronoi/src/node"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/mosaicnetworks/voronoi/src/store"
	"github.com/mosaicnetworks/voronoi/src/telemetry"
	"github.com/mosaicnetworks/voronoi/src/topology"
	"github.com/sirupsen/logrus"
)

// ErrStarted is returned by Start on a simulation that already runs.
var ErrStarted = errors.New("simulation already started")

// Simulation is a set of nodes wired after a topology.
type Simulation struct {
	logger *logrus.Entry

	nodes []*node.Node
	trans []*net.InmemTransport
	feeds map[uint32]*MobileFeed
	byID  map[uint32]*node.Node

	cancel context.CancelFunc
	wg     sync.WaitGroup

	errLock sync.Mutex
	err     error
	started bool
}

// New builds the nodes of top. Every node gets its own copy of conf with a
// random source seeded from seed and its id, so runs are reproducible.
func New(top *topology.Topology, conf *node.Config, seed int64) (*Simulation, error) {
	if err := top.Validate(); err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	logger := conf.Logger
	if logger == nil {
		logger = node.DefaultConfig().Logger
	}

	sim := &Simulation{
		logger: logger.WithField("component", "simulation"),
		feeds:  make(map[uint32]*MobileFeed, len(top.Sites)),
		byID:   make(map[uint32]*node.Node, len(top.Sites)),
	}

	transports := make(map[uint32]*net.InmemTransport, len(top.Sites))
	for _, s := range top.Sites {
		_, trans := net.NewInmemTransport(fmt.Sprintf("site-%d", s.ID))
		transports[s.ID] = trans
		sim.trans = append(sim.trans, trans)
	}
	for _, l := range top.Links {
		net.Connect(transports[l.A], transports[l.B])
	}

	for _, s := range top.Sites {
		c := *conf
		c.Logger = logger
		c.Rand = rand.New(rand.NewSource(seed + int64(s.ID)))

		feed := NewMobileFeed(s.X, s.Y)
		n, err := node.NewNode(&c, site.NewSite(s.ID, s.X, s.Y), transports[s.ID], feed)
		if err != nil {
			return nil, err
		}
		sim.nodes = append(sim.nodes, n)
		sim.feeds[s.ID] = feed
		sim.byID[s.ID] = n
	}

	sim.logger.WithFields(logrus.Fields{
		"topology": top.Name,
		"sites":    len(top.Sites),
		"links":    len(top.Links),
	}).Info("Built simulation")

	return sim, nil
}

// Start runs every node in its own goroutine until Stop is called or ctx is
// cancelled.
func (s *Simulation) Start(ctx context.Context) error {
	s.errLock.Lock()
	defer s.errLock.Unlock()

	if s.started {
		return ErrStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, n := range s.nodes {
		s.wg.Add(1)
		go func(n *node.Node) {
			defer s.wg.Done()
			if err := n.Run(ctx); err != nil {
				s.setErr(fmt.Errorf("site %d: %w", n.ID(), err))
			}
		}(n)
	}
	return nil
}

func (s *Simulation) setErr(err error) {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first error a node stopped with.
func (s *Simulation) Err() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}

// Stop cancels every node, waits for them to broadcast their Absence and
// exit, and returns the first error any of them stopped with.
func (s *Simulation) Stop() error {
	s.errLock.Lock()
	cancel := s.cancel
	s.errLock.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return s.Err()
}

// Move drags the site with the given id to (x, y).
func (s *Simulation) Move(id uint32, x, y int) error {
	feed, ok := s.feeds[id]
	if !ok {
		return fmt.Errorf("unknown site %d", id)
	}
	feed.Move(x, y)
	return nil
}

// WaitQuiescent returns once no message has been queued on any link and no
// event counter has changed for quiet, or with ctx's error. With periodic
// announcements on, quiet must be shorter than half the presence delay.
func (s *Simulation) WaitQuiescent(ctx context.Context, quiet time.Duration) error {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	last := s.fingerprint()
	since := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}

		if err := s.Err(); err != nil {
			return err
		}

		fp := s.fingerprint()
		if fp != last || s.pending() > 0 {
			last = fp
			since = time.Now()
			continue
		}
		if time.Since(since) >= quiet {
			return nil
		}
	}
}

// fingerprint sums the event counters of every node. Counters only grow, so
// the sum changes whenever any of them does.
func (s *Simulation) fingerprint() uint64 {
	var sum uint64
	for _, n := range s.nodes {
		sum += n.EventNumber()
	}
	return sum
}

func (s *Simulation) pending() int {
	p := 0
	for _, t := range s.trans {
		p += t.Pending()
	}
	return p
}

// Nodes returns the nodes in topology order.
func (s *Simulation) Nodes() []*node.Node {
	return s.nodes
}

// Node returns the node of the site with the given id.
func (s *Simulation) Node(id uint32) (*node.Node, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// Statuses returns the status line of every node, in topology order.
func (s *Simulation) Statuses() []string {
	res := make([]string, 0, len(s.nodes))
	for _, n := range s.nodes {
		res = append(res, n.Status())
	}
	return res
}

// Snapshots captures every node, in topology order, and refreshes the
// tracked-sites gauge.
func (s *Simulation) Snapshots() []*store.Snapshot {
	res := make([]*store.Snapshot, 0, len(s.nodes))
	for _, n := range s.nodes {
		snap := store.NewSnapshot(n)
		telemetry.SetTrackedSites(n.ID(), len(n.TrackedSites()))
		res = append(res, snap)
	}
	return res
}

// Save writes a snapshot of every node to st.
func (s *Simulation) Save(st store.Store) error {
	for _, snap := range s.Snapshots() {
		if err := st.Put(snap); err != nil {
			return err
		}
	}
	return nil
}
