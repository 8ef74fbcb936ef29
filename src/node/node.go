package node

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/voronoi/src/diagram"
	"github.com/mosaicnetworks/voronoi/src/net"
	"github.com/mosaicnetworks/voronoi/src/node/state"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/mosaicnetworks/voronoi/src/telemetry"
	"github.com/mosaicnetworks/voronoi/src/triangulation"
	"github.com/sirupsen/logrus"
)

// PositionFeed reports the live position of the site of a node.
type PositionFeed interface {
	Position() (x, y int)
}

// Node runs the protocol for one site.
type Node struct {
	state.Manager

	conf   *Config
	logger *logrus.Entry
	rand   *rand.Rand

	// coreLock protects everything below against observers while the loop
	// runs.
	coreLock sync.Mutex

	site    *site.Site
	feed    PositionFeed
	trans   net.Transport
	diagram *diagram.Controller
	history *History

	eventNumber uint64
	lastMsg     *net.Message
	started     bool

	movementTimer *ControlTimer
	refreshTimer  *ControlTimer
	cleanupTimer  *ControlTimer
	halfPresence  time.Duration

	start    time.Time
	sent     int
	received int
	dropped  int
}

// NewNode is a factory method that returns a Node for self. The feed may be
// nil for a site that never moves.
func NewNode(conf *Config, self *site.Site, trans net.Transport, feed PositionFeed) (*Node, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	logger := conf.logger().WithField("site", self.ID)

	controller, err := diagram.NewController(self, conf.IgnoreIrrelevant, logger)
	if err != nil {
		return nil, err
	}

	clock := conf.clock()
	half := conf.PresenceDelay / 2

	node := Node{
		conf:          conf,
		logger:        logger,
		rand:          conf.rand(),
		site:          self,
		feed:          feed,
		trans:         trans,
		diagram:       controller,
		history:       NewHistory(self),
		movementTimer: NewControlTimer(clock, 0),
		refreshTimer:  NewControlTimer(clock, 2*half),
		cleanupTimer:  NewControlTimer(clock, conf.CleanupDelay),
		halfPresence:  half,
	}

	return &node, nil
}

// Run invokes the main loop of the node until ctx is cancelled or the
// triangulation reports an invariant violation. In both cases the node
// broadcasts its Absence, closes its transport and ends Stopped.
func (n *Node) Run(ctx context.Context) error {
	n.logger.WithField("position", n.site.Pos().String()).Info("Run")

	n.coreLock.Lock()
	n.init()
	n.coreLock.Unlock()

	defer func() {
		n.SetState(state.Terminating)
		n.leave()
		n.SetState(state.Stopped)
		n.trans.Close()
		n.logger.WithField("count", n.EventNumber()).Info("Stopped")
	}()

	var idle *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		busy, err := n.Step()
		if err != nil {
			if triangulation.IsInvariant(err) {
				telemetry.InvariantViolations.Inc()
			}
			n.logger.WithError(err).Error("Step")
			return err
		}

		if busy || n.conf.PollInterval <= 0 {
			continue
		}

		if idle == nil {
			idle = time.NewTimer(n.conf.PollInterval)
		} else {
			idle.Reset(n.conf.PollInterval)
		}
		select {
		case <-ctx.Done():
			idle.Stop()
			return nil
		case <-idle.C:
		}
	}
}

// Step executes a single iteration of the loop: it applies a pending move,
// serves at most one timer, and drains at most one message from each inbound
// channel. It reports whether anything happened.
func (n *Node) Step() (bool, error) {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	n.init()

	busy := false

	moved, err := n.adjustPosition()
	if err != nil {
		return false, err
	}
	if moved {
		n.movementTimer.On(n.conf.MovementDelay)
		busy = true
	}

	if n.movementTimer.PassTime() {
		n.movementTimer.Off()
		n.refreshTimer.Restart()
		n.send(net.Movement)
		busy = true
	} else if n.conf.AnnouncePeriodically && n.refreshTimer.PassTime() {
		jitter := time.Duration(n.rand.Int63n(int64(n.halfPresence)))
		n.refreshTimer.On(n.halfPresence + jitter)
		n.send(net.Presence)
		busy = true
	} else if n.conf.CleanupPeriodically && n.cleanupTimer.PassTime() {
		n.cleanupTimer.On(n.conf.CleanupDelay)
		if err := n.clean(); err != nil {
			return busy, err
		}
		busy = true
	}

	for c := 0; c < n.trans.InDegree(); c++ {
		m, err := n.trans.Receive(c)
		if err != nil {
			if err == net.ErrTransportShutdown {
				return busy, err
			}
			n.logger.WithError(err).WithField("channel", c).Warn("Receive")
			continue
		}
		if m == nil {
			continue
		}
		busy = true
		if err := n.processMessage(m, c); err != nil {
			return busy, err
		}
	}

	return busy, nil
}

func (n *Node) init() {
	if n.started {
		return
	}
	n.started = true
	n.start = time.Now()
	n.send(net.Presence)
}

func (n *Node) leave() {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	n.logger.Info("Broadcasting Absence")
	n.send(net.Absence)
}

// adjustPosition moves the local site if the feed reports a new position.
func (n *Node) adjustPosition() (bool, error) {
	if n.feed == nil {
		return false, nil
	}
	x, y := n.feed.Position()
	if x == n.site.X && y == n.site.Y {
		return false, nil
	}
	n.logger.WithFields(logrus.Fields{
		"from": n.site.Pos().String(),
		"to":   fmt.Sprintf("(%d,%d)", x, y),
	}).Debug("Moving")
	if err := n.diagram.MoveLocal(x, y); err != nil {
		return false, err
	}
	return true, nil
}

func (n *Node) clean() error {
	sites, err := n.diagram.DelIrrelevantSites()
	n.history.Clean(sites)
	n.cleanupTimer.Restart()

	telemetry.SitesPruned.Add(float64(len(sites)))
	telemetry.SetTrackedSites(n.site.ID, n.diagram.NumSites())
	if len(sites) > 0 {
		n.logger.WithField("removed", len(sites)).Info("Cleaned irrelevant sites")
	}
	return err
}

func (n *Node) processMessage(m *net.Message, c int) error {
	n.eventNumber++
	n.lastMsg = m
	n.received++
	telemetry.MessagesReceived.WithLabelValues(m.Kind.String()).Inc()

	if !n.history.Register(m, c) {
		n.logger.WithField("channel", c).Debugf("Old news %s", m)
		return nil
	}
	telemetry.News.WithLabelValues(m.Kind.String()).Inc()
	n.logger.WithField("channel", c).Debugf("News %s", m)

	switch m.Kind {
	case net.Presence, net.Movement:
		if err := n.addNewSite(m); err != nil {
			return err
		}
	case net.Absence:
		if _, err := n.diagram.DelRemote(m.Origin); err != nil {
			return err
		}
	}
	telemetry.SetTrackedSites(n.site.ID, n.diagram.NumSites())

	n.retransmit(m, c)
	return nil
}

func (n *Node) addNewSite(m *net.Message) error {
	added, err := n.diagram.AddRemote(m.Origin)
	if err != nil {
		return err
	}
	if added && n.conf.ForwardPresence && m.IsBroadcast() {
		n.sendTo(net.Presence, m.Origin, n.history.ForwardChannel(m.Origin))
	}
	return nil
}

func (n *Node) retransmit(m *net.Message, in int) {
	if m.IsBroadcast() {
		n.flood(m, in)
		return
	}

	if m.IsTo(n.site) {
		return
	}

	if n.forward(m, n.history.ForwardChannel(m.Target)) {
		return
	}

	if n.conf.FloodOnForwardFail {
		n.flood(m, in)
		return
	}

	n.drop("no-route")
	n.logger.WithField("to", m.Target.String()).Debug("No forwarding channel")
}

// flood sends m on every outbound channel except in. Small fan-outs go in a
// fixed order around in, larger ones in a random order.
func (n *Node) flood(m *net.Message, in int) {
	if !m.IsAlive() {
		n.drop("exhausted")
		return
	}
	m.NextHop()

	out := n.trans.OutDegree()
	if out < 3 {
		for i := 0; i < in && i < out; i++ {
			n.sendOn(i, m, "flood")
		}
		for i := out - 1; i > in; i-- {
			n.sendOn(i, m, "flood")
		}
		return
	}

	for _, i := range n.rand.Perm(out) {
		if i != in {
			n.sendOn(i, m, "flood")
		}
	}
}

// forward sends m on channel c. It returns false if c is not a channel of
// the transport, which is how an unknown route shows up.
func (n *Node) forward(m *net.Message, c int) bool {
	if c < 0 || c >= n.trans.OutDegree() {
		return false
	}
	if m.IsAlive() {
		m.NextHop()
		n.sendOn(c, m, "forward")
	} else {
		n.drop("exhausted")
	}
	return true
}

// send originates a broadcast about the local site.
func (n *Node) send(kind net.MessageKind) *net.Message {
	n.eventNumber++
	m := net.NewBroadcast(n.site, n.eventNumber, kind, n.conf.MessageHops)
	for i := 0; i < n.trans.OutDegree(); i++ {
		n.sendOn(i, m, "originate")
	}
	n.refreshTimer.Restart()
	return m
}

// sendTo originates a unicast about the local site on channel through.
func (n *Node) sendTo(kind net.MessageKind, to *site.Site, through int) *net.Message {
	if through < 0 || through >= n.trans.OutDegree() {
		return nil
	}
	n.eventNumber++
	m := net.NewUnicast(n.site, n.eventNumber, kind, to, n.conf.MessageHops)
	n.sendOn(through, m, "originate")
	return m
}

func (n *Node) sendOn(c int, m *net.Message, mode string) {
	if err := n.trans.Send(c, m); err != nil {
		n.logger.WithError(err).WithField("channel", c).Debug("Send")
		n.drop("send-error")
		return
	}
	n.sent++
	telemetry.MessagesSent.WithLabelValues(m.Kind.String(), mode).Inc()
}

func (n *Node) drop(reason string) {
	n.dropped++
	telemetry.MessagesDropped.WithLabelValues(reason).Inc()
}

/*******************************************************************************
Observers
*******************************************************************************/

// ID returns the id of the local site.
func (n *Node) ID() uint32 {
	return n.site.ID
}

// Site returns a copy of the local site.
func (n *Node) Site() *site.Site {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.site.Copy()
}

// EventNumber returns the local logical clock.
func (n *Node) EventNumber() uint64 {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.eventNumber
}

// Known returns what the History knows about every remote site.
func (n *Node) Known() []Entry {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.history.Entries()
}

// ForwardChannel returns the cheapest known channel towards the site with
// the given id, or NoChannel.
func (n *Node) ForwardChannel(id uint32) int {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.history.ForwardChannel(&site.Site{ID: id})
}

// TrackedSites returns the remote sites in the local diagram.
func (n *Node) TrackedSites() []*site.Site {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()
	return n.diagram.Sites()
}

// Diagram returns a consistent copy of the local diagram.
func (n *Node) Diagram() diagram.Snapshot {
	return n.diagram.Index().Snapshot()
}

// Status describes the site, the last message processed and the local
// event counter.
func (n *Node) Status() string {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	msg := "nil"
	if n.lastMsg != nil {
		msg = n.lastMsg.String()
	}
	return fmt.Sprintf("Node[site=%s msg=%s count=%d]", n.site, msg, n.eventNumber)
}

// GetStats returns stats
func (n *Node) GetStats() map[string]string {
	n.coreLock.Lock()
	defer n.coreLock.Unlock()

	var uptime time.Duration
	if n.started {
		uptime = time.Since(n.start)
	}

	lastMsg := "nil"
	if n.lastMsg != nil {
		lastMsg = n.lastMsg.String()
	}

	s := map[string]string{
		"id":            fmt.Sprint(n.site.ID),
		"state":         n.GetState().String(),
		"x":             strconv.Itoa(n.site.X),
		"y":             strconv.Itoa(n.site.Y),
		"event_number":  strconv.FormatUint(n.eventNumber, 10),
		"known_sites":   strconv.Itoa(n.history.Len()),
		"tracked_sites": strconv.Itoa(n.diagram.NumSites()),
		"triangles":     strconv.Itoa(len(n.diagram.Index().Triangles())),
		"sent":          strconv.Itoa(n.sent),
		"received":      strconv.Itoa(n.received),
		"dropped":       strconv.Itoa(n.dropped),
		"in_degree":     strconv.Itoa(n.trans.InDegree()),
		"out_degree":    strconv.Itoa(n.trans.OutDegree()),
		"last_message":  lastMsg,
		"uptime":        uptime.Truncate(time.Millisecond).String(),
	}
	return s
}
