package node

import (
	"sort"

	"github.com/mosaicnetworks/voronoi/src/net"
	"github.com/mosaicnetworks/voronoi/src/site"
)

// NoChannel is the forwarding channel of a site nothing is known about. It is
// outside the range of every transport.
const NoChannel = -1

type remoteHistory struct {
	last    *net.Message
	hops    int
	channel int
}

// History records, for every remote site a node has heard from, the last
// message accepted from it and the channel through which it was reached in
// the fewest hops. The forwarding channel only ever improves.
type History struct {
	self    *site.Site
	remotes map[uint32]*remoteHistory
}

// Entry is a read-only view of what a History knows about one site.
type Entry struct {
	SiteID  uint32
	Kind    net.MessageKind
	Time    uint64
	X       int
	Y       int
	Hops    int
	Channel int
}

// NewHistory returns an empty History for self.
func NewHistory(self *site.Site) *History {
	return &History{
		self:    self,
		remotes: make(map[uint32]*remoteHistory),
	}
}

// Register records m, received on channel in, and reports whether it is
// news. A first sighting is always a Presence, a Presence at a new position
// is a Movement, and a Movement to the last known position is not news. The
// kind of m is relabelled in place accordingly. The forwarding hint is
// updated even when m is not news.
func (h *History) Register(m *net.Message, in int) bool {
	from := m.Origin
	if from.Equals(h.self) {
		return false
	}

	r, ok := h.remotes[from.ID]
	if !ok {
		switch m.Kind {
		case net.Absence:
			return false
		case net.Movement:
			m.Kind = net.Presence
		}
		h.remotes[from.ID] = &remoteHistory{
			last:    m.Copy(),
			hops:    m.Hops(),
			channel: in,
		}
		return true
	}

	if m.Hops() < r.hops {
		r.hops = m.Hops()
		r.channel = in
	}

	if !m.IsNewerThan(r.last) {
		return false
	}

	samePos := r.last.Origin.SamePos(from)
	if m.Kind == net.Movement && samePos {
		return false
	}
	if m.Kind == net.Presence && !samePos {
		m.Kind = net.Movement
	}

	r.last = m.Copy()
	return true
}

// ForwardChannel returns the cheapest known channel towards s, or NoChannel.
func (h *History) ForwardChannel(s *site.Site) int {
	if s == nil {
		return NoChannel
	}
	if r, ok := h.remotes[s.ID]; ok {
		return r.channel
	}
	return NoChannel
}

// Last returns a copy of the last message accepted from the site with the
// given id.
func (h *History) Last(id uint32) (*net.Message, bool) {
	r, ok := h.remotes[id]
	if !ok {
		return nil, false
	}
	return r.last.Copy(), true
}

// Clean forgets the given sites.
func (h *History) Clean(sites []*site.Site) {
	for _, s := range sites {
		delete(h.remotes, s.ID)
	}
}

// Len returns the number of known sites.
func (h *History) Len() int {
	return len(h.remotes)
}

// Entries returns what is known about every site, sorted by id.
func (h *History) Entries() []Entry {
	res := make([]Entry, 0, len(h.remotes))
	for id, r := range h.remotes {
		res = append(res, Entry{
			SiteID:  id,
			Kind:    r.last.Kind,
			Time:    r.last.Time,
			X:       r.last.Origin.X,
			Y:       r.last.Origin.Y,
			Hops:    r.hops,
			Channel: r.channel,
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SiteID < res[j].SiteID })
	return res
}
