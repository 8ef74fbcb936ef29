package diagram

import (
	"sort"

	"github.com/mosaicnetworks/voronoi/src/geom"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/mosaicnetworks/voronoi/src/triangulation"
	"github.com/sirupsen/logrus"
)

// Controller owns the Index of one originating site and tracks the position
// at which every remote site was placed.
type Controller struct {
	self  *site.Site
	index *Index

	// tracked holds a copy of every remote site at the position it occupies
	// in the index.
	tracked map[uint32]*site.Site

	ignoreIrrelevant bool

	logger *logrus.Entry
}

// NewController places self in a fresh Index and anchors relevance queries
// on it. When ignoreIrrelevant is set, remote sites that cannot affect the
// cell of self are refused on arrival.
func NewController(self *site.Site, ignoreIrrelevant bool, logger *logrus.Entry) (*Controller, error) {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	index := NewIndex(logger)
	if _, err := index.AddSite(self); err != nil {
		return nil, err
	}
	index.SetMainSite(self.Pos())

	return &Controller{
		self:             self,
		index:            index,
		tracked:          make(map[uint32]*site.Site),
		ignoreIrrelevant: ignoreIrrelevant,
		logger:           logger,
	}, nil
}

// Self returns the originating site.
func (c *Controller) Self() *site.Site {
	return c.self
}

// Index returns the underlying Index for observers.
func (c *Controller) Index() *Index {
	return c.index
}

// AddRemote places s and returns true iff s was not tracked before and has
// been accepted. A site already tracked elsewhere has its stale occupancy
// removed first. Positions outside the bounding triangle are refused with a
// warning.
func (c *Controller) AddRemote(s *site.Site) (bool, error) {
	old, wasTracked := c.tracked[s.ID]
	if wasTracked {
		if old.SamePos(s) {
			return false, nil
		}
		if _, err := c.index.DelSite(old, old.Pos()); err != nil {
			return false, err
		}
		delete(c.tracked, s.ID)
	}

	var placed bool
	var err error
	if c.ignoreIrrelevant {
		placed, err = c.index.AddRelevantSite(s)
	} else {
		placed, err = c.index.AddSite(s)
	}
	if triangulation.Is(err, triangulation.OutOfBounds) {
		c.logger.WithField("site", s.ID).Warnf("%s at %s is out of bounds", s, s.Pos())
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !placed {
		return false, nil
	}

	c.tracked[s.ID] = s.Copy()
	return !wasTracked, nil
}

// DelRemote removes s, reported at its current position. If s is tracked
// somewhere else both positions are tried. It returns false if s was not
// tracked.
func (c *Controller) DelRemote(s *site.Site) (bool, error) {
	old, ok := c.tracked[s.ID]
	if !ok {
		return false, nil
	}
	delete(c.tracked, s.ID)

	removed, err := c.index.DelSite(s, s.Pos())
	if err != nil {
		return removed, err
	}

	if !old.SamePos(s) {
		c.logger.WithFields(logrus.Fields{
			"site":     s.ID,
			"tracked":  old.Pos().String(),
			"reported": s.Pos().String(),
		}).Warn("Absence position does not match tracked position")

		r, err := c.index.DelSite(old, old.Pos())
		if err != nil {
			return removed || r, err
		}
		removed = removed || r
	}

	if !removed {
		c.logger.WithField("site", s.ID).Warnf("%s was tracked but not in the diagram", s)
	}
	return true, nil
}

// DelIrrelevantSites prunes every point that does not share a triangle with
// self and returns all the sites that occupied them. Co-located sites are
// removed together.
func (c *Controller) DelIrrelevantSites() ([]*site.Site, error) {
	removed, err := c.index.DelFarFromMainSite()
	for _, s := range removed {
		delete(c.tracked, s.ID)
	}
	if len(removed) > 0 {
		c.logger.WithField("removed", len(removed)).Debug("Pruned irrelevant sites")
	}
	return removed, err
}

// MoveLocal moves self to (x, y) and re-anchors the index on it.
func (c *Controller) MoveLocal(x, y int) error {
	return c.index.Move(c.self, geom.Pt(x, y))
}

// HasSite reports whether the remote site with the given id is tracked.
func (c *Controller) HasSite(id uint32) bool {
	_, ok := c.tracked[id]
	return ok
}

// NumSites returns the number of tracked remote sites.
func (c *Controller) NumSites() int {
	return len(c.tracked)
}

// Sites returns copies of the tracked remote sites sorted by id.
func (c *Controller) Sites() []*site.Site {
	res := make([]*site.Site, 0, len(c.tracked))
	for _, s := range c.tracked {
		res = append(res, s.Copy())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
