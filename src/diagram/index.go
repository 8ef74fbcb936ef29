package diagram

import (
	"sort"
	"sync"

	"github.com/mosaicnetworks/voronoi/src/geom"
	"github.com/mosaicnetworks/voronoi/src/site"
	"github.com/mosaicnetworks/voronoi/src/triangulation"
	"github.com/sirupsen/logrus"
)

// Index binds sites to the points of a triangulation. Several sites may
// occupy the same point; the point is a vertex iff it has at least one
// occupant. All public methods hold the lock for their whole duration so that
// concurrent observers never see a half-updated triangulation.
type Index struct {
	sync.Mutex

	dt        *triangulation.Triangulation
	occupants map[geom.Point]map[uint32]*site.Site

	main    geom.Point
	hasMain bool

	logger *logrus.Entry
}

// NewIndex returns an Index over an empty triangulation.
func NewIndex(logger *logrus.Entry) *Index {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	return &Index{
		dt:        triangulation.New(),
		occupants: make(map[geom.Point]map[uint32]*site.Site),
		logger:    logger,
	}
}

// SetMainSite sets the anchor used for relevance queries.
func (i *Index) SetMainSite(p geom.Point) {
	i.Lock()
	defer i.Unlock()
	i.main = p
	i.hasMain = true
}

// MainSite returns the anchor point.
func (i *Index) MainSite() (geom.Point, bool) {
	i.Lock()
	defer i.Unlock()
	return i.main, i.hasMain
}

// AddSite places s at its position. Only the first occupant of a point
// inserts it into the triangulation. It returns true once s occupies the
// point.
func (i *Index) AddSite(s *site.Site) (bool, error) {
	i.Lock()
	defer i.Unlock()
	return i.addSite(s, false)
}

// AddRelevantSite behaves like AddSite but refuses, without changing
// anything, a site whose insertion would not alter the triangles around the
// main site. That includes any site on an already-occupied point.
func (i *Index) AddRelevantSite(s *site.Site) (bool, error) {
	i.Lock()
	defer i.Unlock()
	return i.addSite(s, true)
}

func (i *Index) addSite(s *site.Site, relevantOnly bool) (bool, error) {
	p := s.Pos()

	// An existing vertex never lies strictly inside a circumcircle, so in
	// relevant-only mode a co-located site is refused here too.
	hint := triangulation.NoTriangle
	if relevantOnly && i.hasMain {
		id, err := i.dt.LocateTriangleOf(i.main, p)
		if err != nil {
			return false, err
		}
		if id == triangulation.NoTriangle {
			i.logger.WithField("site", s.ID).Debugf("%s at %s is irrelevant", s, p)
			return false, nil
		}
		hint = id
	}

	if occ, ok := i.occupants[p]; ok {
		occ[s.ID] = s.Copy()
		return true, nil
	}

	if _, err := i.dt.InsertFrom(p, hint); err != nil {
		return false, err
	}
	i.occupants[p] = map[uint32]*site.Site{s.ID: s.Copy()}
	return true, nil
}

// DelSite removes the occupancy of s at p. The point leaves the
// triangulation with its last occupant. It returns false if s did not occupy
// p.
func (i *Index) DelSite(s *site.Site, p geom.Point) (bool, error) {
	i.Lock()
	defer i.Unlock()
	return i.delSite(s.ID, p)
}

func (i *Index) delSite(id uint32, p geom.Point) (bool, error) {
	occ, ok := i.occupants[p]
	if !ok {
		return false, nil
	}
	if _, ok := occ[id]; !ok {
		return false, nil
	}

	delete(occ, id)
	if len(occ) > 0 {
		return true, nil
	}

	delete(i.occupants, p)
	if _, err := i.dt.Delete(p); err != nil {
		return true, err
	}
	return true, nil
}

// Move relocates the main site s to to and re-anchors relevance queries on
// its new position. The old point is removed and the new one inserted under
// a single acquisition of the lock.
func (i *Index) Move(s *site.Site, to geom.Point) error {
	i.Lock()
	defer i.Unlock()

	if _, err := i.delSite(s.ID, s.Pos()); err != nil {
		return err
	}
	s.SetPos(to.X, to.Y)
	if _, err := i.addSite(s, false); err != nil {
		return err
	}
	i.main = to
	i.hasMain = true
	return nil
}

// DelFarFromMainSite removes every point that does not share a triangle with
// the main site and returns all the sites that occupied them, sorted by id.
func (i *Index) DelFarFromMainSite() ([]*site.Site, error) {
	i.Lock()
	defer i.Unlock()

	if !i.hasMain {
		return nil, nil
	}

	points, err := i.dt.RemoveFarFrom(i.main)

	var removed []*site.Site
	for _, p := range points {
		for _, s := range i.occupants[p] {
			removed = append(removed, s)
		}
		delete(i.occupants, p)
	}
	sort.Slice(removed, func(a, b int) bool { return removed[a].ID < removed[b].ID })

	return removed, err
}

// NumSites returns the number of occupancies, the main site included.
func (i *Index) NumSites() int {
	i.Lock()
	defer i.Unlock()
	n := 0
	for _, occ := range i.occupants {
		n += len(occ)
	}
	return n
}

// NumPoints returns the number of occupied points.
func (i *Index) NumPoints() int {
	i.Lock()
	defer i.Unlock()
	return len(i.occupants)
}

// Occupants returns the ids of the sites at p, sorted.
func (i *Index) Occupants(p geom.Point) []uint32 {
	i.Lock()
	defer i.Unlock()
	return sortedIDs(i.occupants[p])
}

// Triangles returns a copy of every live triangle.
func (i *Index) Triangles() []triangulation.Triangle {
	i.Lock()
	defer i.Unlock()
	return i.dt.Triangles()
}

// Neighbours returns the points sharing a triangle with the main site in
// counter-clockwise order, bounding vertices included.
func (i *Index) Neighbours() ([]geom.Point, error) {
	i.Lock()
	defer i.Unlock()
	if !i.hasMain {
		return nil, nil
	}
	_, ring, err := i.dt.Surrounding(i.main)
	return ring, err
}

// Check runs the structural and Delaunay checks of the triangulation.
func (i *Index) Check() error {
	i.Lock()
	defer i.Unlock()
	if err := i.dt.Validate(); err != nil {
		return err
	}
	return i.dt.CheckDelaunay()
}

// Snapshot returns a consistent copy of the index.
func (i *Index) Snapshot() Snapshot {
	i.Lock()
	defer i.Unlock()

	snap := Snapshot{
		Main:      i.main,
		Triangles: i.dt.Triangles(),
	}
	for _, p := range i.dt.Vertices() {
		snap.Points = append(snap.Points, Occupancy{
			Point: p,
			Sites: sortedIDs(i.occupants[p]),
		})
	}
	return snap
}

func sortedIDs(occ map[uint32]*site.Site) []uint32 {
	ids := make([]uint32, 0, len(occ))
	for id := range occ {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}
