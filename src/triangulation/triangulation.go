package triangulation

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/voronoi/src/geom"
)

// Triangulation is a Delaunay triangulation of a point set enclosed in a fixed
// bounding triangle. Triangles live in an arena keyed by TriangleID and
// adjacency is derived from the directed edge index, so neighbour relations
// never need to be patched by hand.
//
// A Triangulation is not safe for concurrent use.
type Triangulation struct {
	triangles map[TriangleID]*Triangle
	edges     map[edge]TriangleID
	// incident maps every vertex to one triangle that has it. It is also the
	// vertex set.
	incident map[geom.Point]TriangleID

	bounds     [3]geom.Point
	mostRecent TriangleID
	nextID     TriangleID
}

// BoundingTriangle returns the three vertices of the default bounding
// triangle, which contains every point within geom.MaxCoordinate.
func BoundingTriangle() [3]geom.Point {
	s := geom.MaxCoordinate
	return [3]geom.Point{geom.Pt(-s, -s), geom.Pt(s, -s), geom.Pt(0, s)}
}

// New returns a triangulation holding only the default bounding triangle.
func New() *Triangulation {
	b := BoundingTriangle()
	return NewWithBounds(b[0], b[1], b[2])
}

// NewWithBounds returns a triangulation holding only the bounding triangle
// a, b, c. The vertices may be given in either orientation but must not be
// collinear.
func NewWithBounds(a, b, c geom.Point) *Triangulation {
	dt := &Triangulation{
		triangles:  make(map[TriangleID]*Triangle),
		edges:      make(map[edge]TriangleID),
		incident:   make(map[geom.Point]TriangleID),
		mostRecent: NoTriangle,
	}
	id := dt.add(a, b, c)
	dt.bounds = dt.triangles[id].V
	dt.mostRecent = id
	return dt
}

/*******************************************************************************
Queries
*******************************************************************************/

// Bounds returns the bounding vertices in counter-clockwise order.
func (dt *Triangulation) Bounds() [3]geom.Point {
	return dt.bounds
}

// IsBounding reports whether p is one of the bounding vertices.
func (dt *Triangulation) IsBounding(p geom.Point) bool {
	return p == dt.bounds[0] || p == dt.bounds[1] || p == dt.bounds[2]
}

// HasVertex reports whether p is a vertex, bounding vertices included.
func (dt *Triangulation) HasVertex(p geom.Point) bool {
	_, ok := dt.incident[p]
	return ok
}

// NumTriangles returns the number of live triangles.
func (dt *Triangulation) NumTriangles() int {
	return len(dt.triangles)
}

// NumVertices returns the number of vertices, excluding the bounding ones.
func (dt *Triangulation) NumVertices() int {
	return len(dt.incident) - 3
}

// IsEmpty reports whether the triangulation is back to the single bounding
// triangle.
func (dt *Triangulation) IsEmpty() bool {
	if len(dt.triangles) != 1 {
		return false
	}
	bt := Triangle{V: dt.bounds}
	for _, t := range dt.triangles {
		return t.SameVertices(&bt)
	}
	return false
}

// Triangle returns a copy of the triangle with the given id.
func (dt *Triangulation) Triangle(id TriangleID) (Triangle, bool) {
	t, ok := dt.triangles[id]
	if !ok {
		return Triangle{}, false
	}
	return *t, true
}

// Triangles returns copies of all live triangles sorted by id.
func (dt *Triangulation) Triangles() []Triangle {
	res := make([]Triangle, 0, len(dt.triangles))
	for _, id := range dt.sortedIDs() {
		res = append(res, *dt.triangles[id])
	}
	return res
}

// Vertices returns all vertices except the bounding ones, sorted by x then y.
func (dt *Triangulation) Vertices() []geom.Point {
	res := make([]geom.Point, 0, len(dt.incident))
	for p := range dt.incident {
		if !dt.IsBounding(p) {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].X != res[j].X {
			return res[i].X < res[j].X
		}
		return res[i].Y < res[j].Y
	})
	return res
}

// Neighbor returns the triangle across edge (V[i], V[i+1]) of t, or
// NoTriangle on the hull.
func (dt *Triangulation) Neighbor(id TriangleID, i int) TriangleID {
	t, ok := dt.triangles[id]
	if !ok {
		return NoTriangle
	}
	return dt.neighbor(t, i)
}

// Contains reports whether p lies strictly inside the bounding triangle.
func (dt *Triangulation) Contains(p geom.Point) bool {
	b := dt.bounds
	return geom.Orient(b[0], b[1], p) > 0 &&
		geom.Orient(b[1], b[2], p) > 0 &&
		geom.Orient(b[2], b[0], p) > 0
}

/*******************************************************************************
Locate
*******************************************************************************/

// Locate returns a triangle containing p. A point on a shared edge is
// contained by both triangles and either may be returned. The search walks
// from the most recently created triangle and falls back to a full scan.
func (dt *Triangulation) Locate(p geom.Point) (TriangleID, error) {
	visited := make(map[TriangleID]bool)
	id := dt.mostRecent
	for id != NoTriangle && !visited[id] {
		t, ok := dt.triangles[id]
		if !ok {
			break
		}
		visited[id] = true
		side := t.outside(p)
		if side < 0 {
			return id, nil
		}
		id = dt.neighbor(t, side)
	}

	for _, id := range dt.sortedIDs() {
		if dt.triangles[id].outside(p) < 0 {
			return id, nil
		}
	}

	return NoTriangle, NewInvariantError(NoContainingTriangle, p.String())
}

// LocateTriangleOf returns the triangle incident to anchor whose
// circumcircle strictly contains candidate, or NoTriangle if there is none.
// A NoTriangle result means inserting candidate would leave the star of
// anchor unchanged.
func (dt *Triangulation) LocateTriangleOf(anchor, candidate geom.Point) (TriangleID, error) {
	ring, err := dt.ring(anchor)
	if err != nil {
		return NoTriangle, err
	}
	for _, r := range ring {
		if dt.triangles[r.tri].Encroached(candidate) {
			return r.tri, nil
		}
	}
	return NoTriangle, nil
}

// Surrounding returns the triangles incident to p and the ring of vertices
// opposite p, both in counter-clockwise order.
func (dt *Triangulation) Surrounding(p geom.Point) ([]Triangle, []geom.Point, error) {
	ring, err := dt.ring(p)
	if err != nil {
		return nil, nil, err
	}
	tris := make([]Triangle, len(ring))
	verts := make([]geom.Point, len(ring))
	for i, r := range ring {
		tris[i] = *dt.triangles[r.tri]
		verts[i] = r.v
	}
	return tris, verts, nil
}

/*******************************************************************************
Insert
*******************************************************************************/

// Insert adds p to the triangulation. It returns false if p is already a
// vertex and an OutOfBounds error if p is not strictly inside the bounding
// triangle.
func (dt *Triangulation) Insert(p geom.Point) (bool, error) {
	return dt.InsertFrom(p, NoTriangle)
}

// InsertFrom behaves like Insert but starts the cavity search from hint when
// its circumcircle contains p, skipping the locate walk.
func (dt *Triangulation) InsertFrom(p geom.Point, hint TriangleID) (bool, error) {
	if !dt.Contains(p) {
		return false, NewInvariantError(OutOfBounds, p.String())
	}
	if dt.HasVertex(p) {
		return false, nil
	}

	var start TriangleID
	if t, ok := dt.triangles[hint]; ok && t.Encroached(p) {
		start = hint
	} else {
		id, err := dt.Locate(p)
		if err != nil {
			return false, err
		}
		start = id
	}

	cavity := dt.cavity(p, start)

	var boundary []edge
	for _, id := range cavity.order {
		t := dt.triangles[id]
		for i := 0; i < 3; i++ {
			n := dt.neighbor(t, i)
			if n == NoTriangle || !cavity.members[n] {
				boundary = append(boundary, edge{t.V[i], t.V[(i+1)%3]})
			}
		}
	}

	for _, id := range cavity.order {
		dt.remove(id)
	}
	for _, e := range boundary {
		dt.mostRecent = dt.add(e.a, e.b, p)
	}

	return true, nil
}

type cavity struct {
	order   []TriangleID
	members map[TriangleID]bool
}

// cavity collects, breadth first from start, the connected set of triangles
// whose circumcircle strictly contains p.
func (dt *Triangulation) cavity(p geom.Point, start TriangleID) cavity {
	c := cavity{members: make(map[TriangleID]bool)}
	marked := map[TriangleID]bool{start: true}
	queue := []TriangleID{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		t := dt.triangles[id]
		if !t.Encroached(p) {
			continue
		}
		c.order = append(c.order, id)
		c.members[id] = true

		for i := 0; i < 3; i++ {
			n := dt.neighbor(t, i)
			if n != NoTriangle && !marked[n] {
				marked[n] = true
				queue = append(queue, n)
			}
		}
	}

	return c
}

/*******************************************************************************
Delete
*******************************************************************************/

// Delete removes vertex p and retriangulates the hole it leaves. It returns
// false if p is not a vertex. Bounding vertices cannot be removed. The new
// triangles are computed before anything is modified, so a NoLegalEar error
// leaves the triangulation untouched.
func (dt *Triangulation) Delete(p geom.Point) (bool, error) {
	if dt.IsBounding(p) {
		return false, NewInvariantError(BoundingVertex, p.String())
	}
	if !dt.HasVertex(p) {
		return false, nil
	}

	ring, err := dt.ring(p)
	if err != nil {
		return false, err
	}

	verts := make([]geom.Point, len(ring))
	for i, r := range ring {
		verts[i] = r.v
	}

	ears, err := clipEars(p, verts)
	if err != nil {
		return false, err
	}

	for _, r := range ring {
		dt.remove(r.tri)
	}
	delete(dt.incident, p)
	for _, e := range ears {
		dt.mostRecent = dt.add(e[0], e[1], e[2])
	}

	return true, nil
}

// clipEars triangulates the star-shaped polygon ring (counter-clockwise,
// visible from p) left by removing p. Each step takes the first legal ear
// scanning from the position of the previous one. The strict rule requires
// the ear to be convex, to keep p on the remaining side of its diagonal, and
// to have no ring vertex strictly inside its circumcircle. If no ear passes,
// the rule is relaxed to convexity and an empty circumcircle.
func clipEars(p geom.Point, ring []geom.Point) ([][3]geom.Point, error) {
	if len(ring) < 3 {
		return nil, NewInvariantError(BrokenRing, fmt.Sprintf("%s has %d neighbours", p, len(ring)))
	}

	poly := make([]geom.Point, len(ring))
	copy(poly, ring)

	var ears [][3]geom.Point
	pos := 0
	for len(poly) > 3 {
		k, ok := findEar(p, poly, ring, pos, true)
		if !ok {
			k, ok = findEar(p, poly, ring, pos, false)
		}
		if !ok {
			return nil, NewInvariantError(NoLegalEar, fmt.Sprintf("%s, ring %v", p, poly))
		}

		n := len(poly)
		tip := (k + 1) % n
		ears = append(ears, [3]geom.Point{poly[k], poly[tip], poly[(k+2)%n]})

		poly = append(poly[:tip], poly[tip+1:]...)
		pos = k
		if tip < k {
			pos--
		}
	}

	ears = append(ears, [3]geom.Point{poly[0], poly[1], poly[2]})
	return ears, nil
}

func findEar(p geom.Point, poly, ring []geom.Point, from int, strict bool) (int, bool) {
	n := len(poly)
	for s := 0; s < n; s++ {
		k := (from + s) % n
		if isEar(p, poly[k], poly[(k+1)%n], poly[(k+2)%n], ring, strict) {
			return k, true
		}
	}
	return 0, false
}

func isEar(p, v0, v1, v2 geom.Point, ring []geom.Point, strict bool) bool {
	if geom.Orient(v0, v1, v2) <= 0 {
		return false
	}

	if strict {
		side := geom.Orient(v0, v2, p)
		if side < 0 {
			return false
		}
		if side == 0 && !geom.OnSegment(v0, v2, p) {
			return false
		}
	}

	for _, q := range ring {
		if q == v0 || q == v1 || q == v2 {
			continue
		}
		if geom.InCircle(v0, v1, v2, q) > 0 {
			return false
		}
	}
	return true
}

/*******************************************************************************
Relevance pruning
*******************************************************************************/

// RemoveFarFrom deletes every vertex that is neither anchor, a bounding
// vertex, nor a neighbour of anchor, and returns them in removal order. The
// star of anchor is the same before and after.
func (dt *Triangulation) RemoveFarFrom(anchor geom.Point) ([]geom.Point, error) {
	ring, err := dt.ring(anchor)
	if err != nil {
		return nil, err
	}

	relTris := make(map[TriangleID]bool, len(ring))
	relPts := map[geom.Point]bool{anchor: true}
	for _, b := range dt.bounds {
		relPts[b] = true
	}
	for _, r := range ring {
		relTris[r.tri] = true
		relPts[r.v] = true
	}

	var far []geom.Point
	seen := make(map[geom.Point]bool)
	for _, id := range dt.sortedIDs() {
		if relTris[id] {
			continue
		}
		for _, v := range dt.triangles[id].V {
			if !relPts[v] && !seen[v] {
				seen[v] = true
				far = append(far, v)
			}
		}
	}

	removed := make([]geom.Point, 0, len(far))
	for _, v := range far {
		if _, err := dt.Delete(v); err != nil {
			return removed, err
		}
		removed = append(removed, v)
	}
	return removed, nil
}

/*******************************************************************************
Consistency checks
*******************************************************************************/

// Validate checks the structural invariants: counter-clockwise triangles,
// consistent edge ownership and incidence hints, and the triangle count of a
// triangulated triangle with n interior points.
func (dt *Triangulation) Validate() error {
	for id, t := range dt.triangles {
		if geom.Orient(t.V[0], t.V[1], t.V[2]) <= 0 {
			return NewInvariantError(BrokenRing, fmt.Sprintf("%s is not counter-clockwise", t))
		}
		for i := 0; i < 3; i++ {
			e := edge{t.V[i], t.V[(i+1)%3]}
			if owner, ok := dt.edges[e]; !ok || owner != id {
				return NewInvariantError(BrokenRing, fmt.Sprintf("edge %s-%s of %s is not owned", e.a, e.b, t))
			}
			if _, ok := dt.incident[t.V[i]]; !ok {
				return NewInvariantError(UnknownVertex, fmt.Sprintf("%s of %s", t.V[i], t))
			}
		}
	}

	for e, id := range dt.edges {
		t, ok := dt.triangles[id]
		if !ok {
			return NewInvariantError(BrokenRing, fmt.Sprintf("edge %s-%s has a dead owner", e.a, e.b))
		}
		i := t.indexOf(e.a)
		if i < 0 || t.V[(i+1)%3] != e.b {
			return NewInvariantError(BrokenRing, fmt.Sprintf("edge %s-%s is not in %s", e.a, e.b, t))
		}
		hull := dt.IsBounding(e.a) && dt.IsBounding(e.b)
		if _, ok := dt.edges[edge{e.b, e.a}]; !ok && !hull {
			return NewInvariantError(BrokenRing, fmt.Sprintf("edge %s-%s has no twin", e.a, e.b))
		}
	}

	for p, id := range dt.incident {
		t, ok := dt.triangles[id]
		if !ok || !t.Has(p) {
			return NewInvariantError(UnknownVertex, fmt.Sprintf("stale incidence hint for %s", p))
		}
	}

	if want := 2*dt.NumVertices() + 1; len(dt.triangles) != want {
		return NewInvariantError(BrokenRing, fmt.Sprintf("%d triangles, want %d", len(dt.triangles), want))
	}

	return nil
}

// CheckDelaunay verifies that no vertex lies strictly inside the
// circumcircle of any triangle.
func (dt *Triangulation) CheckDelaunay() error {
	for _, id := range dt.sortedIDs() {
		t := dt.triangles[id]
		for p := range dt.incident {
			if !t.Has(p) && t.Encroached(p) {
				return NewInvariantError(BrokenRing, fmt.Sprintf("%s encroaches %s", p, t))
			}
		}
	}
	return nil
}

/*******************************************************************************
Arena
*******************************************************************************/

// add registers the triangle a, b, c, reordering it counter-clockwise, and
// claims its three directed edges.
func (dt *Triangulation) add(a, b, c geom.Point) TriangleID {
	if geom.Orient(a, b, c) < 0 {
		b, c = c, b
	}

	id := dt.nextID
	dt.nextID++

	t := &Triangle{ID: id, V: [3]geom.Point{a, b, c}}
	dt.triangles[id] = t
	for i := 0; i < 3; i++ {
		dt.edges[edge{t.V[i], t.V[(i+1)%3]}] = id
		dt.incident[t.V[i]] = id
	}
	return id
}

// remove drops a triangle and the edges it still owns. Incidence hints are
// left for the caller to overwrite.
func (dt *Triangulation) remove(id TriangleID) {
	t, ok := dt.triangles[id]
	if !ok {
		return
	}
	delete(dt.triangles, id)
	for i := 0; i < 3; i++ {
		e := edge{t.V[i], t.V[(i+1)%3]}
		if dt.edges[e] == id {
			delete(dt.edges, e)
		}
	}
}

func (dt *Triangulation) neighbor(t *Triangle, i int) TriangleID {
	if n, ok := dt.edges[edge{t.V[(i+1)%3], t.V[i]}]; ok {
		return n
	}
	return NoTriangle
}

type ringEntry struct {
	tri TriangleID
	// v follows the centre vertex in tri.
	v geom.Point
}

// ring walks the star of p counter-clockwise. In triangle (p, u, w) the next
// triangle is the owner of the directed edge p-w.
func (dt *Triangulation) ring(p geom.Point) ([]ringEntry, error) {
	first, ok := dt.incident[p]
	if !ok {
		return nil, NewInvariantError(UnknownVertex, p.String())
	}

	var res []ringEntry
	id := first
	for {
		t, ok := dt.triangles[id]
		if !ok {
			return nil, NewInvariantError(BrokenRing, fmt.Sprintf("dead triangle around %s", p))
		}
		k := t.indexOf(p)
		if k < 0 {
			return nil, NewInvariantError(BrokenRing, fmt.Sprintf("%s is not in %s", p, t))
		}
		res = append(res, ringEntry{tri: id, v: t.V[(k+1)%3]})

		next, ok := dt.edges[edge{p, t.V[(k+2)%3]}]
		if !ok {
			return nil, NewInvariantError(BrokenRing, fmt.Sprintf("%s is on the hull", p))
		}
		if next == first {
			break
		}
		if len(res) > len(dt.triangles) {
			return nil, NewInvariantError(BrokenRing, fmt.Sprintf("star of %s does not close", p))
		}
		id = next
	}

	return res, nil
}

func (dt *Triangulation) sortedIDs() []TriangleID {
	ids := make([]TriangleID, 0, len(dt.triangles))
	for id := range dt.triangles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
