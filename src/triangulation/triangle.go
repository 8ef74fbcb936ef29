package triangulation

import (
	"fmt"

	"github.com/mosaicnetworks/voronoi/src/geom"
)

// TriangleID is the stable arena identifier of a triangle. Identifiers are
// never reused within a Triangulation.
type TriangleID int

// NoTriangle is the sentinel for "no such triangle".
const NoTriangle TriangleID = -1

// Triangle holds three distinct vertices in counter-clockwise order.
type Triangle struct {
	ID TriangleID
	V  [3]geom.Point
}

// Has reports whether p is a vertex of t.
func (t *Triangle) Has(p geom.Point) bool {
	return t.indexOf(p) >= 0
}

// Encroached reports whether p lies strictly inside the circumcircle of t.
func (t *Triangle) Encroached(p geom.Point) bool {
	return geom.InCircle(t.V[0], t.V[1], t.V[2], p) > 0
}

// SameVertices reports whether t and o have the same vertex set.
func (t *Triangle) SameVertices(o *Triangle) bool {
	for _, v := range o.V {
		if !t.Has(v) {
			return false
		}
	}
	return true
}

func (t *Triangle) indexOf(p geom.Point) int {
	for i, v := range t.V {
		if v == p {
			return i
		}
	}
	return -1
}

// outside returns the index i of the first edge (V[i], V[i+1]) that has p
// strictly on its right, or -1 if p lies inside t or on its boundary.
func (t *Triangle) outside(p geom.Point) int {
	for i := 0; i < 3; i++ {
		if geom.Orient(t.V[i], t.V[(i+1)%3], p) < 0 {
			return i
		}
	}
	return -1
}

func (t Triangle) String() string {
	return fmt.Sprintf("T%d[%s %s %s]", t.ID, t.V[0], t.V[1], t.V[2])
}

// edge is a directed facet. A counter-clockwise triangle owns its three edges
// in the direction of its vertex order, so the neighbour across edge{a, b} is
// the owner of edge{b, a}.
type edge struct {
	a geom.Point
	b geom.Point
}
