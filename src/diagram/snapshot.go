package diagram

import (
	"github.com/mosaicnetworks/voronoi/src/geom"
	"github.com/mosaicnetworks/voronoi/src/triangulation"
)

// Occupancy lists the sites sharing one point.
type Occupancy struct {
	Point geom.Point
	Sites []uint32
}

// Snapshot is a consistent, detached copy of an Index.
type Snapshot struct {
	Main      geom.Point
	Triangles []triangulation.Triangle
	Points    []Occupancy
}
