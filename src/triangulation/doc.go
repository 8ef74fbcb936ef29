// Package triangulation maintains an incremental Delaunay triangulation of
// integer points inside a fixed bounding triangle.
//
// Points are inserted with the Bowyer-Watson cavity method and deleted by
// clipping ears from the ring of neighbours the deleted point leaves behind.
// All predicates are exact, so cocircular and collinear inputs never produce
// an inconsistent structure. RemoveFarFrom prunes every vertex that does not
// share a triangle with an anchor point, which is what a site needs to know
// about to compute its own Voronoi cell.
package triangulation
