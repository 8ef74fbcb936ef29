// Package geom defines the integer points stored in a triangulation and the
// exact orientation and in-circle predicates computed on them.
package geom
