// Package site defines the distributed participants whose positions make up
// the diagram.
package site

import (
	"fmt"

	"github.com/mosaicnetworks/voronoi/src/geom"
)

// Site is a participant with an immutable identifier and a mutable position.
// Two sites are the same participant iff their ids are equal.
type Site struct {
	ID uint32
	X  int
	Y  int
}

// NewSite ...
func NewSite(id uint32, x, y int) *Site {
	return &Site{
		ID: id,
		X:  x,
		Y:  y,
	}
}

// Copy returns a snapshot of s that later moves of s do not affect.
func (s *Site) Copy() *Site {
	return &Site{
		ID: s.ID,
		X:  s.X,
		Y:  s.Y,
	}
}

// Pos returns the position of s as a Point.
func (s *Site) Pos() geom.Point {
	return geom.Pt(s.X, s.Y)
}

// SetPos moves s.
func (s *Site) SetPos(x, y int) {
	s.X = x
	s.Y = y
}

// Equals compares identities, not positions.
func (s *Site) Equals(o *Site) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.ID == o.ID
}

// SamePos reports whether s and o are at the same position.
func (s *Site) SamePos(o *Site) bool {
	return s.X == o.X && s.Y == o.Y
}

func (s *Site) String() string {
	return fmt.Sprintf("Site#%d", s.ID)
}
