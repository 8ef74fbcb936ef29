package simulation

import (
	"sync"

	"github.com/mosaicnetworks/voronoi/src/topology"
)

// MobileFeed is a position that can be changed from outside the node loop.
// Positions are clamped to the canvas.
type MobileFeed struct {
	sync.Mutex
	x, y int
}

// NewMobileFeed returns a feed starting at (x, y).
func NewMobileFeed(x, y int) *MobileFeed {
	f := &MobileFeed{}
	f.Move(x, y)
	return f
}

// Position implements node.PositionFeed.
func (f *MobileFeed) Position() (int, int) {
	f.Lock()
	defer f.Unlock()
	return f.x, f.y
}

// Move sets the position the node will pick up on its next iteration.
func (f *MobileFeed) Move(x, y int) {
	f.Lock()
	defer f.Unlock()
	f.x = clamp(x, 0, topology.CanvasWidth)
	f.y = clamp(y, 0, topology.CanvasHeight)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
