// Package topology describes which sites exist, where they start, and which
// pairs of them are linked by a bidirectional channel.
package topology

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/mosaicnetworks/voronoi/src/geom"
)

const (
	// CanvasWidth and CanvasHeight bound the positions of generated sites.
	CanvasWidth  = 600
	CanvasHeight = 400
	// NodeRadius keeps generated sites away from the canvas border.
	NodeRadius = 10
)

// Site is the starting point of one site.
type Site struct {
	ID uint32 `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

// Link is an undirected channel between two sites.
type Link struct {
	A uint32 `json:"a"`
	B uint32 `json:"b"`
}

// Topology is a set of sites and the links between them. Links are
// connected in order, so the channel indices of a site follow the order of
// the links it appears in.
type Topology struct {
	Name  string `json:"name"`
	Sites []Site `json:"sites"`
	Links []Link `json:"links"`
}

// builder assigns ids in creation order.
type builder struct {
	t *Topology
}

func newBuilder(name string) *builder {
	return &builder{t: &Topology{Name: name}}
}

func (b *builder) site(x, y int) uint32 {
	id := uint32(len(b.t.Sites))
	b.t.Sites = append(b.t.Sites, Site{ID: id, X: x, Y: y})
	return id
}

func (b *builder) edge(a, c uint32) {
	b.t.Links = append(b.t.Links, Link{A: a, B: c})
}

// Grid places n*n sites sep apart and links every site to its right and
// lower neighbours.
func Grid(n, sep int) *Topology {
	b := newBuilder("grid")
	ids := make([][]uint32, n)
	for i := 0; i < n; i++ {
		ids[i] = make([]uint32, n)
		for j := 0; j < n; j++ {
			ids[i][j] = b.site(sep*(i+1), sep*(j+1))
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i > 0 {
				b.edge(ids[i-1][j], ids[i][j])
			}
			if j > 0 {
				b.edge(ids[i][j-1], ids[i][j])
			}
		}
	}
	return b.t
}

// Basic is a triangle of three sites with a two-site tail.
func Basic() *Topology {
	b := newBuilder("basic")
	n0 := b.site(100, 100)
	n1 := b.site(150, 200)
	n2 := b.site(300, 150)
	n3 := b.site(250, 200)
	n4 := b.site(250, 300)
	b.edge(n0, n1)
	b.edge(n1, n2)
	b.edge(n2, n0)
	b.edge(n3, n2)
	b.edge(n3, n4)
	return b.t
}

// Linear is a path of four vertically aligned sites.
func Linear() *Topology {
	b := newBuilder("linear")
	n0 := b.site(150, 100)
	n1 := b.site(150, 150)
	n2 := b.site(150, 200)
	n3 := b.site(150, 250)
	b.edge(n0, n1)
	b.edge(n1, n2)
	b.edge(n2, n3)
	return b.t
}

// Geometric is a star of sixteen sites around a central one, arranged in
// rings so that many of them are irrelevant to each other.
func Geometric() *Topology {
	b := newBuilder("geometric")
	n0 := b.site(100, 100)
	for _, p := range [][2]int{
		{50, 75}, {75, 50}, {125, 50}, {150, 75},
		{150, 125}, {125, 150}, {75, 150}, {50, 125},
		{10, 100}, {190, 100}, {100, 10}, {100, 190},
		{30, 30}, {170, 170}, {170, 30}, {30, 170},
	} {
		b.edge(n0, b.site(p[0], p[1]))
	}
	return b.t
}

// Random is a star of n sites at random positions on a w*h canvas, all
// linked to the first one.
func Random(n, w, h int, rng *rand.Rand) *Topology {
	b := newBuilder("random")
	w -= 2 * NodeRadius
	h -= 2 * NodeRadius
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	pos := func() (int, int) {
		return rng.Intn(w) + NodeRadius, rng.Intn(h) + NodeRadius
	}

	if n <= 0 {
		return b.t
	}
	n0 := b.site(pos())
	for i := 1; i < n; i++ {
		b.edge(n0, b.site(pos()))
	}
	return b.t
}

// Names lists the built-in topologies.
var Names = []string{"grid", "basic", "linear", "geometric", "random"}

// ByName returns a built-in topology. nodes is only used by random.
func ByName(name string, nodes int, rng *rand.Rand) (*Topology, error) {
	switch strings.ToLower(name) {
	case "grid":
		return Grid(5, 50), nil
	case "basic":
		return Basic(), nil
	case "linear":
		return Linear(), nil
	case "geometric":
		return Geometric(), nil
	case "random":
		return Random(nodes, CanvasWidth, CanvasHeight, rng), nil
	default:
		return nil, fmt.Errorf("unknown topology %q, expected one of %s", name, strings.Join(Names, ", "))
	}
}

// Validate checks that ids are unique, positions usable and links refer to
// distinct known sites.
func (t *Topology) Validate() error {
	ids := make(map[uint32]bool, len(t.Sites))
	for _, s := range t.Sites {
		if ids[s.ID] {
			return fmt.Errorf("duplicate site id %d", s.ID)
		}
		ids[s.ID] = true
		if !geom.Pt(s.X, s.Y).InRange() {
			return fmt.Errorf("site %d at (%d,%d) is out of range", s.ID, s.X, s.Y)
		}
	}

	seen := make(map[Link]bool, len(t.Links))
	for _, l := range t.Links {
		if !ids[l.A] || !ids[l.B] {
			return fmt.Errorf("link %d-%d refers to an unknown site", l.A, l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("site %d is linked to itself", l.A)
		}
		if seen[l] || seen[Link{A: l.B, B: l.A}] {
			return fmt.Errorf("duplicate link %d-%d", l.A, l.B)
		}
		seen[l] = true
	}
	return nil
}

// Neighbours returns, for every site, the ids of its neighbours in channel
// order.
func (t *Topology) Neighbours() map[uint32][]uint32 {
	res := make(map[uint32][]uint32, len(t.Sites))
	for _, l := range t.Links {
		res[l.A] = append(res[l.A], l.B)
		res[l.B] = append(res[l.B], l.A)
	}
	return res
}
