package geom

import "fmt"

// MaxCoordinate bounds the absolute value of any coordinate handed to the
// predicates. Within this bound every determinant below fits in an int64, so
// the predicates are exact.
const MaxCoordinate = 10000

// Point is an immutable position on the integer plane.
type Point struct {
	X int
	Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// InRange reports whether both coordinates are within MaxCoordinate.
func (p Point) InRange() bool {
	return abs(p.X) <= MaxCoordinate && abs(p.Y) <= MaxCoordinate
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
