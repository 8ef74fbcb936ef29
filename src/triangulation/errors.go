package triangulation

import "fmt"

// InvariantErrType enumerates the structural failures of a Triangulation.
type InvariantErrType uint32

const (
	// NoContainingTriangle means locate found no triangle holding a point that
	// lies inside the bounding triangle.
	NoContainingTriangle InvariantErrType = iota
	// NoLegalEar means the ring around a deleted vertex could not be
	// retriangulated.
	NoLegalEar
	// OutOfBounds means a point does not lie strictly inside the bounding
	// triangle.
	OutOfBounds
	// UnknownVertex means an operation referred to a point that is not a
	// vertex of the triangulation.
	UnknownVertex
	// BoundingVertex means an operation attempted to remove one of the three
	// bounding vertices.
	BoundingVertex
	// BrokenRing means the triangles around a vertex do not close up.
	BrokenRing
)

// InvariantError is returned when an operation would leave, or found, the
// triangulation in an inconsistent state.
type InvariantError struct {
	errType InvariantErrType
	detail  string
}

// NewInvariantError ...
func NewInvariantError(errType InvariantErrType, detail string) InvariantError {
	return InvariantError{
		errType: errType,
		detail:  detail,
	}
}

// Type returns the kind of the error.
func (e InvariantError) Type() InvariantErrType {
	return e.errType
}

// Error implements the error interface.
func (e InvariantError) Error() string {
	m := ""
	switch e.errType {
	case NoContainingTriangle:
		m = "No Containing Triangle"
	case NoLegalEar:
		m = "No Legal Ear"
	case OutOfBounds:
		m = "Out Of Bounds"
	case UnknownVertex:
		m = "Unknown Vertex"
	case BoundingVertex:
		m = "Bounding Vertex"
	case BrokenRing:
		m = "Broken Ring"
	}
	return fmt.Sprintf("invariant violation, %s, %s", m, e.detail)
}

// Is checks that an error is an InvariantError of the given type.
func Is(err error, t InvariantErrType) bool {
	invErr, ok := err.(InvariantError)
	return ok && invErr.errType == t
}

// IsInvariant checks that an error is an InvariantError of any type.
func IsInvariant(err error) bool {
	_, ok := err.(InvariantError)
	return ok
}
