package geom

// Orient returns a positive value if a, b, c make a counter-clockwise turn, a
// negative value if they make a clockwise turn and zero if they are collinear.
func Orient(a, b, c Point) int64 {
	abx := int64(b.X - a.X)
	aby := int64(b.Y - a.Y)
	acx := int64(c.X - a.X)
	acy := int64(c.Y - a.Y)
	return abx*acy - aby*acx
}

// InCircle returns a positive value if d lies strictly inside the circle
// through a, b, c, zero if the four points are cocircular and a negative value
// if d lies outside. The sign is flipped when a, b, c are clockwise, so callers
// pass counter-clockwise triples.
func InCircle(a, b, c, d Point) int64 {
	adx := int64(a.X - d.X)
	ady := int64(a.Y - d.Y)
	bdx := int64(b.X - d.X)
	bdy := int64(b.Y - d.Y)
	cdx := int64(c.X - d.X)
	cdy := int64(c.Y - d.Y)

	alift := adx*adx + ady*ady
	blift := bdx*bdx + bdy*bdy
	clift := cdx*cdx + cdy*cdy

	return alift*(bdx*cdy-cdx*bdy) +
		blift*(cdx*ady-adx*cdy) +
		clift*(adx*bdy-bdx*ady)
}

// OnSegment reports whether p lies on the closed segment a-b. It assumes p is
// already known to be collinear with a and b.
func OnSegment(a, b, p Point) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
