package diagram

import (
	"math"
	"slices"
)

// Geometry describes the size of node boxes and the grab radius of anchors.
// All nodes share one box size; the core only stores positions.
type Geometry struct {
	NodeWidth    float64
	NodeHeight   float64
	AnchorRadius float64
}

// DefaultGeometry returns the box size used when none is configured.
func DefaultGeometry() Geometry {
	return Geometry{NodeWidth: 160, NodeHeight: 60, AnchorRadius: 8}
}

// Center returns the centre point of a node's box.
func (g Geometry) Center(n Node) (float64, float64) {
	return n.X + g.NodeWidth/2, n.Y + g.NodeHeight/2
}

// AnchorPoint returns the diagram coordinates of an anchor on a node's box.
// Corner positions sit on the box corners, the others on edge midpoints.
func (g Geometry) AnchorPoint(n Node, c Compass) (float64, float64) {
	w, h := g.NodeWidth, g.NodeHeight
	switch c {
	case N:
		return n.X + w/2, n.Y
	case NE:
		return n.X + w, n.Y
	case E:
		return n.X + w, n.Y + h/2
	case SE:
		return n.X + w, n.Y + h
	case S:
		return n.X + w/2, n.Y + h
	case SW:
		return n.X, n.Y + h
	case W:
		return n.X, n.Y + h/2
	default:
		return n.X, n.Y
	}
}

// Contains reports whether the point lies inside the node's box.
func (g Geometry) Contains(n Node, px, py float64) bool {
	return px >= n.X && px <= n.X+g.NodeWidth && py >= n.Y && py <= n.Y+g.NodeHeight
}

// compassAngles are the screen-space directions (y grows downward) of each
// position, in degrees.
var compassAngles = [AnchorCount]float64{
	N: -90, NE: -45, E: 0, SE: 45, S: 90, SW: 135, W: 180, NW: -135,
}

// RankAnchors orders the eight positions of from by how directly they face
// to. The first element is the nearest side; ties keep canonical order.
// Coincident nodes rank E first.
func (g Geometry) RankAnchors(from, to Node) []Compass {
	fx, fy := g.Center(from)
	tx, ty := g.Center(to)
	angle := math.Atan2(ty-fy, tx-fx) * 180 / math.Pi

	ranked := Compasses()
	slices.SortStableFunc(ranked, func(a, b Compass) int {
		da, db := angleDiff(angle, compassAngles[a]), angleDiff(angle, compassAngles[b])
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	return ranked
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
