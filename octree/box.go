package octree

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Box is an axis aligned box. Boxes with no extent on x or y are empty: they intersect and contain
// nothing. Spatial queries are horizontal, so a box built with NewBox2D leaves z unbounded.
type Box struct {
	Min r3.Vector
	Max r3.Vector
}

// NewBox returns the box spanning the given minimum and maximum corners.
func NewBox(xmin, ymin, zmin, xmax, ymax, zmax float64) (Box, error) {
	if xmin > xmax || ymin > ymax || zmin > zmax {
		return Box{}, errors.Errorf("invalid box: minimum (%g, %g, %g) exceeds maximum (%g, %g, %g)",
			xmin, ymin, zmin, xmax, ymax, zmax)
	}
	return Box{
		Min: r3.Vector{X: xmin, Y: ymin, Z: zmin},
		Max: r3.Vector{X: xmax, Y: ymax, Z: zmax},
	}, nil
}

// NewBox2D returns a horizontal box; its z range is unbounded.
func NewBox2D(xmin, ymin, xmax, ymax float64) (Box, error) {
	return NewBox(xmin, ymin, -math.MaxFloat64, xmax, ymax, math.MaxFloat64)
}

// ZeroBox returns the box with all extents zero. It contains and intersects nothing.
func ZeroBox() Box {
	return Box{}
}

// MaxBox returns the box spanning all representable coordinates. It contains every non empty box.
func MaxBox() Box {
	return Box{
		Min: r3.Vector{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
		Max: r3.Vector{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
	}
}

// IsEmpty returns whether the box has no horizontal area.
func (b Box) IsEmpty() bool {
	return !(b.Max.X > b.Min.X) || !(b.Max.Y > b.Min.Y)
}

// Intersects returns whether the boxes overlap. Boxes that only touch on a face, edge or corner
// intersect.
func (b Box) Intersects(other Box) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return b.Max.X >= other.Min.X && b.Min.X <= other.Max.X &&
		b.Max.Y >= other.Min.Y && b.Min.Y <= other.Max.Y &&
		b.Max.Z >= other.Min.Z && b.Min.Z <= other.Max.Z
}

// Contains returns whether other lies completely inside b, boundaries included.
func (b Box) Contains(other Box) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return b.Min.X <= other.Min.X && other.Max.X <= b.Max.X &&
		b.Min.Y <= other.Min.Y && other.Max.Y <= b.Max.Y &&
		b.Min.Z <= other.Min.Z && other.Max.Z <= b.Max.Z
}

// ContainsPoint returns whether p lies inside b, boundaries included.
func (b Box) ContainsPoint(p r3.Vector) bool {
	if b.IsEmpty() {
		return false
	}
	return b.Min.X <= p.X && p.X <= b.Max.X &&
		b.Min.Y <= p.Y && p.Y <= b.Max.Y &&
		b.Min.Z <= p.Z && p.Z <= b.Max.Z
}

// Within returns whether b lies completely inside other.
func (b Box) Within(other Box) bool {
	return other.Contains(b)
}

// Crosses returns whether b intersects other without lying inside it.
func (b Box) Crosses(other Box) bool {
	return b.Intersects(other) && !b.Within(other)
}

// Center returns the center of the box.
func (b Box) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// String returns a human readable representation of the box.
func (b Box) String() string {
	return fmt.Sprintf("Box | Min: X:%.4f, Y:%.4f, Z:%.4f | Max: X:%.4f, Y:%.4f, Z:%.4f",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
