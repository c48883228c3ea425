package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/copc/octree"
)

// MetaData is data about what's stored in a list of points.
type MetaData struct {
	HasColor bool
	Count    int

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns metadata with no points.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the bounds with a point at v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.Count++
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}

	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
}

// Bounds returns the box spanning every merged point. It is empty when no points were merged.
func (meta MetaData) Bounds() octree.Box {
	if meta.Count == 0 {
		return octree.ZeroBox()
	}
	return octree.Box{
		Min: r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ},
		Max: r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ},
	}
}
