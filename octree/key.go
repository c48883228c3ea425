package octree

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// VoxelKey identifies one octree cell. At depth D valid coordinates are in [0, 2^D - 1].
type VoxelKey struct {
	D int32
	X int32
	Y int32
	Z int32
}

// NewVoxelKey creates a key from its depth and coordinates. The key is not validated.
func NewVoxelKey(d, x, y, z int32) VoxelKey {
	return VoxelKey{D: d, X: x, Y: y, Z: z}
}

// BaseKey returns the key of the root cell (0, 0, 0, 0).
func BaseKey() VoxelKey {
	return VoxelKey{}
}

// InvalidKey returns the sentinel key used to signal "no such node".
func InvalidKey() VoxelKey {
	return VoxelKey{D: -1, X: -1, Y: -1, Z: -1}
}

// IsValid returns whether the key's coordinates are in range for its depth.
func (k VoxelKey) IsValid() bool {
	if k.D < 0 || k.D > MaxDepth {
		return false
	}
	span := int64(1) << uint(k.D)
	return inSpan(k.X, span) && inSpan(k.Y, span) && inSpan(k.Z, span)
}

func inSpan(v int32, span int64) bool {
	return v >= 0 && int64(v) < span
}

// Parent returns the key of the cell containing this one. The root and invalid keys have no parent
// and return InvalidKey.
func (k VoxelKey) Parent() VoxelKey {
	if !k.IsValid() || k.D == 0 {
		return InvalidKey()
	}
	return VoxelKey{D: k.D - 1, X: k.X >> 1, Y: k.Y >> 1, Z: k.Z >> 1}
}

// Child returns the child at index i (0-7). Bit 0 of i offsets x, bit 1 offsets y and bit 2
// offsets z.
func (k VoxelKey) Child(i int) VoxelKey {
	return VoxelKey{
		D: k.D + 1,
		X: k.X<<1 | int32(i&1),
		Y: k.Y<<1 | int32((i>>1)&1),
		Z: k.Z<<1 | int32((i>>2)&1),
	}
}

// Children returns the eight children of the key ordered by child index. Children of a key at
// MaxDepth are not valid.
func (k VoxelKey) Children() [ChildCount]VoxelKey {
	var children [ChildCount]VoxelKey
	for i := range children {
		children[i] = k.Child(i)
	}
	return children
}

// ChildIndex returns the index of this key within its parent's children.
func (k VoxelKey) ChildIndex() int {
	return int(k.X&1) | int(k.Y&1)<<1 | int(k.Z&1)<<2
}

// IsDescendantOf returns whether the key lies strictly below ancestor in the octree.
func (k VoxelKey) IsDescendantOf(ancestor VoxelKey) bool {
	if !k.IsValid() || !ancestor.IsValid() || k.D <= ancestor.D {
		return false
	}
	shift := uint(k.D - ancestor.D)
	return k.X>>shift == ancestor.X && k.Y>>shift == ancestor.Y && k.Z>>shift == ancestor.Z
}

// IsAncestorOf returns whether the key lies strictly above descendant in the octree.
func (k VoxelKey) IsAncestorOf(descendant VoxelKey) bool {
	return descendant.IsDescendantOf(k)
}

// ChildOf returns whether the key is a direct child of parent.
func (k VoxelKey) ChildOf(parent VoxelKey) bool {
	return k.D == parent.D+1 && k.IsDescendantOf(parent)
}

// InSubtree returns whether the key is root or one of its descendants.
func (k VoxelKey) InSubtree(root VoxelKey) bool {
	return (k == root && k.IsValid()) || k.IsDescendantOf(root)
}

// Bounds returns the cube covered by the key given the root cell's center and half size.
func (k VoxelKey) Bounds(center r3.Vector, halfSize float64) Box {
	if k.D == 0 {
		return Box{
			Min: r3.Vector{X: center.X - halfSize, Y: center.Y - halfSize, Z: center.Z - halfSize},
			Max: r3.Vector{X: center.X + halfSize, Y: center.Y + halfSize, Z: center.Z + halfSize},
		}
	}
	step := halfSize * 2 / math.Pow(2, float64(k.D))
	minPt := r3.Vector{
		X: step*float64(k.X) + (center.X - halfSize),
		Y: step*float64(k.Y) + (center.Y - halfSize),
		Z: step*float64(k.Z) + (center.Z - halfSize),
	}
	return Box{Min: minPt, Max: minPt.Add(r3.Vector{X: step, Y: step, Z: step})}
}

// Spacing returns the nominal point spacing of the key's depth given the spacing at depth 0.
func (k VoxelKey) Spacing(rootSpacing float64) float64 {
	return rootSpacing / math.Pow(2, float64(k.D))
}

// String returns the key as "d-x-y-z".
func (k VoxelKey) String() string {
	return fmt.Sprintf("%d-%d-%d-%d", k.D, k.X, k.Y, k.Z)
}

// ParseVoxelKey parses a key written as "d-x-y-z" or "d,x,y,z".
func ParseVoxelKey(s string) (VoxelKey, error) {
	sep := "-"
	if strings.Contains(s, ",") {
		sep = ","
	}
	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != 4 {
		return InvalidKey(), errors.Errorf("voxel key %q must have 4 components", s)
	}
	var vals [4]int32
	for i, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return InvalidKey(), errors.Wrapf(err, "invalid voxel key component %q", part)
		}
		vals[i] = int32(v)
	}
	return NewVoxelKey(vals[0], vals[1], vals[2], vals[3]), nil
}
