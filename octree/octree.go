// Package octree implements the voxel addressing and bounds math of an octree indexed point cloud.
//
// A cell of the octree is addressed by a VoxelKey (depth, x, y, z). The root cell (depth 0) covers
// the cube described by a center and a half size; every depth halves the cell size, so each key
// has eight children at depth+1 whose coordinates are the parent's doubled and offset by 0 or 1.
package octree

// MaxDepth is the deepest octree level a VoxelKey may address. Coordinates at this depth still
// fit in an int32.
const MaxDepth = 30

// ChildCount is the number of children of every octree cell.
const ChildCount = 8
