package hierarchy

import (
	"fmt"

	"go.viam.com/copc/octree"
)

// Node is a resolved hierarchy entry. The zero value is not valid; see InvalidNode.
type Node struct {
	Key        octree.VoxelKey
	Offset     uint64
	ByteSize   uint32
	PointCount int32
	// PageKey is the key of the page the node was found in.
	PageKey octree.VoxelKey
	valid   bool
}

// NewNode returns the valid node of a leaf found in the page rooted at pageKey.
func NewNode(leaf LeafEntry, pageKey octree.VoxelKey) Node {
	return Node{
		Key:        leaf.VoxelKey,
		Offset:     leaf.Offset,
		ByteSize:   leaf.ByteSize,
		PointCount: leaf.PointCount,
		PageKey:    pageKey,
		valid:      true,
	}
}

// InvalidNode returns the node lookups return when a key does not resolve.
func InvalidNode() Node {
	return Node{Key: octree.InvalidKey(), PageKey: octree.InvalidKey()}
}

// IsValid returns whether the node was resolved from the index.
func (n Node) IsValid() bool {
	return n.valid
}

func (n Node) String() string {
	if !n.valid {
		return "Node(invalid)"
	}
	return fmt.Sprintf("Node(key: %s, offset: %d, byte size: %d, point count: %d, page: %s)",
		n.Key, n.Offset, n.ByteSize, n.PointCount, n.PageKey)
}
