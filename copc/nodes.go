package copc

import (
	"context"
	"time"

	"github.com/samber/lo"

	"go.viam.com/copc/hierarchy"
	"go.viam.com/copc/octree"
)

// FindNode returns the node of key. An invalid or absent key yields hierarchy.InvalidNode and no
// error; errors report I/O failures and corrupt pages.
func (r *Reader) FindNode(ctx context.Context, key octree.VoxelKey) (hierarchy.Node, error) {
	if err := r.checkOpen(); err != nil {
		return hierarchy.InvalidNode(), err
	}
	defer r.metrics.observe("find_node", time.Now())
	return r.resolver.FindNode(ctx, key)
}

// GetAllChildren returns every node in the subtree of key, key included. An invalid or absent key
// yields no nodes.
func (r *Reader) GetAllChildren(ctx context.Context, key octree.VoxelKey) ([]hierarchy.Node, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	defer r.metrics.observe("all_children", time.Now())
	return r.resolver.AllChildren(ctx, key)
}

// GetAllNodes returns every node of the file.
func (r *Reader) GetAllNodes(ctx context.Context) ([]hierarchy.Node, error) {
	return r.GetAllChildren(ctx, octree.BaseKey())
}

// GetPageList returns the keys of every hierarchy page, root first.
func (r *Reader) GetPageList(ctx context.Context) ([]octree.VoxelKey, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.resolver.PageKeys(ctx)
}

// MaxDepth returns the depth of the deepest node. It is computed once per Reader.
func (r *Reader) MaxDepth(ctx context.Context) (int32, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	r.maxDepthMu.Lock()
	defer r.maxDepthMu.Unlock()
	if r.maxDepthKnown {
		return r.maxDepth, nil
	}
	nodes, err := r.resolver.AllNodes(ctx)
	if err != nil {
		return 0, err
	}
	if len(nodes) > 0 {
		deepest := lo.MaxBy(nodes, func(a, b hierarchy.Node) bool { return a.Key.D > b.Key.D })
		r.maxDepth = deepest.Key.D
	}
	r.maxDepthKnown = true
	return r.maxDepth, nil
}
