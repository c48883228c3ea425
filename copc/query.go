package copc

import (
	"context"
	"time"

	"github.com/samber/lo"

	"go.viam.com/copc/hierarchy"
	"go.viam.com/copc/octree"
	"go.viam.com/copc/pointcloud"
)

// GetDepthAtResolution returns the shallowest depth whose point spacing is at most resolution,
// clamped to the depths present in the file.
func (r *Reader) GetDepthAtResolution(ctx context.Context, resolution float64) (int32, error) {
	maxDepth, err := r.MaxDepth(ctx)
	if err != nil {
		return 0, err
	}
	return octree.DepthForResolution(resolution, r.cfg.Info.Spacing, maxDepth), nil
}

// GetNodesAtResolution returns the nodes at exactly the depth of resolution.
func (r *Reader) GetNodesAtResolution(ctx context.Context, resolution float64) ([]hierarchy.Node, error) {
	defer r.metrics.observe("nodes_at_resolution", time.Now())
	depth, nodes, err := r.nodesAtDepth(ctx, resolution)
	if err != nil {
		return nil, err
	}
	return lo.Filter(nodes, func(n hierarchy.Node, _ int) bool {
		return n.Key.D == depth
	}), nil
}

// GetNodesWithinResolution returns the nodes at the depth of resolution or coarser.
func (r *Reader) GetNodesWithinResolution(ctx context.Context, resolution float64) ([]hierarchy.Node, error) {
	defer r.metrics.observe("nodes_within_resolution", time.Now())
	depth, nodes, err := r.nodesAtDepth(ctx, resolution)
	if err != nil {
		return nil, err
	}
	return lo.Filter(nodes, func(n hierarchy.Node, _ int) bool {
		return n.Key.D <= depth
	}), nil
}

func (r *Reader) nodesAtDepth(ctx context.Context, resolution float64) (int32, []hierarchy.Node, error) {
	if err := r.checkOpen(); err != nil {
		return 0, nil, err
	}
	depth, err := r.GetDepthAtResolution(ctx, resolution)
	if err != nil {
		return 0, nil, err
	}
	nodes, err := r.resolver.AllNodes(ctx)
	if err != nil {
		return 0, nil, err
	}
	return depth, nodes, nil
}

// GetNodesWithinBox returns the nodes whose bounds lie inside box. A positive resolution also
// drops nodes deeper than its depth.
func (r *Reader) GetNodesWithinBox(ctx context.Context, box octree.Box, resolution float64) ([]hierarchy.Node, error) {
	defer r.metrics.observe("nodes_within_box", time.Now())
	return r.filterNodes(ctx, resolution, func(bounds octree.Box) bool {
		return bounds.Within(box)
	})
}

// GetNodesIntersectBox returns the nodes whose bounds intersect box, touching included. A positive
// resolution also drops nodes deeper than its depth.
func (r *Reader) GetNodesIntersectBox(ctx context.Context, box octree.Box, resolution float64) ([]hierarchy.Node, error) {
	defer r.metrics.observe("nodes_intersect_box", time.Now())
	return r.filterNodes(ctx, resolution, func(bounds octree.Box) bool {
		return bounds.Intersects(box)
	})
}

func (r *Reader) filterNodes(
	ctx context.Context,
	resolution float64,
	keep func(bounds octree.Box) bool,
) ([]hierarchy.Node, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	maxDepth, err := r.resolutionLimit(ctx, resolution)
	if err != nil {
		return nil, err
	}
	nodes, err := r.resolver.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(nodes, func(n hierarchy.Node, _ int) bool {
		return n.Key.D <= maxDepth && keep(r.Bounds(n.Key))
	}), nil
}

// resolutionLimit returns the deepest depth a query at resolution considers.
func (r *Reader) resolutionLimit(ctx context.Context, resolution float64) (int32, error) {
	if resolution <= 0 {
		return octree.MaxDepth, nil
	}
	return r.GetDepthAtResolution(ctx, resolution)
}

// GetPointsWithinBox returns the points inside box. Nodes inside the box contribute all their
// points, nodes crossing it only the points it contains. Points keep node order.
func (r *Reader) GetPointsWithinBox(ctx context.Context, box octree.Box, resolution float64) (*pointcloud.Points, error) {
	defer r.metrics.observe("points_within_box", time.Now())
	nodes, err := r.GetNodesIntersectBox(ctx, box, resolution)
	if err != nil {
		return nil, err
	}
	return r.decodeNodes(ctx, nodes, func(n hierarchy.Node, ps *pointcloud.Points) *pointcloud.Points {
		if r.Bounds(n.Key).Within(box) {
			return ps
		}
		return ps.Within(box)
	})
}

// GetAllPoints returns the points of every node at the depth of resolution or coarser. Resolution
// zero returns every point of the file.
func (r *Reader) GetAllPoints(ctx context.Context, resolution float64) (*pointcloud.Points, error) {
	defer r.metrics.observe("all_points", time.Now())
	nodes, err := r.GetNodesWithinResolution(ctx, resolution)
	if err != nil {
		return nil, err
	}
	return r.decodeNodes(ctx, nodes, nil)
}
