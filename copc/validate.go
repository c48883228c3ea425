package copc

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.viam.com/copc/octree"
	"go.viam.com/copc/pointcloud"
)

// ValidateSpatialBounds decodes every node and reports whether all points lie inside both their
// node's bounds and the header bounds. With verbose, each offending node is logged.
func (r *Reader) ValidateSpatialBounds(ctx context.Context, verbose bool) (bool, error) {
	defer r.metrics.observe("validate_spatial_bounds", time.Now())
	nodes, err := r.GetAllNodes(ctx)
	if err != nil {
		return false, err
	}
	header := octree.Box{Min: r.cfg.Header.Min, Max: r.cfg.Header.Max}

	var outside atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, node := range nodes {
		node := node
		g.Go(func() error {
			ps, err := r.GetPoints(ctx, node)
			if err != nil {
				return err
			}
			bounds := r.Bounds(node.Key)
			var outNode, outHeader int
			ps.Iterate(func(pos r3.Vector, _ pointcloud.Point) bool {
				if !bounds.ContainsPoint(pos) {
					outNode++
				}
				if !header.ContainsPoint(pos) {
					outHeader++
				}
				return true
			})
			if outNode == 0 && outHeader == 0 {
				return nil
			}
			outside.Inc()
			if verbose {
				r.logger.Warnw("points outside bounds",
					"node", node.Key.String(),
					"outside node", outNode,
					"outside header", outHeader,
					"bounds", bounds.String())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return outside.Load() == 0, nil
}
