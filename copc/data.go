package copc

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/copc/hierarchy"
	"go.viam.com/copc/octree"
	"go.viam.com/copc/pointcloud"
)

// GetPointDataCompressed returns the chunk of node as stored in the file.
func (r *Reader) GetPointDataCompressed(ctx context.Context, node hierarchy.Node) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if !node.IsValid() {
		return nil, NewInvalidNodeError("GetPointDataCompressed")
	}
	if node.ByteSize == 0 {
		return []byte{}, nil
	}
	data, err := r.src.Fetch(ctx, node.Offset, node.ByteSize)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching point data of %s", node.Key)
	}
	r.metrics.ChunksFetched.Inc()
	r.metrics.BytesFetched.Add(float64(len(data)))
	return data, nil
}

// GetPointData returns the decoded point records of node.
func (r *Reader) GetPointData(ctx context.Context, node hierarchy.Node) ([]byte, error) {
	if !node.IsValid() {
		return nil, NewInvalidNodeError("GetPointData")
	}
	compressed, err := r.GetPointDataCompressed(ctx, node)
	if err != nil {
		return nil, err
	}
	data, err := r.DecompressBytes(compressed, int(node.PointCount))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding point data of %s", node.Key)
	}
	return data, nil
}

// GetPoints returns the decoded points of node.
func (r *Reader) GetPoints(ctx context.Context, node hierarchy.Node) (*pointcloud.Points, error) {
	if !node.IsValid() {
		return nil, NewInvalidNodeError("GetPoints")
	}
	data, err := r.GetPointData(ctx, node)
	if err != nil {
		return nil, err
	}
	return r.unpack(data)
}

// GetPointDataCompressedByKey is GetPointDataCompressed for the node of key. A key that does not
// resolve yields no bytes.
func (r *Reader) GetPointDataCompressedByKey(ctx context.Context, key octree.VoxelKey) ([]byte, error) {
	node, err := r.FindNode(ctx, key)
	if err != nil || !node.IsValid() {
		return []byte{}, err
	}
	return r.GetPointDataCompressed(ctx, node)
}

// GetPointDataByKey is GetPointData for the node of key. A key that does not resolve yields no
// bytes.
func (r *Reader) GetPointDataByKey(ctx context.Context, key octree.VoxelKey) ([]byte, error) {
	node, err := r.FindNode(ctx, key)
	if err != nil || !node.IsValid() {
		return []byte{}, err
	}
	return r.GetPointData(ctx, node)
}

// GetPointsByKey is GetPoints for the node of key. A key that does not resolve yields no points.
func (r *Reader) GetPointsByKey(ctx context.Context, key octree.VoxelKey) (*pointcloud.Points, error) {
	node, err := r.FindNode(ctx, key)
	if err != nil {
		return nil, err
	}
	if !node.IsValid() {
		return r.emptyPoints(), nil
	}
	return r.GetPoints(ctx, node)
}

// DecompressBytes decodes n point records from a chunk with the reader's codec.
func (r *Reader) DecompressBytes(compressed []byte, n int) ([]byte, error) {
	if r.codecErr != nil {
		return nil, r.codecErr
	}
	data, err := r.decompressor.Decompress(compressed, r.format, n)
	if err != nil {
		return nil, err
	}
	r.metrics.PointsDecoded.Add(float64(n))
	return data, nil
}

func (r *Reader) unpack(data []byte) (*pointcloud.Points, error) {
	return pointcloud.Unpack(data, r.format, r.cfg.Header.Scale, r.cfg.Header.Offset)
}

func (r *Reader) emptyPoints() *pointcloud.Points {
	return pointcloud.New(r.format, r.cfg.Header.Scale, r.cfg.Header.Offset)
}

// decodeNodes fetches and decodes the points of nodes in parallel and concatenates them in node
// order. When keep is set, it selects the points of each node that are returned.
func (r *Reader) decodeNodes(
	ctx context.Context,
	nodes []hierarchy.Node,
	keep func(hierarchy.Node, *pointcloud.Points) *pointcloud.Points,
) (*pointcloud.Points, error) {
	results := make([]*pointcloud.Points, len(nodes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			ps, err := r.GetPoints(ctx, node)
			if err != nil {
				return err
			}
			if keep != nil {
				ps = keep(node, ps)
			}
			results[i] = ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := r.emptyPoints()
	for _, ps := range results {
		if err := out.AppendPoints(ps); err != nil {
			return nil, err
		}
	}
	return out, nil
}
