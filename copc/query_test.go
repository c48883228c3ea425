package copc

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/samber/lo"
	"go.viam.com/test"

	"go.viam.com/copc/hierarchy"
	"go.viam.com/copc/octree"
	"go.viam.com/copc/testutils"
)

func key(d, x, y, z int32) octree.VoxelKey {
	return octree.NewVoxelKey(d, x, y, z)
}

func nodeKeys(nodes []hierarchy.Node) []octree.VoxelKey {
	return lo.Map(nodes, func(n hierarchy.Node, _ int) octree.VoxelKey { return n.Key })
}

func box2D(t *testing.T, xmin, ymin, xmax, ymax float64) octree.Box {
	t.Helper()
	b, err := octree.NewBox2D(xmin, ymin, xmax, ymax)
	test.That(t, err, test.ShouldBeNil)
	return b
}

func TestFindNode(t *testing.T) {
	ctx := context.Background()

	t.Run("root", func(t *testing.T) {
		r, _ := openFixture(t)
		node, err := r.FindNode(ctx, octree.BaseKey())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsValid(), test.ShouldBeTrue)
		test.That(t, node.Key, test.ShouldResemble, octree.BaseKey())
		test.That(t, node.PointCount, test.ShouldEqual, testutils.FixtureRootCount)
		test.That(t, r.Stats().PageLoads, test.ShouldEqual, 1)
	})

	t.Run("every node resolves", func(t *testing.T) {
		r, b := openFixture(t)
		for _, k := range b.Keys() {
			node, err := r.FindNode(ctx, k)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, node.IsValid(), test.ShouldBeTrue)
			test.That(t, node.Key, test.ShouldResemble, k)
			test.That(t, node.PointCount, test.ShouldEqual, len(b.Points(k)))
		}
		test.That(t, r.Stats().PageLoads, test.ShouldEqual, 4)
	})

	t.Run("deep key loads its page chain once", func(t *testing.T) {
		r, _ := openFixture(t)
		deep := key(3, 7, 7, 7)
		first, err := r.FindNode(ctx, deep)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, first.IsValid(), test.ShouldBeTrue)
		test.That(t, first.PageKey, test.ShouldResemble, key(2, 3, 3, 3))
		stats := r.Stats()
		test.That(t, stats.PageLoads, test.ShouldEqual, 3)
		test.That(t, stats.Fetches, test.ShouldEqual, 3)

		second, err := r.FindNode(ctx, deep)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, second, test.ShouldResemble, first)
		test.That(t, r.Stats().Fetches, test.ShouldEqual, 3)
	})

	t.Run("invalid key does no io", func(t *testing.T) {
		r, _ := openFixture(t)
		node, err := r.FindNode(ctx, octree.InvalidKey())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsValid(), test.ShouldBeFalse)
		test.That(t, r.Stats().Fetches, test.ShouldEqual, 0)
	})

	t.Run("absent keys", func(t *testing.T) {
		r, _ := openFixture(t)
		node, err := r.FindNode(ctx, key(3, 0, 0, 7))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsValid(), test.ShouldBeFalse)
		test.That(t, r.Stats().PageLoads, test.ShouldEqual, 1)

		node, err = r.FindNode(ctx, key(3, 2, 2, 2))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsValid(), test.ShouldBeFalse)
		test.That(t, r.Stats().PageLoads, test.ShouldEqual, 2)

		again, err := r.FindNode(ctx, key(3, 2, 2, 2))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, again, test.ShouldResemble, node)
		test.That(t, r.Stats().PageLoads, test.ShouldEqual, 2)
	})

	t.Run("empty node is valid", func(t *testing.T) {
		r, _ := openFixture(t)
		node, err := r.FindNode(ctx, testutils.FixtureEmptyKey)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, node.IsValid(), test.ShouldBeTrue)
		test.That(t, node.PointCount, test.ShouldEqual, 0)
	})

	t.Run("concurrent lookups", func(t *testing.T) {
		r, b := openFixture(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for _, k := range b.Keys() {
					node, err := r.FindNode(ctx, k)
					test.That(t, err, test.ShouldBeNil)
					test.That(t, node.IsValid(), test.ShouldBeTrue)
				}
			}()
		}
		wg.Wait()
		test.That(t, r.Stats().PageLoads, test.ShouldEqual, 4)
	})
}

func TestGetAllChildren(t *testing.T) {
	ctx := context.Background()
	r, b := openFixture(t)

	all, err := r.GetAllNodes(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all, test.ShouldHaveLength, testutils.FixtureNodeCount)
	test.That(t, nodeKeys(all), test.ShouldHaveLength, len(lo.Uniq(nodeKeys(all))))
	test.That(t, lo.Every(nodeKeys(all), b.Keys()), test.ShouldBeTrue)

	fromRoot, err := r.GetAllChildren(ctx, octree.BaseKey())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromRoot, test.ShouldResemble, all)

	for _, tc := range []struct {
		key   octree.VoxelKey
		count int
	}{
		{key(1, 1, 1, 1), 17},
		{key(1, 0, 0, 0), 17},
		{key(2, 3, 3, 3), 9},
		{key(1, 0, 1, 0), 1},
		{testutils.FixtureEmptyKey, 1},
		{key(3, 7, 7, 7), 1},
		{key(2, 1, 1, 1), 1},
		{key(20, 20, 20, 20), 0},
		{key(3, 2, 2, 2), 0},
		{octree.InvalidKey(), 0},
	} {
		t.Run(tc.key.String(), func(t *testing.T) {
			nodes, err := r.GetAllChildren(ctx, tc.key)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, nodes, test.ShouldHaveLength, tc.count)
			for _, n := range nodes {
				test.That(t, n.Key.InSubtree(tc.key), test.ShouldBeTrue)
			}
		})
	}

	t.Run("pages", func(t *testing.T) {
		pages, err := r.GetPageList(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pages, test.ShouldHaveLength, 4)
		test.That(t, pages[0], test.ShouldResemble, octree.BaseKey())
		test.That(t, pages[3], test.ShouldResemble, key(2, 3, 3, 3))
		test.That(t, pages, test.ShouldContain, key(1, 0, 0, 0))
		test.That(t, pages, test.ShouldContain, key(1, 1, 1, 1))
	})

	t.Run("max depth", func(t *testing.T) {
		depth, err := r.MaxDepth(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, depth, test.ShouldEqual, testutils.FixtureMaxDepth)
	})
}

func TestResolutionQueries(t *testing.T) {
	ctx := context.Background()
	r, _ := openFixture(t)

	for _, tc := range []struct {
		resolution float64
		depth      int32
		at         int
		within     int
	}{
		{math.Inf(1), 0, 1, 1},
		{1000, 0, 1, 1},
		{16, 0, 1, 1},
		{10, 1, 8, 9},
		{8, 1, 8, 9},
		{4, 2, 16, 25},
		{2, 3, 16, 41},
		{0.001, 3, 16, 41},
		{0, 3, 16, 41},
	} {
		depth, err := r.GetDepthAtResolution(ctx, tc.resolution)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, depth, test.ShouldEqual, tc.depth)

		at, err := r.GetNodesAtResolution(ctx, tc.resolution)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, at, test.ShouldHaveLength, tc.at)
		for _, n := range at {
			test.That(t, n.Key.D, test.ShouldEqual, depth)
		}

		within, err := r.GetNodesWithinResolution(ctx, tc.resolution)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, within, test.ShouldHaveLength, tc.within)
	}

	t.Run("monotonic", func(t *testing.T) {
		prevDepth, prevCount := int32(math.MaxInt32), math.MaxInt
		for res := 0.0; res <= 64; res += 0.5 {
			depth, err := r.GetDepthAtResolution(ctx, res)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, depth, test.ShouldBeLessThanOrEqualTo, prevDepth)
			nodes, err := r.GetNodesWithinResolution(ctx, res)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(nodes), test.ShouldBeLessThanOrEqualTo, prevCount)
			prevDepth, prevCount = depth, len(nodes)
		}
	})
}

func TestBoxQueries(t *testing.T) {
	ctx := context.Background()
	r, _ := openFixture(t)

	within := func(box octree.Box, resolution float64) []hierarchy.Node {
		nodes, err := r.GetNodesWithinBox(ctx, box, resolution)
		test.That(t, err, test.ShouldBeNil)
		return nodes
	}
	intersect := func(box octree.Box, resolution float64) []hierarchy.Node {
		nodes, err := r.GetNodesIntersectBox(ctx, box, resolution)
		test.That(t, err, test.ShouldBeNil)
		return nodes
	}

	t.Run("canonical boxes", func(t *testing.T) {
		test.That(t, within(octree.MaxBox(), 0), test.ShouldHaveLength, testutils.FixtureNodeCount)
		test.That(t, intersect(octree.MaxBox(), 0), test.ShouldHaveLength, testutils.FixtureNodeCount)
		test.That(t, within(octree.ZeroBox(), 0), test.ShouldBeEmpty)
		test.That(t, intersect(octree.ZeroBox(), 0), test.ShouldBeEmpty)
		test.That(t, within(r.RootBounds(), 0), test.ShouldHaveLength, testutils.FixtureNodeCount)
	})

	t.Run("cell box", func(t *testing.T) {
		cell := box2D(t, 936, 1936, 1000, 2000)
		nodes := within(cell, 0)
		test.That(t, nodes, test.ShouldHaveLength, 18)
		test.That(t, nodeKeys(nodes), test.ShouldContain, key(1, 0, 0, 1))
		test.That(t, nodeKeys(nodes), test.ShouldNotContain, octree.BaseKey())
		test.That(t, within(cell, 8), test.ShouldHaveLength, 2)
		test.That(t, within(cell, 4), test.ShouldHaveLength, 10)
	})

	t.Run("interior box", func(t *testing.T) {
		nodes := intersect(box2D(t, 940, 1940, 950, 1950), 0)
		test.That(t, nodes, test.ShouldHaveLength, 7)
		for _, k := range []octree.VoxelKey{
			octree.BaseKey(),
			key(1, 0, 0, 0), key(1, 0, 0, 1),
			key(2, 0, 0, 0), key(2, 0, 0, 1),
			key(3, 0, 0, 0), key(3, 0, 0, 1),
		} {
			test.That(t, nodeKeys(nodes), test.ShouldContain, k)
		}
		test.That(t, within(box2D(t, 940, 1940, 950, 1950), 0), test.ShouldBeEmpty)
	})

	t.Run("touching counts as intersecting", func(t *testing.T) {
		touching := box2D(t, 1064, 2000, 1100, 2100)
		nodes := intersect(touching, 0)
		test.That(t, nodes, test.ShouldHaveLength, 13)
		test.That(t, nodeKeys(nodes), test.ShouldContain, testutils.FixtureEmptyKey)
		test.That(t, nodeKeys(nodes), test.ShouldContain, key(3, 7, 7, 7))
		test.That(t, within(touching, 0), test.ShouldBeEmpty)

		outside := box2D(t, 1064.5, 2000, 1100, 2100)
		test.That(t, intersect(outside, 0), test.ShouldBeEmpty)
	})

	t.Run("monotonic", func(t *testing.T) {
		for _, pair := range [][2]octree.Box{
			{box2D(t, 940, 1940, 950, 1950), box2D(t, 936, 1936, 1000, 2000)},
			{box2D(t, 936, 1936, 1000, 2000), box2D(t, 936, 1936, 1032, 2032)},
			{box2D(t, 936, 1936, 1032, 2032), r.RootBounds()},
			{r.RootBounds(), octree.MaxBox()},
		} {
			small, large := pair[0], pair[1]
			test.That(t, lo.Every(nodeKeys(within(large, 0)), nodeKeys(within(small, 0))), test.ShouldBeTrue)
			test.That(t, lo.Every(nodeKeys(intersect(large, 0)), nodeKeys(intersect(small, 0))), test.ShouldBeTrue)
			test.That(t, lo.Every(nodeKeys(intersect(small, 0)), nodeKeys(within(small, 0))), test.ShouldBeTrue)
		}
	})
}
