package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/copc/codec"
	"go.viam.com/copc/octree"
)

// FixtureWkt is the coordinate system string of the fixture file.
const FixtureWkt = `PROJCS["NAD83 / Oregon GIC Lambert (ft)",GEOGCS["NAD83"]]`

// Fixture node and point layout.
const (
	FixtureMaxDepth  = 3
	FixtureNodeCount = 41
	FixtureRootCount = 60
)

// FixtureCenter is the center of the fixture's root cell.
var FixtureCenter = r3.Vector{X: 1000, Y: 2000, Z: 100}

// FixtureEmptyKey is the key of the fixture node that holds no points.
var FixtureEmptyKey = octree.NewVoxelKey(1, 1, 1, 0)

// NewFixtureBuilder returns the builder of the file most tests read: a depth 3 octree of format 7
// points whose hierarchy is split over four pages, root included.
//
//	depth 0: the root, 60 points
//	depth 1: all 8 cells, 30 points each except 1-1-1-0 which is empty
//	depth 2: the children of 1-0-0-0 and 1-1-1-1, 15 points each
//	depth 3: the children of 2-0-0-0 and 2-3-3-3, 5 points each
//
// Pages are rooted at 1-0-0-0, 1-1-1-1 and 2-3-3-3.
func NewFixtureBuilder() *CopcBuilder {
	b := NewCopcBuilder(FixtureCenter, 64, 16, codec.Format{ID: 7, RecordLength: codec.Format7Size})
	b.Wkt = FixtureWkt
	b.WithExtents = true
	b.GpsTimeMin = 100
	b.GpsTimeMax = 200

	root := octree.BaseKey()
	b.AddGeneratedNode(root, FixtureRootCount)
	for _, k := range root.Children() {
		if k == FixtureEmptyKey {
			b.AddNode(k, nil)
			continue
		}
		b.AddGeneratedNode(k, 30)
	}
	for _, parent := range []octree.VoxelKey{octree.NewVoxelKey(1, 0, 0, 0), octree.NewVoxelKey(1, 1, 1, 1)} {
		for _, k := range parent.Children() {
			b.AddGeneratedNode(k, 15)
		}
	}
	for _, parent := range []octree.VoxelKey{octree.NewVoxelKey(2, 0, 0, 0), octree.NewVoxelKey(2, 3, 3, 3)} {
		for _, k := range parent.Children() {
			b.AddGeneratedNode(k, 5)
		}
	}
	b.AddPage(octree.NewVoxelKey(1, 0, 0, 0))
	b.AddPage(octree.NewVoxelKey(1, 1, 1, 1))
	b.AddPage(octree.NewVoxelKey(2, 3, 3, 3))
	return b
}

// BuildBytes builds b and fails the test if it cannot.
func BuildBytes(tb testing.TB, b *CopcBuilder) []byte {
	tb.Helper()
	data, err := b.Build()
	test.That(tb, err, test.ShouldBeNil)
	return data
}

// WriteCopcFile builds b into a file in a temporary directory and returns its path.
func WriteCopcFile(tb testing.TB, b *CopcBuilder) string {
	tb.Helper()
	fn := filepath.Join(tb.TempDir(), "fixture.copc.laz")
	test.That(tb, os.WriteFile(fn, BuildBytes(tb, b), 0o600), test.ShouldBeNil)
	return fn
}
