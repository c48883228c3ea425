package octree

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func mustBox(t *testing.T, xmin, ymin, zmin, xmax, ymax, zmax float64) Box {
	t.Helper()
	b, err := NewBox(xmin, ymin, zmin, xmax, ymax, zmax)
	test.That(t, err, test.ShouldBeNil)
	return b
}

func TestNewBox(t *testing.T) {
	_, err := NewBox(1, 0, 0, 0, 1, 1)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exceeds maximum")

	b, err := NewBox2D(0, 0, 10, 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Min.Z, test.ShouldEqual, -math.MaxFloat64)
	test.That(t, b.Max.Z, test.ShouldEqual, math.MaxFloat64)
	test.That(t, b.Center().X, test.ShouldEqual, 5.0)
}

func TestBoxPredicates(t *testing.T) {
	unit := mustBox(t, 0, 0, 0, 1, 1, 1)

	t.Run("overlap", func(t *testing.T) {
		other := mustBox(t, 0.5, 0.5, 0.5, 2, 2, 2)
		test.That(t, unit.Intersects(other), test.ShouldBeTrue)
		test.That(t, other.Intersects(unit), test.ShouldBeTrue)
		test.That(t, unit.Contains(other), test.ShouldBeFalse)
		test.That(t, unit.Crosses(other), test.ShouldBeTrue)
	})

	t.Run("touching boxes intersect", func(t *testing.T) {
		face := mustBox(t, 1, 0, 0, 2, 1, 1)
		test.That(t, unit.Intersects(face), test.ShouldBeTrue)
		corner := mustBox(t, 1, 1, 1, 2, 2, 2)
		test.That(t, unit.Intersects(corner), test.ShouldBeTrue)
		test.That(t, unit.Contains(face), test.ShouldBeFalse)
	})

	t.Run("disjoint", func(t *testing.T) {
		far := mustBox(t, 1.0001, 0, 0, 2, 1, 1)
		test.That(t, unit.Intersects(far), test.ShouldBeFalse)
		test.That(t, unit.Crosses(far), test.ShouldBeFalse)
	})

	t.Run("containment is inclusive", func(t *testing.T) {
		inner := mustBox(t, 0, 0, 0, 0.5, 1, 1)
		test.That(t, unit.Contains(inner), test.ShouldBeTrue)
		test.That(t, inner.Within(unit), test.ShouldBeTrue)
		test.That(t, unit.Contains(unit), test.ShouldBeTrue)
		test.That(t, inner.Crosses(unit), test.ShouldBeFalse)
	})

	t.Run("points", func(t *testing.T) {
		test.That(t, unit.ContainsPoint(r3.Vector{X: 1, Y: 1, Z: 1}), test.ShouldBeTrue)
		test.That(t, unit.ContainsPoint(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}), test.ShouldBeTrue)
		test.That(t, unit.ContainsPoint(r3.Vector{X: 1.1, Y: 0.5, Z: 0.5}), test.ShouldBeFalse)
		test.That(t, ZeroBox().ContainsPoint(r3.Vector{}), test.ShouldBeFalse)
	})

	t.Run("2d boxes ignore z", func(t *testing.T) {
		flat, err := NewBox2D(0, 0, 1, 1)
		test.That(t, err, test.ShouldBeNil)
		high := mustBox(t, 0.2, 0.2, 1e6, 0.4, 0.4, 1e6+1)
		test.That(t, flat.Contains(high), test.ShouldBeTrue)
		test.That(t, flat.ContainsPoint(r3.Vector{X: 0.5, Y: 0.5, Z: -1e9}), test.ShouldBeTrue)
	})
}

func TestCanonicalBoxes(t *testing.T) {
	unit := mustBox(t, 0, 0, 0, 1, 1, 1)
	test.That(t, ZeroBox().IsEmpty(), test.ShouldBeTrue)
	test.That(t, ZeroBox().Intersects(unit), test.ShouldBeFalse)
	test.That(t, ZeroBox().Contains(unit), test.ShouldBeFalse)
	test.That(t, unit.Contains(ZeroBox()), test.ShouldBeFalse)

	// a zero extent box inside a cell still intersects nothing
	line := mustBox(t, 0.5, 0, 0, 0.5, 1, 1)
	test.That(t, line.IsEmpty(), test.ShouldBeTrue)
	test.That(t, unit.Intersects(line), test.ShouldBeFalse)

	test.That(t, MaxBox().IsEmpty(), test.ShouldBeFalse)
	test.That(t, MaxBox().Contains(unit), test.ShouldBeTrue)
	test.That(t, MaxBox().Intersects(unit), test.ShouldBeTrue)
	test.That(t, MaxBox().Contains(NewVoxelKey(10, 3, 3, 3).Bounds(r3.Vector{X: 637905, Y: 851209, Z: 2733}, 2327)),
		test.ShouldBeTrue)
	test.That(t, MaxBox().String(), test.ShouldContainSubstring, "Box")
}
