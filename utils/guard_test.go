package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestGuard(t *testing.T) {
	t.Run("cleanup runs on failure", func(t *testing.T) {
		cleaned := false
		func() {
			guard := NewGuard(func() { cleaned = true })
			defer guard.OnFail()
		}()
		test.That(t, cleaned, test.ShouldBeTrue)
	})

	t.Run("cleanup skipped on success", func(t *testing.T) {
		cleaned := false
		func() {
			guard := NewGuard(func() { cleaned = true })
			defer guard.OnFail()
			guard.Success()
		}()
		test.That(t, cleaned, test.ShouldBeFalse)
	})
}

func TestParallelismGuardFile(t *testing.T) {
	test.That(t, ParallelFactor, test.ShouldBeGreaterThan, 0)
	test.That(t, Parallelism(3), test.ShouldEqual, 3)
	test.That(t, Parallelism(0), test.ShouldEqual, ParallelFactor)
	test.That(t, Parallelism(-2), test.ShouldEqual, ParallelFactor)
}
