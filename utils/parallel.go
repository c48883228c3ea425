package utils

import "runtime"

// ParallelFactor controls the default number of point chunks decoded at once. It might be useful
// to set in tests where too much parallelism actually slows tests down in aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// Parallelism returns n when positive, otherwise ParallelFactor.
func Parallelism(n int) int {
	if n > 0 {
		return n
	}
	return ParallelFactor
}
