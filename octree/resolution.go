package octree

import "math"

// DepthForResolution returns the shallowest depth whose point spacing is at least as fine as
// resolution. Spacing is rootSpacing at depth 0 and halves at every depth. The result is clamped
// to [0, maxDepth]; resolutions finer than maxDepth's spacing, zero and negative resolutions return
// maxDepth, and an infinite resolution returns 0.
func DepthForResolution(resolution, rootSpacing float64, maxDepth int32) int32 {
	if maxDepth <= 0 {
		return 0
	}
	if math.IsNaN(resolution) {
		resolution = 0
	}
	current := rootSpacing
	for depth := int32(0); depth <= maxDepth; depth++ {
		if current <= resolution {
			return depth
		}
		current /= 2
	}
	return maxDepth
}
