package detector

import (
	"math"
	"math/rand"
)

// eulerGamma is the Euler-Mascheroni constant.
const eulerGamma = 0.5772156649015329

// node is an isolation tree node. Leaves have nil children.
type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int
}

func (n *node) leaf() bool { return n.left == nil }

// build grows a tree over rows until each leaf holds one distinct point or
// maxDepth is reached.
func build(rng *rand.Rand, rows [][]float64, depth, maxDepth int) *node {
	if len(rows) <= 1 || depth >= maxDepth {
		return &node{size: len(rows)}
	}

	// only features with spread can split
	width := len(rows[0])
	candidates := make([]int, 0, width)
	lo := make([]float64, width)
	hi := make([]float64, width)
	for j := 0; j < width; j++ {
		lo[j], hi[j] = featureRange(rows, j)
		if hi[j] > lo[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := lo[feature] + rng.Float64()*(hi[feature]-lo[feature])

	left := make([][]float64, 0, len(rows)/2)
	right := make([][]float64, 0, len(rows)/2)
	for _, r := range rows {
		if r[feature] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{size: len(rows)}
	}

	return &node{
		feature: feature,
		split:   split,
		left:    build(rng, left, depth+1, maxDepth),
		right:   build(rng, right, depth+1, maxDepth),
		size:    len(rows),
	}
}

// pathLength returns the depth at which x lands plus the expected depth of
// the unbuilt subtree below that leaf.
func pathLength(n *node, x []float64) float64 {
	depth := 0
	for !n.leaf() {
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// walk calls visit with the split feature of each internal node on x's path.
func walk(n *node, x []float64, visit func(feature int)) {
	for !n.leaf() {
		visit(n.feature)
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
	}
}

// averagePathLength is c(n), the mean unsuccessful-search length of a BST
// with n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

func featureRange(rows [][]float64, j int) (lo, hi float64) {
	lo, hi = rows[0][j], rows[0][j]
	for _, r := range rows[1:] {
		lo = math.Min(lo, r[j])
		hi = math.Max(hi, r[j])
	}
	return lo, hi
}
