package forest

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one entry of a flattened CART tree. Leaves have Left == -1 and
// carry the class distribution of the training samples that reached them.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// IsLeaf reports whether the node has no children
func (n Node) IsLeaf() bool {
	return n.Left < 0
}

// DecisionTree is a gini CART classifier over encoded class indices
type DecisionTree struct {
	Nodes      []Node `json:"nodes"`
	NumClasses int    `json:"num_classes"`
}

// predictProba walks the tree for one row
func (t *DecisionTree) predictProba(row []float64) []float64 {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		node := t.Nodes[i]
		if row[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return t.Nodes[i].Value
}

// Depth returns the longest root-to-leaf path length
func (t *DecisionTree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// treeBuilder grows one tree. It owns its rng and scratch buffers,
// so builders for different trees can run concurrently.
type treeBuilder struct {
	data     []float64
	stride   int
	y        []int
	nClasses int

	maxFeatures     int
	minSamplesSplit int
	maxDepth        int

	rng      *rand.Rand
	features []int
	sorted   []int
	nodes    []Node
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func newTreeBuilder(data []float64, stride, nFeatures int, y []int, nClasses int, p Params, rng *rand.Rand) *treeBuilder {
	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}
	return &treeBuilder{
		data:            data,
		stride:          stride,
		y:               y,
		nClasses:        nClasses,
		maxFeatures:     p.MaxFeaturesFor(nFeatures),
		minSamplesSplit: p.MinSamplesSplit,
		maxDepth:        p.MaxDepth,
		rng:             rng,
		features:        features,
	}
}

func (b *treeBuilder) at(sample, feature int) float64 {
	return b.data[sample*b.stride+feature]
}

// fit grows the tree from the given (possibly repeated) sample indices
func (b *treeBuilder) fit(samples []int) *DecisionTree {
	b.sorted = make([]int, len(samples))
	b.nodes = b.nodes[:0]
	b.build(samples, 0)
	return &DecisionTree{Nodes: b.nodes, NumClasses: b.nClasses}
}

func (b *treeBuilder) build(samples []int, depth int) int {
	counts := make([]int, b.nClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Left: -1, Right: -1})

	if len(samples) < b.minSamplesSplit || isPure(counts) || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[idx].Value = normalize(counts)
		return idx
	}

	best, ok := b.bestSplit(samples, counts)
	if !ok {
		b.nodes[idx].Value = normalize(counts)
		return idx
	}

	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if b.at(s, best.feature) <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	b.nodes[idx].Feature = best.feature
	b.nodes[idx].Threshold = best.threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit draws features without replacement until maxFeatures non-constant
// ones were evaluated. Constant features do not count toward the budget, so
// a split is found whenever any feature varies within the node.
func (b *treeBuilder) bestSplit(samples []int, parent []int) (split, bool) {
	n := len(samples)
	nf := len(b.features)
	sorted := b.sorted[:n]
	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)

	best := split{feature: -1, score: math.Inf(1)}
	visited := 0
	for i := 0; i < nf && visited < b.maxFeatures; i++ {
		j := i + b.rng.Intn(nf-i)
		b.features[i], b.features[j] = b.features[j], b.features[i]
		f := b.features[i]

		copy(sorted, samples)
		sort.Slice(sorted, func(a, c int) bool { return b.at(sorted[a], f) < b.at(sorted[c], f) })
		if b.at(sorted[0], f) == b.at(sorted[n-1], f) {
			continue
		}
		visited++

		clear(left)
		copy(right, parent)
		for k := 0; k < n-1; k++ {
			c := b.y[sorted[k]]
			left[c]++
			right[c]--

			v, next := b.at(sorted[k], f), b.at(sorted[k+1], f)
			if v == next {
				continue
			}
			nl := k + 1
			nr := n - nl
			score := float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)
			if score < best.score {
				threshold := v + (next-v)/2
				if threshold == next {
					threshold = v
				}
				best = split{feature: f, threshold: threshold, score: score}
			}
		}
	}
	return best, best.feature >= 0
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(counts []int) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(total)
	}
	return out
}
