package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// TrainOptions controls forest fitting. Zero MaxFeatures means
// floor(sqrt(width)).
type TrainOptions struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features,omitempty"`
	Seed            int64 `json:"seed"`
	Workers         int   `json:"-"`
}

// DefaultTrainOptions mirrors the production model: 200 trees, depth 15, seed 42.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Trees:           200,
		MaxDepth:        15,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
		Workers:         runtime.GOMAXPROCS(0),
	}
}

// ErrNoSamples is returned when Train is given an empty data set.
var ErrNoSamples = errors.New("no training samples")

// Model is a fitted encoder plus classifier, ready to be saved or wrapped in
// a Pipeline.
type Model struct {
	Encoder Encoder
	Forest  Forest
}

// Train fits the encoder on samples and grows the forest in parallel. Each
// tree draws from its own seeded source, so results do not depend on
// scheduling.
func Train(ctx context.Context, samples []Sample, opts TrainOptions) (*Model, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if opts.Trees <= 0 {
		return nil, fmt.Errorf("trees must be positive, got %d", opts.Trees)
	}
	if opts.MaxDepth <= 0 {
		return nil, fmt.Errorf("max depth must be positive, got %d", opts.MaxDepth)
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	enc := FitEncoder(samples)
	width := enc.Width()
	if opts.MaxFeatures <= 0 || opts.MaxFeatures > width {
		opts.MaxFeatures = max(1, int(math.Sqrt(float64(width))))
	}

	classes := distinctLabels(samples)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	x := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		x[i] = enc.Encode(s.Input)
		y[i] = classIndex[s.Crop]
	}

	seeder := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.Trees)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	trees := make([]Tree, opts.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				x:        x,
				y:        y,
				nClasses: len(classes),
				opts:     opts,
				rng:      rand.New(rand.NewSource(seeds[i])),
			}
			trees[i] = b.fit()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	return &Model{
		Encoder: enc,
		Forest:  Forest{ClassLabels: classes, Trees: trees},
	}, nil
}

// Accuracy is the share of samples whose most probable class matches the label.
func Accuracy(m *Model, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for _, s := range samples {
		probs := m.Forest.PredictProba(m.Encoder.Encode(s.Input))
		best := 0
		for j := range probs {
			if probs[j] > probs[best] {
				best = j
			}
		}
		if m.Forest.ClassLabels[best] == s.Crop {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

func distinctLabels(samples []Sample) []string {
	seen := make(map[string]struct{})
	for _, s := range samples {
		seen[s.Crop] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

type treeBuilder struct {
	x        [][]float64
	y        []int
	nClasses int
	opts     TrainOptions
	rng      *rand.Rand
	nodes    []Node
}

func (b *treeBuilder) fit() Tree {
	n := len(b.x)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = b.rng.Intn(n)
	}
	b.build(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts := b.classCounts(idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	if depth >= b.opts.MaxDepth || len(idx) < b.opts.MinSamplesSplit || isPure(counts) {
		b.nodes[self].Value = normalize(counts, len(idx))
		return self
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		b.nodes[self].Value = normalize(counts, len(idx))
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.nodes[self].Feature = feature
	b.nodes[self].Threshold = threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

// bestSplit scans a random subset of features for the threshold that
// minimizes weighted Gini impurity. If none of the sampled features can
// split the node, the remaining ones are tried before giving up.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	width := len(b.x[0])
	features := b.rng.Perm(width)

	bestScore := -1.0
	bestFeature, bestThreshold := -1, 0.0
	sorted := make([]int, len(idx))
	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)
	total := b.classCounts(idx)

	for visited, f := range features {
		if visited >= b.opts.MaxFeatures && bestFeature >= 0 {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		clear(left)
		copy(right, total)
		for pos := 0; pos < len(sorted)-1; pos++ {
			cls := b.y[sorted[pos]]
			left[cls]++
			right[cls]--

			nl := pos + 1
			nr := len(sorted) - nl
			lo, hi := b.x[sorted[pos]][f], b.x[sorted[pos+1]][f]
			if lo == hi || nl < b.opts.MinSamplesLeaf || nr < b.opts.MinSamplesLeaf {
				continue
			}
			// Maximizing sum(c^2)/n over both sides minimizes weighted Gini.
			score := sumSquares(left)/float64(nl) + sumSquares(right)/float64(nr)
			if score > bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) classCounts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
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

func normalize(counts []int, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}

func sumSquares(counts []int) float64 {
	s := 0.0
	for _, c := range counts {
		s += float64(c) * float64(c)
	}
	return s
}
