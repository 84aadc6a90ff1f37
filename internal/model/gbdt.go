// Package model implements the gradient-boosted-tree estimators behind
// the prop pipeline: a squared-loss regressor for stat values and a
// logistic classifier for over/under outcomes. Trees are plain exported
// structs so fitted models serialize to JSON inside model artifacts.
package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// ErrNotTrained is returned when Predict runs before Fit.
var ErrNotTrained = errors.New("model not trained")

// Params are the boosting hyperparameters shared by both estimators.
type Params struct {
	Rounds              int     `json:"rounds"`
	LearningRate        float64 `json:"learning_rate"`
	MaxDepth            int     `json:"max_depth"`
	MinChildSamples     int     `json:"min_child_samples"`
	Lambda              float64 `json:"lambda"`
	MinSplitGain        float64 `json:"min_split_gain"`
	SubsampleRows       float64 `json:"subsample_rows"`
	SubsampleColumns    float64 `json:"subsample_columns"`
	EarlyStoppingRounds int     `json:"early_stopping_rounds"`
	Seed                int64   `json:"seed"`
}

// Node is one decision node. Leaf values carry the learning rate already
// applied, so prediction is a plain sum over trees.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int32   `json:"left"`
	Right     int32   `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
	Gain      float64 `json:"gain"`
}

// Tree is a single fitted regression tree over gradient statistics.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict routes one feature row to its leaf value.
func (t *Tree) Predict(x []float64) float64 {
	i := int32(0)
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// lossFunc abstracts the objective so the boosting loop is shared
// between the regressor and the classifier.
type lossFunc interface {
	// Base is the constant initial prediction (raw score space).
	Base(y []float64) float64
	// GradHess fills first and second derivatives of the loss at pred.
	GradHess(pred, y, grad, hess []float64)
	// Eval is the validation loss early stopping monitors.
	Eval(pred, y []float64) float64
}

type squaredLoss struct{}

func (squaredLoss) Base(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}

func (squaredLoss) GradHess(pred, y, grad, hess []float64) {
	for i := range y {
		grad[i] = pred[i] - y[i]
		hess[i] = 1
	}
}

func (squaredLoss) Eval(pred, y []float64) float64 {
	var sum float64
	for i := range y {
		d := pred[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(y))
}

type logisticLoss struct{}

func (logisticLoss) Base(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for _, v := range y {
		sum += v
	}
	p := clamp(sum/float64(len(y)), 1e-6, 1-1e-6)
	return math.Log(p / (1 - p))
}

func (logisticLoss) GradHess(pred, y, grad, hess []float64) {
	for i := range y {
		p := sigmoid(pred[i])
		grad[i] = p - y[i]
		hess[i] = math.Max(p*(1-p), 1e-6)
	}
}

func (logisticLoss) Eval(pred, y []float64) float64 {
	var sum float64
	for i := range y {
		p := clamp(sigmoid(pred[i]), 1e-12, 1-1e-12)
		if y[i] > 0.5 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(y))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// boostResult is the output of the shared boosting loop.
type boostResult struct {
	trees      []Tree
	base       float64
	importance []float64
	bestRound  int
}

// boost runs the gradient boosting loop. When a validation set is
// supplied, training monitors validation loss and keeps only the trees
// up to the best round once no improvement is seen for
// EarlyStoppingRounds consecutive rounds.
func boost(X [][]float64, y []float64, Xval [][]float64, yval []float64, loss lossFunc, p Params) boostResult {
	n := len(X)
	numFeatures := 0
	if n > 0 {
		numFeatures = len(X[0])
	}

	res := boostResult{
		base:       loss.Base(y),
		importance: make([]float64, numFeatures),
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = res.base
	}

	hasVal := len(Xval) > 0
	valPred := make([]float64, len(Xval))
	for i := range valPred {
		valPred[i] = res.base
	}

	grad := make([]float64, n)
	hess := make([]float64, n)

	bestLoss := math.Inf(1)
	res.bestRound = 0

	for round := 0; round < p.Rounds; round++ {
		loss.GradHess(pred, y, grad, hess)

		rng := rand.New(rand.NewSource(p.Seed + int64(round)))
		rows := sampleRows(n, p.SubsampleRows, p.MinChildSamples, rng)
		cols := sampleCols(numFeatures, p.SubsampleColumns, rng)

		tb := &treeBuilder{X: X, grad: grad, hess: hess, params: p, cols: cols}
		tree := tb.build(rows)
		res.trees = append(res.trees, tree)

		for i := range X {
			pred[i] += tree.Predict(X[i])
		}
		for _, node := range tree.Nodes {
			if !node.Leaf {
				res.importance[node.Feature] += node.Gain
			}
		}

		if !hasVal {
			res.bestRound = len(res.trees)
			continue
		}

		for i := range Xval {
			valPred[i] += tree.Predict(Xval[i])
		}
		vloss := loss.Eval(valPred, yval)
		if vloss < bestLoss-1e-9 {
			bestLoss = vloss
			res.bestRound = len(res.trees)
		} else if len(res.trees)-res.bestRound >= p.EarlyStoppingRounds {
			break
		}
	}

	if hasVal && res.bestRound < len(res.trees) {
		res.trees = res.trees[:res.bestRound]
	}
	return res
}

// sampleRows draws a row subsample without replacement. Tiny datasets
// skip subsampling so each tree still has enough samples to split.
func sampleRows(n int, frac float64, minChild int, rng *rand.Rand) []int {
	take := int(math.Ceil(frac * float64(n)))
	if frac >= 1 || take >= n || take < 4*minChild {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	perm := rng.Perm(n)
	rows := perm[:take]
	sort.Ints(rows)
	return rows
}

func sampleCols(d int, frac float64, rng *rand.Rand) []int {
	take := int(math.Ceil(frac * float64(d)))
	if frac >= 1 || take >= d || take < 1 {
		cols := make([]int, d)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	perm := rng.Perm(d)
	cols := perm[:take]
	sort.Ints(cols)
	return cols
}

// treeBuilder grows one depth-limited tree on gradient statistics.
type treeBuilder struct {
	X          [][]float64
	grad, hess []float64
	params     Params
	cols       []int
	nodes      []Node
}

func (b *treeBuilder) build(rows []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return Tree{Nodes: append([]Node(nil), b.nodes...)}
}

// grow appends the subtree for rows and returns its root index.
func (b *treeBuilder) grow(rows []int, depth int) int32 {
	var G, H float64
	for _, i := range rows {
		G += b.grad[i]
		H += b.hess[i]
	}

	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{})

	if depth >= b.params.MaxDepth || len(rows) < 2*b.params.MinChildSamples {
		b.nodes[id] = b.leaf(G, H)
		return id
	}

	split, ok := b.bestSplit(rows, G, H)
	if !ok {
		b.nodes[id] = b.leaf(G, H)
		return id
	}

	var left, right []int
	for _, i := range rows {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	leftID := b.grow(left, depth+1)
	rightID := b.grow(right, depth+1)
	b.nodes[id] = Node{
		Feature:   split.feature,
		Threshold: split.threshold,
		Left:      leftID,
		Right:     rightID,
		Gain:      split.gain,
	}
	return id
}

func (b *treeBuilder) leaf(G, H float64) Node {
	return Node{
		Leaf:  true,
		Value: -G / (H + b.params.Lambda) * b.params.LearningRate,
	}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans every candidate column for the threshold with the
// highest structure-score gain, honoring the minimum child size.
func (b *treeBuilder) bestSplit(rows []int, G, H float64) (split, bool) {
	lambda := b.params.Lambda
	parentScore := G * G / (H + lambda)

	best := split{gain: b.params.MinSplitGain}
	found := false

	type sample struct {
		value float64
		grad  float64
		hess  float64
	}
	samples := make([]sample, len(rows))

	for _, feature := range b.cols {
		for k, i := range rows {
			samples[k] = sample{value: b.X[i][feature], grad: b.grad[i], hess: b.hess[i]}
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].value < samples[j].value })

		var GL, HL float64
		for k := 0; k < len(samples)-1; k++ {
			GL += samples[k].grad
			HL += samples[k].hess

			if k+1 < b.params.MinChildSamples || len(samples)-k-1 < b.params.MinChildSamples {
				continue
			}
			if samples[k].value == samples[k+1].value {
				continue
			}

			GR := G - GL
			HR := H - HL
			gain := 0.5 * (GL*GL/(HL+lambda) + GR*GR/(HR+lambda) - parentScore)
			if gain > best.gain {
				best = split{
					feature:   feature,
					threshold: (samples[k].value + samples[k+1].value) / 2,
					gain:      gain,
				}
				found = true
			}
		}
	}
	return best, found
}
