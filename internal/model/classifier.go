package model

import "fmt"

// DefaultClassifierParams mirror the tuned defaults the pipeline trains
// over/under models with.
func DefaultClassifierParams() Params {
	return Params{
		Rounds:              500,
		LearningRate:        0.05,
		MaxDepth:            6,
		MinChildSamples:     20,
		Lambda:              1.0,
		MinSplitGain:        0,
		SubsampleRows:       0.8,
		SubsampleColumns:    0.8,
		EarlyStoppingRounds: 50,
		Seed:                42,
	}
}

// Classifier predicts the probability a prop resolves over, trained with
// logistic-loss gradient boosting on 0/1 hit labels.
type Classifier struct {
	Params      Params    `json:"params"`
	Base        float64   `json:"base"`
	Trees       []Tree    `json:"trees"`
	Importance  []float64 `json:"importance"`
	NumFeatures int       `json:"num_features"`
	BestRound   int       `json:"best_round"`
	Fitted      bool      `json:"fitted"`
}

// NewClassifier creates an unfitted classifier with default parameters.
func NewClassifier() *Classifier {
	return &Classifier{Params: DefaultClassifierParams()}
}

// Fit trains on X and 0/1 labels. When a validation set is supplied,
// training early stops on validation log loss.
func (c *Classifier) Fit(X [][]float64, y []int, Xval [][]float64, yval []int) error {
	if len(X) == 0 {
		return fmt.Errorf("classifier fit: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("classifier fit: %d rows but %d labels", len(X), len(y))
	}
	if len(Xval) != len(yval) {
		return fmt.Errorf("classifier fit: %d validation rows but %d labels", len(Xval), len(yval))
	}

	res := boost(X, toFloat(y), Xval, toFloat(yval), logisticLoss{}, c.Params)
	c.Base = res.base
	c.Trees = res.trees
	c.Importance = res.importance
	c.NumFeatures = len(X[0])
	c.BestRound = res.bestRound
	c.Fitted = true
	return nil
}

// PredictProba returns the probability of the over for each row.
func (c *Classifier) PredictProba(X [][]float64) ([]float64, error) {
	if !c.Fitted {
		return nil, ErrNotTrained
	}
	out := make([]float64, len(X))
	for i, x := range X {
		raw := c.Base
		for t := range c.Trees {
			raw += c.Trees[t].Predict(x)
		}
		out[i] = sigmoid(raw)
	}
	return out, nil
}

// Predict returns 0/1 labels at the 0.5 threshold.
func (c *Classifier) Predict(X [][]float64) ([]int, error) {
	probs, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// FeatureImportances returns total split gain per feature index.
func (c *Classifier) FeatureImportances() []float64 {
	return append([]float64(nil), c.Importance...)
}

func toFloat(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}
