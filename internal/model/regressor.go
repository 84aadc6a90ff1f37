package model

import "fmt"

// DefaultRegressorParams mirror the tuned defaults the pipeline trains
// stat-value models with.
func DefaultRegressorParams() Params {
	return Params{
		Rounds:              500,
		LearningRate:        0.05,
		MaxDepth:            5,
		MinChildSamples:     20,
		Lambda:              1.0,
		MinSplitGain:        0,
		SubsampleRows:       0.8,
		SubsampleColumns:    0.8,
		EarlyStoppingRounds: 50,
		Seed:                42,
	}
}

// Regressor predicts raw stat values (points, rebounds, ...) with
// squared-loss gradient boosting.
type Regressor struct {
	Params      Params    `json:"params"`
	Base        float64   `json:"base"`
	Trees       []Tree    `json:"trees"`
	Importance  []float64 `json:"importance"`
	NumFeatures int       `json:"num_features"`
	BestRound   int       `json:"best_round"`
	Fitted      bool      `json:"fitted"`
}

// NewRegressor creates an unfitted regressor with default parameters.
func NewRegressor() *Regressor {
	return &Regressor{Params: DefaultRegressorParams()}
}

// Fit trains on X/y. When a validation set is supplied, training early
// stops on validation loss; without one, all rounds run.
func (r *Regressor) Fit(X [][]float64, y []float64, Xval [][]float64, yval []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("regressor fit: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("regressor fit: %d rows but %d targets", len(X), len(y))
	}
	if len(Xval) != len(yval) {
		return fmt.Errorf("regressor fit: %d validation rows but %d targets", len(Xval), len(yval))
	}

	res := boost(X, y, Xval, yval, squaredLoss{}, r.Params)
	r.Base = res.base
	r.Trees = res.trees
	r.Importance = res.importance
	r.NumFeatures = len(X[0])
	r.BestRound = res.bestRound
	r.Fitted = true
	return nil
}

// Predict returns predicted stat values.
func (r *Regressor) Predict(X [][]float64) ([]float64, error) {
	if !r.Fitted {
		return nil, ErrNotTrained
	}
	out := make([]float64, len(X))
	for i, x := range X {
		pred := r.Base
		for t := range r.Trees {
			pred += r.Trees[t].Predict(x)
		}
		out[i] = pred
	}
	return out, nil
}

// FeatureImportances returns total split gain per feature index.
func (r *Regressor) FeatureImportances() []float64 {
	return append([]float64(nil), r.Importance...)
}
