// Package predictor runs inference for one stat type against a saved
// model pair and turns raw model output into betting recommendations.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortuna/propcast/internal/artifact"
	"github.com/fortuna/propcast/internal/features"
	"github.com/fortuna/propcast/internal/store"
)

// SchemaMismatchError reports a saved artifact whose frozen feature
// columns no longer match what the current feature engineer produces.
// The model must be retrained; silently reordering or dropping columns
// would feed the trees garbage.
type SchemaMismatchError struct {
	StatType string
	Model    string
	Frozen   []string
	Current  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s feature schema for %q changed since training: artifact has %d columns, engineer produces %d (retrain required)",
		e.Model, e.StatType, len(e.Frozen), len(e.Current))
}

// IsSchemaMismatch reports whether err is a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// Recommendation is the betting action for one prop.
type Recommendation string

const (
	RecommendOver  Recommendation = "OVER"
	RecommendUnder Recommendation = "UNDER"
	RecommendSkip  Recommendation = "SKIP"
)

// Policy holds the thresholds a prop must clear before it becomes a
// bet. Both gates must pass on the same side; everything else is SKIP.
type Policy struct {
	// MinConfidence is the over-probability bound: >= for OVER, and
	// symmetric (<= 1-MinConfidence) for UNDER.
	MinConfidence float64
	// MinEdgePct is the minimum predicted edge over the line, percent of
	// the line, in the recommended direction.
	MinEdgePct float64
}

// DefaultPolicy returns the standard recommendation thresholds.
func DefaultPolicy() Policy {
	return Policy{MinConfidence: 0.55, MinEdgePct: 2.0}
}

// Recommend applies the policy to one prop's model output.
func Recommend(overProb, edgePct float64, p Policy) Recommendation {
	switch {
	case overProb >= p.MinConfidence && edgePct >= p.MinEdgePct:
		return RecommendOver
	case overProb <= 1-p.MinConfidence && edgePct <= -p.MinEdgePct:
		return RecommendUnder
	default:
		return RecommendSkip
	}
}

// Prediction is the scored output for one upcoming prop.
type Prediction struct {
	PlayerID   int64     `json:"player_id"`
	PlayerName string    `json:"player_name,omitempty"`
	GameDate   time.Time `json:"game_date"`
	StatType   string    `json:"stat_type"`
	Line       float64   `json:"line"`
	Sportsbook string    `json:"sportsbook,omitempty"`

	PredictedValue float64        `json:"predicted_value"`
	OverProb       float64        `json:"over_prob"`
	UnderProb      float64        `json:"under_prob"`
	Edge           float64        `json:"edge"`
	EdgePct        float64        `json:"edge_pct"`
	Confidence     float64        `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
}

// Predictor scores upcoming props for one stat type with a loaded
// model pair. Construction validates the artifact's frozen feature
// schema against the current engineer; a Predictor that exists is safe
// to score with.
type Predictor struct {
	art      *artifact.Artifact
	engineer *features.Engineer
	policy   Policy
	log      zerolog.Logger
}

// New loads the artifact for a stat type and verifies its frozen
// feature columns still match the engineer's current output.
func New(modelDir, statType string, policy Policy, log zerolog.Logger) (*Predictor, error) {
	art, err := artifact.Load(modelDir, statType)
	if err != nil {
		return nil, err
	}
	return FromArtifact(art, policy, log)
}

// FromArtifact builds a predictor around an already-loaded artifact.
func FromArtifact(art *artifact.Artifact, policy Policy, log zerolog.Logger) (*Predictor, error) {
	engineer := features.NewEngineer(art.StatType)

	if !equalColumns(art.RegressorFeatures, engineer.RegressorFeatures()) {
		return nil, &SchemaMismatchError{
			StatType: art.StatType,
			Model:    "regressor",
			Frozen:   art.RegressorFeatures,
			Current:  engineer.RegressorFeatures(),
		}
	}
	if !equalColumns(art.ClassifierFeatures, engineer.ClassifierFeatures()) {
		return nil, &SchemaMismatchError{
			StatType: art.StatType,
			Model:    "classifier",
			Frozen:   art.ClassifierFeatures,
			Current:  engineer.ClassifierFeatures(),
		}
	}

	return &Predictor{
		art:      art,
		engineer: engineer,
		policy:   policy,
		log:      log.With().Str("stat_type", art.StatType).Logger(),
	}, nil
}

// StatType returns the stat type this predictor scores.
func (p *Predictor) StatType() string {
	return p.art.StatType
}

// Predict scores a batch of props. Rows are scored with the frozen
// training-time feature columns; output order matches input order.
func (p *Predictor) Predict(rows []store.PropRow) ([]Prediction, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	vectors := p.engineer.Transform(rows)
	Xreg := features.Matrix(vectors, p.art.RegressorFeatures)
	Xclf := features.Matrix(vectors, p.art.ClassifierFeatures)

	values, err := p.art.Regressor.Predict(Xreg)
	if err != nil {
		return nil, fmt.Errorf("scoring regressor for %q: %w", p.art.StatType, err)
	}
	overProbs, err := p.art.Classifier.PredictProba(Xclf)
	if err != nil {
		return nil, fmt.Errorf("scoring classifier for %q: %w", p.art.StatType, err)
	}

	out := make([]Prediction, len(rows))
	for i, row := range rows {
		pred := Prediction{
			PlayerID:       row.PlayerID,
			PlayerName:     row.PlayerName,
			GameDate:       row.GameDate,
			StatType:       p.art.StatType,
			PredictedValue: values[i],
			OverProb:       overProbs[i],
			UnderProb:      1 - overProbs[i],
			Confidence:     math.Abs(overProbs[i]-0.5) * 2,
		}
		if row.Line.Valid {
			pred.Line = row.Line.Float64
		}
		if row.Sportsbook.Valid {
			pred.Sportsbook = row.Sportsbook.String
		}

		pred.Edge = pred.PredictedValue - pred.Line
		if pred.Line != 0 {
			pred.EdgePct = pred.Edge / pred.Line * 100
		}
		pred.Recommendation = Recommend(pred.OverProb, pred.EdgePct, p.policy)
		out[i] = pred
	}

	p.log.Debug().Int("props", len(out)).Msg("scored upcoming props")
	return out, nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
