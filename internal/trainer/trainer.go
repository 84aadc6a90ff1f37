// Package trainer orchestrates model training for one stat type: load
// temporally-joined rows, engineer features, split by contiguous
// trailing date blocks, fit with early stopping, evaluate on the
// untouched test block, and persist the paired artifact.
package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fortuna/propcast/internal/artifact"
	"github.com/fortuna/propcast/internal/eval"
	"github.com/fortuna/propcast/internal/features"
	"github.com/fortuna/propcast/internal/model"
	"github.com/fortuna/propcast/internal/store"
)

// overfitGapThreshold is the validation-vs-test accuracy gap above which
// a training run gets flagged (never failed) as possibly overfit.
const overfitGapThreshold = 0.05

// DataLoader is the slice of the storage layer the trainer needs.
type DataLoader interface {
	// HistoricalGames returns game-log rows joined with pre-game
	// snapshots: the large, line-less regressor source.
	HistoricalGames(ctx context.Context, statType string, minMinutes float64) ([]store.PropRow, error)
	// PropOutcomes returns resolved, line-carrying prop rows: the small
	// labeled classifier source.
	PropOutcomes(ctx context.Context, statType string) ([]store.PropRow, error)
}

// Config holds the training windows and artifact destination.
type Config struct {
	// Classifier holdout windows (prop outcomes span few weeks).
	ValDays  int
	TestDays int
	// Regressor holdout windows (game logs span seasons).
	HistoricalValDays  int
	HistoricalTestDays int

	MinMinutes float64
	ModelDir   string
}

// DefaultConfig returns the standard training windows.
func DefaultConfig() Config {
	return Config{
		ValDays:            3,
		TestDays:           7,
		HistoricalValDays:  15,
		HistoricalTestDays: 30,
		MinMinutes:         10,
		ModelDir:           "trained_models",
	}
}

// RegressorReport summarizes the regressor pipeline of one run.
type RegressorReport struct {
	Metrics      eval.RegressorMetrics `json:"metrics"`
	TrainSamples int                   `json:"train_samples"`
	ValSamples   int                   `json:"val_samples"`
	TestSamples  int                   `json:"test_samples"`
	TrainDays    int                   `json:"train_days"`
	ValDays      int                   `json:"val_days"`
	TestDays     int                   `json:"test_days"`
}

// ClassifierReport summarizes the classifier pipeline of one run,
// including the training-time betting simulation at standard vig.
type ClassifierReport struct {
	Test           eval.ClassifierMetrics `json:"test"`
	Val            eval.ClassifierMetrics `json:"val"`
	Betting        eval.BettingMetrics    `json:"betting"`
	TrainSamples   int                    `json:"train_samples"`
	ValSamples     int                    `json:"val_samples"`
	TestSamples    int                    `json:"test_samples"`
	TrainDays      int                    `json:"train_days"`
	ValDays        int                    `json:"val_days"`
	TestDays       int                    `json:"test_days"`
	OverfitWarning bool                   `json:"overfit_warning"`
}

// Result is the full outcome of one stat type's training run.
type Result struct {
	StatType             string             `json:"stat_type"`
	RunID                uuid.UUID          `json:"run_id"`
	Regressor            RegressorReport    `json:"regressor"`
	Classifier           ClassifierReport   `json:"classifier"`
	RegressorImportance  map[string]float64 `json:"regressor_importance"`
	ClassifierImportance map[string]float64 `json:"classifier_importance"`
	Artifact             *artifact.Artifact `json:"-"`
}

// Trainer runs the two training pipelines for exactly one stat type. It
// holds no cross-stat state; concurrent trainers for different stat
// types are independent.
type Trainer struct {
	statType string
	loader   DataLoader
	engineer *features.Engineer
	cfg      Config
	log      zerolog.Logger
}

// New creates a trainer for a stat type.
func New(statType string, loader DataLoader, cfg Config, log zerolog.Logger) *Trainer {
	return &Trainer{
		statType: statType,
		loader:   loader,
		engineer: features.NewEngineer(statType),
		cfg:      cfg,
		log:      log.With().Str("stat_type", statType).Logger(),
	}
}

// Train runs both pipelines and persists the paired artifact.
func (t *Trainer) Train(ctx context.Context) (*Result, error) {
	runID := uuid.New()
	result := &Result{StatType: t.statType, RunID: runID}

	regressor := model.NewRegressor()
	regFeatures := t.engineer.RegressorFeatures()
	if err := t.trainRegressor(ctx, regressor, regFeatures, result); err != nil {
		return nil, err
	}

	classifier := model.NewClassifier()
	clfFeatures := t.engineer.ClassifierFeatures()
	if err := t.trainClassifier(ctx, classifier, clfFeatures, result); err != nil {
		return nil, err
	}

	result.RegressorImportance = importanceByName(regFeatures, regressor.FeatureImportances())
	result.ClassifierImportance = importanceByName(clfFeatures, classifier.FeatureImportances())

	result.Artifact = &artifact.Artifact{
		StatType:           t.statType,
		RunID:              runID,
		TrainedAt:          time.Now().UTC(),
		Regressor:          regressor,
		RegressorFeatures:  regFeatures,
		Classifier:         classifier,
		ClassifierFeatures: clfFeatures,
	}
	if err := artifact.Save(result.Artifact, t.cfg.ModelDir); err != nil {
		return nil, fmt.Errorf("persisting artifact for %q: %w", t.statType, err)
	}

	t.log.Info().
		Str("run_id", runID.String()).
		Float64("regressor_mae", result.Regressor.Metrics.MAE).
		Float64("classifier_accuracy", result.Classifier.Test.Accuracy).
		Float64("betting_roi_pct", result.Classifier.Betting.ROIPct).
		Msg("training complete")
	return result, nil
}

// trainRegressor fits the stat-value model on historical game logs.
func (t *Trainer) trainRegressor(ctx context.Context, regressor *model.Regressor, cols []string, result *Result) error {
	rows, err := t.loader.HistoricalGames(ctx, t.statType, t.cfg.MinMinutes)
	if err != nil {
		return fmt.Errorf("loading historical games for %q: %w", t.statType, err)
	}
	if len(rows) == 0 {
		return &InsufficientDataError{StatType: t.statType, Have: 0, Need: t.cfg.HistoricalValDays + t.cfg.HistoricalTestDays}
	}

	split, err := SplitDates(t.statType, rowDates(rows), t.cfg.HistoricalValDays, t.cfg.HistoricalTestDays)
	if err != nil {
		return err
	}
	train, val, test := partitionRows(rows, split)

	t.log.Debug().
		Int("train_samples", len(train)).Int("val_samples", len(val)).Int("test_samples", len(test)).
		Int("train_days", len(split.Train)).Int("val_days", len(split.Val)).Int("test_days", len(split.Test)).
		Msg("regressor split")

	Xtrain := features.Matrix(t.engineer.Transform(train), cols)
	Xval := features.Matrix(t.engineer.Transform(val), cols)
	Xtest := features.Matrix(t.engineer.Transform(test), cols)

	if err := regressor.Fit(Xtrain, actualValues(train), Xval, actualValues(val)); err != nil {
		return fmt.Errorf("fitting regressor for %q: %w", t.statType, err)
	}

	pred, err := regressor.Predict(Xtest)
	if err != nil {
		return fmt.Errorf("evaluating regressor for %q: %w", t.statType, err)
	}

	result.Regressor = RegressorReport{
		Metrics:      eval.Regressor(actualValues(test), pred, nil),
		TrainSamples: len(train),
		ValSamples:   len(val),
		TestSamples:  len(test),
		TrainDays:    len(split.Train),
		ValDays:      len(split.Val),
		TestDays:     len(split.Test),
	}
	return nil
}

// trainClassifier fits the over/under model on resolved prop outcomes.
func (t *Trainer) trainClassifier(ctx context.Context, classifier *model.Classifier, cols []string, result *Result) error {
	rows, err := t.loader.PropOutcomes(ctx, t.statType)
	if err != nil {
		return fmt.Errorf("loading prop outcomes for %q: %w", t.statType, err)
	}
	if len(rows) == 0 {
		return &InsufficientDataError{StatType: t.statType, Have: 0, Need: t.cfg.ValDays + t.cfg.TestDays}
	}

	split, err := SplitDates(t.statType, rowDates(rows), t.cfg.ValDays, t.cfg.TestDays)
	if err != nil {
		return err
	}
	train, val, test := partitionRows(rows, split)

	t.log.Debug().
		Int("train_samples", len(train)).Int("val_samples", len(val)).Int("test_samples", len(test)).
		Int("train_days", len(split.Train)).Int("val_days", len(split.Val)).Int("test_days", len(split.Test)).
		Msg("classifier split")

	Xtrain := features.Matrix(t.engineer.Transform(train), cols)
	Xval := features.Matrix(t.engineer.Transform(val), cols)
	Xtest := features.Matrix(t.engineer.Transform(test), cols)

	if err := classifier.Fit(Xtrain, hitOverLabels(train), Xval, hitOverLabels(val)); err != nil {
		return fmt.Errorf("fitting classifier for %q: %w", t.statType, err)
	}

	testProbs, err := classifier.PredictProba(Xtest)
	if err != nil {
		return fmt.Errorf("evaluating classifier for %q: %w", t.statType, err)
	}
	valProbs, err := classifier.PredictProba(Xval)
	if err != nil {
		return fmt.Errorf("evaluating classifier for %q: %w", t.statType, err)
	}

	yTest := hitOverLabels(test)
	yVal := hitOverLabels(val)
	testPred := labelsFromProbs(testProbs)
	valPred := labelsFromProbs(valProbs)

	report := ClassifierReport{
		Test:         eval.Classifier(yTest, testPred, testProbs),
		Val:          eval.Classifier(yVal, valPred, valProbs),
		Betting:      eval.BettingEV(testPred, yTest, eval.StandardOdds),
		TrainSamples: len(train),
		ValSamples:   len(val),
		TestSamples:  len(test),
		TrainDays:    len(split.Train),
		ValDays:      len(split.Val),
		TestDays:     len(split.Test),
	}

	gap := report.Test.Accuracy - report.Val.Accuracy
	if gap > overfitGapThreshold || gap < -overfitGapThreshold {
		report.OverfitWarning = true
		t.log.Warn().
			Float64("val_accuracy", report.Val.Accuracy).
			Float64("test_accuracy", report.Test.Accuracy).
			Msg("large validation/test accuracy gap, possible overfitting")
	}

	result.Classifier = report
	return nil
}

// TrainAll trains each stat type independently. A failure is recorded
// against its stat type and never aborts the siblings.
func TrainAll(ctx context.Context, loader DataLoader, statTypes []string, cfg Config, log zerolog.Logger) (map[string]*Result, map[string]error) {
	results := make(map[string]*Result)
	failures := make(map[string]error)

	for _, statType := range statTypes {
		res, err := New(statType, loader, cfg, log).Train(ctx)
		if err != nil {
			log.Error().Err(err).Str("stat_type", statType).Msg("training failed")
			failures[statType] = err
			continue
		}
		results[statType] = res
	}
	return results, failures
}

func actualValues(rows []store.PropRow) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if row.ActualValue.Valid {
			out[i] = row.ActualValue.Float64
		}
	}
	return out
}

func hitOverLabels(rows []store.PropRow) []int {
	out := make([]int, len(rows))
	for i, row := range rows {
		if row.HitOver.Valid && row.HitOver.Bool {
			out[i] = 1
		}
	}
	return out
}

func labelsFromProbs(probs []float64) []int {
	out := make([]int, len(probs))
	for i, p := range probs {
		if p > 0.5 {
			out[i] = 1
		}
	}
	return out
}

func importanceByName(cols []string, imp []float64) map[string]float64 {
	out := make(map[string]float64, len(cols))
	for i, col := range cols {
		if i < len(imp) {
			out[col] = imp[i]
		}
	}
	return out
}
