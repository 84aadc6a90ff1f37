// Package backtest replays saved models over already-resolved props and
// settles every non-skip recommendation against what actually happened.
// It answers the only question that matters before betting real units:
// would the current model pair have made money on the recent window.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortuna/propcast/internal/eval"
	"github.com/fortuna/propcast/internal/predictor"
	"github.com/fortuna/propcast/internal/store"
)

// OutcomeLoader is the slice of the storage layer a backtest needs.
type OutcomeLoader interface {
	ResolvedProps(ctx context.Context, statType string, start, end time.Time) ([]store.PropRow, error)
	OutcomeDateRange(ctx context.Context, statType string) (time.Time, time.Time, error)
}

// Config holds the replay window and scoring setup.
type Config struct {
	// Days is the trailing window length, counted back from the most
	// recent resolved outcome.
	Days     int
	ModelDir string
	Policy   predictor.Policy
	// Buckets is the number of confidence-calibration bands to report.
	Buckets int
}

// DefaultConfig returns the standard backtest window.
func DefaultConfig() Config {
	return Config{Days: 14, ModelDir: "trained_models", Policy: predictor.DefaultPolicy(), Buckets: 5}
}

// SettledBet is one placed recommendation with its resolution.
type SettledBet struct {
	Prediction  predictor.Prediction `json:"prediction"`
	ActualValue float64              `json:"actual_value"`
	Won         bool                 `json:"won"`
	Push        bool                 `json:"push"`
	ProfitUnits float64              `json:"profit_units"`
}

// Result is the full outcome of a backtest for one stat type.
type Result struct {
	StatType    string              `json:"stat_type"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	PropsScored int                 `json:"props_scored"`
	BetsPlaced  int                 `json:"bets_placed"`
	Skipped     int                 `json:"skipped"`
	Pushes      int                 `json:"pushes"`
	Betting     eval.BettingMetrics `json:"betting"`
	Calibration []eval.Bucket       `json:"calibration"`
	Bets        []SettledBet        `json:"bets"`
}

// Runner backtests one stat type with its saved model pair.
type Runner struct {
	loader OutcomeLoader
	cfg    Config
	log    zerolog.Logger
}

// NewRunner creates a backtest runner.
func NewRunner(loader OutcomeLoader, cfg Config, log zerolog.Logger) *Runner {
	return &Runner{loader: loader, cfg: cfg, log: log}
}

// Run replays the trailing window for one stat type. Rows the model
// skips cost nothing and settle nothing; pushes return the stake.
func (r *Runner) Run(ctx context.Context, statType string) (*Result, error) {
	pred, err := predictor.New(r.cfg.ModelDir, statType, r.cfg.Policy, r.log)
	if err != nil {
		return nil, err
	}

	_, last, err := r.loader.OutcomeDateRange(ctx, statType)
	if err != nil {
		return nil, fmt.Errorf("finding backtest window for %q: %w", statType, err)
	}
	start := last.AddDate(0, 0, -r.cfg.Days)

	rows, err := r.loader.ResolvedProps(ctx, statType, start, last)
	if err != nil {
		return nil, fmt.Errorf("loading resolved props for %q: %w", statType, err)
	}

	predictions, err := pred.Predict(rows)
	if err != nil {
		return nil, err
	}

	result := &Result{StatType: statType, Start: start, End: last, PropsScored: len(rows)}

	var yTrue []int
	var overProbs []float64
	for i, p := range predictions {
		row := rows[i]
		if !row.ActualValue.Valid || !row.Line.Valid {
			continue
		}

		label := 0
		if row.ActualValue.Float64 > row.Line.Float64 {
			label = 1
		}
		yTrue = append(yTrue, label)
		overProbs = append(overProbs, p.OverProb)

		if p.Recommendation == predictor.RecommendSkip {
			result.Skipped++
			continue
		}
		result.Bets = append(result.Bets, settle(p, row))
	}

	result.BetsPlaced = len(result.Bets)
	result.Betting = r.settleMetrics(result.Bets)
	result.Pushes = countPushes(result.Bets)
	result.Calibration = eval.ConfidenceBuckets(yTrue, overProbs, r.cfg.Buckets)

	r.log.Info().
		Str("stat_type", statType).
		Int("props", result.PropsScored).
		Int("bets", result.BetsPlaced).
		Float64("roi_pct", result.Betting.ROIPct).
		Msg("backtest complete")
	return result, nil
}

// settle resolves one bet against the actual stat value. The bet's own
// odds price it when present; standard juice otherwise.
func settle(p predictor.Prediction, row store.PropRow) SettledBet {
	actual := row.ActualValue.Float64
	line := row.Line.Float64

	bet := SettledBet{Prediction: p, ActualValue: actual}
	if actual == line {
		bet.Push = true
		return bet
	}

	over := actual > line
	bet.Won = (p.Recommendation == predictor.RecommendOver) == over

	odds := float64(eval.StandardOdds)
	switch {
	case p.Recommendation == predictor.RecommendOver && row.OverOdds.Valid:
		odds = row.OverOdds.Float64
	case p.Recommendation == predictor.RecommendUnder && row.UnderOdds.Valid:
		odds = row.UnderOdds.Float64
	}

	if bet.Won {
		bet.ProfitUnits = eval.DecimalOdds(odds) - 1
	} else {
		bet.ProfitUnits = -1
	}
	return bet
}

// settleMetrics aggregates settled bets. Pushes do not count as bets
// placed for ROI purposes.
func (r *Runner) settleMetrics(bets []SettledBet) eval.BettingMetrics {
	var m eval.BettingMetrics
	for _, b := range bets {
		if b.Push {
			continue
		}
		m.TotalBets++
		if b.Won {
			m.Wins++
		} else {
			m.Losses++
		}
		m.ProfitUnits += b.ProfitUnits
	}
	if m.TotalBets > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TotalBets)
		m.ROIPct = m.ProfitUnits / float64(m.TotalBets) * 100
	}
	return m
}

func countPushes(bets []SettledBet) int {
	n := 0
	for _, b := range bets {
		if b.Push {
			n++
		}
	}
	return n
}

// RunAll backtests each stat type independently, isolating failures.
func (r *Runner) RunAll(ctx context.Context, statTypes []string) (map[string]*Result, map[string]error) {
	results := make(map[string]*Result)
	failures := make(map[string]error)
	for _, statType := range statTypes {
		res, err := r.Run(ctx, statType)
		if err != nil {
			r.log.Error().Err(err).Str("stat_type", statType).Msg("backtest failed")
			failures[statType] = err
			continue
		}
		results[statType] = res
	}
	return results, failures
}
