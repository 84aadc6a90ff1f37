// Package eval provides stat-agnostic metrics for the prop models:
// classification quality, regression error, betting economics, and
// confidence-bucket calibration. Everything here is a pure function over
// slices so the trainer and offline backtests share one implementation.
package eval

import (
	"math"
	"sort"
)

// StandardOdds is the default two-way juice used in training-time
// betting simulations.
const StandardOdds = -110

// ClassifierMetrics summarizes over/under classification quality.
type ClassifierMetrics struct {
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	ROCAUC        float64 `json:"roc_auc"`
	BrierScore    float64 `json:"brier_score"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Classifier computes classification metrics. overProb may be nil when
// only hard labels are available; the probability-based metrics stay
// zero in that case.
func Classifier(yTrue, yPred []int, overProb []float64) ClassifierMetrics {
	var m ClassifierMetrics
	n := len(yTrue)
	if n == 0 {
		return m
	}

	var correct, tp, fp, fn int
	for i := range yTrue {
		if yPred[i] == yTrue[i] {
			correct++
		}
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		}
	}
	m.Accuracy = float64(correct) / float64(n)
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}

	if overProb == nil {
		return m
	}

	m.ROCAUC = rocAUC(yTrue, overProb)

	var brier, conf float64
	for i, p := range overProb {
		d := p - float64(yTrue[i])
		brier += d * d
		conf += math.Max(p, 1-p)
	}
	m.BrierScore = brier / float64(n)
	m.AvgConfidence = conf / float64(n)
	return m
}

// rocAUC is the rank-based (Mann-Whitney) AUC with ties averaged.
func rocAUC(yTrue []int, score []float64) float64 {
	n := len(yTrue)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return score[idx[a]] < score[idx[b]] })

	// Average ranks across ties.
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && score[idx[j+1]] == score[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, rankSum float64
	for i, y := range yTrue {
		if y == 1 {
			pos++
			rankSum += ranks[i]
		}
	}
	neg := float64(n) - pos
	if pos == 0 || neg == 0 {
		return 0
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// RegressorMetrics summarizes stat-value prediction error. The edge
// metrics are only populated when lines were supplied.
type RegressorMetrics struct {
	MAE             float64 `json:"mae"`
	RMSE            float64 `json:"rmse"`
	MeanError       float64 `json:"mean_error"`
	EdgeAccuracy    float64 `json:"edge_accuracy,omitempty"`
	EdgeCorrelation float64 `json:"edge_correlation,omitempty"`
	HasEdgeMetrics  bool    `json:"has_edge_metrics"`
}

// Regressor computes regression metrics. lines may be nil; when present
// it enables direction-of-edge accuracy and predicted-vs-actual edge
// correlation.
func Regressor(yTrue, yPred, lines []float64) RegressorMetrics {
	var m RegressorMetrics
	n := len(yTrue)
	if n == 0 {
		return m
	}

	var absSum, sqSum, errSum float64
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		absSum += math.Abs(d)
		sqSum += d * d
		errSum += d
	}
	m.MAE = absSum / float64(n)
	m.RMSE = math.Sqrt(sqSum / float64(n))
	m.MeanError = errSum / float64(n)

	if lines == nil {
		return m
	}

	m.HasEdgeMetrics = true
	var directionHits int
	predEdge := make([]float64, n)
	actualEdge := make([]float64, n)
	for i := range yTrue {
		predEdge[i] = yPred[i] - lines[i]
		actualEdge[i] = yTrue[i] - lines[i]
		if (yPred[i] > lines[i]) == (yTrue[i] > lines[i]) {
			directionHits++
		}
	}
	m.EdgeAccuracy = float64(directionHits) / float64(n)
	if n > 1 {
		m.EdgeCorrelation = correlation(predEdge, actualEdge)
	}
	return m
}

func correlation(a, b []float64) float64 {
	n := float64(len(a))
	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// BettingMetrics is the outcome of a flat one-unit-per-bet simulation.
type BettingMetrics struct {
	TotalBets   int     `json:"total_bets"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
	ProfitUnits float64 `json:"profit_units"`
	ROIPct      float64 `json:"roi_pct"`
	DecimalOdds float64 `json:"decimal_odds"`
}

// DecimalOdds converts American odds to decimal payout odds.
func DecimalOdds(american float64) float64 {
	if american < 0 {
		return 100/-american + 1
	}
	return american/100 + 1
}

// BettingEV simulates betting one unit on every prediction at the given
// American odds and settles against the actual outcomes.
func BettingEV(predictions, actuals []int, odds float64) BettingMetrics {
	dec := DecimalOdds(odds)
	m := BettingMetrics{DecimalOdds: dec, TotalBets: len(predictions)}

	for i := range predictions {
		if predictions[i] == actuals[i] {
			m.Wins++
		} else {
			m.Losses++
		}
	}

	m.ProfitUnits = float64(m.Wins)*(dec-1) - float64(m.Losses)
	if m.TotalBets > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TotalBets)
		m.ROIPct = m.ProfitUnits / float64(m.TotalBets) * 100
	}
	return m
}

// Bucket is one equal-width confidence band with its realized accuracy.
type Bucket struct {
	Low           float64 `json:"low"`
	High          float64 `json:"high"`
	Count         int     `json:"count"`
	Accuracy      float64 `json:"accuracy"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// ConfidenceBuckets partitions predictions by confidence |p-0.5|*2 into
// nBuckets equal-width bands and reports per-band accuracy. A calibrated
// model's accuracy should rise with confidence.
func ConfidenceBuckets(yTrue []int, overProb []float64, nBuckets int) []Bucket {
	if nBuckets <= 0 {
		return nil
	}
	width := 1.0 / float64(nBuckets)

	var out []Bucket
	for b := 0; b < nBuckets; b++ {
		low := float64(b) * width
		high := low + width

		var count, correct int
		var confSum float64
		for i, p := range overProb {
			conf := math.Abs(p-0.5) * 2
			// Last bucket is closed on the right so conf=1 lands somewhere.
			in := conf >= low && (conf < high || (b == nBuckets-1 && conf <= high))
			if !in {
				continue
			}
			count++
			confSum += conf
			pred := 0
			if p > 0.5 {
				pred = 1
			}
			if pred == yTrue[i] {
				correct++
			}
		}

		bucket := Bucket{Low: low, High: high, Count: count}
		if count > 0 {
			bucket.Accuracy = float64(correct) / float64(count)
			bucket.AvgConfidence = confSum / float64(count)
		}
		out = append(out, bucket)
	}
	return out
}
