package trainer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

// InsufficientDataError reports a training source with fewer distinct
// dates than the requested holdout windows. It is always fatal to the
// stat type's run: truncating the holdout would silently weaken the
// only leakage guard at the training boundary.
type InsufficientDataError struct {
	StatType string
	Have     int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %q: have %d distinct dates, need more than %d", e.StatType, e.Have, e.Need)
}

// IsInsufficientData reports whether err is an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// DateSplit holds the three contiguous blocks of a time-ordered split.
// Every train date precedes every val date, which precede every test
// date; the blocks are disjoint and together cover all input dates.
type DateSplit struct {
	Train []time.Time
	Val   []time.Time
	Test  []time.Time
}

// SplitDates splits distinct game dates into contiguous trailing blocks:
// the most recent testDays dates are the test block, the valDays dates
// before them are validation, everything earlier trains. Input may be
// unsorted and contain duplicates.
func SplitDates(statType string, dates []time.Time, valDays, testDays int) (DateSplit, error) {
	if valDays < 1 || testDays < 1 {
		return DateSplit{}, fmt.Errorf("split for %q: holdout windows must be at least 1 day (val=%d test=%d)", statType, valDays, testDays)
	}

	distinct := distinctSortedDates(dates)
	total := valDays + testDays
	if len(distinct) <= total {
		return DateSplit{}, &InsufficientDataError{StatType: statType, Have: len(distinct), Need: total}
	}

	n := len(distinct)
	return DateSplit{
		Train: distinct[:n-total],
		Val:   distinct[n-total : n-testDays],
		Test:  distinct[n-testDays:],
	}, nil
}

func distinctSortedDates(dates []time.Time) []time.Time {
	seen := make(map[string]time.Time, len(dates))
	for _, d := range dates {
		seen[dateKey(d)] = d
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// partitionRows splits rows into train/val/test slices by date block
// membership, preserving input order inside each block.
func partitionRows(rows []store.PropRow, split DateSplit) (train, val, test []store.PropRow) {
	membership := make(map[string]int, len(split.Train)+len(split.Val)+len(split.Test))
	for _, d := range split.Train {
		membership[dateKey(d)] = 0
	}
	for _, d := range split.Val {
		membership[dateKey(d)] = 1
	}
	for _, d := range split.Test {
		membership[dateKey(d)] = 2
	}

	for _, row := range rows {
		switch block, ok := membership[dateKey(row.GameDate)]; {
		case !ok:
		case block == 0:
			train = append(train, row)
		case block == 1:
			val = append(val, row)
		default:
			test = append(test, row)
		}
	}
	return train, val, test
}

func rowDates(rows []store.PropRow) []time.Time {
	out := make([]time.Time, len(rows))
	for i, row := range rows {
		out[i] = row.GameDate
	}
	return out
}
