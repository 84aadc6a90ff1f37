package trainer

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestSplitDates_TrailingBlocks(t *testing.T) {
	split, err := SplitDates("points", dates(40), 2, 2)
	if err != nil {
		t.Fatalf("SplitDates failed: %v", err)
	}

	if len(split.Train) != 36 || len(split.Val) != 2 || len(split.Test) != 2 {
		t.Fatalf("block sizes = %d/%d/%d, want 36/2/2",
			len(split.Train), len(split.Val), len(split.Test))
	}

	// Strict ordering across block boundaries.
	lastTrain := split.Train[len(split.Train)-1]
	if !lastTrain.Before(split.Val[0]) {
		t.Errorf("last train date %v not before first val date %v", lastTrain, split.Val[0])
	}
	lastVal := split.Val[len(split.Val)-1]
	if !lastVal.Before(split.Test[0]) {
		t.Errorf("last val date %v not before first test date %v", lastVal, split.Test[0])
	}

	// Test block is the most recent dates.
	all := dates(40)
	if !split.Test[1].Equal(all[39]) || !split.Test[0].Equal(all[38]) {
		t.Errorf("test block = %v, want the two most recent dates", split.Test)
	}
}

func TestSplitDates_DuplicatesAndOrder(t *testing.T) {
	base := dates(10)
	shuffled := append([]time.Time{base[7], base[2], base[7]}, base...)

	split, err := SplitDates("points", shuffled, 2, 3)
	if err != nil {
		t.Fatalf("SplitDates failed: %v", err)
	}
	if total := len(split.Train) + len(split.Val) + len(split.Test); total != 10 {
		t.Errorf("distinct dates covered = %d, want 10", total)
	}
	for i := 1; i < len(split.Train); i++ {
		if !split.Train[i-1].Before(split.Train[i]) {
			t.Fatalf("train block not sorted at %d", i)
		}
	}
}

func TestSplitDates_InsufficientData(t *testing.T) {
	_, err := SplitDates("points", dates(10), 3, 7)
	if err == nil {
		t.Fatal("expected error when holdouts consume every date")
	}
	if !IsInsufficientData(err) {
		t.Fatalf("expected InsufficientDataError, got %T: %v", err, err)
	}

	var insuff *InsufficientDataError
	if !errors.As(err, &insuff) {
		t.Fatal("errors.As failed")
	}
	if insuff.Have != 10 || insuff.Need != 10 {
		t.Errorf("have/need = %d/%d, want 10/10", insuff.Have, insuff.Need)
	}
}

func TestSplitDates_RejectsZeroWindows(t *testing.T) {
	if _, err := SplitDates("points", dates(40), 0, 7); err == nil {
		t.Error("expected error for zero val window")
	}
	if _, err := SplitDates("points", dates(40), 3, 0); err == nil {
		t.Error("expected error for zero test window")
	}
}

func TestPartitionRows(t *testing.T) {
	all := dates(8)
	var rows []store.PropRow
	for _, d := range all {
		// Two rows per date to confirm the partition keys on date, not row.
		rows = append(rows,
			store.PropRow{PlayerID: 1, GameDate: d, ActualValue: sql.NullFloat64{Float64: 10, Valid: true}},
			store.PropRow{PlayerID: 2, GameDate: d},
		)
	}

	split, err := SplitDates("points", all, 2, 2)
	if err != nil {
		t.Fatalf("SplitDates failed: %v", err)
	}

	train, val, test := partitionRows(rows, split)
	if len(train) != 8 || len(val) != 4 || len(test) != 4 {
		t.Fatalf("partition sizes = %d/%d/%d, want 8/4/4", len(train), len(val), len(test))
	}

	for _, row := range test {
		if row.GameDate.Before(split.Test[0]) {
			t.Errorf("test row dated %v precedes the test block", row.GameDate)
		}
	}
}
