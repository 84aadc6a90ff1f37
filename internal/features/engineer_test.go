package features

import (
	"database/sql"
	"testing"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func ns(v string) sql.NullString   { return sql.NullString{String: v, Valid: true} }

// basePointsRow is a snapshot-complete row with no line and no odds, the
// shape historical game-log rows arrive in.
func basePointsRow() store.PropRow {
	return store.PropRow{
		PlayerID: 1,
		GameDate: time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
		StatType: "points",
		L5Stat:   nf(22),
		L10Stat:  nf(21),
		L20Stat:  nf(20.5),
	}
}

func TestTransformRow_LineFeatures(t *testing.T) {
	e := NewEngineer("points")
	row := basePointsRow()
	row.Line = nf(25.5)
	row.L5Stat = nf(28)
	row.L10Stat = nf(24)
	row.L10StatStd = nf(4)

	v := e.TransformRow(row)

	if got := v.Get("line_vs_l5"); !almostEqual(got, -2.5, 1e-9) {
		t.Errorf("line_vs_l5 = %v, want -2.5", got)
	}
	if got := v.Get("line_vs_l10"); !almostEqual(got, 1.5, 1e-9) {
		t.Errorf("line_vs_l10 = %v, want 1.5", got)
	}
	if got := v.Get("line_pct_l10"); !almostEqual(got, 6.25, 1e-9) {
		t.Errorf("line_pct_l10 = %v, want 6.25", got)
	}
	if got := v.Get("line_std_units"); !almostEqual(got, 0.375, 1e-9) {
		t.Errorf("line_std_units = %v, want 0.375", got)
	}
	if got := v.Get("line_above_l10"); got != 1 {
		t.Errorf("line_above_l10 = %v, want 1", got)
	}
	if got := v.Get("line_above_l5"); got != 0 {
		t.Errorf("line_above_l5 = %v, want 0", got)
	}
}

func TestTransformRow_NoLineDefaults(t *testing.T) {
	e := NewEngineer("points")
	row := basePointsRow()
	row.StatTrend = nf(3) // trending up, but no line to diverge from

	v := e.TransformRow(row)

	for _, col := range []string{"line", "line_vs_l10", "line_pct_l10", "line_std_units", "line_above_l10"} {
		if got := v.Get(col); got != 0 {
			t.Errorf("%s = %v for a line-less row, want 0", col, got)
		}
	}
	if got := v.Get("trending_up_line_low"); got != 0 {
		t.Errorf("trending_up_line_low = %v for a line-less row, want 0", got)
	}
}

func TestTransformRow_OddsDefaults(t *testing.T) {
	e := NewEngineer("points")
	v := e.TransformRow(basePointsRow())

	if got := v.Get("has_odds"); got != 0 {
		t.Errorf("has_odds = %v without odds, want 0", got)
	}
	if got := v.Get("over_fair_prob"); !almostEqual(got, 0.5, 1e-9) {
		t.Errorf("over_fair_prob default = %v, want 0.5", got)
	}
	if got := v.Get("vig_pct"); got != 0 {
		t.Errorf("vig_pct default = %v, want 0", got)
	}
}

func TestTransformRow_Temporal(t *testing.T) {
	e := NewEngineer("points")
	row := basePointsRow()
	// 2026-01-17 is a Saturday.
	row.GameDate = time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)

	v := e.TransformRow(row)

	if got := v.Get("day_of_week"); got != 5 {
		t.Errorf("day_of_week = %v for Saturday, want 5", got)
	}
	if got := v.Get("is_weekend"); got != 1 {
		t.Errorf("is_weekend = %v for Saturday, want 1", got)
	}
	if got := v.Get("month"); got != 1 {
		t.Errorf("month = %v, want 1", got)
	}
}

func TestTransformRow_SportsbookOneHots(t *testing.T) {
	e := NewEngineer("points")

	row := basePointsRow()
	row.Sportsbook = ns("fanduel")
	v := e.TransformRow(row)
	if v.Get("book_fanduel") != 1 || v.Get("book_underdog") != 0 || v.Get("book_other") != 0 {
		t.Errorf("fanduel one-hots wrong: fd=%v ud=%v other=%v",
			v.Get("book_fanduel"), v.Get("book_underdog"), v.Get("book_other"))
	}

	row.Sportsbook = ns("caesars")
	v = e.TransformRow(row)
	if v.Get("book_other") != 1 {
		t.Errorf("book_other = %v for an unlisted book, want 1", v.Get("book_other"))
	}
}

func TestClassifierFeatures_SupersetOfRegressor(t *testing.T) {
	e := NewEngineer("points")
	reg := e.RegressorFeatures()
	clf := e.ClassifierFeatures()

	if len(clf) <= len(reg) {
		t.Fatalf("classifier list (%d) should extend the regressor list (%d)", len(clf), len(reg))
	}
	for i, col := range reg {
		if clf[i] != col {
			t.Fatalf("classifier column %d = %q, regressor has %q; shared prefix must match", i, clf[i], col)
		}
	}

	seen := make(map[string]bool)
	for _, col := range clf {
		if seen[col] {
			t.Fatalf("duplicate classifier column %q", col)
		}
		seen[col] = true
	}
}

func TestMatrix_ColumnOrder(t *testing.T) {
	vectors := []Vector{
		{"a": 1, "b": 2},
		{"b": 4},
	}
	m := Matrix(vectors, []string{"b", "a", "missing"})

	want := [][]float64{{2, 1, 0}, {4, 0, 0}}
	for i := range want {
		for j := range want[i] {
			if m[i][j] != want[i][j] {
				t.Errorf("m[%d][%d] = %v, want %v", i, j, m[i][j], want[i][j])
			}
		}
	}
}
