package store

import (
	"strings"
	"testing"
)

func TestStatColumn(t *testing.T) {
	cases := []struct {
		statType string
		want     string
	}{
		{"points", "pts"},
		{"rebounds", "reb"},
		{"assists", "ast"},
		{"three_points_made", "fg3m"},
	}
	for _, tc := range cases {
		got, err := StatColumn(tc.statType)
		if err != nil {
			t.Errorf("StatColumn(%q) failed: %v", tc.statType, err)
			continue
		}
		if got != tc.want {
			t.Errorf("StatColumn(%q) = %q, want %q", tc.statType, got, tc.want)
		}
	}
}

func TestStatColumn_RejectsUnknown(t *testing.T) {
	for _, statType := range []string{"pts_rebs_asts", "double_double", "", "points; DROP TABLE players"} {
		if _, err := StatColumn(statType); err == nil {
			t.Errorf("StatColumn(%q) accepted an unlisted stat type", statType)
		}
		if SupportedStatType(statType) {
			t.Errorf("SupportedStatType(%q) = true", statType)
		}
	}
}

func TestStatColumns_SafeIdentifiers(t *testing.T) {
	// Column prefixes get spliced into SQL, so the whitelist must hold
	// plain identifiers only.
	for statType, col := range statColumns {
		if col == "" || strings.ContainsAny(col, " ;'\"()-") {
			t.Errorf("column for %q is not a plain identifier: %q", statType, col)
		}
	}
}

func TestPriorityStatTypes_AllSupported(t *testing.T) {
	for _, st := range PriorityStatTypes {
		if !SupportedStatType(st) {
			t.Errorf("priority stat type %q missing from the column whitelist", st)
		}
	}
}
