package store

import "fmt"

// statColumns maps a prop stat type to the rolling-stats column prefix it
// reads (l5_<col>, l10_<col>, ...). The map is the complete whitelist:
// queries splice only values taken from here, never caller input, so the
// dynamic part of every statement is a known-safe identifier.
//
// Combo stat types (pts_rebs_asts and friends) are not listed; their
// rolling columns are not materialized in the warehouse.
var statColumns = map[string]string{
	"points":            "pts",
	"rebounds":          "reb",
	"assists":           "ast",
	"three_points_made": "fg3m",
	"steals":            "stl",
	"blocks":            "blk",
	"turnovers":         "tov",
}

// PriorityStatTypes are the stat types trained by default, ordered by
// available sample size.
var PriorityStatTypes = []string{"points", "rebounds", "assists"}

// StatColumn resolves a stat type to its warehouse column prefix.
func StatColumn(statType string) (string, error) {
	col, ok := statColumns[statType]
	if !ok {
		return "", fmt.Errorf("unsupported stat type %q", statType)
	}
	return col, nil
}

// SupportedStatType reports whether a stat type has materialized rolling
// columns.
func SupportedStatType(statType string) bool {
	_, ok := statColumns[statType]
	return ok
}
