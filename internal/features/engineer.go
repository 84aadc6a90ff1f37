// Package features derives model-ready feature vectors from joined prop
// rows. Transforms are stateless and deterministic: the same row always
// produces the same vector, and the regressor/classifier feature lists
// are fixed per stat type so they can be frozen into model artifacts.
package features

import (
	"database/sql"

	"github.com/fortuna/propcast/internal/store"
)

// Threshold above which a game counts as high pace for both teams.
const highPaceThreshold = 100

// Major sportsbooks that get their own one-hot indicator.
const (
	bookUnderdog   = "underdog"
	bookFanDuel    = "fanduel"
	bookDraftKings = "draftkings"
)

// Engineer turns raw joined rows into feature vectors for one stat type.
type Engineer struct {
	statType string
}

// NewEngineer creates a feature engineer scoped to a stat type.
func NewEngineer(statType string) *Engineer {
	return &Engineer{statType: statType}
}

// StatType returns the stat type this engineer is scoped to.
func (e *Engineer) StatType() string {
	return e.statType
}

// Transform derives feature vectors for a batch of rows.
func (e *Engineer) Transform(rows []store.PropRow) []Vector {
	out := make([]Vector, len(rows))
	for i, row := range rows {
		out[i] = e.TransformRow(row)
	}
	return out
}

// TransformRow derives the full feature vector for one row. The steps
// run in a fixed order: base columns, line-relative, pace, temporal,
// interactions, sportsbook one-hots, odds/vig. Missing inputs become
// the documented neutral defaults; rows are never dropped here.
func (e *Engineer) TransformRow(row store.PropRow) Vector {
	v := make(Vector, 48)

	e.addBase(v, row)
	e.addLineFeatures(v, row)
	e.addPaceFeatures(v, row)
	e.addTemporalFeatures(v, row)
	e.addInteractionFeatures(v, row)
	e.addSportsbookFeatures(v, row)
	e.addOddsFeatures(v, row)

	return v
}

func (e *Engineer) addBase(v Vector, row store.PropRow) {
	v.Set("l5_stat", nullFloat(row.L5Stat))
	v.Set("l10_stat", nullFloat(row.L10Stat))
	v.Set("l20_stat", nullFloat(row.L20Stat))
	v.Set("l10_stat_std", nullFloat(row.L10StatStd))
	v.Set("stat_trend", nullFloat(row.StatTrend))
	v.Set("l5_min", nullFloat(row.L5Min))
	v.Set("l10_min", nullFloat(row.L10Min))
	v.Set("games_in_l5", nullInt(row.GamesInL5))
	v.Set("games_in_l10", nullInt(row.GamesInL10))
	v.Set("games_in_l20", nullInt(row.GamesInL20))
	v.SetBool("is_home", row.IsHome.Valid && row.IsHome.Bool)
	v.Set("days_rest", nullFloat(row.DaysRest))
	v.SetBool("is_back_to_back", row.IsBackToBack.Valid && row.IsBackToBack.Bool)
	v.Set("opp_pace", nullFloat(row.OppPace))
	v.Set("opp_def_rating", nullFloat(row.OppDefRating))
	v.Set("opp_off_rating", nullFloat(row.OppOffRating))
	v.Set("player_team_pace", nullFloat(row.PlayerTeamPace))
}

// addLineFeatures derives line-relative columns. Rows without a line
// (historical game logs) get all-zero, no-signal defaults so the same
// vector shape works for both training sources.
func (e *Engineer) addLineFeatures(v Vector, row store.PropRow) {
	if !row.Line.Valid {
		v.Set("line", 0)
		v.Set("line_vs_l5", 0)
		v.Set("line_vs_l10", 0)
		v.Set("line_vs_l20", 0)
		v.Set("line_pct_l10", 0)
		v.Set("line_std_units", 0)
		v.Set("line_above_l5", 0)
		v.Set("line_above_l10", 0)
		return
	}

	line := row.Line.Float64
	l5 := nullFloat(row.L5Stat)
	l10 := nullFloat(row.L10Stat)
	l20 := nullFloat(row.L20Stat)

	v.Set("line", line)
	v.Set("line_vs_l5", line-l5)
	v.Set("line_vs_l10", line-l10)
	v.Set("line_vs_l20", line-l20)

	if l10 != 0 {
		v.Set("line_pct_l10", (line-l10)/l10*100)
	} else {
		v.Set("line_pct_l10", 0)
	}

	// Standardized distance from the L10 average; zero when the stddev
	// is unknown or degenerate.
	if row.L10StatStd.Valid && row.L10StatStd.Float64 > 0 {
		v.Set("line_std_units", (line-l10)/row.L10StatStd.Float64)
	} else {
		v.Set("line_std_units", 0)
	}

	v.SetBool("line_above_l5", line > l5)
	v.SetBool("line_above_l10", line > l10)
}

func (e *Engineer) addPaceFeatures(v Vector, row store.PropRow) {
	if !row.PlayerTeamPace.Valid || !row.OppPace.Valid {
		v.Set("pace_diff", 0)
		v.Set("high_pace_game", 0)
		return
	}

	team := row.PlayerTeamPace.Float64
	opp := row.OppPace.Float64
	v.Set("pace_diff", team-opp)
	v.SetBool("high_pace_game", team > highPaceThreshold && opp > highPaceThreshold)
}

// addTemporalFeatures derives calendar columns from the game date. The
// date is known before tip-off, so there is no leakage risk here.
func (e *Engineer) addTemporalFeatures(v Vector, row store.PropRow) {
	// Monday=0 .. Sunday=6.
	dow := (int(row.GameDate.Weekday()) + 6) % 7
	v.Set("day_of_week", float64(dow))
	v.Set("month", float64(row.GameDate.Month()))
	v.SetBool("is_weekend", dow == 5 || dow == 6)
}

func (e *Engineer) addInteractionFeatures(v Vector, row store.PropRow) {
	isHome := row.IsHome.Valid && row.IsHome.Bool
	rested := row.DaysRest.Valid && row.DaysRest.Float64 >= 2
	b2b := row.IsBackToBack.Valid && row.IsBackToBack.Bool

	v.SetBool("home_rested", isHome && rested)
	v.SetBool("away_b2b", !isHome && b2b)

	// Divergence between recent trend direction and where the line sits
	// relative to the L10 average. line_vs_l10 is zero for rows without
	// a line, so both indicators stay off there.
	trend := nullFloat(row.StatTrend)
	lineVsL10 := v.Get("line_vs_l10")
	v.SetBool("trending_up_line_low", trend > 0 && lineVsL10 < 0)
	v.SetBool("trending_down_line_high", trend < 0 && lineVsL10 > 0)
}

func (e *Engineer) addSportsbookFeatures(v Vector, row store.PropRow) {
	book := ""
	if row.Sportsbook.Valid {
		book = row.Sportsbook.String
	}

	v.SetBool("book_underdog", book == bookUnderdog)
	v.SetBool("book_fanduel", book == bookFanDuel)
	v.SetBool("book_draftkings", book == bookDraftKings)
	v.SetBool("book_other", book != "" && book != bookUnderdog && book != bookFanDuel && book != bookDraftKings)
}

// addOddsFeatures derives vig and fair-probability columns. Rows missing
// either side's odds keep uninformative defaults (0 vig, 0.5/0.5 fair)
// and has_odds=0; that is a data-quality condition, not an error.
func (e *Engineer) addOddsFeatures(v Vector, row store.PropRow) {
	v.Set("vig_pct", 0)
	v.Set("over_fair_prob", 0.5)
	v.Set("under_fair_prob", 0.5)
	v.Set("over_implied_prob", 0.5)
	v.Set("under_implied_prob", 0.5)
	v.Set("has_odds", 0)

	if !row.OverOdds.Valid || !row.UnderOdds.Valid {
		return
	}

	vigPct, fairOver, fairUnder, ok := VigAndFairProbs(row.OverOdds.Float64, row.UnderOdds.Float64)
	if !ok {
		return
	}

	v.Set("has_odds", 1)
	v.Set("vig_pct", vigPct)
	v.Set("over_fair_prob", fairOver)
	v.Set("under_fair_prob", fairUnder)
	v.Set("over_implied_prob", ImpliedProb(row.OverOdds.Float64))
	v.Set("under_implied_prob", ImpliedProb(row.UnderOdds.Float64))
}

// RegressorFeatures is the frozen feature list for the stat-value
// regressor: rolling stats, game context, temporal, and the non-line
// interactions. No line, odds, or opponent columns, because the large
// historical-log training source does not carry market data.
func (e *Engineer) RegressorFeatures() []string {
	return []string{
		"l5_stat",
		"l10_stat",
		"l20_stat",
		"l10_stat_std",
		"stat_trend",
		"l10_min",

		"is_home",
		"days_rest",
		"is_back_to_back",
		"games_in_l5",
		"games_in_l10",

		"day_of_week",

		"home_rested",
		"away_b2b",
	}
}

// lineFeatures are the line-relative columns only the classifier sees.
func (e *Engineer) lineFeatures() []string {
	return []string{
		"line",
		"line_vs_l10",
		"line_vs_l5",
		"line_pct_l10",
		"line_std_units",
		"line_above_l10",
		"trending_up_line_low",
		"trending_down_line_high",
	}
}

// oddsFeatures are the market-price columns only the classifier sees.
// Only vig_pct and over_fair_prob make the cut: under_fair_prob is
// 1 - over_fair_prob and the implied probs are fair prob scaled by the
// vig, so the rest would be collinear.
func (e *Engineer) oddsFeatures() []string {
	return []string{
		"vig_pct",
		"over_fair_prob",
	}
}

// ClassifierFeatures is the frozen feature list for the over/under
// classifier: everything the regressor sees plus opponent context,
// line-relative, sportsbook, and odds columns.
func (e *Engineer) ClassifierFeatures() []string {
	cols := e.RegressorFeatures()
	cols = append(cols,
		"opp_pace",
		"opp_def_rating",
		"pace_diff",
	)
	cols = append(cols, e.lineFeatures()...)
	cols = append(cols,
		"book_underdog",
		"book_fanduel",
		"book_draftkings",
		"book_other",
	)
	cols = append(cols, e.oddsFeatures()...)
	return cols
}

func nullFloat(f sql.NullFloat64) float64 {
	if f.Valid {
		return f.Float64
	}
	return 0
}

func nullInt(i sql.NullInt32) float64 {
	if i.Valid {
		return float64(i.Int32)
	}
	return 0
}
