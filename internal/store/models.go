package store

import (
	"database/sql"
	"time"
)

// PropRow is one temporally-joined training or inference row: a player's
// market line (when one exists) together with the pre-game rolling
// snapshot and game context that were knowable before tip-off.
//
// All three load paths (historical game logs, resolved prop outcomes,
// upcoming props) share this shape. Fields that a source does not carry
// stay as invalid sql.Null values; the feature engineer maps those to
// its documented neutral defaults rather than dropping the row.
type PropRow struct {
	PlayerID   int64     `json:"player_id" db:"player_id"`
	PlayerName string    `json:"player_name,omitempty" db:"player_name"`
	GameDate   time.Time `json:"game_date" db:"game_date"`
	Season     string    `json:"season,omitempty" db:"season"`
	StatType   string    `json:"stat_type" db:"stat_type"`

	// Market line. Absent for historical game-log rows.
	Line       sql.NullFloat64 `json:"line,omitempty" db:"line"`
	Sportsbook sql.NullString  `json:"sportsbook,omitempty" db:"sportsbook"`
	OverOdds   sql.NullFloat64 `json:"over_odds,omitempty" db:"over_odds"`
	UnderOdds  sql.NullFloat64 `json:"under_odds,omitempty" db:"under_odds"`

	// Targets. Absent for upcoming (unresolved) props.
	ActualValue sql.NullFloat64 `json:"actual_value,omitempty" db:"actual_value"`
	HitOver     sql.NullBool    `json:"hit_over,omitempty" db:"hit_over"`
	HitUnder    sql.NullBool    `json:"hit_under,omitempty" db:"hit_under"`
	Edge        sql.NullFloat64 `json:"edge,omitempty" db:"edge"`

	// Pre-game rolling snapshot for the primary stat column.
	L5Stat     sql.NullFloat64 `json:"l5_stat" db:"l5_stat"`
	L10Stat    sql.NullFloat64 `json:"l10_stat" db:"l10_stat"`
	L20Stat    sql.NullFloat64 `json:"l20_stat" db:"l20_stat"`
	L10StatStd sql.NullFloat64 `json:"l10_stat_std" db:"l10_stat_std"`
	StatTrend  sql.NullFloat64 `json:"stat_trend" db:"stat_trend"`
	L5Min      sql.NullFloat64 `json:"l5_min" db:"l5_min"`
	L10Min     sql.NullFloat64 `json:"l10_min" db:"l10_min"`
	GamesInL5  sql.NullInt32   `json:"games_in_l5" db:"games_in_l5"`
	GamesInL10 sql.NullInt32   `json:"games_in_l10" db:"games_in_l10"`
	GamesInL20 sql.NullInt32   `json:"games_in_l20" db:"games_in_l20"`

	// Game context from the log row.
	IsHome         sql.NullBool    `json:"is_home,omitempty" db:"is_home"`
	DaysRest       sql.NullFloat64 `json:"days_rest,omitempty" db:"days_rest"`
	IsBackToBack   sql.NullBool    `json:"is_back_to_back,omitempty" db:"is_back_to_back"`
	OpponentAbbr   sql.NullString  `json:"opponent_abbr,omitempty" db:"opponent_abbr"`
	PlayerTeamAbbr sql.NullString  `json:"team_abbr,omitempty" db:"team_abbr"`
	PlayerTeamID   sql.NullInt32   `json:"player_team_id,omitempty" db:"player_team_id"`
	ActualMinutes  sql.NullFloat64 `json:"actual_min,omitempty" db:"actual_min"`

	// Team context (pace/ratings) for the matchup.
	OppPace        sql.NullFloat64 `json:"opp_pace,omitempty" db:"opp_pace"`
	OppDefRating   sql.NullFloat64 `json:"opp_def_rating,omitempty" db:"opp_def_rating"`
	OppOffRating   sql.NullFloat64 `json:"opp_off_rating,omitempty" db:"opp_off_rating"`
	PlayerTeamPace sql.NullFloat64 `json:"player_team_pace,omitempty" db:"player_team_pace"`
}

// GameObservation is a single player-game record as recorded by the
// collector, used as input to the rolling-stats refresh.
type GameObservation struct {
	PlayerID int64     `json:"player_id" db:"player_id"`
	GameID   string    `json:"game_id" db:"game_id"`
	GameDate time.Time `json:"game_date" db:"game_date"`
	Season   string    `json:"season" db:"season"`
	Points   float64   `json:"pts" db:"pts"`
	Rebounds float64   `json:"reb" db:"reb"`
	Assists  float64   `json:"ast" db:"ast"`
	Minutes  float64   `json:"min" db:"min"`
}

// TeamContext holds one team's pace and ratings for a season.
type TeamContext struct {
	TeamID    int     `json:"team_id" db:"team_id"`
	Abbr      string  `json:"abbreviation" db:"abbreviation"`
	Season    string  `json:"season" db:"season"`
	Pace      float64 `json:"pace" db:"pace"`
	OffRating float64 `json:"off_rating" db:"off_rating"`
	DefRating float64 `json:"def_rating" db:"def_rating"`
}

// TeamContextSnapshot is the precomputed, immutable view of league team
// context for one season. Built once per run and passed by reference so
// consumers never lazily query or memoize team aggregates themselves.
type TeamContextSnapshot struct {
	Season         string                 `json:"season"`
	ByAbbr         map[string]TeamContext `json:"by_abbr"`
	LeagueAvgPace  float64                `json:"league_avg_pace"`
	LeagueAvgDefRt float64                `json:"league_avg_def_rating"`
	ComputedAt     time.Time              `json:"computed_at"`
}

// Context returns the team context for a team abbreviation, with ok=false
// when the team is unknown to the snapshot.
func (s *TeamContextSnapshot) Context(abbr string) (TeamContext, bool) {
	tc, ok := s.ByAbbr[abbr]
	return tc, ok
}

// Apply fills in pace and rating fields on rows that carry team
// abbreviations but no team context, which is how upcoming market rows
// arrive. Fields already set by a SQL join are left alone.
func (s *TeamContextSnapshot) Apply(rows []PropRow) {
	for i := range rows {
		row := &rows[i]

		if row.OpponentAbbr.Valid {
			if tc, ok := s.Context(row.OpponentAbbr.String); ok {
				if !row.OppPace.Valid {
					row.OppPace = sql.NullFloat64{Float64: tc.Pace, Valid: true}
				}
				if !row.OppDefRating.Valid {
					row.OppDefRating = sql.NullFloat64{Float64: tc.DefRating, Valid: true}
				}
				if !row.OppOffRating.Valid {
					row.OppOffRating = sql.NullFloat64{Float64: tc.OffRating, Valid: true}
				}
			}
		}

		if row.PlayerTeamAbbr.Valid && !row.PlayerTeamPace.Valid {
			if tc, ok := s.Context(row.PlayerTeamAbbr.String); ok {
				row.PlayerTeamPace = sql.NullFloat64{Float64: tc.Pace, Valid: true}
			}
		}
	}
}
