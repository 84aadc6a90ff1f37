package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

// PropRepository reads resolved prop outcomes (the labeled, line-carrying
// classifier source) and unresolved upcoming props awaiting predictions.
type PropRepository struct {
	db *store.Database
}

// NewPropRepository creates a new prop repository
func NewPropRepository(db *store.Database) *PropRepository {
	return &PropRepository{db: db}
}

// LoadTrainingData returns resolved prop outcomes joined with the
// pre-game rolling snapshot, game context, and team pace for both sides
// of the matchup. Inner joins on the snapshot and game log make missing
// pre-game data drop the row instead of surfacing as NULL features.
func (r *PropRepository) LoadTrainingData(ctx context.Context, statType, season string, dr DateRange) ([]store.PropRow, error) {
	col, err := store.StatColumn(statType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			po.player_name,
			po.player_id,
			po.game_date,
			po.line,
			po.sportsbook,
			po.over_odds,
			po.under_odds,
			po.actual_value,
			po.hit_over,
			po.hit_under,
			po.edge,
			prs.l5_%[1]s AS l5_stat,
			prs.l10_%[1]s AS l10_stat,
			prs.l20_%[1]s AS l20_stat,
			prs.l10_%[1]s_std AS l10_stat_std,
			prs.%[1]s_trend AS stat_trend,
			prs.l5_min,
			prs.l10_min,
			prs.games_in_l5,
			prs.games_in_l10,
			prs.games_in_l20,
			pgl.is_home,
			pgl.days_rest,
			pgl.is_back_to_back,
			pgl.opponent_abbr,
			pgl.team_id AS player_team_id,
			opp_pace.pace AS opp_pace,
			opp_pace.def_rating AS opp_def_rating,
			opp_pace.off_rating AS opp_off_rating,
			player_pace.pace AS player_team_pace
		FROM prop_outcomes po
		JOIN player_rolling_stats prs
			ON po.player_id = prs.player_id
			AND po.game_date = prs.game_date
		JOIN player_game_logs pgl
			ON po.player_id = pgl.player_id
			AND po.game_date = pgl.game_date
		LEFT JOIN teams opp_team
			ON pgl.opponent_abbr = opp_team.abbreviation
		LEFT JOIN team_pace opp_pace
			ON opp_team.team_id = opp_pace.team_id
			AND opp_pace.season = $2
		LEFT JOIN team_pace player_pace
			ON pgl.team_id = player_pace.team_id
			AND player_pace.season = $2
		WHERE po.stat_type = $1
		AND prs.l10_%[1]s IS NOT NULL`, col)

	args := []interface{}{statType, season}
	query, args = appendDateFilter(query, args, "po.game_date", dr)
	query += " ORDER BY po.game_date"

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying prop outcomes: %w", err)
	}
	defer rows.Close()

	var out []store.PropRow
	for rows.Next() {
		pr := store.PropRow{StatType: statType}
		if err := rows.Scan(
			&pr.PlayerName, &pr.PlayerID, &pr.GameDate,
			&pr.Line, &pr.Sportsbook, &pr.OverOdds, &pr.UnderOdds,
			&pr.ActualValue, &pr.HitOver, &pr.HitUnder, &pr.Edge,
			&pr.L5Stat, &pr.L10Stat, &pr.L20Stat, &pr.L10StatStd, &pr.StatTrend,
			&pr.L5Min, &pr.L10Min, &pr.GamesInL5, &pr.GamesInL10, &pr.GamesInL20,
			&pr.IsHome, &pr.DaysRest, &pr.IsBackToBack, &pr.OpponentAbbr,
			&pr.PlayerTeamID,
			&pr.OppPace, &pr.OppDefRating, &pr.OppOffRating, &pr.PlayerTeamPace,
		); err != nil {
			return nil, fmt.Errorf("scanning prop outcome row: %w", err)
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prop outcomes: %w", err)
	}
	return out, nil
}

// LoadUpcomingProps returns future-dated market lines for a stat type
// with player identity resolved through the alias table and the latest
// available rolling snapshot attached. Rows with no resolvable snapshot
// come back with NULL stats and still score, on the engineer's neutral
// defaults. Team pace and ratings are not joined here; callers overlay
// them from the season snapshot via TeamContextSnapshot.Apply.
func (r *PropRepository) LoadUpcomingProps(ctx context.Context, statType string, asOf time.Time) ([]store.PropRow, error) {
	col, err := store.StatColumn(statType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			ml.player_name,
			COALESCE(p.player_id, pna.player_id, 0) AS player_id,
			ml.game_date,
			ml.line,
			ml.sportsbook,
			ml.over_odds,
			ml.under_odds,
			ml.team_abbr,
			ml.opponent_abbr,
			prs.l5_%[1]s AS l5_stat,
			prs.l10_%[1]s AS l10_stat,
			prs.l20_%[1]s AS l20_stat,
			prs.l10_%[1]s_std AS l10_stat_std,
			prs.%[1]s_trend AS stat_trend,
			prs.l5_min,
			prs.l10_min,
			prs.games_in_l5,
			prs.games_in_l10,
			prs.games_in_l20
		FROM market_lines ml
		LEFT JOIN players p
			ON ml.player_name = p.full_name
		LEFT JOIN player_name_aliases pna
			ON ml.player_name = pna.alias
		LEFT JOIN player_rolling_stats prs
			ON COALESCE(p.player_id, pna.player_id) = prs.player_id
			AND prs.game_date = (
				SELECT MAX(game_date)
				FROM player_rolling_stats
				WHERE player_id = COALESCE(p.player_id, pna.player_id)
			)
		WHERE ml.stat_type = $1
		AND ml.game_date >= $2
		ORDER BY ml.game_date, ml.player_name`, col)

	rows, err := r.db.DB().QueryContext(ctx, query, statType, asOf)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming props: %w", err)
	}
	defer rows.Close()

	var out []store.PropRow
	for rows.Next() {
		pr := store.PropRow{StatType: statType}
		if err := rows.Scan(
			&pr.PlayerName, &pr.PlayerID, &pr.GameDate,
			&pr.Line, &pr.Sportsbook, &pr.OverOdds, &pr.UnderOdds,
			&pr.PlayerTeamAbbr, &pr.OpponentAbbr,
			&pr.L5Stat, &pr.L10Stat, &pr.L20Stat, &pr.L10StatStd, &pr.StatTrend,
			&pr.L5Min, &pr.L10Min, &pr.GamesInL5, &pr.GamesInL10, &pr.GamesInL20,
		); err != nil {
			return nil, fmt.Errorf("scanning upcoming prop row: %w", err)
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating upcoming props: %w", err)
	}
	return out, nil
}

// AvailableStatTypes returns stat types with at least minSamples resolved
// outcomes, largest first.
func (r *PropRepository) AvailableStatTypes(ctx context.Context, minSamples int) ([]string, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT stat_type
		FROM prop_outcomes
		GROUP BY stat_type
		HAVING COUNT(*) >= $1
		ORDER BY COUNT(*) DESC`, minSamples)
	if err != nil {
		return nil, fmt.Errorf("querying available stat types: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var st string
		if err := rows.Scan(&st); err != nil {
			return nil, fmt.Errorf("scanning stat type: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// OutcomeDateRange returns the min and max dates with resolved outcomes
// for a stat type.
func (r *PropRepository) OutcomeDateRange(ctx context.Context, statType string) (time.Time, time.Time, error) {
	var minDate, maxDate time.Time
	err := r.db.DB().QueryRowContext(ctx, `
		SELECT MIN(game_date), MAX(game_date)
		FROM prop_outcomes
		WHERE stat_type = $1`, statType,
	).Scan(&minDate, &maxDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("querying outcome date range: %w", err)
	}
	return minDate, maxDate, nil
}
