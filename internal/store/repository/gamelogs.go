package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

// DateRange bounds a query by game date, inclusive on both ends. A zero
// time means unbounded on that side.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// GameLogRepository reads player game logs and their pre-game rolling
// snapshots. Game logs cover multiple seasons, so this is the large-N
// source used to fit the regressor.
type GameLogRepository struct {
	db *store.Database
}

// NewGameLogRepository creates a new game log repository
func NewGameLogRepository(db *store.Database) *GameLogRepository {
	return &GameLogRepository{db: db}
}

// LoadHistoricalGames returns game-log rows joined with the rolling
// snapshot computed before each game. Rows without a snapshot, below the
// minutes floor, or with fewer than 5 games in the trailing-10 window are
// dropped by the query itself; absent joins never produce imputed rows.
func (r *GameLogRepository) LoadHistoricalGames(ctx context.Context, statType string, dr DateRange, minMinutes float64) ([]store.PropRow, error) {
	col, err := store.StatColumn(statType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			pgl.player_id,
			pgl.game_date,
			pgl.season,
			pgl.%[1]s AS actual_value,
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
			pgl.min AS actual_min
		FROM player_game_logs pgl
		JOIN player_rolling_stats prs
			ON pgl.player_id = prs.player_id
			AND pgl.game_date = prs.game_date
		WHERE pgl.min >= $1
		AND prs.l10_%[1]s IS NOT NULL
		AND prs.games_in_l10 >= 5`, col)

	args := []interface{}{minMinutes}
	query, args = appendDateFilter(query, args, "pgl.game_date", dr)
	query += " ORDER BY pgl.game_date"

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying historical games: %w", err)
	}
	defer rows.Close()

	var out []store.PropRow
	for rows.Next() {
		pr := store.PropRow{StatType: statType}
		if err := rows.Scan(
			&pr.PlayerID, &pr.GameDate, &pr.Season, &pr.ActualValue,
			&pr.L5Stat, &pr.L10Stat, &pr.L20Stat, &pr.L10StatStd, &pr.StatTrend,
			&pr.L5Min, &pr.L10Min, &pr.GamesInL5, &pr.GamesInL10, &pr.GamesInL20,
			&pr.IsHome, &pr.DaysRest, &pr.IsBackToBack, &pr.OpponentAbbr,
			&pr.PlayerTeamID, &pr.ActualMinutes,
		); err != nil {
			return nil, fmt.Errorf("scanning historical game row: %w", err)
		}
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating historical games: %w", err)
	}
	return out, nil
}

// HistoricalDateRange returns the min and max game dates in the log table.
func (r *GameLogRepository) HistoricalDateRange(ctx context.Context) (time.Time, time.Time, error) {
	var minDate, maxDate time.Time
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT MIN(game_date), MAX(game_date) FROM player_game_logs`,
	).Scan(&minDate, &maxDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("querying historical date range: %w", err)
	}
	return minDate, maxDate, nil
}

// LoadObservations returns raw per-player game records ordered by player
// and date, the input to the rolling-stats refresh.
func (r *GameLogRepository) LoadObservations(ctx context.Context, dr DateRange) ([]store.GameObservation, error) {
	query := `
		SELECT player_id, game_id, game_date, season, pts, reb, ast, min
		FROM player_game_logs
		WHERE min > 0`

	var args []interface{}
	query, args = appendDateFilter(query, args, "game_date", dr)
	query += " ORDER BY player_id, game_date"

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying game observations: %w", err)
	}
	defer rows.Close()

	var out []store.GameObservation
	for rows.Next() {
		var ob store.GameObservation
		if err := rows.Scan(
			&ob.PlayerID, &ob.GameID, &ob.GameDate, &ob.Season,
			&ob.Points, &ob.Rebounds, &ob.Assists, &ob.Minutes,
		); err != nil {
			return nil, fmt.Errorf("scanning game observation: %w", err)
		}
		out = append(out, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating game observations: %w", err)
	}
	return out, nil
}

// appendDateFilter adds inclusive date bounds to a query, numbering the
// placeholders after the existing args.
func appendDateFilter(query string, args []interface{}, column string, dr DateRange) (string, []interface{}) {
	if !dr.Min.IsZero() {
		args = append(args, dr.Min)
		query += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if !dr.Max.IsZero() {
		args = append(args, dr.Max)
		query += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return query, args
}
