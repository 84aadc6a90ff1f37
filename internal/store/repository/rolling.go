package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/propcast/internal/rolling"
	"github.com/fortuna/propcast/internal/store"
)

// RollingRepository persists precomputed rolling snapshots. This is the
// core's only write path and runs as its own batch step; training and
// inference treat the warehouse as read-only.
type RollingRepository struct {
	db *store.Database
}

// NewRollingRepository creates a new rolling stats repository
func NewRollingRepository(db *store.Database) *RollingRepository {
	return &RollingRepository{db: db}
}

// UpsertSnapshots writes snapshots keyed by (player_id, game_date),
// replacing existing rows. The whole batch commits as one transaction.
func (r *RollingRepository) UpsertSnapshots(ctx context.Context, snaps []rolling.Snapshot) (int, error) {
	if len(snaps) == 0 {
		return 0, nil
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning rolling upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_rolling_stats (
			player_id, game_id, game_date, season,
			l5_pts, l10_pts, l20_pts, l10_pts_std, pts_trend,
			l5_reb, l10_reb, l20_reb, l10_reb_std, reb_trend,
			l5_ast, l10_ast, l20_ast, l10_ast_std, ast_trend,
			l5_min, l10_min,
			games_in_l5, games_in_l10, games_in_l20
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19,
			$20, $21,
			$22, $23, $24
		)
		ON CONFLICT (player_id, game_date) DO UPDATE SET
			game_id = EXCLUDED.game_id,
			season = EXCLUDED.season,
			l5_pts = EXCLUDED.l5_pts, l10_pts = EXCLUDED.l10_pts,
			l20_pts = EXCLUDED.l20_pts, l10_pts_std = EXCLUDED.l10_pts_std,
			pts_trend = EXCLUDED.pts_trend,
			l5_reb = EXCLUDED.l5_reb, l10_reb = EXCLUDED.l10_reb,
			l20_reb = EXCLUDED.l20_reb, l10_reb_std = EXCLUDED.l10_reb_std,
			reb_trend = EXCLUDED.reb_trend,
			l5_ast = EXCLUDED.l5_ast, l10_ast = EXCLUDED.l10_ast,
			l20_ast = EXCLUDED.l20_ast, l10_ast_std = EXCLUDED.l10_ast_std,
			ast_trend = EXCLUDED.ast_trend,
			l5_min = EXCLUDED.l5_min, l10_min = EXCLUDED.l10_min,
			games_in_l5 = EXCLUDED.games_in_l5,
			games_in_l10 = EXCLUDED.games_in_l10,
			games_in_l20 = EXCLUDED.games_in_l20`)
	if err != nil {
		return 0, fmt.Errorf("preparing rolling upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, s := range snaps {
		_, err := stmt.ExecContext(ctx,
			s.PlayerID, s.GameID, s.GameDate, s.Season,
			nullIfEmpty(s.Points.L5, s.GamesInL5), nullIfEmpty(s.Points.L10, s.GamesInL10),
			nullIfEmpty(s.Points.L20, s.GamesInL20), nullIfBelow(s.Points.L10Std, s.GamesInL10, 2),
			nullIfEmpty(s.Points.Trend, s.GamesInL10),
			nullIfEmpty(s.Rebounds.L5, s.GamesInL5), nullIfEmpty(s.Rebounds.L10, s.GamesInL10),
			nullIfEmpty(s.Rebounds.L20, s.GamesInL20), nullIfBelow(s.Rebounds.L10Std, s.GamesInL10, 2),
			nullIfEmpty(s.Rebounds.Trend, s.GamesInL10),
			nullIfEmpty(s.Assists.L5, s.GamesInL5), nullIfEmpty(s.Assists.L10, s.GamesInL10),
			nullIfEmpty(s.Assists.L20, s.GamesInL20), nullIfBelow(s.Assists.L10Std, s.GamesInL10, 2),
			nullIfEmpty(s.Assists.Trend, s.GamesInL10),
			nullIfEmpty(s.L5Min, s.GamesInL5), nullIfEmpty(s.L10Min, s.GamesInL10),
			s.GamesInL5, s.GamesInL10, s.GamesInL20,
		)
		if err != nil {
			return written, fmt.Errorf("upserting snapshot for player %d on %s: %w",
				s.PlayerID, s.GameDate.Format("2006-01-02"), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("committing rolling upsert: %w", err)
	}
	return written, nil
}

// nullIfEmpty writes SQL NULL instead of a zero computed from an empty
// window, so downstream sample-size filters keep working.
func nullIfEmpty(v float64, count int) interface{} {
	if count == 0 {
		return nil
	}
	return v
}

// nullIfBelow writes SQL NULL when the window holds fewer than min
// games. The sample stddev needs at least 2.
func nullIfBelow(v float64, count, min int) interface{} {
	if count < min {
		return nil
	}
	return v
}
