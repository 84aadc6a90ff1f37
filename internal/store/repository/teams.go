package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

// TeamRepository reads team pace and rating rows.
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// ContextSnapshot builds the immutable team-context snapshot for one
// season in a single pass. Consumers hold the snapshot by reference;
// there is no per-team lazy lookup or hidden cache behind it.
func (r *TeamRepository) ContextSnapshot(ctx context.Context, season string) (*store.TeamContextSnapshot, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT t.team_id, t.abbreviation, tp.season, tp.pace, tp.off_rating, tp.def_rating
		FROM team_pace tp
		JOIN teams t ON tp.team_id = t.team_id
		WHERE tp.season = $1`, season)
	if err != nil {
		return nil, fmt.Errorf("querying team pace: %w", err)
	}
	defer rows.Close()

	snap := &store.TeamContextSnapshot{
		Season:     season,
		ByAbbr:     make(map[string]store.TeamContext),
		ComputedAt: time.Now().UTC(),
	}

	var paceSum, defSum float64
	for rows.Next() {
		var tc store.TeamContext
		if err := rows.Scan(&tc.TeamID, &tc.Abbr, &tc.Season, &tc.Pace, &tc.OffRating, &tc.DefRating); err != nil {
			return nil, fmt.Errorf("scanning team context: %w", err)
		}
		snap.ByAbbr[tc.Abbr] = tc
		paceSum += tc.Pace
		defSum += tc.DefRating
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team context: %w", err)
	}

	if n := len(snap.ByAbbr); n > 0 {
		snap.LeagueAvgPace = paceSum / float64(n)
		snap.LeagueAvgDefRt = defSum / float64(n)
	}
	return snap, nil
}
