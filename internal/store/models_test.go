package store

import (
	"database/sql"
	"testing"
	"time"
)

func testSnapshot() *TeamContextSnapshot {
	return &TeamContextSnapshot{
		Season: "2025-26",
		ByAbbr: map[string]TeamContext{
			"BOS": {TeamID: 2, Abbr: "BOS", Season: "2025-26", Pace: 98.5, OffRating: 118.2, DefRating: 110.1},
			"IND": {TeamID: 15, Abbr: "IND", Season: "2025-26", Pace: 103.2, OffRating: 115.0, DefRating: 113.4},
		},
		LeagueAvgPace:  100.0,
		LeagueAvgDefRt: 112.0,
		ComputedAt:     time.Now().UTC(),
	}
}

func TestSnapshotApply_FillsPaceForMarketRows(t *testing.T) {
	snap := testSnapshot()
	rows := []PropRow{{
		PlayerName:     "Jayson Tatum",
		StatType:       "pts",
		PlayerTeamAbbr: sql.NullString{String: "BOS", Valid: true},
		OpponentAbbr:   sql.NullString{String: "IND", Valid: true},
	}}

	snap.Apply(rows)

	r := rows[0]
	if !r.OppPace.Valid || r.OppPace.Float64 != 103.2 {
		t.Errorf("OppPace = %+v, want 103.2", r.OppPace)
	}
	if !r.OppDefRating.Valid || r.OppDefRating.Float64 != 113.4 {
		t.Errorf("OppDefRating = %+v, want 113.4", r.OppDefRating)
	}
	if !r.OppOffRating.Valid || r.OppOffRating.Float64 != 115.0 {
		t.Errorf("OppOffRating = %+v, want 115.0", r.OppOffRating)
	}
	if !r.PlayerTeamPace.Valid || r.PlayerTeamPace.Float64 != 98.5 {
		t.Errorf("PlayerTeamPace = %+v, want 98.5", r.PlayerTeamPace)
	}
}

func TestSnapshotApply_LeavesJoinedValuesAlone(t *testing.T) {
	snap := testSnapshot()
	rows := []PropRow{{
		PlayerTeamAbbr: sql.NullString{String: "BOS", Valid: true},
		OpponentAbbr:   sql.NullString{String: "IND", Valid: true},
		OppPace:        sql.NullFloat64{Float64: 99.9, Valid: true},
		PlayerTeamPace: sql.NullFloat64{Float64: 97.0, Valid: true},
	}}

	snap.Apply(rows)

	if rows[0].OppPace.Float64 != 99.9 {
		t.Errorf("OppPace overwritten to %v, want joined value 99.9", rows[0].OppPace.Float64)
	}
	if rows[0].PlayerTeamPace.Float64 != 97.0 {
		t.Errorf("PlayerTeamPace overwritten to %v, want joined value 97.0", rows[0].PlayerTeamPace.Float64)
	}
	// The missing ratings are still filled.
	if !rows[0].OppDefRating.Valid {
		t.Error("OppDefRating left NULL")
	}
}

func TestSnapshotApply_UnknownTeamStaysNull(t *testing.T) {
	snap := testSnapshot()
	rows := []PropRow{
		{OpponentAbbr: sql.NullString{String: "XXX", Valid: true}},
		{}, // no abbreviations at all
	}

	snap.Apply(rows)

	for i, r := range rows {
		if r.OppPace.Valid || r.OppDefRating.Valid || r.PlayerTeamPace.Valid {
			t.Errorf("row %d: context filled for unknown/absent team: %+v", i, r)
		}
	}
}

func TestSnapshotApply_FeedsPaceFeatures(t *testing.T) {
	// An upcoming market row arrives with abbreviations only; after the
	// overlay both sides of the pace matchup are populated, which is what
	// the pace_diff and opp_pace feature columns read.
	snap := testSnapshot()
	rows := []PropRow{{
		PlayerTeamAbbr: sql.NullString{String: "BOS", Valid: true},
		OpponentAbbr:   sql.NullString{String: "IND", Valid: true},
	}}

	snap.Apply(rows)

	if !rows[0].PlayerTeamPace.Valid || !rows[0].OppPace.Valid {
		t.Fatalf("pace pair incomplete after overlay: %+v", rows[0])
	}
	diff := rows[0].PlayerTeamPace.Float64 - rows[0].OppPace.Float64
	if diff > -4.69 || diff < -4.71 {
		t.Errorf("pace diff = %v, want -4.7", diff)
	}
}
