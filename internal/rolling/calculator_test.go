package rolling

import (
	"math"
	"testing"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func playerGames(playerID int64, points []float64) []store.GameObservation {
	out := make([]store.GameObservation, len(points))
	for i, p := range points {
		out[i] = store.GameObservation{
			PlayerID: playerID,
			GameID:   "g",
			GameDate: day(i),
			Season:   "2025-26",
			Points:   p,
			Rebounds: p / 3,
			Assists:  p / 4,
			Minutes:  30,
		}
	}
	return out
}

func findSnapshot(t *testing.T, snaps []Snapshot, playerID int64, date time.Time) Snapshot {
	t.Helper()
	for _, s := range snaps {
		if s.PlayerID == playerID && s.GameDate.Equal(date) {
			return s
		}
	}
	t.Fatalf("no snapshot for player %d on %v", playerID, date)
	return Snapshot{}
}

func TestCompute_FirstGameHasEmptyWindows(t *testing.T) {
	snaps := Compute(playerGames(1, []float64{20, 25, 30}))

	first := findSnapshot(t, snaps, 1, day(0))
	if first.GamesInL5 != 0 || first.GamesInL10 != 0 || first.GamesInL20 != 0 {
		t.Errorf("first game window counts = %d/%d/%d, want 0/0/0",
			first.GamesInL5, first.GamesInL10, first.GamesInL20)
	}
}

func TestCompute_WindowsUsePriorGamesOnly(t *testing.T) {
	points := []float64{10, 20, 30, 40, 50, 60, 70}
	snaps := Compute(playerGames(1, points))

	// Snapshot for game 6 (70 pts) sees games 1..5 in its L5 window.
	snap := findSnapshot(t, snaps, 1, day(6))
	wantL5 := (20.0 + 30 + 40 + 50 + 60) / 5
	if math.Abs(snap.Points.L5-wantL5) > 1e-9 {
		t.Errorf("L5 = %v, want %v", snap.Points.L5, wantL5)
	}
	if snap.GamesInL5 != 5 || snap.GamesInL10 != 6 {
		t.Errorf("window counts = %d/%d, want 5/6", snap.GamesInL5, snap.GamesInL10)
	}

	// The snapshot's own game must not contribute to any window: averages
	// computed over values below 70 can never reach 70.
	if snap.Points.L5 >= 70 || snap.Points.L10 >= 70 {
		t.Errorf("windows include the snapshot's own game: L5=%v L10=%v", snap.Points.L5, snap.Points.L10)
	}
}

func TestCompute_SameDateGamesExcluded(t *testing.T) {
	games := playerGames(1, []float64{10, 20, 30})
	// A second record on day 2 (data glitch) must not leak into day 2's
	// snapshot.
	games = append(games, store.GameObservation{
		PlayerID: 1, GameID: "dup", GameDate: day(2), Season: "2025-26", Points: 99, Minutes: 30,
	})

	snaps := Compute(games)
	for _, s := range snaps {
		if !s.GameDate.Equal(day(2)) {
			continue
		}
		if s.GamesInL5 != 2 {
			t.Errorf("day-2 snapshot sees %d prior games, want 2 (same-date games excluded)", s.GamesInL5)
		}
		if s.Points.L5 > 15.0+1e-9 {
			t.Errorf("day-2 L5 = %v, same-date 99-point record leaked in", s.Points.L5)
		}
	}
}

func TestCompute_TrendIsShortMinusMid(t *testing.T) {
	// Ramping scores: the short window always runs hotter than the mid.
	points := make([]float64, 15)
	for i := range points {
		points[i] = float64(10 + 2*i)
	}
	snaps := Compute(playerGames(1, points))

	last := findSnapshot(t, snaps, 1, day(14))
	if last.Points.Trend <= 0 {
		t.Errorf("trend = %v for ramping scores, want positive", last.Points.Trend)
	}
	want := last.Points.L5 - last.Points.L10
	if math.Abs(last.Points.Trend-want) > 1e-9 {
		t.Errorf("trend = %v, want L5-L10 = %v", last.Points.Trend, want)
	}
}

func TestCompute_PlayersIsolated(t *testing.T) {
	games := append(playerGames(1, []float64{10, 10, 10}), playerGames(2, []float64{50, 50, 50})...)
	snaps := Compute(games)

	p1 := findSnapshot(t, snaps, 1, day(2))
	if p1.Points.L5 != 10 {
		t.Errorf("player 1 L5 = %v, want 10 (player 2 games leaked across)", p1.Points.L5)
	}
}

func TestCompute_L10StdIsSample(t *testing.T) {
	snaps := Compute(playerGames(1, []float64{10, 20, 30}))

	snap := findSnapshot(t, snaps, 1, day(2))
	// Sample stddev of {10, 20}: sqrt(50) ~ 7.0711. The population
	// formula would give 5.
	want := math.Sqrt(50)
	if math.Abs(snap.Points.L10Std-want) > 1e-4 {
		t.Errorf("L10 stddev = %v, want %v", snap.Points.L10Std, want)
	}

	// Last snapshot sees {10, 20, 30, 40}: sample stddev ~ 12.9099,
	// not the population 11.1803.
	snaps = Compute(playerGames(1, []float64{10, 20, 30, 40, 50}))
	last := findSnapshot(t, snaps, 1, day(4))
	if math.Abs(last.Points.L10Std-12.9099) > 1e-4 {
		t.Errorf("L10 stddev = %v, want 12.9099", last.Points.L10Std)
	}
}

func TestCompute_L10StdZeroBelowTwoGames(t *testing.T) {
	snaps := Compute(playerGames(1, []float64{10, 20}))

	// One prior game is not enough for a sample stddev.
	second := findSnapshot(t, snaps, 1, day(1))
	if second.GamesInL10 != 1 {
		t.Fatalf("GamesInL10 = %d, want 1", second.GamesInL10)
	}
	if second.Points.L10Std != 0 {
		t.Errorf("L10 stddev with one prior game = %v, want 0", second.Points.L10Std)
	}
}

func TestSince_KeepsOnOrAfterCutoff(t *testing.T) {
	snaps := Compute(playerGames(1, []float64{10, 20, 30, 40, 50}))

	kept := Since(snaps, day(3))
	if len(kept) != 2 {
		t.Fatalf("kept %d snapshots, want 2", len(kept))
	}
	for _, s := range kept {
		if s.GameDate.Before(day(3)) {
			t.Errorf("snapshot on %v survived a cutoff of %v", s.GameDate, day(3))
		}
	}

	// Windows in the kept snapshots were computed over the full history,
	// not just the post-cutoff slice.
	last := findSnapshot(t, kept, 1, day(4))
	if last.GamesInL10 != 4 {
		t.Errorf("GamesInL10 = %d after narrowing, want 4", last.GamesInL10)
	}
}
