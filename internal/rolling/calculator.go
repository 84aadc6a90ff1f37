// Package rolling precomputes trailing-window statistics from player game
// logs. Every window covers only games dated strictly before the snapshot
// date, which is the row-level leakage guard the whole pipeline relies on:
// a snapshot keyed (player, date) may never see same-day or future games.
package rolling

import (
	"math"
	"sort"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

// Window sizes for trailing aggregates.
const (
	windowShort = 5
	windowMid   = 10
	windowLong  = 20
)

// StatWindow holds trailing aggregates for one stat column.
type StatWindow struct {
	L5     float64 `json:"l5"`
	L10    float64 `json:"l10"`
	L20    float64 `json:"l20"`
	L10Std float64 `json:"l10_std"`
	// Trend is L5 minus L10; positive means the short window is running
	// hot relative to the mid window.
	Trend float64 `json:"trend"`
}

// Snapshot is the trailing view of one player as of one game date,
// computed from strictly earlier games only.
type Snapshot struct {
	PlayerID int64     `json:"player_id"`
	GameID   string    `json:"game_id"`
	GameDate time.Time `json:"game_date"`
	Season   string    `json:"season"`

	Points   StatWindow `json:"pts"`
	Rebounds StatWindow `json:"reb"`
	Assists  StatWindow `json:"ast"`

	L5Min  float64 `json:"l5_min"`
	L10Min float64 `json:"l10_min"`

	GamesInL5  int `json:"games_in_l5"`
	GamesInL10 int `json:"games_in_l10"`
	GamesInL20 int `json:"games_in_l20"`
}

// Compute produces one snapshot per observation. Input may arrive in any
// order and mix players; it is grouped and date-sorted internally.
func Compute(observations []store.GameObservation) []Snapshot {
	byPlayer := make(map[int64][]store.GameObservation)
	for _, ob := range observations {
		byPlayer[ob.PlayerID] = append(byPlayer[ob.PlayerID], ob)
	}

	var out []Snapshot
	for _, games := range byPlayer {
		sort.Slice(games, func(i, j int) bool {
			return games[i].GameDate.Before(games[j].GameDate)
		})

		for i := range games {
			out = append(out, snapshotAt(games, i))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].GameDate.Before(out[j].GameDate)
	})
	return out
}

// Since keeps only snapshots dated on or after cutoff. Incremental
// refreshes compute over the full history (so windows stay complete)
// and then narrow the write set with this.
func Since(snaps []Snapshot, cutoff time.Time) []Snapshot {
	var out []Snapshot
	for _, s := range snaps {
		if !s.GameDate.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// snapshotAt builds the snapshot for games[i] from the games strictly
// before its date. Same-date games (doubleheader data glitches) are
// excluded along with future ones.
func snapshotAt(games []store.GameObservation, i int) Snapshot {
	current := games[i]

	var prior []store.GameObservation
	for j := 0; j < len(games); j++ {
		if games[j].GameDate.Before(current.GameDate) {
			prior = append(prior, games[j])
		}
	}

	snap := Snapshot{
		PlayerID: current.PlayerID,
		GameID:   current.GameID,
		GameDate: current.GameDate,
		Season:   current.Season,
	}

	l5 := lastN(prior, windowShort)
	l10 := lastN(prior, windowMid)
	l20 := lastN(prior, windowLong)

	snap.GamesInL5 = len(l5)
	snap.GamesInL10 = len(l10)
	snap.GamesInL20 = len(l20)

	snap.Points = statWindow(l5, l10, l20, func(ob store.GameObservation) float64 { return ob.Points })
	snap.Rebounds = statWindow(l5, l10, l20, func(ob store.GameObservation) float64 { return ob.Rebounds })
	snap.Assists = statWindow(l5, l10, l20, func(ob store.GameObservation) float64 { return ob.Assists })

	snap.L5Min = mean(l5, func(ob store.GameObservation) float64 { return ob.Minutes })
	snap.L10Min = mean(l10, func(ob store.GameObservation) float64 { return ob.Minutes })

	return snap
}

func lastN(games []store.GameObservation, n int) []store.GameObservation {
	if len(games) <= n {
		return games
	}
	return games[len(games)-n:]
}

func statWindow(l5, l10, l20 []store.GameObservation, value func(store.GameObservation) float64) StatWindow {
	w := StatWindow{
		L5:     mean(l5, value),
		L10:    mean(l10, value),
		L20:    mean(l20, value),
		L10Std: stddev(l10, value),
	}
	if len(l5) > 0 && len(l10) > 0 {
		w.Trend = w.L5 - w.L10
	}
	return w
}

func mean(games []store.GameObservation, value func(store.GameObservation) float64) float64 {
	if len(games) == 0 {
		return 0
	}
	var sum float64
	for _, g := range games {
		sum += value(g)
	}
	return sum / float64(len(games))
}

// stddev is the sample standard deviation. Below 2 games it is zero
// here and written as NULL by the upsert.
func stddev(games []store.GameObservation, value func(store.GameObservation) float64) float64 {
	if len(games) < 2 {
		return 0
	}
	m := mean(games, value)
	var ss float64
	for _, g := range games {
		d := value(g) - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(games)-1))
}
