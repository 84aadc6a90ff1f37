package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

type fakeSource struct {
	upcomingCalls int
	contextCalls  int
}

func (f *fakeSource) UpcomingProps(ctx context.Context, statType string, asOf time.Time) ([]store.PropRow, error) {
	f.upcomingCalls++
	return []store.PropRow{{
		PlayerID: 1,
		GameDate: asOf,
		StatType: statType,
		Line:     sql.NullFloat64{Float64: 22.5, Valid: true},
	}}, nil
}

func (f *fakeSource) TeamContext(ctx context.Context) (*store.TeamContextSnapshot, error) {
	f.contextCalls++
	return &store.TeamContextSnapshot{
		Season: "2025-26",
		ByAbbr: map[string]store.TeamContext{
			"BOS": {TeamID: 2, Abbr: "BOS", Season: "2025-26", Pace: 99.1},
		},
		LeagueAvgPace: 99.1,
		ComputedAt:    time.Now().UTC(),
	}, nil
}

func (f *fakeSource) Season() string { return "2025-26" }

// A nil cache must behave as a transparent passthrough so the pipeline
// runs unchanged when Redis is not deployed.
func TestCachedPropSource_NilCachePassthrough(t *testing.T) {
	src := &fakeSource{}
	cached := NewCachedPropSource(src, nil)
	ctx := context.Background()
	asOf := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rows, err := cached.UpcomingProps(ctx, "points", asOf)
		if err != nil {
			t.Fatalf("UpcomingProps failed: %v", err)
		}
		if len(rows) != 1 || rows[0].StatType != "points" {
			t.Fatalf("unexpected rows: %+v", rows)
		}
	}
	if src.upcomingCalls != 3 {
		t.Errorf("source called %d times, want 3 (no cache, no memoization)", src.upcomingCalls)
	}

	snap, err := cached.TeamContext(ctx)
	if err != nil {
		t.Fatalf("TeamContext failed: %v", err)
	}
	if _, ok := snap.Context("BOS"); !ok {
		t.Error("snapshot lost the BOS entry through the passthrough")
	}
	if cached.Season() != "2025-26" {
		t.Errorf("season = %q, want passthrough", cached.Season())
	}

	// Invalidation with no cache is a no-op, not a panic.
	cached.Invalidate(ctx, "points", asOf)
}

func TestCacheKeys(t *testing.T) {
	asOf := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if got, want := upcomingKey("points", asOf), "propcast:upcoming:points:2026-02-01"; got != want {
		t.Errorf("upcoming key = %q, want %q", got, want)
	}
	if got, want := teamContextKey("2025-26"), "propcast:team_context:2025-26"; got != want {
		t.Errorf("team context key = %q, want %q", got, want)
	}
}
