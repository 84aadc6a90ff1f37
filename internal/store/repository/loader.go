package repository

import (
	"context"
	"time"

	"github.com/fortuna/propcast/internal/store"
)

// Loader is the season-scoped facade the pipelines consume. It pins the
// season once so callers never thread it through every query, and it is
// the concrete implementation behind the trainer and backtest loader
// interfaces.
type Loader struct {
	games  *GameLogRepository
	props  *PropRepository
	teams  *TeamRepository
	season string
}

// NewLoader creates a loader bound to one season.
func NewLoader(db *store.Database, season string) *Loader {
	return &Loader{
		games:  NewGameLogRepository(db),
		props:  NewPropRepository(db),
		teams:  NewTeamRepository(db),
		season: season,
	}
}

// Season returns the season this loader is bound to.
func (l *Loader) Season() string {
	return l.season
}

// HistoricalGames returns all game-log rows for the regressor source.
func (l *Loader) HistoricalGames(ctx context.Context, statType string, minMinutes float64) ([]store.PropRow, error) {
	return l.games.LoadHistoricalGames(ctx, statType, DateRange{}, minMinutes)
}

// PropOutcomes returns all resolved prop rows for the classifier source.
func (l *Loader) PropOutcomes(ctx context.Context, statType string) ([]store.PropRow, error) {
	return l.props.LoadTrainingData(ctx, statType, l.season, DateRange{})
}

// ResolvedProps returns resolved prop rows inside an inclusive window.
func (l *Loader) ResolvedProps(ctx context.Context, statType string, start, end time.Time) ([]store.PropRow, error) {
	return l.props.LoadTrainingData(ctx, statType, l.season, DateRange{Min: start, Max: end})
}

// UpcomingProps returns unresolved market lines dated asOf or later.
func (l *Loader) UpcomingProps(ctx context.Context, statType string, asOf time.Time) ([]store.PropRow, error) {
	return l.props.LoadUpcomingProps(ctx, statType, asOf)
}

// TeamContext returns the season's team-context snapshot.
func (l *Loader) TeamContext(ctx context.Context) (*store.TeamContextSnapshot, error) {
	return l.teams.ContextSnapshot(ctx, l.season)
}

// AvailableStatTypes returns stat types with enough resolved outcomes
// to train on.
func (l *Loader) AvailableStatTypes(ctx context.Context, minSamples int) ([]string, error) {
	return l.props.AvailableStatTypes(ctx, minSamples)
}

// OutcomeDateRange returns the span of resolved outcomes for a stat type.
func (l *Loader) OutcomeDateRange(ctx context.Context, statType string) (time.Time, time.Time, error) {
	return l.props.OutcomeDateRange(ctx, statType)
}
