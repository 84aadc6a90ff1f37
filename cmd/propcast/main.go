package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortuna/propcast/internal/backtest"
	"github.com/fortuna/propcast/internal/cache"
	"github.com/fortuna/propcast/internal/config"
	"github.com/fortuna/propcast/internal/predictor"
	"github.com/fortuna/propcast/internal/rolling"
	"github.com/fortuna/propcast/internal/store"
	"github.com/fortuna/propcast/internal/store/repository"
	"github.com/fortuna/propcast/internal/trainer"
)

const (
	appName    = "propcast"
	appVersion = "1.0.0"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "train":
		err = runTrain(args)
	case "predict":
		err = runPredict(args)
	case "backtest":
		err = runBacktest(args)
	case "rolling":
		err = runRolling(args)
	case "version":
		fmt.Printf("%s v%s\n", appName, appVersion)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", appName, cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `%s v%s - NBA player prop modeling pipeline

Usage:
  %[1]s train    [-config path] [-stat type]      train model pairs
  %[1]s predict  [-config path] [-stat type]      score upcoming props
  %[1]s backtest [-config path] [-stat type]      replay models over resolved props
  %[1]s rolling  [-config path] [-start date] [-end date] [-days n]
                                                  refresh rolling snapshots
  %[1]s version
`, appName, appVersion)
}

// setup loads config, opens the database, and builds the logger shared
// by every subcommand.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *store.Database, zerolog.Logger, error) {
	cfgPath := fs.String("config", getEnv("PROPCAST_CONFIG", "config.yaml"), "Path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	log := newLogger(cfg)

	db, err := store.NewDatabase(cfg.Database.URL)
	if err != nil {
		return nil, nil, log, fmt.Errorf("connect database: %w", err)
	}
	return cfg, db, log, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Logging.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Str("app", appName).Logger()
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	statType := fs.String("stat", "", "Train a single stat type instead of all available")

	cfg, db, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	loader := repository.NewLoader(db, cfg.Season)

	statTypes, err := resolveStatTypes(ctx, loader, *statType, cfg.Training.MinSamples)
	if err != nil {
		return err
	}

	tcfg := trainer.Config{
		ValDays:            cfg.Training.ValDays,
		TestDays:           cfg.Training.TestDays,
		HistoricalValDays:  cfg.Training.HistoricalValDays,
		HistoricalTestDays: cfg.Training.HistoricalTestDays,
		MinMinutes:         cfg.Training.MinMinutes,
		ModelDir:           cfg.Models.Dir,
	}

	results, failures := trainer.TrainAll(ctx, loader, statTypes, tcfg, log)
	for stat, res := range results {
		fmt.Printf("%-10s run=%s  mae=%.2f  accuracy=%.3f  roi=%.1f%%\n",
			stat, res.RunID, res.Regressor.Metrics.MAE,
			res.Classifier.Test.Accuracy, res.Classifier.Betting.ROIPct)
	}
	for stat, err := range failures {
		fmt.Printf("%-10s FAILED: %v\n", stat, err)
	}
	if len(results) == 0 && len(failures) > 0 {
		return fmt.Errorf("all %d stat types failed", len(failures))
	}
	return nil
}

func runPredict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	statType := fs.String("stat", "", "Predict a single stat type instead of all priority types")
	all := fs.Bool("all", false, "Include SKIP recommendations in output")
	refresh := fs.Bool("refresh", false, "Drop cached lines and team context before scoring")

	cfg, db, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	loader := repository.NewLoader(db, cfg.Season)

	var redis *cache.Cache
	if cfg.Redis.Enabled {
		redis, err = cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			// Prediction works without the cache, just slower.
			log.Warn().Err(err).Msg("redis unavailable, reading straight from database")
		} else {
			defer redis.Close()
		}
	}
	source := cache.NewCachedPropSource(loader, redis)

	statTypes := store.PriorityStatTypes
	if *statType != "" {
		statTypes = []string{*statType}
	}

	policy := predictor.Policy{MinConfidence: cfg.Policy.MinConfidence, MinEdgePct: cfg.Policy.MinEdgePct}
	asOf := time.Now().UTC().Truncate(24 * time.Hour)

	if *refresh {
		for _, stat := range statTypes {
			source.Invalidate(ctx, stat, asOf)
		}
	}

	teamCtx, err := source.TeamContext(ctx)
	if err != nil {
		return fmt.Errorf("loading team context: %w", err)
	}

	for _, stat := range statTypes {
		pred, err := predictor.New(cfg.Models.Dir, stat, policy, log)
		if err != nil {
			log.Error().Err(err).Str("stat_type", stat).Msg("predictor unavailable")
			continue
		}

		rows, err := source.UpcomingProps(ctx, stat, asOf)
		if err != nil {
			return err
		}
		teamCtx.Apply(rows)

		predictions, err := pred.Predict(rows)
		if err != nil {
			return err
		}
		printPredictions(stat, predictions, *all)
	}
	return nil
}

func printPredictions(statType string, predictions []predictor.Prediction, includeSkips bool) {
	fmt.Printf("\n=== %s ===\n", statType)
	shown := 0
	for _, p := range predictions {
		if p.Recommendation == predictor.RecommendSkip && !includeSkips {
			continue
		}
		fmt.Printf("%-24s %s  line=%.1f  pred=%.1f  over=%.3f  edge=%+.1f%%  %s\n",
			p.PlayerName, p.GameDate.Format("2006-01-02"),
			p.Line, p.PredictedValue, p.OverProb, p.EdgePct, p.Recommendation)
		shown++
	}
	if shown == 0 {
		fmt.Println("no qualifying bets")
	}
}

func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	statType := fs.String("stat", "", "Backtest a single stat type instead of all priority types")
	days := fs.Int("days", 0, "Override the trailing window length in days")

	cfg, db, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	loader := repository.NewLoader(db, cfg.Season)

	bcfg := backtest.Config{
		Days:     cfg.Backtest.Days,
		ModelDir: cfg.Models.Dir,
		Policy:   predictor.Policy{MinConfidence: cfg.Policy.MinConfidence, MinEdgePct: cfg.Policy.MinEdgePct},
		Buckets:  cfg.Backtest.Buckets,
	}
	if *days > 0 {
		bcfg.Days = *days
	}

	statTypes := store.PriorityStatTypes
	if *statType != "" {
		statTypes = []string{*statType}
	}

	runner := backtest.NewRunner(loader, bcfg, log)
	results, failures := runner.RunAll(ctx, statTypes)

	for _, stat := range sortedKeys(results) {
		res := results[stat]
		fmt.Printf("%-10s %s..%s  props=%d bets=%d skips=%d  win=%.3f profit=%+.1fu roi=%+.1f%%\n",
			stat, res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"),
			res.PropsScored, res.Betting.TotalBets, res.Skipped,
			res.Betting.WinRate, res.Betting.ProfitUnits, res.Betting.ROIPct)
	}
	for stat, err := range failures {
		fmt.Printf("%-10s FAILED: %v\n", stat, err)
	}
	return nil
}

func runRolling(args []string) error {
	fs := flag.NewFlagSet("rolling", flag.ExitOnError)
	start := fs.String("start", "", "Start date (YYYY-MM-DD), unbounded when empty")
	end := fs.String("end", "", "End date (YYYY-MM-DD), unbounded when empty")
	days := fs.Int("days", 0, "Rewrite only the trailing N days of snapshots")

	_, db, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer db.Close()

	if *days > 0 && (*start != "" || *end != "") {
		return fmt.Errorf("-days cannot be combined with -start/-end")
	}

	dr, err := parseDateRange(*start, *end)
	if err != nil {
		return err
	}

	ctx := context.Background()
	games := repository.NewGameLogRepository(db)
	rollingRepo := repository.NewRollingRepository(db)

	// The trailing-days mode still loads the full history so every
	// window is complete, then narrows the write set to the recent
	// snapshots. Bounding the load instead would truncate the windows.
	var cutoff time.Time
	if *days > 0 {
		_, last, err := games.HistoricalDateRange(ctx)
		if err != nil {
			return err
		}
		cutoff = last.AddDate(0, 0, -*days)
	}

	observations, err := games.LoadObservations(ctx, dr)
	if err != nil {
		return err
	}
	log.Info().Int("observations", len(observations)).Msg("computing rolling snapshots")

	snaps := rolling.Compute(observations)
	if *days > 0 {
		snaps = rolling.Since(snaps, cutoff)
	}
	written, err := rollingRepo.UpsertSnapshots(ctx, snaps)
	if err != nil {
		return fmt.Errorf("wrote %d of %d snapshots: %w", written, len(snaps), err)
	}

	fmt.Printf("refreshed %d rolling snapshots\n", written)
	return nil
}

// resolveStatTypes picks the stat types to train: an explicit flag wins,
// otherwise every type with enough resolved outcomes.
func resolveStatTypes(ctx context.Context, loader *repository.Loader, statType string, minSamples int) ([]string, error) {
	if statType != "" {
		if !store.SupportedStatType(statType) {
			return nil, fmt.Errorf("unsupported stat type %q", statType)
		}
		return []string{statType}, nil
	}

	available, err := loader.AvailableStatTypes(ctx, minSamples)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, st := range available {
		if store.SupportedStatType(st) {
			out = append(out, st)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no stat types with at least %d resolved outcomes", minSamples)
	}
	return out, nil
}

func parseDateRange(start, end string) (repository.DateRange, error) {
	var dr repository.DateRange
	var err error
	if start != "" {
		if dr.Min, err = time.Parse("2006-01-02", start); err != nil {
			return dr, fmt.Errorf("invalid start date %q: %w", start, err)
		}
	}
	if end != "" {
		if dr.Max, err = time.Parse("2006-01-02", end); err != nil {
			return dr, fmt.Errorf("invalid end date %q: %w", end, err)
		}
	}
	return dr, nil
}

func sortedKeys(m map[string]*backtest.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
