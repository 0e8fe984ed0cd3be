// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/edge-backtester/internal/backtest"
	"github.com/yourusername/edge-backtester/internal/config"
	"github.com/yourusername/edge-backtester/internal/database"
	"github.com/yourusername/edge-backtester/internal/datasource"
	"github.com/yourusername/edge-backtester/internal/health"
	"github.com/yourusername/edge-backtester/internal/logger"
	"github.com/yourusername/edge-backtester/internal/metrics"
	"github.com/yourusername/edge-backtester/internal/repository"
	"github.com/yourusername/edge-backtester/internal/scheduler"
	"github.com/yourusername/edge-backtester/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	logLevel   string
	log        *logrus.Logger
	cfg        *config.Config
	db         *database.DB
)

// run-level overrides shared by the replay commands
var (
	startDate  string
	endDate    string
	modelType  string
	outputPath string
	seasons    []int
)

var rootCmd = &cobra.Command{
	Use:           "backtest",
	Short:         "Backtest sports betting models against historical closing lines",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		metrics.InitRegistry()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override app.log_level")

	for _, cmd := range []*cobra.Command{runCmd, varianceCmd, walkForwardCmd, evaluateCmd} {
		cmd.Flags().StringVar(&startDate, "start-date", "", "Override start date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&endDate, "end-date", "", "Override end date (YYYY-MM-DD)")
		cmd.Flags().StringVar(&modelType, "model", "", "Override model type (elo, enhanced_elo, logistic, ensemble)")
		cmd.Flags().IntSliceVar(&seasons, "seasons", nil, "Restrict the replay to these seasons")
		cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the JSON result to this path")
	}
	walkForwardCmd.Flags().IntVar(&trainSeasons, "train-seasons", 1, "Seasons in each in-sample window")
	walkForwardCmd.Flags().IntVar(&minWagers, "min-wagers", 0, "Drop windows with fewer test wagers")
	evaluateCmd.Flags().IntVar(&trainSeasons, "train-seasons", 1, "Seasons in each in-sample window")
	evaluateCmd.Flags().IntVar(&minWagers, "min-wagers", 0, "Drop windows with fewer test wagers")

	rootCmd.AddCommand(runCmd, varianceCmd, walkForwardCmd, evaluateCmd, generateCmd, scheduleCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	applyOverrides(cfg)

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log = logger.NewLogger(cfg.App.LogLevel)
	return nil
}

func applyOverrides(cfg *config.Config) {
	if startDate != "" {
		cfg.Backtest.StartDate = startDate
	}
	if endDate != "" {
		cfg.Backtest.EndDate = endDate
	}
	if modelType != "" {
		cfg.Backtest.ModelType = modelType
	}
	if len(seasons) > 0 {
		cfg.Backtest.Seasons = seasons
	}
	if outputPath != "" {
		cfg.Backtest.OutputPath = outputPath
	}
}

// newService builds the backtest service, connecting the wager sink when the database is enabled
func newService(ctx context.Context) (*service.BacktestService, error) {
	source, err := datasource.NewEventSource(cfg.DataSource, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event source: %w", err)
	}

	var sink repository.WagerSink
	if cfg.Database.Enabled {
		db, err = database.Initialize(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if sink, err = repository.NewPostgresWagerSink(db); err != nil {
			return nil, err
		}
	}
	return service.NewBacktestService(cfg, source, sink, log)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the configured window once",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		result, err := svc.RunHistorical(cmd.Context())
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result)
		if cfg.Backtest.OutputPath != "" {
			return backtest.ExportToJSON(backtest.NewExport(result), cfg.Backtest.OutputPath)
		}
		return nil
	},
}

var varianceCmd = &cobra.Command{
	Use:   "variance",
	Short: "Replay the window and simulate the variance of its wagers",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		result, report, err := svc.RunVariance(cmd.Context())
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result)
		printVariance(cmd.OutOrStdout(), report)
		if cfg.Backtest.OutputPath != "" {
			return writeJSON(cfg.Backtest.OutputPath, report)
		}
		return nil
	},
}

var (
	trainSeasons int
	minWagers    int
)

func walkForwardConfig() backtest.WalkForwardConfig {
	return backtest.WalkForwardConfig{TrainSeasons: trainSeasons, MinWagersPerWindow: minWagers}
}

var walkForwardCmd = &cobra.Command{
	Use:   "walk-forward",
	Short: "Evaluate every season out of sample",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		result, err := svc.RunWalkForward(cmd.Context(), walkForwardConfig())
		if err != nil {
			return err
		}
		printWalkForward(cmd.OutOrStdout(), result)
		if cfg.Backtest.OutputPath != "" {
			return writeJSON(cfg.Backtest.OutputPath, result)
		}
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run replay, Monte Carlo and walk-forward and combine them into a recommendation",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		export, err := svc.RunAll(cmd.Context(), walkForwardConfig())
		if err != nil {
			return err
		}
		printAggregated(cmd.OutOrStdout(), export)
		return nil
	},
}

var (
	genSeasons      []int
	genTeams        int
	genGamesPerTeam int
	genSeed         int64
	genOutput       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a reproducible synthetic event file",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cfg.DataSource.Synthetic
		if cmd.Flags().Changed("seasons") {
			sc.Seasons = genSeasons
		}
		if cmd.Flags().Changed("teams") {
			sc.Teams = genTeams
		}
		if cmd.Flags().Changed("games-per-team") {
			sc.GamesPerTeam = genGamesPerTeam
		}
		if cmd.Flags().Changed("seed") {
			sc.Seed = genSeed
		}

		src, err := datasource.NewSyntheticSource(sc, log)
		if err != nil {
			return err
		}
		events, err := src.Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := datasource.WriteFile(genOutput, events); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", len(events), genOutput)
		return nil
	},
}

func init() {
	generateCmd.Flags().IntSliceVar(&genSeasons, "seasons", nil, "Seasons to generate")
	generateCmd.Flags().IntVar(&genTeams, "teams", 30, "Number of teams")
	generateCmd.Flags().IntVar(&genGamesPerTeam, "games-per-team", 82, "Games per team per season")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 42, "Random seed")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "data/events.csv", "Output file (.csv or .json)")

	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "", "Override scheduler.cron")
	scheduleCmd.Flags().BoolVar(&runNow, "run-now", false, "Run one evaluation before waiting for the schedule")
	scheduleCmd.Flags().IntVar(&trainSeasons, "train-seasons", 1, "Seasons in each in-sample window")
}

var (
	cronExpr string
	runNow   bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the full evaluation on a cron schedule and serve health and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newService(ctx)
		if err != nil {
			return err
		}

		expr := cfg.Scheduler.Cron
		if cronExpr != "" {
			expr = cronExpr
		}
		sched := scheduler.NewScheduler(svc, walkForwardConfig(), log)
		if _, err := sched.ScheduleBacktest(expr); err != nil {
			return err
		}

		srvCfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        fmt.Sprint(cfg.Metrics.Port),
			Logger:      log,
			Runs:        sched,
		}
		if db != nil {
			srvCfg.DB = db
		}
		if cfg.Metrics.Enabled {
			srvCfg.Metrics = metrics.Handler()
			srvCfg.MetricsPath = cfg.Metrics.Path
		}
		srv := health.NewServer(srvCfg)
		if err := srv.Start(ctx); err != nil {
			return err
		}

		if runNow {
			if err := sched.RunNow(ctx); err != nil {
				log.WithError(err).Warn("Initial evaluation failed")
			}
		}
		if err := sched.Start(); err != nil {
			return err
		}
		srv.SetReady(true)
		log.WithField("next_run", sched.GetNextRun().Format(time.RFC3339)).Info("Waiting for schedule")

		<-ctx.Done()
		srv.SetReady(false)
		return sched.Stop()
	},
}
