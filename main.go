package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"conference/config"
	"conference/friendgraph"
	"conference/mip"
	"conference/model"
	"conference/objective"
	"conference/partition"
	"conference/roster"
	"conference/snapshot"
	"conference/solver"
)

var (
	verbose    bool
	cfgPath    string
	rosterPath string
	numGroups  int
	seeds      []int64

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "conference",
	Short:         "Arrange youth conference attendees into balanced groups",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if rosterPath != "" {
			cfg.Roster = rosterPath
		}
		if numGroups > 0 {
			cfg.NumGroups = numGroups
		}
		if len(seeds) > 0 {
			cfg.Seeds = seeds
		}
		if conn := os.Getenv("PGCONN"); conn != "" && cfg.Snapshot.Postgres == "" {
			cfg.Snapshot.Postgres = conn
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Improve a grouping per seed, resuming from its snapshot when one exists",
	Args:  cobra.NoArgs,
	RunE:  runOptimize,
}

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Partition the whole roster exactly, one age window at a time",
	Args:  cobra.NoArgs,
	RunE:  runPartition,
}

var (
	showResults string
	showGroups  bool
)

var showCmd = &cobra.Command{
	Use:   "show [snapshot.json]",
	Short: "Print group summaries of a snapshot or a partition result file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var graphOut string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Write the friend request graph in Graphviz format",
	Args:  cobra.NoArgs,
	RunE:  runGraph,
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List each attendee's friend requests made and received as CSV",
	Args:  cobra.NoArgs,
	RunE:  runRequests,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&rosterPath, "roster", "", "attendee roster (overrides config)")
	rootCmd.PersistentFlags().IntVar(&numGroups, "groups", 0, "number of groups (overrides config)")
	rootCmd.PersistentFlags().Int64SliceVar(&seeds, "seed", nil, "initial grouping seeds (overrides config)")

	showCmd.Flags().StringVar(&showResults, "results", "", "partition result file to show instead of a snapshot")
	showCmd.Flags().BoolVar(&showGroups, "details", true, "print every group, not only the totals")
	graphCmd.Flags().StringVarP(&graphOut, "out", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(partitionCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(requestsCmd)
}

func readRoster() ([]*model.Attendee, error) {
	return roster.NewReader(cfg.Format, logger).ReadFile(cfg.Roster)
}

func newPartitioner(scorer *objective.Scorer) *partition.Solver {
	return partition.New(scorer, mip.NewBranchAndBound(cfg.MIP), cfg.Partition, logger)
}

// openStore returns the snapshot store for a seed and a function releasing it.
func openStore(ctx context.Context, seed int64) (snapshot.Store, func(), error) {
	if cfg.Snapshot.Postgres != "" {
		pg, err := snapshot.OpenPG(ctx, cfg.Snapshot.Postgres, cfg.SnapshotName(seed))
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.Close() }, nil
	}
	if err := os.MkdirAll(cfg.Snapshot.Dir, 0o755); err != nil {
		return nil, nil, err
	}
	return snapshot.NewFileStore(cfg.SnapshotPath(seed)), func() {}, nil
}

func startingConference(ctx context.Context, store snapshot.Store, attendees []*model.Attendee, seed int64) (*model.Conference, error) {
	conf, doc, err := snapshot.LoadConference(ctx, store)
	switch {
	case err == nil:
		if err := conf.Validate(attendees); err != nil {
			return nil, fmt.Errorf("snapshot of run %s does not match the roster: %w", doc.RunID, err)
		}
		logger.Info("resuming from snapshot", zap.Int64("seed", seed), zap.String("previous_run", doc.RunID))
		return conf, nil
	case errors.Is(err, os.ErrNotExist), errors.Is(err, snapshot.ErrNoSnapshot):
		rng := rand.New(rand.NewSource(seed))
		return model.New(model.Split(attendees, cfg.NumGroups, rng)), nil
	}
	return nil, err
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	attendees, err := readRoster()
	if err != nil {
		return err
	}
	scorer := objective.New(cfg.Objective).Restrict(model.NewRegistry(attendees))
	parts := newPartitioner(scorer)
	metrics := solver.NewMetrics()

	for _, seed := range cfg.Seeds {
		store, closeStore, err := openStore(ctx, seed)
		if err != nil {
			return err
		}
		conf, err := startingConference(ctx, store, attendees, seed)
		if err != nil {
			closeStore()
			return err
		}
		logger.Info("starting conference", zap.Int64("seed", seed), zap.Float64("score", scorer.Conference(conf)))

		opt := solver.NewOptimizer(conf, scorer, parts, cfg.Optimizer, logger.With(zap.Int64("seed", seed)),
			solver.WithStore(store), solver.WithMetrics(metrics))
		report, err := opt.Optimize(ctx)
		if err == nil {
			err = store.Save(ctx, snapshot.Encode(opt.Conference(), opt.RunID()))
		}
		closeStore()
		if err != nil {
			return err
		}
		logger.Info("ending conference", zap.Int64("seed", seed), zap.Float64("score", report.Score))
		show(cmd.OutOrStdout(), scorer, opt.Conference(), false)
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func runPartition(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	attendees, err := readRoster()
	if err != nil {
		return err
	}
	scorer := objective.New(cfg.Objective)
	results, err := newPartitioner(scorer).SolveWindowed(ctx, attendees,
		cfg.NumGroups, cfg.Windowed.GroupsPerSearch, cfg.Windowed.YoungestFirst)
	if err != nil {
		logger.Warn("partition incomplete", zap.Int("groups_found", len(results)), zap.Error(err))
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Windowed.Output), 0o755); err != nil {
		return err
	}
	if err := snapshot.WriteResults(cfg.Windowed.Output, results); err != nil {
		return err
	}
	logger.Info("wrote partition", zap.String("path", cfg.Windowed.Output), zap.Int("groups", len(results)))

	conf, err := partition.Conference(results, model.NewRegistry(attendees))
	if err != nil {
		return err
	}
	show(cmd.OutOrStdout(), scorer.Restrict(model.NewRegistry(attendees)), conf, true)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	var conf *model.Conference
	switch {
	case showResults != "":
		attendees, err := readRoster()
		if err != nil {
			return err
		}
		results, err := snapshot.ReadResults(showResults)
		if err != nil {
			return err
		}
		if conf, err = partition.Conference(results, model.NewRegistry(attendees)); err != nil {
			return err
		}
	case len(args) == 1:
		var err error
		if conf, _, err = snapshot.LoadConference(cmd.Context(), snapshot.NewFileStore(args[0])); err != nil {
			return err
		}
	default:
		return errors.New("pass a snapshot file or --results")
	}
	scorer := objective.New(cfg.Objective).Restrict(model.NewRegistry(conf.Attendees()))
	show(cmd.OutOrStdout(), scorer, conf, showGroups)
	return nil
}

func show(w io.Writer, scorer *objective.Scorer, conf *model.Conference, groups bool) {
	buddyless := 0
	for i, g := range conf.Groups {
		sum := scorer.Summarize(g.Attendees)
		if groups {
			fmt.Fprintf(w, "Group %d\t%s\n", i+1, sum.Header())
			for _, l := range sum.Lines {
				fmt.Fprintln(w, l)
			}
		}
		buddyless += sum.Buddyless
	}
	fmt.Fprintf(w, "%.0f, %d buddy-less attendees\n", scorer.Conference(conf), buddyless)
}

func runGraph(cmd *cobra.Command, args []string) error {
	attendees, err := readRoster()
	if err != nil {
		return err
	}
	clusters, err := friendgraph.Clusters(attendees)
	if err != nil {
		return err
	}
	for i, c := range clusters {
		if len(c) < 2 {
			break
		}
		logger.Info("friend cluster", zap.Int("index", i+1), zap.Int("size", len(c)), zap.Strings("names", c))
	}

	w := cmd.OutOrStdout()
	if graphOut != "" {
		f, err := os.Create(graphOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return friendgraph.WriteDOT(w, attendees)
}

func runRequests(cmd *cobra.Command, args []string) error {
	attendees, err := readRoster()
	if err != nil {
		return err
	}
	rows, err := friendgraph.RequestReport(attendees)
	if err != nil {
		return err
	}
	return friendgraph.WriteRequests(cmd.OutOrStdout(), rows)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
