package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"conference/model"
	"conference/objective"
	"conference/partition"
	"conference/snapshot"
)

type Strategy string

const (
	StrategyPartition Strategy = "partition"
	StrategySwap      Strategy = "swap"
	// StrategyMixed tries a swap first and re-partitions a window when no swap helps.
	StrategyMixed Strategy = "mixed"
)

type Params struct {
	MaxFailedTries   int           `yaml:"max_failed_tries" validate:"gt=0"`
	Window           int           `yaml:"window" validate:"gt=0"`
	GoodEnough       float64       `yaml:"good_enough" validate:"gte=0"`
	ProgressInterval time.Duration `yaml:"progress_interval" validate:"gt=0"`
	Strategy         Strategy      `yaml:"strategy" validate:"oneof=partition swap mixed"`
}

var DefaultParams = Params{
	MaxFailedTries:   10,
	Window:           3,
	GoodEnough:       2000,
	ProgressInterval: time.Minute,
	Strategy:         StrategyPartition,
}

// Partitioner re-solves a subset of attendees into at most maxGroups groups.
// partition.Solver implements it.
type Partitioner interface {
	Solve(ctx context.Context, subset []*model.Attendee, minSize, maxSize, maxGroups int) ([]partition.Result, error)
}

type Report struct {
	RunID        string
	Attempts     int
	Accepted     int
	InitialScore float64
	Score        float64
	Elapsed      time.Duration
}

type Optimizer struct {
	search  *LocalSearch
	scorer  *objective.Scorer
	parts   Partitioner
	params  Params
	log     *zap.Logger
	store   snapshot.Store
	metrics *Metrics
	runID   string
}

type Option func(*Optimizer)

// WithStore saves the grouping after every accepted improvement.
func WithStore(s snapshot.Store) Option {
	return func(o *Optimizer) { o.store = s }
}

func WithMetrics(m *Metrics) Option {
	return func(o *Optimizer) { o.metrics = m }
}

func WithRunID(id string) Option {
	return func(o *Optimizer) { o.runID = id }
}

func NewOptimizer(conf *model.Conference, scorer *objective.Scorer, parts Partitioner, params Params, log *zap.Logger, opts ...Option) *Optimizer {
	o := &Optimizer{
		search: NewLocalSearch(conf, scorer),
		scorer: scorer,
		parts:  parts,
		params: params,
		log:    log,
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.log = o.log.With(zap.String("run_id", o.runID))
	return o
}

func (o *Optimizer) Conference() *model.Conference {
	return o.search.Conference()
}

func (o *Optimizer) Score() float64 {
	return o.search.Score()
}

func (o *Optimizer) RunID() string {
	return o.runID
}

// ImproveBySwap commits the best improving swap, if there is one.
func (o *Optimizer) ImproveBySwap() bool {
	m, ok := o.search.BestSwap(o.params.GoodEnough)
	if !ok {
		return false
	}
	o.search.Commit(m)
	o.log.Debug("swapped",
		zap.Int("group_a", m.G1),
		zap.Int("group_b", m.G2),
		zap.Float64("delta", m.Delta))
	return true
}

// ImproveByPartition dissolves the window of groups selected by attempt i and
// re-solves it exactly. The live conference is replaced only when the new
// grouping scores strictly higher.
func (o *Optimizer) ImproveByPartition(ctx context.Context, i int) (bool, error) {
	conf := o.search.Conference()
	window := min(o.params.Window, len(conf.Groups))
	if window == 0 {
		return false, nil
	}
	start := i % (len(conf.Groups) + 1 - window)
	dissolved := conf.Groups[start : start+window]

	minSize, maxSize := dissolved[0].Size(), dissolved[0].Size()
	var subset []*model.Attendee
	for _, g := range dissolved {
		minSize = min(minSize, g.Size())
		maxSize = max(maxSize, g.Size())
		subset = append(subset, g.Attendees...)
	}

	results, err := o.parts.Solve(ctx, subset, minSize, maxSize, window)
	switch {
	case errors.Is(err, partition.ErrNoSolution), errors.Is(err, partition.ErrTooManyCandidates):
		o.log.Debug("window not solved", zap.Int("start", start), zap.Error(err))
		return false, nil
	case err != nil:
		return false, err
	}
	if len(results) != window {
		o.log.Debug("window solved into a different number of groups",
			zap.Int("start", start),
			zap.Int("want", window),
			zap.Int("got", len(results)))
		return false, nil
	}

	groups, err := partition.Groups(results, model.NewRegistry(subset))
	if err != nil {
		return false, err
	}
	trial := conf.Clone()
	copy(trial.Groups[start:], groups)
	if o.scorer.Conference(trial) <= o.search.Score() {
		return false, nil
	}
	trial.Sort()
	o.search.Reset(trial)
	return true, nil
}

func (o *Optimizer) attempt(ctx context.Context, strategy Strategy, i int) (bool, error) {
	t := time.Now()
	var improved bool
	var err error
	if strategy == StrategySwap {
		improved = o.ImproveBySwap()
	} else {
		improved, err = o.ImproveByPartition(ctx, i)
	}
	if o.metrics != nil && err == nil {
		o.metrics.observeAttempt(strategy, improved, time.Since(t))
	}
	return improved, err
}

// Step makes one improvement attempt with the configured strategy.
func (o *Optimizer) Step(ctx context.Context, i int) (bool, error) {
	switch o.params.Strategy {
	case StrategySwap, StrategyPartition:
		return o.attempt(ctx, o.params.Strategy, i)
	case StrategyMixed:
		improved, err := o.attempt(ctx, StrategySwap, i)
		if err != nil || improved {
			return improved, err
		}
		return o.attempt(ctx, StrategyPartition, i)
	}
	return false, fmt.Errorf("unknown strategy %q", o.params.Strategy)
}

func (o *Optimizer) save(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	return o.store.Save(ctx, snapshot.Encode(o.search.Conference(), o.runID))
}

// Optimize runs improvement attempts until MaxFailedTries consecutive attempts
// fail. Snapshot store errors and context cancellation end the run early.
func (o *Optimizer) Optimize(ctx context.Context) (Report, error) {
	start := time.Now()
	lastProgress := start
	report := Report{RunID: o.runID, InitialScore: o.Score(), Score: o.Score()}
	o.log.Info("optimizing",
		zap.String("strategy", string(o.params.Strategy)),
		zap.Int("groups", len(o.Conference().Groups)),
		zap.Int("attendees", o.Conference().Size()),
		zap.Float64("score", report.InitialScore))

	failures := 0
	for i := 0; failures < o.params.MaxFailedTries; i++ {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, err
		}
		if time.Since(lastProgress) > o.params.ProgressInterval {
			lastProgress = time.Now()
			o.log.Info("progress", zap.Int("try", i+1), zap.Float64("score", o.Score()))
		}

		improved, err := o.Step(ctx, i)
		report.Attempts++
		if err != nil {
			report.Score = o.Score()
			report.Elapsed = time.Since(start)
			return report, fmt.Errorf("attempt %d: %w", i+1, err)
		}
		if improved {
			failures = 0
			report.Accepted++
			o.log.Info("new score",
				zap.Int("tries", i+1),
				zap.Float64("score", o.Score()))
			if err := o.save(ctx); err != nil {
				report.Score = o.Score()
				report.Elapsed = time.Since(start)
				return report, fmt.Errorf("saving conference: %w", err)
			}
		} else {
			failures++
			o.log.Info("failed to improve", zap.Int("tries", i+1), zap.Int("failures", failures))
		}
		if o.metrics != nil {
			o.metrics.setState(o.Score(), failures)
		}
	}

	report.Score = o.Score()
	report.Elapsed = time.Since(start)
	o.log.Info("optimization finished",
		zap.Int("attempts", report.Attempts),
		zap.Int("accepted", report.Accepted),
		zap.Float64("score", report.Score),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}
