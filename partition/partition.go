// Package partition splits a set of attendees into groups exactly.
//
// Every screened candidate group becomes a binary variable of a set-partition
// model: each attendee must be covered once and at most maxGroups candidates
// may be chosen. Solving is delegated to a mip.Solver.
package partition

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"conference/mip"
	"conference/model"
	"conference/objective"
)

var ErrNoSolution = errors.New("no feasible partition")

type Result struct {
	Names       []string `json:"names"`
	Score       float64  `json:"score"`
	MinAge      float64  `json:"min_age"`
	MaxAge      float64  `json:"max_age"`
	HasSubgroup bool     `json:"has_organizational_subgroup"`
	HasOther    bool     `json:"has_other"`
}

type Params struct {
	Workers       int `yaml:"workers" validate:"gt=0"`
	MaxCandidates int `yaml:"max_candidates" validate:"gte=0"`
}

var DefaultParams = Params{
	Workers:       4,
	MaxCandidates: 500000,
}

type Solver struct {
	scorer *objective.Scorer
	mip    mip.Solver
	params Params
	log    *zap.Logger
}

func New(scorer *objective.Scorer, solver mip.Solver, params Params, log *zap.Logger) *Solver {
	if params.Workers <= 0 {
		params.Workers = 1
	}
	return &Solver{scorer: scorer, mip: solver, params: params, log: log}
}

func (s *Solver) score(ctx context.Context, scorer *objective.Scorer, cands [][]*model.Attendee) ([]float64, error) {
	scores := make([]float64, len(cands))
	chunk := (len(cands) + s.params.Workers - 1) / s.params.Workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.params.Workers)
	for start := 0; start < len(cands); start += chunk {
		end := min(start+chunk, len(cands))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				scores[i] = scorer.Group(cands[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func candidateName(c []*model.Attendee) string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name
	}
	return "group_(" + strings.Join(names, ",") + ")"
}

func buildModel(subset []*model.Attendee, cands [][]*model.Attendee, scores []float64, maxGroups int) *mip.Model {
	m := mip.NewModel("conference_grouping", mip.Maximize)
	count := make([]mip.Term, len(cands))
	covering := make(map[string][]mip.Term, len(subset))
	for i, c := range cands {
		v := m.AddVar(candidateName(c), scores[i])
		count[i] = mip.Term{Var: v, Coeff: 1}
		for _, a := range c {
			covering[a.Name] = append(covering[a.Name], mip.Term{Var: v, Coeff: 1})
		}
	}
	m.AddConstraint("maximum_number_of_groups", count, mip.LE, float64(maxGroups))
	for _, a := range subset {
		m.AddConstraint("must_seat_"+a.Name, covering[a.Name], mip.EQ, 1)
	}
	return m
}

// Solve partitions subset into at most maxGroups groups with sizes in
// [minSize, maxSize], maximizing the sum of group scores. Results are sorted by
// MaxAge. When no partition exists it returns an empty slice and ErrNoSolution.
func (s *Solver) Solve(ctx context.Context, subset []*model.Attendee, minSize, maxSize, maxGroups int) ([]Result, error) {
	scorer := s.scorer.Restrict(model.NewRegistry(subset))

	s.log.Debug("partitioning subset",
		zap.Int("attendees", len(subset)),
		zap.Int("min_size", minSize),
		zap.Int("max_size", maxSize),
		zap.Int("max_groups", maxGroups))

	cands, err := candidates(scorer, subset, minSize, maxSize, s.params.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("enumerating candidates: %w", err)
	}
	s.log.Debug("candidate groups", zap.Int("count", len(cands)))
	if len(cands) == 0 {
		return []Result{}, fmt.Errorf("no candidate groups: %w", ErrNoSolution)
	}

	scores, err := s.score(ctx, scorer, cands)
	if err != nil {
		return nil, err
	}

	sol, err := s.mip.Solve(ctx, buildModel(subset, cands, scores, maxGroups))
	if err != nil {
		return nil, fmt.Errorf("solving partition model: %w", err)
	}
	s.log.Debug("partition model solved",
		zap.Stringer("status", sol.Status),
		zap.Int("nodes", sol.Nodes),
		zap.Float64("objective", sol.Objective))
	if !sol.Status.Solved() {
		return []Result{}, fmt.Errorf("solver status %s: %w", sol.Status, ErrNoSolution)
	}

	var results []Result
	for _, i := range sol.Selected() {
		results = append(results, s.describe(scorer, cands[i], scores[i]))
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.MaxAge, b.MaxAge); c != 0 {
			return c
		}
		return cmp.Compare(a.MinAge, b.MinAge)
	})
	for _, r := range results {
		s.log.Debug("chosen group",
			zap.Strings("names", r.Names),
			zap.Float64("score", r.Score),
			zap.Float64("min_age", r.MinAge),
			zap.Float64("max_age", r.MaxAge),
			zap.Bool("has_subgroup", r.HasSubgroup),
			zap.Bool("has_other", r.HasOther))
	}
	return results, nil
}

func (s *Solver) describe(scorer *objective.Scorer, members []*model.Attendee, score float64) Result {
	span := model.AgeSpan(members)
	names := make([]string, len(members))
	hasSub, hasOther := false, false
	marker := scorer.Config().SubgroupMarker
	for i, a := range members {
		names[i] = a.Name
		if a.InUnit(marker) {
			hasSub = true
		} else {
			hasOther = true
		}
	}
	return Result{
		Names:       names,
		Score:       score,
		MinAge:      span.Min,
		MaxAge:      span.Max,
		HasSubgroup: hasSub,
		HasOther:    hasOther,
	}
}

// Groups materializes results against the attendees they were computed from.
func Groups(results []Result, registry model.Registry) ([]*model.Group, error) {
	groups := make([]*model.Group, 0, len(results))
	for _, r := range results {
		members, err := registry.Lookup(r.Names)
		if err != nil {
			return nil, err
		}
		groups = append(groups, model.NewGroup(members...))
	}
	return groups, nil
}

// Conference builds a conference from a full set of results.
func Conference(results []Result, registry model.Registry) (*model.Conference, error) {
	groups, err := Groups(results, registry)
	if err != nil {
		return nil, err
	}
	return model.New(groups), nil
}
