package partition

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"conference/mip"
	"conference/model"
	"conference/objective"
)

func person(name string, age float64, friends ...string) *model.Attendee {
	a := &model.Attendee{Name: name, Age: age, Unit: "Plano"}
	copy(a.Friends[:], friends)
	return a
}

func newSolver(cfg objective.Config) *Solver {
	return New(objective.New(cfg), mip.NewBranchAndBound(mip.DefaultParams), DefaultParams, zap.NewNop())
}

func checkCoverage(t *testing.T, subset []*model.Attendee, results []Result, minSize, maxSize, maxGroups int) {
	t.Helper()
	require.LessOrEqual(t, len(results), maxGroups)
	seen := map[string]int{}
	for _, r := range results {
		assert.GreaterOrEqual(t, len(r.Names), minSize)
		assert.LessOrEqual(t, len(r.Names), maxSize)
		for _, n := range r.Names {
			seen[n]++
		}
	}
	require.Len(t, seen, len(subset))
	for _, a := range subset {
		assert.Equal(t, 1, seen[a.Name], a.Name)
	}
	assert.True(t, slices.IsSortedFunc(results, func(a, b Result) int {
		switch {
		case a.MaxAge < b.MaxAge:
			return -1
		case a.MaxAge > b.MaxAge:
			return 1
		}
		return 0
	}))
}

func TestRequiredGroupingChoosesPairedSplit(t *testing.T) {
	cfg := objective.DefaultConfig
	cfg.RequiredGroupings = [][]string{{"A", "B"}}
	s := newSolver(cfg)
	subset := []*model.Attendee{person("A", 14), person("B", 14), person("C", 14), person("D", 14)}

	results, err := s.Solve(context.Background(), subset, 2, 2, 2)
	require.NoError(t, err)
	checkCoverage(t, subset, results, 2, 2, 2)

	var groups [][]string
	for _, r := range results {
		names := slices.Clone(r.Names)
		slices.Sort(names)
		groups = append(groups, names)
	}
	assert.ElementsMatch(t, [][]string{{"A", "B"}, {"C", "D"}}, groups)
}

func TestFriendsEndUpTogether(t *testing.T) {
	cfg := objective.DefaultConfig
	cfg.Weights = objective.Weights{Friend: 1, Mean: 1}
	s := newSolver(cfg)
	subset := []*model.Attendee{
		person("X", 14, "Y"),
		person("P", 14),
		person("Y", 14.2),
		person("Q", 14.1),
	}

	results, err := s.Solve(context.Background(), subset, 2, 2, 2)
	require.NoError(t, err)
	checkCoverage(t, subset, results, 2, 2, 2)

	for _, r := range results {
		if slices.Contains(r.Names, "X") {
			assert.Contains(t, r.Names, "Y")
			assert.Equal(t, 10.0, r.Score)
		}
	}
}

func TestCoverage(t *testing.T) {
	cfg := objective.DefaultConfig
	cfg.RequiredSeparations = [][]string{{"P1", "P2"}}
	s := newSolver(cfg)

	var subset []*model.Attendee
	for i := range 9 {
		friend := fmt.Sprintf("P%d", (i+4)%9)
		subset = append(subset, person(fmt.Sprintf("P%d", i), 13+0.1*float64(i), friend))
	}

	results, err := s.Solve(context.Background(), subset, 3, 3, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	checkCoverage(t, subset, results, 3, 3, 3)
	for _, r := range results {
		assert.False(t, slices.Contains(r.Names, "P1") && slices.Contains(r.Names, "P2"))
		assert.False(t, r.HasSubgroup)
		assert.True(t, r.HasOther)
	}
}

func TestInfeasibleReturnsEmptyResult(t *testing.T) {
	cfg := objective.DefaultConfig
	cfg.RequiredSeparations = [][]string{{"A", "B"}}
	s := newSolver(cfg)
	subset := []*model.Attendee{person("A", 14), person("B", 14)}

	results, err := s.Solve(context.Background(), subset, 2, 2, 1)
	require.ErrorIs(t, err, ErrNoSolution)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	// groups of one exist, but only one group is allowed
	results, err = s.Solve(context.Background(), subset, 1, 2, 1)
	require.ErrorIs(t, err, ErrNoSolution)
	assert.Empty(t, results)
}

func TestEnumerationMatchesScreen(t *testing.T) {
	cfg := objective.DefaultConfig
	cfg.RequiredGroupings = [][]string{{"A", "D"}, {"B", "C", "F"}}
	cfg.RequiredSeparations = [][]string{{"A", "E"}, {"C", "G"}}
	scorer := objective.New(cfg)

	subset := []*model.Attendee{
		person("A", 12.0), person("B", 12.5), person("C", 13.0), person("D", 13.4),
		person("E", 13.9), person("F", 14.1), person("G", 14.8),
	}

	got, err := candidates(scorer, subset, 1, 4, 0)
	require.NoError(t, err)

	var want []string
	for mask := 1; mask < 1<<len(subset); mask++ {
		var group []*model.Attendee
		for i, a := range subset {
			if mask&(1<<i) != 0 {
				group = append(group, a)
			}
		}
		if scorer.Screen(group, 1, 4) {
			want = append(want, key(group))
		}
	}
	var have []string
	for _, g := range got {
		have = append(have, key(g))
	}
	assert.ElementsMatch(t, want, have)
	assert.NotEmpty(t, have)
}

func key(group []*model.Attendee) string {
	names := make([]string, len(group))
	for i, a := range group {
		names[i] = a.Name
	}
	slices.Sort(names)
	return fmt.Sprint(names)
}

func TestCandidateLimit(t *testing.T) {
	s := New(objective.New(objective.DefaultConfig), mip.NewBranchAndBound(mip.DefaultParams),
		Params{Workers: 2, MaxCandidates: 3}, zap.NewNop())
	subset := []*model.Attendee{person("A", 14), person("B", 14), person("C", 14)}

	_, err := s.Solve(context.Background(), subset, 1, 3, 3)
	require.ErrorIs(t, err, ErrTooManyCandidates)
}

func TestSolveWindowed(t *testing.T) {
	s := newSolver(objective.DefaultConfig)
	var subset []*model.Attendee
	for i := range 12 {
		subset = append(subset, person(fmt.Sprintf("W%02d", i), 12+0.2*float64(i)))
	}

	for _, youngest := range []bool{true, false} {
		results, err := s.SolveWindowed(context.Background(), subset, 4, 2, youngest)
		require.NoError(t, err)
		require.Len(t, results, 4)

		seen := map[string]int{}
		for _, r := range results {
			assert.Len(t, r.Names, 3)
			for _, n := range r.Names {
				seen[n]++
			}
		}
		require.Len(t, seen, 12)
	}
	assert.Len(t, subset, 12, "input must not be modified")
}

func TestWindowSizeRoundsHalfToEven(t *testing.T) {
	assert.Equal(t, 6, windowSize(13, 2, 4))
	assert.Equal(t, 8, windowSize(15, 2, 4))
	assert.Equal(t, 6, windowSize(12, 2, 4))
	assert.Equal(t, 5, windowSize(5, 3, 2))
}

func TestConferenceFromResults(t *testing.T) {
	subset := []*model.Attendee{person("A", 15), person("B", 15), person("C", 12)}
	results := []Result{{Names: []string{"A", "B"}}, {Names: []string{"C"}}}

	c, err := Conference(results, model.NewRegistry(subset))
	require.NoError(t, err)
	require.NoError(t, c.Validate(subset))
	assert.Equal(t, []string{"C"}, c.Groups[0].Names())

	_, err = Conference([]Result{{Names: []string{"Z"}}}, model.NewRegistry(subset))
	require.Error(t, err)
}
