package partition

import (
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"conference/model"
)

// SolveWindowed partitions a population too large to solve in one piece into
// totalGroups groups. It repeatedly solves an age-ordered window sized for about
// groupsPerSearch groups, keeps only the extreme group of that window (youngest
// or oldest) and removes its members, until a single window remains.
//
// On failure the groups peeled off so far are returned with the error.
func (s *Solver) SolveWindowed(ctx context.Context, subset []*model.Attendee, totalGroups, groupsPerSearch int, youngestFirst bool) ([]Result, error) {
	if totalGroups <= 0 || groupsPerSearch <= 0 {
		return nil, fmt.Errorf("invalid group counts %d/%d", totalGroups, groupsPerSearch)
	}
	groupsPerSearch = min(groupsPerSearch, totalGroups)

	remaining := byAge(subset)
	minSize := len(remaining) / totalGroups
	maxSize := minSize
	if minSize*totalGroups < len(remaining) {
		maxSize++
	}

	var found []Result
	for k := range totalGroups - groupsPerSearch {
		num := windowSize(len(remaining), groupsPerSearch, totalGroups-k)

		window := remaining[:num]
		if !youngestFirst {
			window = remaining[len(remaining)-num:]
		}
		groups, err := s.Solve(ctx, window, minSize, maxSize, groupsPerSearch)
		if err != nil {
			return found, fmt.Errorf("window %d of %d: %w", k+1, totalGroups-groupsPerSearch, err)
		}

		pick := groups[0]
		if !youngestFirst {
			pick = groups[len(groups)-1]
		}
		remaining = slices.DeleteFunc(remaining, func(a *model.Attendee) bool {
			return slices.Contains(pick.Names, a.Name)
		})
		found = append(found, pick)
		s.log.Info("peeled group",
			zap.Int("found", len(found)),
			zap.Strings("names", pick.Names),
			zap.Int("remaining", len(remaining)))
	}

	groups, err := s.Solve(ctx, remaining, minSize, maxSize, groupsPerSearch)
	if err != nil {
		return found, fmt.Errorf("final window: %w", err)
	}
	return append(found, groups...), nil
}

// windowSize is the share of remaining attendees for groupsPerSearch out of
// groupsLeft groups, rounded half to even.
func windowSize(remaining, groupsPerSearch, groupsLeft int) int {
	num := int(math.RoundToEven(float64(remaining) * float64(groupsPerSearch) / float64(groupsLeft)))
	return min(num, remaining)
}
