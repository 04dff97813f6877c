package partition

import (
	"cmp"
	"errors"
	"slices"

	"conference/model"
	"conference/objective"
)

var ErrTooManyCandidates = errors.New("candidate group limit exceeded")

// enumerator walks size-bounded subsets of an age-sorted population in index
// order and drops a partial subset as soon as it can no longer pass screening.
type enumerator struct {
	scorer  *objective.Scorer
	people  []*model.Attendee
	minSize int
	maxSize int
	limit   int

	mates    [][]int // other members of the required groupings of i
	seps     [][]int // separation sets containing i
	sepCount []int
	in       []bool
	chosen   []int

	out [][]*model.Attendee
}

func byAge(attendees []*model.Attendee) []*model.Attendee {
	sorted := slices.Clone(attendees)
	slices.SortStableFunc(sorted, func(a, b *model.Attendee) int {
		if c := cmp.Compare(a.Age, b.Age); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}

func newEnumerator(scorer *objective.Scorer, subset []*model.Attendee, minSize, maxSize, limit int) *enumerator {
	people := byAge(subset)
	idx := make(map[string]int, len(people))
	for i, a := range people {
		idx[a.Name] = i
	}
	e := &enumerator{
		scorer:  scorer,
		people:  people,
		minSize: max(minSize, 1),
		maxSize: maxSize,
		limit:   limit,
		mates:   make([][]int, len(people)),
		seps:    make([][]int, len(people)),
		in:      make([]bool, len(people)),
	}

	cfg := scorer.Config()
	for _, rg := range cfg.RequiredGroupings {
		for _, a := range rg {
			for _, b := range rg {
				ia, okA := idx[a]
				ib, okB := idx[b]
				if okA && okB && ia != ib {
					e.mates[ia] = append(e.mates[ia], ib)
				}
			}
		}
	}
	e.sepCount = make([]int, len(cfg.RequiredSeparations))
	for si, rs := range cfg.RequiredSeparations {
		for _, n := range rs {
			if i, ok := idx[n]; ok {
				e.seps[i] = append(e.seps[i], si)
			}
		}
	}
	return e
}

func (e *enumerator) canAdd(j int) bool {
	for _, si := range e.seps[j] {
		if e.sepCount[si] > 0 {
			return false
		}
	}
	for _, m := range e.mates[j] {
		if m < j && !e.in[m] {
			return false
		}
	}
	// a grouping mate of a chosen member that lies before j would be skipped
	for _, c := range e.chosen {
		for _, m := range e.mates[c] {
			if m < j && !e.in[m] {
				return false
			}
		}
	}
	return true
}

func (e *enumerator) complete() bool {
	for _, c := range e.chosen {
		for _, m := range e.mates[c] {
			if !e.in[m] {
				return false
			}
		}
	}
	return true
}

func (e *enumerator) push(j int) {
	e.chosen = append(e.chosen, j)
	e.in[j] = true
	for _, si := range e.seps[j] {
		e.sepCount[si]++
	}
}

func (e *enumerator) pop() {
	j := e.chosen[len(e.chosen)-1]
	e.chosen = e.chosen[:len(e.chosen)-1]
	e.in[j] = false
	for _, si := range e.seps[j] {
		e.sepCount[si]--
	}
}

func (e *enumerator) walk(start int) error {
	if len(e.chosen) >= e.minSize && e.complete() {
		group := make([]*model.Attendee, len(e.chosen))
		for k, c := range e.chosen {
			group[k] = e.people[c]
		}
		if e.scorer.Screen(group, e.minSize, e.maxSize) {
			if e.limit > 0 && len(e.out) >= e.limit {
				return ErrTooManyCandidates
			}
			e.out = append(e.out, group)
		}
	}
	if len(e.chosen) == e.maxSize {
		return nil
	}
	maxRange := e.scorer.Config().MaxAgeRange
	for j := start; j < len(e.people); j++ {
		if len(e.chosen) > 0 && e.people[j].Age-e.people[e.chosen[0]].Age > maxRange {
			break
		}
		if !e.canAdd(j) {
			continue
		}
		e.push(j)
		err := e.walk(j + 1)
		e.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// candidates returns every screened group of subset with a size in [minSize, maxSize].
func candidates(scorer *objective.Scorer, subset []*model.Attendee, minSize, maxSize, limit int) ([][]*model.Attendee, error) {
	e := newEnumerator(scorer, subset, minSize, maxSize, limit)
	if err := e.walk(0); err != nil {
		return nil, err
	}
	return e.out, nil
}
