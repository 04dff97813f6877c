// Package solver improves a conference grouping by pairwise swaps and by
// re-partitioning neighbouring groups.
package solver

import (
	"conference/model"
	"conference/objective"
)

type swapKey struct {
	G1, I1, G2, I2 int
}

// Move is a candidate exchange between two groups together with the change in
// conference score it causes.
type Move struct {
	G1, I1, G2, I2 int
	Delta          float64
}

func (m Move) key() swapKey {
	return swapKey{m.G1, m.I1, m.G2, m.I2}
}

// deltaCache remembers swap deltas until one of the two groups changes.
type deltaCache map[swapKey]float64

func (d deltaCache) invalidate(g int) {
	for k := range d {
		if k.G1 == g || k.G2 == g {
			delete(d, k)
		}
	}
}

func (d deltaCache) reset() {
	clear(d)
}

// LocalSearch evaluates swaps against private copies of the live conference and
// only mutates it on Commit.
type LocalSearch struct {
	conf   *model.Conference
	scorer *objective.Scorer
	cache  deltaCache
	score  float64
}

func NewLocalSearch(conf *model.Conference, scorer *objective.Scorer) *LocalSearch {
	return &LocalSearch{
		conf:   conf,
		scorer: scorer,
		cache:  deltaCache{},
		score:  scorer.Conference(conf),
	}
}

func (ls *LocalSearch) Conference() *model.Conference {
	return ls.conf
}

func (ls *LocalSearch) Score() float64 {
	return ls.score
}

// Reset replaces the live conference and drops every cached delta.
func (ls *LocalSearch) Reset(conf *model.Conference) {
	ls.conf = conf
	ls.score = ls.scorer.Conference(conf)
	ls.cache.reset()
}

func (ls *LocalSearch) Evaluate(g1, i1, g2, i2 int) float64 {
	k := swapKey{g1, i1, g2, i2}
	if d, ok := ls.cache[k]; ok {
		return d
	}
	trial := ls.conf.Clone()
	trial.Swap(g1, i1, g2, i2)
	d := ls.scorer.Conference(trial) - ls.score
	ls.cache[k] = d
	return d
}

// BestSwap scans every pair of members in distinct groups and returns the best
// improving move. The scan stops at the first delta above goodEnough. ok is
// false when no swap improves the score.
func (ls *LocalSearch) BestSwap(goodEnough float64) (best Move, ok bool) {
	groups := ls.conf.Groups
	for g1 := range groups {
		for g2 := g1 + 1; g2 < len(groups); g2++ {
			for i1 := range groups[g1].Attendees {
				for i2 := range groups[g2].Attendees {
					d := ls.Evaluate(g1, i1, g2, i2)
					if d > best.Delta {
						best = Move{G1: g1, I1: i1, G2: g2, I2: i2, Delta: d}
						ok = true
						if d > goodEnough {
							return best, true
						}
					}
				}
			}
		}
	}
	return best, ok
}

// Commit applies m to the live conference and forgets deltas of both groups.
func (ls *LocalSearch) Commit(m Move) {
	ls.conf.Swap(m.G1, m.I1, m.G2, m.I2)
	ls.score = ls.scorer.Conference(ls.conf)
	ls.cache.invalidate(m.G1)
	ls.cache.invalidate(m.G2)
}
