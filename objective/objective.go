// Package objective scores groups and conferences.
//
// A group that breaks a hard constraint scores Infeasible instead of failing,
// so infeasible arrangements simply lose every maximization they take part in.
package objective

import (
	"math"
	"slices"

	"conference/model"
)

// Infeasible is the score of a group that violates a hard constraint.
const Infeasible = -1e9

type Weights struct {
	Age      float64 `yaml:"age" validate:"gte=0"`
	Gender   float64 `yaml:"gender" validate:"gte=0"`
	Unit     float64 `yaml:"unit" validate:"gte=0"`
	Subgroup float64 `yaml:"subgroup" validate:"gte=0"`
	Friend   float64 `yaml:"friend" validate:"gte=0"`
	Min      float64 `yaml:"min" validate:"gte=0"`
	Mean     float64 `yaml:"mean" validate:"gte=0"`
}

type Config struct {
	Weights Weights `yaml:"weights"`

	// Each required grouping must be entirely inside or entirely outside a group.
	RequiredGroupings [][]string `yaml:"required_groupings" validate:"dive,min=2"`
	// At most one member of each required separation may share a group.
	RequiredSeparations [][]string `yaml:"required_separations" validate:"dive,min=2"`

	// SingleBuddies lists attendees whose only usable request is the second name.
	// Screening only enforces them when EnforceSingleBuddies is set.
	SingleBuddies        [][2]string `yaml:"single_buddies"`
	EnforceSingleBuddies bool        `yaml:"enforce_single_buddies"`

	SubgroupMarker string  `yaml:"subgroup_marker"`
	AgeTolerance   float64 `yaml:"age_tolerance" validate:"gte=0"`
	MaxAgeRange    float64 `yaml:"max_age_range" validate:"gt=0"`
}

var DefaultConfig = Config{
	Weights: Weights{
		Age:      1,
		Gender:   0,
		Unit:     1,
		Subgroup: 1,
		Friend:   3,
		Min:      0,
		Mean:     1,
	},
	SubgroupMarker: "Coppell",
	AgeTolerance:   1.1,
	MaxAgeRange:    2,
}

// friendPoints is indexed by the number of satisfied requests.
var friendPoints = [model.MaxFriends + 1]float64{0, 10, 8, 6}

type Scorer struct {
	cfg Config
}

func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Restrict returns a scorer that only keeps hard constraints whose members all
// belong to the given subset. Constraints reaching outside the subset cannot be
// honoured by rearranging it.
func (s *Scorer) Restrict(subset model.Registry) *Scorer {
	cfg := s.cfg
	cfg.RequiredGroupings = within(s.cfg.RequiredGroupings, subset)
	cfg.RequiredSeparations = within(s.cfg.RequiredSeparations, subset)
	cfg.SingleBuddies = nil
	for _, sb := range s.cfg.SingleBuddies {
		if subset.Has(sb[0]) {
			cfg.SingleBuddies = append(cfg.SingleBuddies, sb)
		}
	}
	return &Scorer{cfg: cfg}
}

func within(sets [][]string, subset model.Registry) [][]string {
	var out [][]string
	for _, set := range sets {
		if !slices.ContainsFunc(set, func(n string) bool { return !subset.Has(n) }) {
			out = append(out, set)
		}
	}
	return out
}

func nameSet(members []*model.Attendee) map[string]bool {
	names := make(map[string]bool, len(members))
	for _, a := range members {
		names[a.Name] = true
	}
	return names
}

func (s *Scorer) violatesHard(names map[string]bool) bool {
	for _, rg := range s.cfg.RequiredGroupings {
		present := 0
		for _, n := range rg {
			if names[n] {
				present++
			}
		}
		if present > 0 && present < len(rg) {
			return true
		}
	}
	for _, rs := range s.cfg.RequiredSeparations {
		present := 0
		for _, n := range rs {
			if names[n] {
				present++
			}
		}
		if present > 1 {
			return true
		}
	}
	return false
}

// Screen reports whether members may form a candidate group: size within
// bounds, no hard constraint broken and an age range within MaxAgeRange.
func (s *Scorer) Screen(members []*model.Attendee, minSize, maxSize int) bool {
	if len(members) < minSize || len(members) > maxSize || len(members) == 0 {
		return false
	}
	names := nameSet(members)
	if s.violatesHard(names) {
		return false
	}
	if s.cfg.EnforceSingleBuddies {
		for _, sb := range s.cfg.SingleBuddies {
			if names[sb[0]] && !names[sb[1]] {
				return false
			}
		}
	}
	return model.AgeSpan(members).Range() <= s.cfg.MaxAgeRange
}

// Group scores one group. The result does not depend on member order.
func (s *Scorer) Group(members []*model.Attendee) float64 {
	if len(members) == 0 {
		return 0
	}
	names := nameSet(members)
	if s.violatesHard(names) {
		return Infeasible
	}
	w := s.cfg.Weights

	ageRange := model.AgeSpan(members).Range()
	if ageRange < s.cfg.AgeTolerance {
		ageRange = 0
	}
	ageScore := -w.Age * math.Pow(ageRange, 5)

	imbalance := 0.0
	for _, a := range members {
		if a.IsFemale {
			imbalance--
		} else {
			imbalance++
		}
	}
	genderScore := -w.Gender * imbalance * imbalance

	f := s.flags(members)
	units := map[string]bool{}
	for _, a := range members {
		units[a.Unit] = true
	}
	unitScore := w.Unit * (w.Subgroup*float64(f.count()) + float64(len(units)))

	friendScore := 0.0
	for _, a := range members {
		matched := 0
		for _, fr := range a.Friends {
			if fr != "" && names[fr] {
				matched++
			}
		}
		friendScore += friendPoints[matched]
	}
	friendScore *= w.Friend

	return ageScore + genderScore + unitScore + friendScore
}

// Conference combines group scores as Min*worst + Mean*average.
func (s *Scorer) Conference(c *model.Conference) float64 {
	if len(c.Groups) == 0 {
		return 0
	}
	worst := math.Inf(1)
	total := 0.0
	for _, g := range c.Groups {
		sc := s.Group(g.Attendees)
		worst = min(worst, sc)
		total += sc
	}
	return s.cfg.Weights.Min*worst + s.cfg.Weights.Mean*total/float64(len(c.Groups))
}

// Flags records which subgroup/gender combinations are present in a group.
type Flags struct {
	SubgroupMale   bool
	SubgroupFemale bool
	OtherMale      bool
	OtherFemale    bool
}

func (f Flags) count() int {
	n := 0
	for _, b := range []bool{f.SubgroupMale, f.SubgroupFemale, f.OtherMale, f.OtherFemale} {
		if b {
			n++
		}
	}
	return n
}

func (f Flags) HasSubgroup() bool {
	return f.SubgroupMale || f.SubgroupFemale
}

func (f Flags) HasOther() bool {
	return f.OtherMale || f.OtherFemale
}

func (s *Scorer) Flags(members []*model.Attendee) Flags {
	return s.flags(members)
}

func (s *Scorer) flags(members []*model.Attendee) Flags {
	var f Flags
	for _, a := range members {
		in := a.InUnit(s.cfg.SubgroupMarker)
		switch {
		case in && a.IsFemale:
			f.SubgroupFemale = true
		case in:
			f.SubgroupMale = true
		case a.IsFemale:
			f.OtherFemale = true
		default:
			f.OtherMale = true
		}
	}
	return f
}
