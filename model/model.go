package model

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
)

// MaxFriends is the number of friend-request slots on an attendee.
const MaxFriends = 3

var (
	ErrFriendSlotsFull    = errors.New("all friend slots are taken")
	ErrPopulationMismatch = errors.New("conference membership does not match population")
)

type Attendee struct {
	Name     string
	Age      float64
	Unit     string
	IsFemale bool
	Friends  [MaxFriends]string
}

// AddFriend records a request in the first free slot. The existing requests are
// left unchanged when all slots are taken.
func (a *Attendee) AddFriend(name string) error {
	if name == "" {
		return nil
	}
	for i, f := range a.Friends {
		if f == "" {
			a.Friends[i] = name
			return nil
		}
	}
	return fmt.Errorf("%s: %w", a.Name, ErrFriendSlotsFull)
}

func (a *Attendee) Requests() []string {
	var out []string
	for _, f := range a.Friends {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (a *Attendee) InUnit(marker string) bool {
	return strings.Contains(a.Unit, marker)
}

func (a *Attendee) String() string {
	return fmt.Sprintf("Attendee(%s)", a.Name)
}

type Group struct {
	Attendees []*Attendee
}

func NewGroup(attendees ...*Attendee) *Group {
	return &Group{Attendees: attendees}
}

func (g *Group) Size() int {
	return len(g.Attendees)
}

func (g *Group) MeanAge() float64 {
	if len(g.Attendees) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range g.Attendees {
		sum += a.Age
	}
	return sum / float64(len(g.Attendees))
}

func (g *Group) MinAge() float64 {
	return AgeSpan(g.Attendees).Min
}

func (g *Group) MaxAge() float64 {
	return AgeSpan(g.Attendees).Max
}

func (g *Group) Names() []string {
	names := make([]string, len(g.Attendees))
	for i, a := range g.Attendees {
		names[i] = a.Name
	}
	return names
}

func (g *Group) Contains(name string) bool {
	return slices.ContainsFunc(g.Attendees, func(a *Attendee) bool { return a.Name == name })
}

func (g *Group) Clone() *Group {
	return &Group{Attendees: slices.Clone(g.Attendees)}
}

func (g *Group) String() string {
	names := g.Names()
	slices.Sort(names)
	return fmt.Sprintf("Group(%s)", strings.Join(names, ","))
}

type Span struct {
	Min float64
	Max float64
}

func (s Span) Range() float64 {
	return s.Max - s.Min
}

func AgeSpan(attendees []*Attendee) Span {
	if len(attendees) == 0 {
		return Span{}
	}
	s := Span{Min: attendees[0].Age, Max: attendees[0].Age}
	for _, a := range attendees[1:] {
		s.Min = min(s.Min, a.Age)
		s.Max = max(s.Max, a.Age)
	}
	return s
}

// Conference is an ordered set of groups. Order follows mean age and is only
// used for display and for picking neighbouring groups.
type Conference struct {
	Groups []*Group
}

func New(groups []*Group) *Conference {
	c := &Conference{Groups: groups}
	c.Sort()
	return c
}

func (c *Conference) Sort() {
	slices.SortStableFunc(c.Groups, func(a, b *Group) int {
		ma, mb := a.MeanAge(), b.MeanAge()
		switch {
		case ma < mb:
			return -1
		case ma > mb:
			return 1
		}
		return 0
	})
}

// Clone copies group membership. Attendees are shared since they are never
// mutated once a conference exists.
func (c *Conference) Clone() *Conference {
	groups := make([]*Group, len(c.Groups))
	for i, g := range c.Groups {
		groups[i] = g.Clone()
	}
	return &Conference{Groups: groups}
}

// Swap exchanges two attendees between groups. Calling it twice with the same
// arguments restores the original membership.
func (c *Conference) Swap(g1, i1, g2, i2 int) {
	a := c.Groups[g1].Attendees
	b := c.Groups[g2].Attendees
	a[i1], b[i2] = b[i2], a[i1]
}

func (c *Conference) Attendees() []*Attendee {
	var out []*Attendee
	for _, g := range c.Groups {
		out = append(out, g.Attendees...)
	}
	return out
}

func (c *Conference) Size() int {
	n := 0
	for _, g := range c.Groups {
		n += g.Size()
	}
	return n
}

// Key is a canonical form of the membership, independent of group and member order.
func (c *Conference) Key() string {
	gs := make([][]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		names := g.Names()
		slices.Sort(names)
		gs = append(gs, names)
	}
	slices.SortFunc(gs, func(a, b []string) int { return slices.Compare(a, b) })
	var buf strings.Builder
	for _, g := range gs {
		buf.WriteString(strings.Join(g, ","))
		buf.WriteByte(';')
	}
	return buf.String()
}

// Validate checks that every attendee of population appears in exactly one group
// and that no one else does.
func (c *Conference) Validate(population []*Attendee) error {
	want := map[string]int{}
	for _, a := range population {
		want[a.Name]++
	}
	got := map[string]int{}
	for _, a := range c.Attendees() {
		got[a.Name]++
	}
	for name, n := range got {
		if n != 1 {
			return fmt.Errorf("%s appears %d times: %w", name, n, ErrPopulationMismatch)
		}
		if want[name] == 0 {
			return fmt.Errorf("%s is not in the population: %w", name, ErrPopulationMismatch)
		}
	}
	for name := range want {
		if got[name] == 0 {
			return fmt.Errorf("%s is missing: %w", name, ErrPopulationMismatch)
		}
	}
	return nil
}

// Split shuffles attendees and deals them into numGroups groups whose sizes
// differ by at most one.
func Split(attendees []*Attendee, numGroups int, rng *rand.Rand) []*Group {
	if numGroups <= 0 {
		return nil
	}
	shuffled := slices.Clone(attendees)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	size := len(shuffled) / numGroups
	remainder := len(shuffled) % numGroups

	groups := make([]*Group, 0, numGroups)
	start := 0
	for i := range numGroups {
		end := start + size
		if i < remainder {
			end++
		}
		groups = append(groups, &Group{Attendees: slices.Clone(shuffled[start:end])})
		start = end
	}
	return groups
}

// Registry maps names to attendees for one working subset.
type Registry map[string]*Attendee

func NewRegistry(attendees []*Attendee) Registry {
	r := make(Registry, len(attendees))
	for _, a := range attendees {
		r[a.Name] = a
	}
	return r
}

func (r Registry) Lookup(names []string) ([]*Attendee, error) {
	out := make([]*Attendee, len(names))
	for i, n := range names {
		a, ok := r[n]
		if !ok {
			return nil, fmt.Errorf("unknown attendee %q", n)
		}
		out[i] = a
	}
	return out, nil
}

func (r Registry) Has(name string) bool {
	_, ok := r[name]
	return ok
}
