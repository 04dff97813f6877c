package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people(names ...string) []*Attendee {
	out := make([]*Attendee, len(names))
	for i, n := range names {
		out[i] = &Attendee{Name: n, Age: float64(12 + i), Unit: "Ward"}
	}
	return out
}

func TestAddFriendKeepsFirstThree(t *testing.T) {
	a := &Attendee{Name: "YM1"}
	require.NoError(t, a.AddFriend("YM2"))
	require.NoError(t, a.AddFriend(""))
	require.NoError(t, a.AddFriend("YM3"))
	require.NoError(t, a.AddFriend("YM4"))

	err := a.AddFriend("YM5")
	require.ErrorIs(t, err, ErrFriendSlotsFull)
	assert.Equal(t, [MaxFriends]string{"YM2", "YM3", "YM4"}, a.Friends)
	assert.Equal(t, []string{"YM2", "YM3", "YM4"}, a.Requests())
}

func TestSwapIsInvolution(t *testing.T) {
	ps := people("A", "B", "C", "D", "E")
	c := &Conference{Groups: []*Group{NewGroup(ps[0], ps[1]), NewGroup(ps[2], ps[3], ps[4])}}
	before := c.Clone()

	c.Swap(0, 1, 1, 2)
	assert.Equal(t, []string{"A", "E"}, c.Groups[0].Names())
	assert.Equal(t, []string{"C", "D", "B"}, c.Groups[1].Names())
	require.NoError(t, c.Validate(ps))

	c.Swap(0, 1, 1, 2)
	assert.Equal(t, before.Groups[0].Names(), c.Groups[0].Names())
	assert.Equal(t, before.Groups[1].Names(), c.Groups[1].Names())
}

func TestCloneIsIndependent(t *testing.T) {
	ps := people("A", "B", "C", "D")
	c := New([]*Group{NewGroup(ps[0], ps[1]), NewGroup(ps[2], ps[3])})
	cp := c.Clone()
	cp.Swap(0, 0, 1, 0)

	assert.Equal(t, []string{"A", "B"}, c.Groups[0].Names())
	assert.Equal(t, []string{"C", "B"}, cp.Groups[0].Names())
}

func TestNewSortsByMeanAge(t *testing.T) {
	old := &Attendee{Name: "old", Age: 17}
	young := &Attendee{Name: "young", Age: 12}
	mid := &Attendee{Name: "mid", Age: 14}
	c := New([]*Group{NewGroup(old), NewGroup(young), NewGroup(mid)})

	assert.Equal(t, "young", c.Groups[0].Attendees[0].Name)
	assert.Equal(t, "mid", c.Groups[1].Attendees[0].Name)
	assert.Equal(t, "old", c.Groups[2].Attendees[0].Name)
}

func TestValidate(t *testing.T) {
	ps := people("A", "B", "C")

	ok := &Conference{Groups: []*Group{NewGroup(ps[0]), NewGroup(ps[1], ps[2])}}
	require.NoError(t, ok.Validate(ps))

	dup := &Conference{Groups: []*Group{NewGroup(ps[0], ps[1]), NewGroup(ps[1], ps[2])}}
	require.ErrorIs(t, dup.Validate(ps), ErrPopulationMismatch)

	missing := &Conference{Groups: []*Group{NewGroup(ps[0], ps[1])}}
	require.ErrorIs(t, missing.Validate(ps), ErrPopulationMismatch)

	extra := &Conference{Groups: []*Group{NewGroup(ps...), NewGroup(&Attendee{Name: "Z"})}}
	require.ErrorIs(t, extra.Validate(ps), ErrPopulationMismatch)
}

func TestSplit(t *testing.T) {
	ps := people("A", "B", "C", "D", "E", "F", "G")
	groups := Split(ps, 3, rand.New(rand.NewSource(7)))
	require.Len(t, groups, 3)

	sizes := []int{groups[0].Size(), groups[1].Size(), groups[2].Size()}
	assert.Equal(t, []int{3, 2, 2}, sizes)
	require.NoError(t, (&Conference{Groups: groups}).Validate(ps))
}

func TestKeyIgnoresOrder(t *testing.T) {
	ps := people("A", "B", "C", "D")
	c1 := &Conference{Groups: []*Group{NewGroup(ps[0], ps[1]), NewGroup(ps[2], ps[3])}}
	c2 := &Conference{Groups: []*Group{NewGroup(ps[3], ps[2]), NewGroup(ps[1], ps[0])}}
	c3 := &Conference{Groups: []*Group{NewGroup(ps[0], ps[2]), NewGroup(ps[1], ps[3])}}

	assert.Equal(t, c1.Key(), c2.Key())
	assert.NotEqual(t, c1.Key(), c3.Key())
}

func TestRegistryLookup(t *testing.T) {
	ps := people("A", "B")
	r := NewRegistry(ps)

	got, err := r.Lookup([]string{"B", "A"})
	require.NoError(t, err)
	assert.Same(t, ps[1], got[0])

	_, err = r.Lookup([]string{"Q"})
	require.Error(t, err)
	assert.True(t, r.Has("A"))
	assert.False(t, r.Has("Q"))
}

func TestAgeSpan(t *testing.T) {
	ps := []*Attendee{{Age: 14.5}, {Age: 12.1}, {Age: 16}}
	s := AgeSpan(ps)
	assert.InDelta(t, 12.1, s.Min, 1e-9)
	assert.InDelta(t, 16, s.Max, 1e-9)
	assert.InDelta(t, 3.9, s.Range(), 1e-9)
	assert.Equal(t, Span{}, AgeSpan(nil))
}
