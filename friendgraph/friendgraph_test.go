package friendgraph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference/model"
)

func person(name string, age float64, friends ...string) *model.Attendee {
	a := &model.Attendee{Name: name, Age: age, Unit: "Plano"}
	copy(a.Friends[:], friends)
	return a
}

func population() []*model.Attendee {
	return []*model.Attendee{
		person("A", 14, "B", "Outsider"),
		person("B", 14.5, "A"),
		person("C", 13, "D"),
		person("D", 12.2, "E"),
		person("E", 12.4),
		person("F", 15, "F"),
	}
}

func TestBuild(t *testing.T) {
	g, err := Build(population())
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, g.Vertices())
	assert.True(t, g.HasEdge("A", "B"))
	assert.True(t, g.HasEdge("B", "A"))
	assert.True(t, g.HasEdge("C", "D"))
	assert.False(t, g.HasEdge("D", "C"))
	assert.False(t, g.HasEdge("F", "F"))

	weights := map[string]int64{}
	for _, e := range g.Edges() {
		weights[e.From+e.To] = e.Weight
	}
	assert.Equal(t, map[string]int64{"AB": 5, "BA": 5, "CD": 8, "DE": 2}, weights)
}

func TestClusters(t *testing.T) {
	got, err := Clusters(population())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"C", "D", "E"}, {"A", "B"}, {"F"}}, got)
}

func TestWriteDOT(t *testing.T) {
	people := population()
	people[1].IsFemale = true
	people[2].Unit = "Allen"

	var buf strings.Builder
	require.NoError(t, WriteDOT(&buf, people))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "digraph friends {"))
	assert.Contains(t, out, `"A" -> "B" [weight=5];`)
	assert.Contains(t, out, `"C" [label="C/13", pos="0.00,1300.00!"];`)
	// first female in Plano
	assert.Contains(t, out, `"B" [label="B/14.5", pos="100.00,2100.00!"];`)
	// males in Plano after A
	assert.Contains(t, out, `"D" [label="D/12.2", pos="106.00,1220.00!"];`)
	assert.Contains(t, out, `"E" [label="E/12.4", pos="112.00,1240.00!"];`)
	assert.Equal(t, 4, strings.Count(out, "->"))
}

func TestRequestReport(t *testing.T) {
	people := population()
	people[1].IsFemale = true
	people[1].Unit = "Coppell 1st"

	rows, err := RequestReport(people)
	require.NoError(t, err)

	var order []string
	for _, r := range rows {
		order = append(order, r.Attendee.Name)
	}
	assert.Equal(t, []string{"D", "E", "C", "A", "F", "B"}, order)

	a := rows[3]
	require.NotNil(t, a.Friends[0])
	assert.Equal(t, "B", a.Friends[0].Name)
	assert.Nil(t, a.Friends[1], "outsider request")
	assert.Equal(t, []Incoming{{From: "B", Requests: 1}}, a.Incoming)
	assert.Equal(t, []Incoming{{From: "A", Requests: 2}}, rows[5].Incoming)
	assert.Empty(t, rows[4].Incoming, "self request")

	var buf strings.Builder
	require.NoError(t, WriteRequests(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "D,Plano,12.2,E (12.4 Plano),,", lines[0])
	assert.Equal(t, "A,Plano,14,B (14.5 Cop1st),,,B(1)", lines[3])
	assert.Equal(t, "B,Coppell 1st,14.5,A (14 Plano),,,A(2)", lines[5])
}
