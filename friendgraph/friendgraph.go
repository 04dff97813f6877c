// Package friendgraph builds the graph of friend requests between attendees.
package friendgraph

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"

	"conference/model"
)

// Build returns a directed graph with an edge from each attendee to every
// requested friend in the population. Edge weight is the age gap in tenths of a
// year. Requests for people outside the population and self requests are left out.
func Build(attendees []*model.Attendee) (*core.Graph, error) {
	g := core.NewGraph(core.WithDirected(true), core.WithWeighted())
	reg := model.NewRegistry(attendees)
	for _, a := range attendees {
		if err := g.AddVertex(a.Name); err != nil {
			return nil, err
		}
	}
	for _, a := range attendees {
		for _, name := range a.Requests() {
			f, ok := reg[name]
			if !ok || name == a.Name {
				continue
			}
			gap := int64(math.Round(math.Abs(a.Age-f.Age) * 10))
			if _, err := g.AddEdge(a.Name, name, gap); err != nil && !errors.Is(err, core.ErrMultiEdgeNotAllowed) {
				return nil, fmt.Errorf("%s -> %s: %w", a.Name, name, err)
			}
		}
	}
	return g, nil
}

// Clusters groups attendees connected by requests in either direction. Clusters
// are sorted largest first, then by their first name; names inside a cluster
// are sorted.
func Clusters(attendees []*model.Attendee) ([][]string, error) {
	g := core.NewGraph(core.WithDirected(false))
	reg := model.NewRegistry(attendees)
	for _, a := range attendees {
		if err := g.AddVertex(a.Name); err != nil {
			return nil, err
		}
	}
	for _, a := range attendees {
		for _, name := range a.Requests() {
			if !reg.Has(name) || name == a.Name || g.HasEdge(a.Name, name) {
				continue
			}
			if _, err := g.AddEdge(a.Name, name, 0); err != nil {
				return nil, fmt.Errorf("%s - %s: %w", a.Name, name, err)
			}
		}
	}

	seen := map[string]bool{}
	var clusters [][]string
	for _, id := range g.Vertices() {
		if seen[id] {
			continue
		}
		res, err := bfs.BFS(g, id)
		if err != nil {
			return nil, err
		}
		cluster := slices.Clone(res.Order)
		for _, v := range cluster {
			seen[v] = true
		}
		slices.Sort(cluster)
		clusters = append(clusters, cluster)
	}
	slices.SortStableFunc(clusters, func(a, b []string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a[0], b[0])
	})
	return clusters, nil
}

// WriteDOT writes the request graph in Graphviz format with pinned positions:
// x follows the unit and y the age, with female attendees shifted up by 6.5.
// Within a unit each attendee is staggered 0.06 right of the previous one of
// the same gender. Render with neato -n.
func WriteDOT(w io.Writer, attendees []*model.Attendee) error {
	g, err := Build(attendees)
	if err != nil {
		return err
	}

	var units []string
	for _, a := range attendees {
		if !slices.Contains(units, a.Unit) {
			units = append(units, a.Unit)
		}
	}
	slices.Sort(units)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph friends {")
	fmt.Fprintln(bw, "  node [shape=circle, fontsize=8];")
	type column struct {
		unit   string
		female bool
	}
	stagger := map[column]float64{}
	for _, a := range attendees {
		col := column{a.Unit, a.IsFemale}
		x := float64(slices.Index(units, a.Unit)) + stagger[col]
		stagger[col] += 0.06
		y := a.Age
		if a.IsFemale {
			y += 6.5
		}
		fmt.Fprintf(bw, "  %q [label=%q, pos=\"%.2f,%.2f!\"];\n",
			a.Name, fmt.Sprintf("%s/%g", a.Name, a.Age), x*100, y*100)
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(bw, "  %q -> %q [weight=%d];\n", e.From, e.To, e.Weight)
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
