package friendgraph

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"conference/model"
)

// Incoming is a request received from another attendee, with the number of
// requests that attendee made.
type Incoming struct {
	From     string
	Requests int
}

// RequestRow is one attendee with the requests made and received. Friends keeps
// the slot layout; a slot is nil when empty or naming someone outside the
// population.
type RequestRow struct {
	Attendee *model.Attendee
	Friends  [model.MaxFriends]*model.Attendee
	Incoming []Incoming
}

// RequestReport lists every attendee ordered by gender (male first) then age.
// Incoming requests follow roster order.
func RequestReport(attendees []*model.Attendee) ([]RequestRow, error) {
	g, err := Build(attendees)
	if err != nil {
		return nil, err
	}
	reg := model.NewRegistry(attendees)
	order := make(map[string]int, len(attendees))
	for i, a := range attendees {
		order[a.Name] = i
	}

	incoming := map[string][]Incoming{}
	for _, e := range g.Edges() {
		incoming[e.To] = append(incoming[e.To], Incoming{From: e.From, Requests: len(reg[e.From].Requests())})
	}

	rows := make([]RequestRow, 0, len(attendees))
	for _, a := range attendees {
		row := RequestRow{Attendee: a, Incoming: incoming[a.Name]}
		slices.SortFunc(row.Incoming, func(x, y Incoming) int {
			return cmp.Compare(order[x.From], order[y.From])
		})
		for i, f := range a.Friends {
			if f != "" && g.HasEdge(a.Name, f) {
				row.Friends[i] = reg[f]
			}
		}
		rows = append(rows, row)
	}
	slices.SortStableFunc(rows, func(x, y RequestRow) int {
		if x.Attendee.IsFemale != y.Attendee.IsFemale {
			if x.Attendee.IsFemale {
				return 1
			}
			return -1
		}
		return cmp.Compare(x.Attendee.Age, y.Attendee.Age)
	})
	return rows, nil
}

// unitTag shortens a unit name to its first and last three characters.
func unitTag(unit string) string {
	r := []rune(unit)
	if len(r) <= 6 {
		return unit
	}
	return string(r[:3]) + string(r[len(r)-3:])
}

// WriteRequests writes the report as CSV: name, unit, age, one column per
// friend slot, then one column per incoming request.
func WriteRequests(w io.Writer, rows []RequestRow) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		a := row.Attendee
		rec := []string{a.Name, a.Unit, strconv.FormatFloat(a.Age, 'g', -1, 64)}
		for _, f := range row.Friends {
			if f == nil {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, fmt.Sprintf("%s (%g %s)", f.Name, f.Age, unitTag(f.Unit)))
		}
		for _, in := range row.Incoming {
			rec = append(rec, fmt.Sprintf("%s(%d)", in.From, in.Requests))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
