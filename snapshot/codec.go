// Package snapshot persists conferences as versioned JSON documents.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"conference/model"
)

// Version is the schema version written by Encode. Documents without a
// version field are read as version 1.
const Version = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type Document struct {
	Version int     `json:"version,omitempty"`
	RunID   string  `json:"run_id,omitempty"`
	Groups  []Group `json:"groups"`
}

type Group struct {
	Attendees []Attendee `json:"attendees"`
}

type Attendee struct {
	Name     string   `json:"name"`
	Age      float64  `json:"age"`
	Unit     string   `json:"unit"`
	IsFemale bool     `json:"is_female"`
	Friends  []string `json:"friends"`
}

func Encode(c *model.Conference, runID string) *Document {
	doc := &Document{Version: Version, RunID: runID, Groups: make([]Group, len(c.Groups))}
	for i, g := range c.Groups {
		attendees := make([]Attendee, len(g.Attendees))
		for j, a := range g.Attendees {
			attendees[j] = Attendee{
				Name:     a.Name,
				Age:      a.Age,
				Unit:     a.Unit,
				IsFemale: a.IsFemale,
				Friends:  slices.Clone(a.Friends[:]),
			}
		}
		doc.Groups[i] = Group{Attendees: attendees}
	}
	return doc
}

// Decode rebuilds the conference. Every name must appear exactly once across
// all groups.
func Decode(doc *Document) (*model.Conference, error) {
	if doc.Version > Version {
		return nil, fmt.Errorf("version %d: %w", doc.Version, ErrUnsupportedVersion)
	}
	seen := map[string]bool{}
	groups := make([]*model.Group, 0, len(doc.Groups))
	for gi, g := range doc.Groups {
		members := make([]*model.Attendee, 0, len(g.Attendees))
		for _, a := range g.Attendees {
			if a.Name == "" {
				return nil, fmt.Errorf("group %d: attendee without a name", gi)
			}
			if len(a.Friends) > model.MaxFriends {
				return nil, fmt.Errorf("%s: %d friend slots, at most %d", a.Name, len(a.Friends), model.MaxFriends)
			}
			if seen[a.Name] {
				return nil, fmt.Errorf("group %d: %s listed again: %w", gi, a.Name, model.ErrPopulationMismatch)
			}
			attendee := &model.Attendee{Name: a.Name, Age: a.Age, Unit: a.Unit, IsFemale: a.IsFemale}
			copy(attendee.Friends[:], a.Friends)
			seen[a.Name] = true
			members = append(members, attendee)
		}
		groups = append(groups, model.NewGroup(members...))
	}
	return model.New(groups), nil
}

func Marshal(c *model.Conference, runID string) ([]byte, error) {
	return json.Marshal(Encode(c, runID))
}

func Unmarshal(data []byte) (*model.Conference, *Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	c, err := Decode(&doc)
	if err != nil {
		return nil, nil, err
	}
	return c, &doc, nil
}
