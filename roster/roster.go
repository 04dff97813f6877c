// Package roster reads attendees from a delimited registration export.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"conference/model"
)

type Columns struct {
	Name    string   `yaml:"name" validate:"required"`
	Age     string   `yaml:"age" validate:"required"`
	Unit    string   `yaml:"unit" validate:"required"`
	Friends []string `yaml:"friends"`
}

type Format struct {
	Columns   Columns `yaml:"columns"`
	Delimiter string  `yaml:"delimiter" validate:"len=1"`
	// FemaleMarker found anywhere in the name column marks a female attendee.
	FemaleMarker string `yaml:"female_marker"`
}

var DefaultFormat = Format{
	Columns: Columns{
		Name:    "Participant Code",
		Age:     "Age",
		Unit:    "Participant's Ward",
		Friends: []string{"Buddy1", "Buddy2", "Buddy3"},
	},
	Delimiter:    "\t",
	FemaleMarker: "W",
}

type Reader struct {
	format Format
	log    *zap.Logger
}

func NewReader(format Format, log *zap.Logger) *Reader {
	return &Reader{format: format, log: log}
}

func (r *Reader) ReadFile(path string) ([]*model.Attendee, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r.log.Info("processing roster", zap.String("path", path))
	attendees, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return attendees, nil
}

func (r *Reader) Read(in io.Reader) ([]*model.Attendee, error) {
	cr := csv.NewReader(in)
	if r.format.Delimiter != "" {
		cr.Comma = []rune(r.format.Delimiter)[0]
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty roster")
	}
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	col := func(name string) (int, error) {
		i, ok := idx[name]
		if !ok {
			return 0, fmt.Errorf("missing column %q", name)
		}
		return i, nil
	}
	nameCol, err := col(r.format.Columns.Name)
	if err != nil {
		return nil, err
	}
	ageCol, err := col(r.format.Columns.Age)
	if err != nil {
		return nil, err
	}
	unitCol, err := col(r.format.Columns.Unit)
	if err != nil {
		return nil, err
	}
	friendCols := make([]int, 0, len(r.format.Columns.Friends))
	for _, name := range r.format.Columns.Friends {
		i, err := col(name)
		if err != nil {
			return nil, err
		}
		friendCols = append(friendCols, i)
	}

	var attendees []*model.Attendee
	seen := map[string]bool{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		field := func(i int) string {
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		name := field(nameCol)
		if name == "" {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("line %d: duplicate attendee %q", line, name)
		}
		seen[name] = true
		age, err := strconv.ParseFloat(field(ageCol), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad age for %s: %w", line, name, err)
		}
		a := &model.Attendee{
			Name:     name,
			Age:      age,
			Unit:     field(unitCol),
			IsFemale: r.format.FemaleMarker != "" && strings.Contains(name, r.format.FemaleMarker),
		}
		for _, i := range friendCols {
			if err := a.AddFriend(field(i)); err != nil {
				r.log.Warn("dropping friend request",
					zap.String("attendee", name),
					zap.String("friend", field(i)),
					zap.Error(err))
			}
		}
		attendees = append(attendees, a)
	}
	r.log.Info("read roster", zap.Int("attendees", len(attendees)))
	return attendees, nil
}
