package objective

import (
	"fmt"
	"slices"
	"strings"

	"conference/model"
)

type Summary struct {
	Span      model.Span
	Flags     Flags
	Buddyless int
	Lines     []string
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Header renders the one-line group description: age span, the four
// subgroup/gender flags and the number of attendees without a satisfied request.
func (s Summary) Header() string {
	return fmt.Sprintf("(%g-%g %d%d%d%d %d)", s.Span.Min, s.Span.Max,
		bit(s.Flags.SubgroupMale), bit(s.Flags.SubgroupFemale),
		bit(s.Flags.OtherMale), bit(s.Flags.OtherFemale), s.Buddyless)
}

// Summarize describes a group one attendee per line as
// "unit,name,friend1,friend2,friend3,age", starring requests satisfied in the group.
func (s *Scorer) Summarize(members []*model.Attendee) Summary {
	names := nameSet(members)
	sorted := slices.Clone(members)
	slices.SortFunc(sorted, func(a, b *model.Attendee) int { return strings.Compare(a.Name, b.Name) })

	sum := Summary{Span: model.AgeSpan(members), Flags: s.flags(members)}
	for _, a := range sorted {
		var line strings.Builder
		fmt.Fprintf(&line, "%s,%s,", a.Unit, a.Name)
		matched := false
		for _, f := range a.Friends {
			switch {
			case f == "":
				line.WriteString(",")
			case names[f]:
				matched = true
				fmt.Fprintf(&line, "%s*,", f)
			default:
				fmt.Fprintf(&line, "%s,", f)
			}
		}
		fmt.Fprintf(&line, "%g", a.Age)
		if !matched {
			sum.Buddyless++
		}
		sum.Lines = append(sum.Lines, line.String())
	}
	return sum
}
