// Package features turns participant records into comparable feature sets.
//
// Normalization never fails: a missing or malformed field becomes "no signal"
// (an empty set, BandUnknown, CadenceUnknown or an unknown offset).
package features

import (
	"sort"
	"strings"

	"github.com/spigell/mentor-matcher/internal/participant"
)

// Set is the normalized view of a single participant.
type Set struct {
	ID              string
	Kind            participant.Kind
	Title           string
	Seniority       Band
	Location        string
	Offset          Offset
	Topics          Tags
	LifeExperiences Tags
	Exclusions      Tags
	Cadence         Cadence
	Style           string
	Energy          string
	Feedback        string
	Bio             string
	Capacity        int
}

// Normalize builds the feature set of p.
func Normalize(p participant.Participant) Set {
	if p == nil {
		return Set{}
	}

	profile := p.Common()
	set := Set{
		ID:              strings.TrimSpace(p.ID()),
		Kind:            p.Kind(),
		Title:           cleanText(profile.Title),
		Seniority:       ParseBand(profile.Experience),
		Location:        cleanText(profile.Location),
		Offset:          ParseOffset(profile.Timezone),
		Topics:          NewTags(participant.Topics(p)...),
		LifeExperiences: NewTags(profile.LifeExperiences...),
		Cadence:         ParseCadence(profile.MeetingFrequency),
		Style:           cleanText(profile.Style),
		Energy:          cleanText(profile.Energy),
		Feedback:        cleanText(profile.FeedbackPreference),
		Bio:             cleanText(profile.Bio),
	}

	if mentor, ok := participant.AsMentor(p); ok {
		set.Exclusions = NewTags(mentor.Exclusions...)
		set.Capacity = max(mentor.CapacityRemaining, 0)
	}

	return set
}

// Tags is a normalized, de-duplicated set of lower-cased tags.
type Tags map[string]struct{}

func NewTags(values ...string) Tags {
	tags := make(Tags, len(values))
	for _, v := range values {
		if norm := NormalizeTag(v); norm != "" {
			tags[norm] = struct{}{}
		}
	}
	return tags
}

// NormalizeTag lower-cases a tag and collapses inner whitespace.
func NormalizeTag(v string) string {
	return strings.Join(strings.Fields(strings.ToLower(v)), " ")
}

func (t Tags) Len() int { return len(t) }

func (t Tags) Has(v string) bool {
	_, ok := t[NormalizeTag(v)]
	return ok
}

// Intersect returns the number of tags both sets share.
func (t Tags) Intersect(other Tags) int {
	small, large := t, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for tag := range small {
		if _, ok := large[tag]; ok {
			n++
		}
	}
	return n
}

// Union returns the size of the union of both sets.
func (t Tags) Union(other Tags) int {
	return len(t) + len(other) - t.Intersect(other)
}

// Shared returns the common tags in lexical order.
func (t Tags) Shared(other Tags) []string {
	var out []string
	for tag := range t {
		if _, ok := other[tag]; ok {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// Sorted returns the tags in lexical order.
func (t Tags) Sorted() []string {
	out := make([]string, 0, len(t))
	for tag := range t {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func cleanText(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
