package filtering

import "github.com/spigell/mentor-matcher/internal/features"

// Pair is a candidate (mentee, mentor) combination.
type Pair struct {
	Mentee features.Set
	Mentor features.Set
}

func (p Pair) Key() string {
	return p.Mentee.ID + "/" + p.Mentor.ID
}

// Pairs is an ordered list of candidate pairs.
type Pairs struct {
	Items []Pair
}

// Cross builds every mentee × mentor combination, mentee-major, preserving input order.
func Cross(mentees, mentors []features.Set) *Pairs {
	items := make([]Pair, 0, len(mentees)*len(mentors))
	for _, e := range mentees {
		for _, m := range mentors {
			items = append(items, Pair{Mentee: e, Mentor: m})
		}
	}
	return &Pairs{Items: items}
}

func (p *Pairs) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}

// Exclude drops every pair matching drop and returns the keys of the removed pairs.
func (p *Pairs) Exclude(drop func(Pair) bool) []string {
	var excluded []string
	kept := p.Items[:0]
	for _, pair := range p.Items {
		if drop(pair) {
			excluded = append(excluded, pair.Key())
			continue
		}
		kept = append(kept, pair)
	}
	p.Items = kept
	return excluded
}
