// Package participant holds the mentee and mentor records consumed by the matching engine.
//
// Mentees and mentors share a common Profile. Role specific fields are only
// reachable after a type switch or one of the As* helpers.
package participant

import "strings"

type Kind string

const (
	KindMentee Kind = "mentee"
	KindMentor Kind = "mentor"
)

// Participant is implemented only by *Mentee and *Mentor.
type Participant interface {
	ID() string
	Name() string
	Kind() Kind
	Common() *Profile

	sealed()
}

// Profile contains the fields both roles provide.
type Profile struct {
	ID                 string   `json:"id" yaml:"id" mapstructure:"id"`
	Name               string   `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Title              string   `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Experience         string   `json:"experience,omitempty" yaml:"experience,omitempty" mapstructure:"experience"`
	Location           string   `json:"location,omitempty" yaml:"location,omitempty" mapstructure:"location"`
	Timezone           string   `json:"timezone,omitempty" yaml:"timezone,omitempty" mapstructure:"timezone"`
	LifeExperiences    []string `json:"life_experiences,omitempty" yaml:"life_experiences,omitempty" mapstructure:"life_experiences"`
	Style              string   `json:"style,omitempty" yaml:"style,omitempty" mapstructure:"style"`
	Energy             string   `json:"energy,omitempty" yaml:"energy,omitempty" mapstructure:"energy"`
	FeedbackPreference string   `json:"feedback_preference,omitempty" yaml:"feedback_preference,omitempty" mapstructure:"feedback_preference"`
	MeetingFrequency   string   `json:"meeting_frequency,omitempty" yaml:"meeting_frequency,omitempty" mapstructure:"meeting_frequency"`
	Bio                string   `json:"bio,omitempty" yaml:"bio,omitempty" mapstructure:"bio"`
}

type Mentee struct {
	Profile       `yaml:",inline" mapstructure:",squash"`
	TopicsToLearn []string `json:"topics_to_learn,omitempty" yaml:"topics_to_learn,omitempty" mapstructure:"topics_to_learn"`
}

type Mentor struct {
	Profile           `yaml:",inline" mapstructure:",squash"`
	TopicsToMentor    []string `json:"topics_to_mentor,omitempty" yaml:"topics_to_mentor,omitempty" mapstructure:"topics_to_mentor"`
	CapacityRemaining int      `json:"capacity_remaining" yaml:"capacity_remaining" mapstructure:"capacity_remaining"`
	// Exclusions lists topics or roles the mentor declined to mentor.
	Exclusions []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty" mapstructure:"exclusions"`
}

func (m *Mentee) ID() string       { return m.Profile.ID }
func (m *Mentee) Name() string     { return displayName(&m.Profile) }
func (m *Mentee) Kind() Kind       { return KindMentee }
func (m *Mentee) Common() *Profile { return &m.Profile }
func (m *Mentee) sealed()          {}

func (m *Mentor) ID() string       { return m.Profile.ID }
func (m *Mentor) Name() string     { return displayName(&m.Profile) }
func (m *Mentor) Kind() Kind       { return KindMentor }
func (m *Mentor) Common() *Profile { return &m.Profile }
func (m *Mentor) sealed()          {}

// Topics returns the topic tags relevant for the participant role.
func Topics(p Participant) []string {
	switch v := p.(type) {
	case *Mentee:
		return v.TopicsToLearn
	case *Mentor:
		return v.TopicsToMentor
	default:
		return nil
	}
}

// AsMentor returns the mentor view of p when p is a mentor.
func AsMentor(p Participant) (*Mentor, bool) {
	m, ok := p.(*Mentor)
	return m, ok
}

// AsMentee returns the mentee view of p when p is a mentee.
func AsMentee(p Participant) (*Mentee, bool) {
	m, ok := p.(*Mentee)
	return m, ok
}

func displayName(p *Profile) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return p.ID
}

type Mentees struct {
	Items []*Mentee
}

func (m *Mentees) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Items)
}

func (m *Mentees) IDs() []string {
	ids := make([]string, 0, m.Len())
	for _, v := range m.Items {
		ids = append(ids, v.ID())
	}
	return ids
}

func (m *Mentees) FindByID(id string) *Mentee {
	for _, v := range m.Items {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

type Mentors struct {
	Items []*Mentor
}

func (m *Mentors) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Items)
}

func (m *Mentors) IDs() []string {
	ids := make([]string, 0, m.Len())
	for _, v := range m.Items {
		ids = append(ids, v.ID())
	}
	return ids
}

func (m *Mentors) FindByID(id string) *Mentor {
	for _, v := range m.Items {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

// TotalCapacity sums the remaining capacity of all mentors.
func (m *Mentors) TotalCapacity() int {
	total := 0
	for _, v := range m.Items {
		if v.CapacityRemaining > 0 {
			total += v.CapacityRemaining
		}
	}
	return total
}
