package participant

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
)

var ErrMissingID = errors.New("participant id is required")

// Warning describes a raw record that was rejected or repaired while decoding.
type Warning struct {
	Kind   Kind   `json:"kind"`
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.ID != "" {
		return fmt.Sprintf("%s #%d (%s): %s", w.Kind, w.Index, w.ID, w.Reason)
	}
	return fmt.Sprintf("%s #%d: %s", w.Kind, w.Index, w.Reason)
}

// keyAliases maps normalized keys found in exported sheets to the canonical field keys.
var keyAliases = map[string]string{
	"capacity":        "capacityremaining",
	"maxmentees":      "capacityremaining",
	"role":            "title",
	"jobtitle":        "title",
	"yearsexperience": "experience",
	"experienceyears": "experience",
	"tz":              "timezone",
	"frequency":       "meetingfrequency",
	"feedback":        "feedbackpreference",
	"lifeexperience":  "lifeexperiences",
	"excludedtopics":  "exclusions",
	"donotmentor":     "exclusions",
	"fullname":        "name",
}

// DecodeMentee decodes a loosely typed record into a Mentee.
func DecodeMentee(raw map[string]any) (*Mentee, error) {
	var m Mentee
	if err := decode(normalizeRecord(raw, KindMentee), &m); err != nil {
		return nil, err
	}
	m.Profile = cleanProfile(m.Profile)
	m.TopicsToLearn = cleanList(m.TopicsToLearn)
	if m.Profile.ID == "" {
		return nil, ErrMissingID
	}
	return &m, nil
}

// DecodeMentor decodes a loosely typed record into a Mentor. Negative capacity is clamped to zero.
func DecodeMentor(raw map[string]any) (*Mentor, error) {
	var m Mentor
	if err := decode(normalizeRecord(raw, KindMentor), &m); err != nil {
		return nil, err
	}
	m.Profile = cleanProfile(m.Profile)
	m.TopicsToMentor = cleanList(m.TopicsToMentor)
	m.Exclusions = cleanList(m.Exclusions)
	if m.CapacityRemaining < 0 {
		m.CapacityRemaining = 0
	}
	if m.Profile.ID == "" {
		return nil, ErrMissingID
	}
	return &m, nil
}

// DecodeMentees decodes every record, skipping the broken ones and reporting them as warnings.
func DecodeMentees(records []map[string]any) (*Mentees, []Warning) {
	out := &Mentees{Items: make([]*Mentee, 0, len(records))}
	var warnings []Warning
	seen := make(map[string]bool, len(records))

	for i, raw := range records {
		m, err := DecodeMentee(raw)
		if err != nil {
			warnings = append(warnings, Warning{Kind: KindMentee, Index: i, Reason: err.Error()})
			continue
		}
		if seen[m.ID()] {
			warnings = append(warnings, Warning{Kind: KindMentee, Index: i, ID: m.ID(), Reason: "duplicate id, record skipped"})
			continue
		}
		seen[m.ID()] = true
		out.Items = append(out.Items, m)
	}

	return out, warnings
}

// DecodeMentors decodes every record, skipping the broken ones and reporting them as warnings.
func DecodeMentors(records []map[string]any) (*Mentors, []Warning) {
	out := &Mentors{Items: make([]*Mentor, 0, len(records))}
	var warnings []Warning
	seen := make(map[string]bool, len(records))

	for i, raw := range records {
		m, err := DecodeMentor(raw)
		if err != nil {
			warnings = append(warnings, Warning{Kind: KindMentor, Index: i, Reason: err.Error()})
			continue
		}
		if seen[m.ID()] {
			warnings = append(warnings, Warning{Kind: KindMentor, Index: i, ID: m.ID(), Reason: "duplicate id, record skipped"})
			continue
		}
		seen[m.ID()] = true
		out.Items = append(out.Items, m)
	}

	return out, warnings
}

func decode(input map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
		Result: target,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// normalizeRecord resolves aliases and the generic "topics" key for the given role.
func normalizeRecord(raw map[string]any, kind Kind) map[string]any {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		norm := normalizeKey(key)
		if alias, ok := keyAliases[norm]; ok {
			norm = alias
		}
		if norm == "topics" {
			if kind == KindMentor {
				norm = "topicstomentor"
			} else {
				norm = "topicstolearn"
			}
		}
		if _, exists := out[norm]; exists {
			continue
		}
		out[norm] = value
	}
	return out
}

func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cleanProfile(p Profile) Profile {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Title = strings.TrimSpace(p.Title)
	p.Experience = strings.TrimSpace(p.Experience)
	p.Location = strings.TrimSpace(p.Location)
	p.Timezone = strings.TrimSpace(p.Timezone)
	p.Style = strings.TrimSpace(p.Style)
	p.Energy = strings.TrimSpace(p.Energy)
	p.FeedbackPreference = strings.TrimSpace(p.FeedbackPreference)
	p.MeetingFrequency = strings.TrimSpace(p.MeetingFrequency)
	p.Bio = strings.TrimSpace(p.Bio)
	p.LifeExperiences = cleanList(p.LifeExperiences)
	return p
}

func cleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
