package participant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roster is a decoded set of mentees and mentors together with decode warnings.
type Roster struct {
	CohortID string
	Mentees  *Mentees
	Mentors  *Mentors
	Warnings []Warning
}

type rawRoster struct {
	CohortID string           `json:"cohort_id" yaml:"cohort_id"`
	Mentees  []map[string]any `json:"mentees" yaml:"mentees"`
	Mentors  []map[string]any `json:"mentors" yaml:"mentors"`
}

// LoadFile reads a roster from a JSON or YAML file. The format is picked by extension,
// anything that is not .json is parsed as YAML.
func LoadFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var raw rawRoster
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json roster %q: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml roster %q: %w", path, err)
		}
	}

	return FromRecords(raw.CohortID, raw.Mentees, raw.Mentors), nil
}

// FromRecords decodes raw mentee and mentor records into a roster.
func FromRecords(cohortID string, mentees, mentors []map[string]any) *Roster {
	decodedMentees, menteeWarnings := DecodeMentees(mentees)
	decodedMentors, mentorWarnings := DecodeMentors(mentors)

	return &Roster{
		CohortID: strings.TrimSpace(cohortID),
		Mentees:  decodedMentees,
		Mentors:  decodedMentors,
		Warnings: append(menteeWarnings, mentorWarnings...),
	}
}
