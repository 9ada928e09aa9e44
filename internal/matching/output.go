package matching

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spigell/mentor-matcher/internal/scoring"
)

type Mode string

const (
	ModeBatch Mode = "batch"
	ModeTop3  Mode = "top3_per_mentee"
	// ModeManual marks an output whose proposed assignments were picked by an operator.
	// It is never a run mode.
	ModeManual Mode = "manual_selection"
)

// ParseMode accepts the canonical mode names and the short "top3" alias.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeBatch):
		return ModeBatch, nil
	case "top3", "top-3", string(ModeTop3):
		return ModeTop3, nil
	default:
		return "", fmt.Errorf("unknown matching mode %q", s)
	}
}

// Recommendation is one candidate mentor for a mentee.
type Recommendation struct {
	MentorID   string             `json:"mentor_id"`
	MentorName string             `json:"mentor_name"`
	MentorRole string             `json:"mentor_role"`
	Score      scoring.MatchScore `json:"score"`
}

// Result lists the candidates for one mentee. ProposedAssignment is nil when no mentor was assigned.
type Result struct {
	MenteeID           string           `json:"mentee_id"`
	MenteeName         string           `json:"mentee_name"`
	Recommendations    []Recommendation `json:"recommendations"`
	ProposedAssignment *Recommendation  `json:"proposed_assignment"`
}

type Stats struct {
	MenteesTotal   int `json:"mentees_total"`
	MentorsTotal   int `json:"mentors_total"`
	PairsEvaluated int `json:"pairs_evaluated"`
	AfterFilters   int `json:"after_filters"`
	Assigned       int `json:"assigned"`
	Unassigned     int `json:"unassigned"`
}

// Output is the complete result of one matching run.
type Output struct {
	RunID          string    `json:"run_id"`
	CohortID       string    `json:"cohort_id,omitempty"`
	Mode           Mode      `json:"mode"`
	SourceMode     Mode      `json:"source_mode,omitempty"`
	Results        []Result  `json:"results"`
	Stats          Stats     `json:"stats"`
	UsedEmbeddings bool      `json:"used_embeddings"`
	Timestamp      time.Time `json:"timestamp"`
}

// FindResult returns the result of a mentee or nil.
func (o *Output) FindResult(menteeID string) *Result {
	if o == nil {
		return nil
	}
	for i := range o.Results {
		if o.Results[i].MenteeID == menteeID {
			return &o.Results[i]
		}
	}
	return nil
}

// Assignments maps mentee id to the proposed mentor id.
func (o *Output) Assignments() map[string]string {
	out := map[string]string{}
	if o == nil {
		return out
	}
	for _, r := range o.Results {
		if r.ProposedAssignment != nil {
			out[r.MenteeID] = r.ProposedAssignment.MentorID
		}
	}
	return out
}

// WithSelection returns a copy of o whose proposed assignments come from s.
// The copy is in ModeManual and SourceMode keeps the mode of the run it started from.
func (o *Output) WithSelection(s *Selection) *Output {
	out := *o
	if o.Mode != ModeManual {
		out.SourceMode = o.Mode
	}
	out.Mode = ModeManual
	out.Results = make([]Result, len(o.Results))
	assignments := s.Assignments()

	out.Stats.Assigned = 0
	for i, r := range o.Results {
		r.Recommendations = append([]Recommendation(nil), r.Recommendations...)
		r.ProposedAssignment = nil
		if mentorID, ok := assignments[r.MenteeID]; ok {
			rec := Recommendation{MentorID: mentorID}
			for _, candidate := range r.Recommendations {
				if candidate.MentorID == mentorID {
					rec = candidate
					break
				}
			}
			r.ProposedAssignment = &rec
			out.Stats.Assigned++
		}
		out.Results[i] = r
	}
	out.Stats.Unassigned = len(out.Results) - out.Stats.Assigned

	return &out
}

// ReportByMentee renders one line per mentee for operator review.
func (o *Output) ReportByMentee() []string {
	lines := make([]string, 0, len(o.Results))
	for _, r := range o.Results {
		assigned := "No match"
		if r.ProposedAssignment != nil {
			assigned = fmt.Sprintf("%s (%.2f)", r.ProposedAssignment.MentorName, r.ProposedAssignment.Score.TotalScore)
		}
		candidates := make([]string, 0, len(r.Recommendations))
		for _, rec := range r.Recommendations {
			candidates = append(candidates, fmt.Sprintf("%s %.2f", rec.MentorName, rec.Score.TotalScore))
		}
		lines = append(lines, fmt.Sprintf("%s: %s [%s]", r.MenteeName, assigned, strings.Join(candidates, ", ")))
	}
	return lines
}

// DumpToFile writes the output as indented JSON. An empty path writes into a new temporary file.
func (o *Output) DumpToFile(path string) (string, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}

	if path == "" {
		f, err := os.CreateTemp("", "mentor-matcher-*.json")
		if err != nil {
			return "", fmt.Errorf("create temp file: %w", err)
		}
		defer f.Close()
		if _, err := f.Write(data); err != nil {
			return "", fmt.Errorf("write output: %w", err)
		}
		return f.Name(), nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// LoadOutput reads an output previously written by DumpToFile.
func LoadOutput(path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	var out Output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode output %q: %w", path, err)
	}
	return &out, nil
}
