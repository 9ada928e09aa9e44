package features

import (
	"testing"

	"github.com/spigell/mentor-matcher/internal/participant"
)

func TestParseBand(t *testing.T) {
	tests := []struct {
		in   string
		want Band
	}{
		{"", BandUnknown},
		{"IC2", BandIC2},
		{"L7", BandIC4},
		{"1", BandIC1},
		{"3-5 years", BandIC2},
		{"8 yrs", BandIC3},
		{"10+", BandIC3},
		{"12 years", BandIC4},
		{"Senior engineer", BandIC3},
		{"Senior Director", BandIC4},
		{"junior", BandIC1},
		{"leadership coach", BandUnknown},
	}

	for _, tt := range tests {
		if got := ParseBand(tt.in); got != tt.want {
			t.Errorf("ParseBand(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		minutes int
		known   bool
	}{
		{"", 0, false},
		{"UTC", 0, true},
		{"UTC+1", 60, true},
		{"GMT-5", -300, true},
		{"+05:30", 330, true},
		{"utc -03:00", -180, true},
		{"Europe/Berlin", 60, true},
		{"America/New_York", -300, true},
		{"PST", -480, true},
		{"UTC+19", 0, false},
		{"somewhere", 0, false},
	}

	for _, tt := range tests {
		got := ParseOffset(tt.in)
		if got.Known != tt.known || got.Minutes != tt.minutes {
			t.Errorf("ParseOffset(%q) = %+v, want minutes=%d known=%v", tt.in, got, tt.minutes, tt.known)
		}
	}
}

func TestOffsetDistanceWrapsAroundTheDay(t *testing.T) {
	a := Offset{Minutes: 12 * 60, Known: true}
	b := Offset{Minutes: -11 * 60, Known: true}
	if got := a.DistanceHours(b); got != 1 {
		t.Fatalf("expected 1h distance, got %v", got)
	}
	c := Offset{Minutes: -300, Known: true}
	d := Offset{Minutes: 60, Known: true}
	if got := c.DistanceHours(d); got != 6 {
		t.Fatalf("expected 6h distance, got %v", got)
	}
}

func TestParseCadence(t *testing.T) {
	tests := []struct {
		in   string
		want Cadence
	}{
		{"Weekly", CadenceWeekly},
		{"every other week", CadenceBiweekly},
		{"Bi-weekly check-ins", CadenceBiweekly},
		{"once a month", CadenceMonthly},
		{"Quarterly", CadenceQuarterly},
		{"as needed", CadenceAdHoc},
		{"whenever", CadenceUnknown},
	}

	for _, tt := range tests {
		if got := ParseCadence(tt.in); got != tt.want {
			t.Errorf("ParseCadence(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMentor(t *testing.T) {
	mentor := &participant.Mentor{
		Profile: participant.Profile{
			ID:               " m1 ",
			Experience:       "Staff",
			Timezone:         "UTC+2",
			MeetingFrequency: "biweekly",
			Style:            "  direct,   structured ",
			LifeExperiences:  []string{"Parent", "parent", " career   change "},
		},
		TopicsToMentor:    []string{"Go", "go", "Kubernetes"},
		CapacityRemaining: 2,
		Exclusions:        []string{"Sales"},
	}

	set := Normalize(mentor)

	if set.ID != "m1" || set.Kind != participant.KindMentor {
		t.Fatalf("unexpected identity: %+v", set)
	}
	if set.Seniority != BandIC4 {
		t.Fatalf("unexpected band %s", set.Seniority)
	}
	if !set.Offset.Known || set.Offset.Minutes != 120 {
		t.Fatalf("unexpected offset %+v", set.Offset)
	}
	if set.Cadence != CadenceBiweekly {
		t.Fatalf("unexpected cadence %s", set.Cadence)
	}
	if set.Topics.Len() != 2 || !set.Topics.Has("KUBERNETES") {
		t.Fatalf("unexpected topics %v", set.Topics.Sorted())
	}
	if got := set.LifeExperiences.Sorted(); len(got) != 2 || got[0] != "career change" {
		t.Fatalf("unexpected life experiences %v", got)
	}
	if !set.Exclusions.Has("sales") {
		t.Fatalf("expected exclusions to be normalized")
	}
	if set.Style != "direct, structured" {
		t.Fatalf("unexpected style %q", set.Style)
	}
	if set.Capacity != 2 {
		t.Fatalf("unexpected capacity %d", set.Capacity)
	}
}

func TestNormalizeMenteeWithoutSignals(t *testing.T) {
	set := Normalize(&participant.Mentee{Profile: participant.Profile{ID: "e1"}})

	if set.Seniority.Known() || set.Offset.Known || set.Cadence.Known() {
		t.Fatalf("expected no signal, got %+v", set)
	}
	if set.Topics.Len() != 0 || set.Capacity != 0 {
		t.Fatalf("expected empty topics and capacity, got %+v", set)
	}
}

func TestTagsSetOperations(t *testing.T) {
	a := NewTags("go", "rust", "k8s")
	b := NewTags("Go", "python", "K8S")

	if a.Intersect(b) != 2 {
		t.Fatalf("unexpected intersection %d", a.Intersect(b))
	}
	if a.Union(b) != 4 {
		t.Fatalf("unexpected union %d", a.Union(b))
	}
	shared := a.Shared(b)
	if len(shared) != 2 || shared[0] != "go" || shared[1] != "k8s" {
		t.Fatalf("unexpected shared tags %v", shared)
	}
}
