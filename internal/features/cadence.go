package features

import "strings"

// Cadence is a preferred meeting frequency. Regular cadences are ordered from most to least frequent.
type Cadence int

const (
	CadenceUnknown Cadence = iota
	CadenceWeekly
	CadenceBiweekly
	CadenceMonthly
	CadenceQuarterly
	CadenceAdHoc
)

func (c Cadence) String() string {
	switch c {
	case CadenceWeekly:
		return "weekly"
	case CadenceBiweekly:
		return "biweekly"
	case CadenceMonthly:
		return "monthly"
	case CadenceQuarterly:
		return "quarterly"
	case CadenceAdHoc:
		return "ad hoc"
	default:
		return "unknown"
	}
}

func (c Cadence) Known() bool { return c != CadenceUnknown }

// Regular reports whether the cadence is a fixed schedule.
func (c Cadence) Regular() bool {
	return c >= CadenceWeekly && c <= CadenceQuarterly
}

// ordering matters: biweekly phrases contain "week" too.
var cadencePhrases = []struct {
	cadence Cadence
	phrases []string
}{
	{CadenceBiweekly, []string{"biweekly", "bi-weekly", "every other week", "every two weeks", "every 2 weeks", "fortnight", "twice a month", "2x a month", "2x month"}},
	{CadenceWeekly, []string{"weekly", "every week", "once a week", "each week", "1x week", "1x a week"}},
	{CadenceQuarterly, []string{"quarter"}},
	{CadenceMonthly, []string{"monthly", "every month", "once a month", "each month", "1x month", "1x a month"}},
	{CadenceAdHoc, []string{"ad hoc", "ad-hoc", "adhoc", "as needed", "flexible", "on demand", "when needed"}},
}

// ParseCadence maps a free-text meeting frequency to a cadence.
func ParseCadence(raw string) Cadence {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return CadenceUnknown
	}
	for _, group := range cadencePhrases {
		for _, phrase := range group.phrases {
			if strings.Contains(s, phrase) {
				return group.cadence
			}
		}
	}
	return CadenceUnknown
}
