package features

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Band is an ordinal seniority band. Higher is more senior.
type Band int

const (
	BandUnknown Band = iota
	BandIC1
	BandIC2
	BandIC3
	BandIC4
)

func (b Band) String() string {
	switch b {
	case BandIC1:
		return "IC1"
	case BandIC2:
		return "IC2"
	case BandIC3:
		return "IC3"
	case BandIC4:
		return "IC4"
	default:
		return "unknown"
	}
}

func (b Band) Known() bool { return b != BandUnknown }

var (
	levelPattern = regexp.MustCompile(`^(?:ic|l|level)\s*-?\s*(\d+)`)
	yearsPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

var bandWords = []struct {
	band  Band
	words []string
}{
	{BandIC4, []string{"staff", "principal", "director", "head", "executive", "vp", "chief", "distinguished", "cto", "partner"}},
	{BandIC3, []string{"senior", "sr", "lead", "manager", "expert"}},
	{BandIC2, []string{"mid", "middle", "intermediate", "experienced"}},
	{BandIC1, []string{"intern", "junior", "jr", "entry", "graduate", "associate", "trainee", "beginner"}},
}

// ParseBand maps an experience string to a seniority band.
//
// Accepted inputs are explicit levels (IC2, L3), years of experience ("4", "3-5 years",
// "10+") and seniority words ("senior engineer"). Ranges use the lower bound.
func ParseBand(raw string) Band {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return BandUnknown
	}

	if m := levelPattern.FindStringSubmatch(s); m != nil {
		level, err := strconv.Atoi(m[1])
		if err == nil && level > 0 {
			return Band(min(level, int(BandIC4)))
		}
	}

	if m := yearsPattern.FindStringSubmatch(s); m != nil {
		years, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return bandForYears(years)
		}
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, group := range bandWords {
		for _, token := range tokens {
			for _, word := range group.words {
				if token == word {
					return group.band
				}
			}
		}
	}

	return BandUnknown
}

func bandForYears(years float64) Band {
	switch {
	case years < 3:
		return BandIC1
	case years < 6:
		return BandIC2
	case years <= 10:
		return BandIC3
	default:
		return BandIC4
	}
}
