package features

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// referenceInstant pins IANA zone resolution so results do not depend on the day of the run.
var referenceInstant = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

var offsetPattern = regexp.MustCompile(`^(?:utc|gmt)?\s*([+-])\s*(\d{1,2})(?::?(\d{2}))?$`)

var zoneAbbreviations = map[string]int{
	"utc":  0,
	"gmt":  0,
	"z":    0,
	"wet":  0,
	"bst":  60,
	"cet":  60,
	"cest": 120,
	"eet":  120,
	"msk":  180,
	"ist":  330,
	"sgt":  480,
	"jst":  540,
	"aest": 600,
	"est":  -300,
	"edt":  -240,
	"cst":  -360,
	"mst":  -420,
	"pst":  -480,
	"pdt":  -420,
}

// Offset is a UTC offset in minutes.
type Offset struct {
	Minutes int
	Known   bool
}

// ParseOffset understands UTC±H[:MM], GMT±H, bare ±HH:MM, a few common abbreviations and IANA names.
func ParseOffset(raw string) Offset {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Offset{}
	}

	lower := strings.ToLower(s)
	if minutes, ok := zoneAbbreviations[lower]; ok {
		return Offset{Minutes: minutes, Known: true}
	}

	if m := offsetPattern.FindStringSubmatch(lower); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes >= 60 {
			return Offset{}
		}
		total := hours*60 + minutes
		if m[1] == "-" {
			total = -total
		}
		return Offset{Minutes: total, Known: true}
	}

	if strings.Contains(s, "/") {
		loc, err := time.LoadLocation(s)
		if err == nil {
			_, seconds := referenceInstant.In(loc).Zone()
			return Offset{Minutes: seconds / 60, Known: true}
		}
	}

	return Offset{}
}

// DistanceHours returns the wall-clock distance between two offsets in hours, in [0, 12].
func (o Offset) DistanceHours(other Offset) float64 {
	diff := math.Abs(float64(o.Minutes - other.Minutes))
	diff = math.Mod(diff, 24*60)
	if diff > 12*60 {
		diff = 24*60 - diff
	}
	return diff / 60
}
