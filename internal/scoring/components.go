package scoring

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spigell/mentor-matcher/internal/features"
)

// component is one sub-score together with the sentences it contributes.
type component struct {
	name    string
	score   float64
	weight  float64
	known   bool
	flagged bool
	reason  string
	risk    string
}

func topicOverlap(mentee, mentor features.Set) component {
	c := component{name: TopicOverlap}
	if mentee.Topics.Len() == 0 || mentor.Topics.Len() == 0 {
		return c
	}

	shared := mentee.Topics.Shared(mentor.Topics)
	union := mentee.Topics.Union(mentor.Topics)
	jaccard := float64(len(shared)) / float64(union)
	coverage := float64(len(shared)) / float64(mentee.Topics.Len())

	c.known = true
	c.score = 100 * (0.5*jaccard + 0.5*coverage)
	if len(shared) > 0 {
		c.reason = "shared topics: " + strings.Join(shared, ", ")
		c.risk = fmt.Sprintf("limited topic overlap (%d of %d requested topics)", len(shared), mentee.Topics.Len())
	} else {
		c.risk = "no shared topics"
	}
	return c
}

func seniority(mentee, mentor features.Set) component {
	c := component{name: Seniority}
	if !mentee.Seniority.Known() || !mentor.Seniority.Known() {
		return c
	}

	c.known = true
	gap := int(mentor.Seniority) - int(mentee.Seniority)
	levels := fmt.Sprintf("%s vs %s", mentor.Seniority, mentee.Seniority)
	switch {
	case gap == 1:
		c.score = 100
		c.reason = "mentor is one level ahead (" + levels + ")"
	case gap == 2:
		c.score = 75
		c.reason = "mentor is two levels ahead (" + levels + ")"
	case gap == 0:
		c.score = 50
		c.flagged = true
		c.risk = "peer-level seniority (both " + mentor.Seniority.String() + ")"
	case gap >= 3:
		c.score = 40
		c.flagged = true
		c.risk = "large seniority gap (" + levels + ")"
	default:
		c.score = 15
		c.flagged = true
		c.risk = "mentor is less senior than mentee (" + levels + ")"
	}
	return c
}

func timezone(mentee, mentor features.Set) component {
	c := component{name: Timezone}
	if mentee.Offset.Known && mentor.Offset.Known {
		c.known = true
		hours := mentee.Offset.DistanceHours(mentor.Offset)
		switch {
		case hours == 0:
			c.score = 100
			c.reason = "same timezone"
		case hours <= 1:
			c.score = 90
			c.reason = "timezones within 1h"
		case hours <= 3:
			c.score = 70
			c.reason = fmt.Sprintf("timezones within %gh", hours)
		case hours <= 6:
			c.score = 40
			c.flagged = true
			c.risk = fmt.Sprintf("timezone gap of %gh", hours)
		default:
			c.score = 15
			c.flagged = true
			c.risk = fmt.Sprintf("large timezone gap of %gh", hours)
		}
		return c
	}

	if mentee.Location == "" || mentor.Location == "" {
		return c
	}

	c.known = true
	switch {
	case strings.EqualFold(mentee.Location, mentor.Location):
		c.score = 100
		c.reason = "same location (" + mentor.Location + ")"
	case sharesToken(mentee.Location, mentor.Location):
		c.score = 80
		c.reason = "nearby locations (" + mentee.Location + " / " + mentor.Location + ")"
	default:
		c.score = 35
		c.risk = "different locations (" + mentee.Location + " / " + mentor.Location + ")"
	}
	return c
}

func cadence(mentee, mentor features.Set) component {
	c := component{name: Cadence}
	if !mentee.Cadence.Known() || !mentor.Cadence.Known() {
		return c
	}

	c.known = true
	a, b := mentee.Cadence, mentor.Cadence
	switch {
	case a == b:
		c.score = 100
		c.reason = "both prefer " + a.String() + " meetings"
	case a.Regular() && b.Regular() && (a-b == 1 || b-a == 1):
		c.score = 70
		c.reason = "compatible meeting cadence (" + a.String() + " / " + b.String() + ")"
	default:
		c.score = 35
		c.risk = "meeting cadence mismatch (" + a.String() + " / " + b.String() + ")"
	}
	return c
}

func styleSimilarity(style Signal) component {
	c := component{name: StyleSimilarity}
	if !style.Known {
		return c
	}
	c.known = true
	c.score = style.Score
	c.reason = "similar working and communication style"
	c.risk = "different working and communication styles"
	return c
}

func lifeExperience(mentee, mentor features.Set) component {
	c := component{name: LifeExperience}
	if mentee.LifeExperiences.Len() == 0 || mentor.LifeExperiences.Len() == 0 {
		return c
	}

	shared := mentee.LifeExperiences.Shared(mentor.LifeExperiences)
	c.known = true
	c.score = 100 * float64(len(shared)) / float64(mentee.LifeExperiences.Union(mentor.LifeExperiences))
	if len(shared) > 0 {
		c.reason = "shared life experiences: " + strings.Join(shared, ", ")
	}
	c.risk = "few shared life experiences"
	return c
}

// sharesToken reports whether two locations have a word of three or more letters in common.
func sharesToken(a, b string) bool {
	split := func(s string) []string {
		return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}
	seen := map[string]struct{}{}
	for _, token := range split(a) {
		if len([]rune(token)) >= 3 {
			seen[token] = struct{}{}
		}
	}
	for _, token := range split(b) {
		if _, ok := seen[token]; ok {
			return true
		}
	}
	return false
}
