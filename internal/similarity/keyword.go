package similarity

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/spigell/mentor-matcher/internal/participant"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about an and are as at be but by for from have i if in into is it its
		me my of on or so than that the their them then there they this to too very was we what when which
		who will with would you your like prefer prefers really just more most some also can being been`) {
		stopWords[w] = struct{}{}
	}
}

// Keyword compares profile fields by token overlap. It is deterministic and never fails.
type Keyword struct{}

func (Keyword) Compute(_ context.Context, _ string, mentees []*participant.Mentee, mentors []*participant.Mentor) (Result, error) {
	menteeTokens := make([][]tokenSet, len(mentees))
	for i, e := range mentees {
		menteeTokens[i] = fieldTokens(&e.Profile)
	}
	mentorTokens := make([][]tokenSet, len(mentors))
	for i, m := range mentors {
		mentorTokens[i] = fieldTokens(&m.Profile)
	}

	scores := make(map[PairKey]float64, len(mentees)*len(mentors))
	for i, e := range mentees {
		for j, m := range mentors {
			if score, ok := keywordScore(menteeTokens[i], mentorTokens[j]); ok {
				scores[pairKey(e, m)] = score
			}
		}
	}

	return Result{Scores: scores}, nil
}

type tokenSet map[string]struct{}

func fieldTokens(p *participant.Profile) []tokenSet {
	out := make([]tokenSet, len(fields))
	for i, f := range fields {
		out[i] = tokenize(f.value(p))
	}
	return out
}

func tokenize(s string) tokenSet {
	set := tokenSet{}
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// keywordScore blends the Dice coefficient of every field present on both sides.
func keywordScore(a, b []tokenSet) (float64, bool) {
	var weighted, weights float64
	for i, f := range fields {
		if len(a[i]) == 0 || len(b[i]) == 0 {
			continue
		}
		shared := 0
		for token := range a[i] {
			if _, ok := b[i][token]; ok {
				shared++
			}
		}
		dice := 2 * float64(shared) / float64(len(a[i])+len(b[i]))
		weighted += f.weight * dice
		weights += f.weight
	}
	if weights == 0 {
		return 0, false
	}
	return math.Round(10000*weighted/weights) / 100, true
}
