package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const templateModel = "template"

// Template builds explanations from the score breakdown alone. It never fails for a complete request.
type Template struct{}

func (Template) Model() string { return templateModel }

func (Template) Explain(_ context.Context, req Request) (string, error) {
	if req.Mentee == nil || req.Mentor == nil {
		return "", errors.New("mentee and mentor are required")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s and %s scored %.2f/100.", req.Mentee.Name(), req.Mentor.Name(), req.Score.TotalScore)

	if len(req.Score.Reasons) > 0 {
		b.WriteString(" Why it works: ")
		b.WriteString(strings.Join(req.Score.Reasons, "; "))
		b.WriteString(".")
	}
	if len(req.Score.Risks) > 0 {
		b.WriteString(" Watch out for: ")
		b.WriteString(strings.Join(req.Score.Risks, "; "))
		b.WriteString(".")
	}

	return b.String(), nil
}
