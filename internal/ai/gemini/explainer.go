package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/utils"
)

//go:embed system.md
var systemPrompt string

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	defaultTone             = "Warm"
	defaultLanguage         = "English"
	defaultMaxWords         = 80
	maxOverrideRunes        = 200
	maxUserInstructionRunes = 600
	noneValue               = "none"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// PromptOverrides lets operators adjust the explanation prompt without editing the template.
type PromptOverrides struct {
	Tone             string `mapstructure:"tone"`
	Language         string `mapstructure:"language"`
	Focus            string `mapstructure:"focus"`
	MaxWords         int    `mapstructure:"max-words"`
	UserInstructions string `mapstructure:"user-instructions"`
}

// Explainer produces pair explanations with a Gemini generator.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int

	mu        sync.RWMutex
	overrides PromptOverrides
}

var _ explain.Provider = (*Explainer)(nil)

func NewExplainer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Explainer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) SetPromptOverrides(o PromptOverrides) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides = o
}

func (e *Explainer) Model() string {
	if e == nil || e.generator == nil {
		return ""
	}
	return e.generator.Model()
}

// Explain asks the model for a human-readable rationale for req.
func (e *Explainer) Explain(ctx context.Context, req explain.Request) (string, error) {
	if e == nil || e.generator == nil {
		return "", errors.New("gemini explainer is not initialized")
	}
	if req.Mentee == nil || req.Mentor == nil {
		return "", errors.New("mentee and mentor are required")
	}

	e.mu.RLock()
	overrides := e.overrides
	e.mu.RUnlock()

	message, err := buildPrompt(req, overrides)
	if err != nil {
		return "", err
	}

	e.logger.Debug("gemini explanation request",
		zap.String("mentee_id", req.Mentee.ID()),
		zap.String("mentor_id", req.Mentor.ID()),
		zap.Int("prompt_length", utf8.RuneCountInString(message)),
		zap.String("prompt_preview", utils.TruncateForLog(message, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return "", err
	}

	e.logger.Debug("gemini explanation response",
		zap.String("mentee_id", req.Mentee.ID()),
		zap.String("mentor_id", req.Mentor.ID()),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return parseResponse(raw)
}

func buildPrompt(req explain.Request, o PromptOverrides) (string, error) {
	mentee, err := json.MarshalIndent(req.Mentee, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal mentee payload: %w", err)
	}
	mentor, err := json.MarshalIndent(req.Mentor, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal mentor payload: %w", err)
	}
	score, err := json.MarshalIndent(req.Score, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal score payload: %w", err)
	}

	maxWords := o.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	replacer := strings.NewReplacer(
		"{{TONE}}", singleLine(o.Tone, defaultTone),
		"{{LANGUAGE}}", singleLine(o.Language, defaultLanguage),
		"{{FOCUS}}", singleLine(o.Focus, noneValue),
		"{{MAX_WORDS}}", strconv.Itoa(maxWords),
		"{{USER_INSTRUCTIONS}}", userInstructions(o.UserInstructions),
		"{{MENTEE_JSON}}", string(mentee),
		"{{MENTOR_JSON}}", string(mentor),
		"{{SCORE_JSON}}", string(score),
	)
	return replacer.Replace(promptTemplate), nil
}

// flatten collapses whitespace and neutralises section markers.
func flatten(v string) string {
	v = strings.NewReplacer("[", "(", "]", ")").Replace(v)
	return strings.Join(strings.Fields(v), " ")
}

func singleLine(v, fallback string) string {
	if v = flatten(v); v == "" {
		return fallback
	}
	return truncateRunes(v, maxOverrideRunes)
}

func userInstructions(v string) string {
	lines := make([]string, 0)
	remaining := maxUserInstructionRunes
	for _, line := range strings.Split(v, "\n") {
		if remaining <= 0 {
			break
		}
		line = flatten(line)
		if line == "" {
			continue
		}
		line = truncateRunes(line, remaining)
		remaining -= utf8.RuneCountInString(line)
		lines = append(lines, "  - "+line)
	}
	if len(lines) == 0 {
		return "  - " + noneValue
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(v string, limit int) string {
	runes := []rune(v)
	if len(runes) <= limit {
		return v
	}
	return string(runes[:limit])
}

func parseResponse(raw string) (string, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}

	summary := coerceString(data["summary"])
	strengths := coerceStrings(data["strengths"])
	watchOuts := coerceStrings(data["watch_outs"])
	firstSession := coerceString(data["first_session"])

	if summary == "" && len(strengths) == 0 {
		return "", errors.New("gemini response has neither summary nor strengths")
	}

	var b strings.Builder
	b.WriteString(summary)
	writeList(&b, "Strengths", strengths)
	writeList(&b, "Watch-outs", watchOuts)
	if firstSession != "" {
		b.WriteString("\n\nFirst session: ")
		b.WriteString(firstSession)
	}

	return strings.TrimSpace(b.String()), nil
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	b.WriteString(":")
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return nil
}
