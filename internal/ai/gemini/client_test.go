package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const testModel = "gemini-test"

type scriptedReply struct {
	resp *genai.GenerateContentResponse
	err  error
}

// scriptedChats hands out one chat per Create call, replying from a fixed script.
type scriptedChats struct {
	mu      sync.Mutex
	script  []scriptedReply
	configs []*genai.GenerateContentConfig
	sent    []string
}

func (s *scriptedChats) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if model != testModel {
		return nil, errors.New("unexpected model " + model)
	}
	if len(s.script) == 0 {
		return nil, errors.New("unexpected call")
	}
	reply := s.script[0]
	s.script = s.script[1:]
	s.configs = append(s.configs, config)
	return scriptedChat{owner: s, reply: reply}, nil
}

func (s *scriptedChats) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.configs)
}

type scriptedChat struct {
	owner *scriptedChats
	reply scriptedReply
}

func (c scriptedChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	c.owner.mu.Lock()
	for _, part := range parts {
		c.owner.sent = append(c.owner.sent, part.Text)
	}
	c.owner.mu.Unlock()
	return c.reply.resp, c.reply.err
}

func textReply(parts ...string) scriptedReply {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return scriptedReply{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}}
}

func errReply(code int, message string) scriptedReply {
	return scriptedReply{err: genai.APIError{Code: code, Message: message}}
}

// noWait records requested delays instead of blocking.
func noWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := wait
	wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { wait = original })
	return &delays
}

func newTestGenerator(chats chatCreator, retries int) *Generator {
	return &Generator{chats: chats, model: testModel, maxRetries: retries, logger: zap.NewNop()}
}

func TestGeneratorRetriesTransientErrors(t *testing.T) {
	delays := noWait(t)
	chats := &scriptedChats{script: []scriptedReply{
		errReply(http.StatusInternalServerError, "internal"),
		errReply(http.StatusServiceUnavailable, "unavailable"),
		textReply("  first line ", "", "second line"),
	}}

	output, err := newTestGenerator(chats, 3).GenerateContent(context.Background(), " explain pairs ", "mentee e1, mentor m1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "first line\nsecond line" {
		t.Fatalf("unexpected output: %q", output)
	}

	if chats.calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", chats.calls())
	}
	if len(*delays) != 2 || (*delays)[0] != baseBackoff || (*delays)[1] != 2*baseBackoff {
		t.Fatalf("expected exponential backoff, got %v", *delays)
	}
	for _, config := range chats.configs {
		if config.SystemInstruction == nil || config.SystemInstruction.Parts[0].Text != "explain pairs" {
			t.Fatalf("expected trimmed system instruction on every attempt, got %+v", config.SystemInstruction)
		}
	}
	for _, msg := range chats.sent {
		if msg != "mentee e1, mentor m1" {
			t.Fatalf("unexpected chat message: %q", msg)
		}
	}
}

func TestGeneratorGivesUp(t *testing.T) {
	tests := []struct {
		name      string
		script    []scriptedReply
		retries   int
		wantCalls int
	}{
		{
			name:      "retries exhausted",
			script:    []scriptedReply{errReply(http.StatusInternalServerError, "a"), errReply(http.StatusInternalServerError, "b")},
			retries:   2,
			wantCalls: 2,
		},
		{
			name:      "client error is final",
			script:    []scriptedReply{errReply(http.StatusBadRequest, "bad prompt")},
			retries:   3,
			wantCalls: 1,
		},
		{
			name:      "quota delay too long",
			script:    []scriptedReply{errReply(http.StatusTooManyRequests, "quota exhausted, retry after 60 seconds")},
			retries:   3,
			wantCalls: 1,
		},
		{
			name:      "empty answer is retried like a transient error",
			script:    []scriptedReply{textReply("  "), {resp: nil}},
			retries:   2,
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noWait(t)
			chats := &scriptedChats{script: tt.script}

			if _, err := newTestGenerator(chats, tt.retries).GenerateContent(context.Background(), "", "msg"); err == nil {
				t.Fatal("expected error")
			}
			if chats.calls() != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, chats.calls())
			}
		})
	}
}

func TestGeneratorStopsWhenCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	original := wait
	wait = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}
	t.Cleanup(func() { wait = original })

	chats := &scriptedChats{script: []scriptedReply{errReply(http.StatusBadGateway, "gateway"), textReply("late")}}

	_, err := newTestGenerator(chats, 3).GenerateContent(ctx, "", "msg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if chats.calls() != 1 {
		t.Fatalf("expected no attempt after cancellation, got %d calls", chats.calls())
	}
}

func TestGeneratorValidatesInput(t *testing.T) {
	if _, err := newTestGenerator(&scriptedChats{}, 1).GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
	var g *Generator
	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatal("expected error for nil generator")
	}
	if g.Model() != "" {
		t.Fatalf("nil generator must report no model")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		attempt   int
		wantDelay time.Duration
		wantRetry bool
	}{
		{name: "plain error backs off", err: errors.New("connection reset"), attempt: 3, wantDelay: 4 * baseBackoff, wantRetry: true},
		{name: "cancelled", err: context.Canceled, attempt: 1},
		{name: "deadline", err: context.DeadlineExceeded, attempt: 1},
		{name: "server error", err: genai.APIError{Code: http.StatusInternalServerError}, attempt: 2, wantDelay: 2 * baseBackoff, wantRetry: true},
		{name: "not found", err: genai.APIError{Code: http.StatusNotFound}, attempt: 1},
		{
			name:      "quota delay from details",
			err:       genai.APIError{Code: http.StatusTooManyRequests, Details: []map[string]any{{"retryDelay": "7s"}}},
			attempt:   1,
			wantDelay: 7 * time.Second,
			wantRetry: true,
		},
		{
			name:      "quota delay from message",
			err:       genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 1.5s."},
			attempt:   1,
			wantDelay: 1500 * time.Millisecond,
			wantRetry: true,
		},
		{name: "quota without hint", err: genai.APIError{Code: http.StatusTooManyRequests}, attempt: 1, wantDelay: baseBackoff, wantRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, retry := retryDelay(tt.err, tt.attempt)
			if retry != tt.wantRetry || delay != tt.wantDelay {
				t.Fatalf("retryDelay() = (%v, %v), want (%v, %v)", delay, retry, tt.wantDelay, tt.wantRetry)
			}
		})
	}
}
