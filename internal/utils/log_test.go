package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "mentee e1", limit: 0, expect: ""},
		{name: "fits", input: "mentee e1", limit: 20, expect: "mentee e1"},
		{name: "truncated", input: "mentee e1 and mentor m1", limit: 9, expect: "mentee e1..."},
		{name: "surrounding whitespace", input: "  spaced  ", limit: 5, expect: "space..."},
		{name: "prompt is flattened", input: "Mentee:\n  - go\n\tMentor:\n  - go", limit: 100, expect: "Mentee: - go Mentor: - go"},
		{name: "counts runes", input: "Ана и Борис", limit: 5, expect: "Ана и..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
