package hero

import (
	"strings"
	"testing"
)

func TestAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		query  string
		wantOK bool
	}{
		{
			name:   "exact prompt",
			query:  "what is memoraiz and how can it help my company?",
			wantOK: true,
		},
		{
			name:   "case and whitespace normalized",
			query:  "  What Is MemorAIz And How Can It Help My Company?  ",
			wantOK: true,
		},
		{
			name:   "near miss is not fuzzy matched",
			query:  "what is memoraiz and how can it help my company",
			wantOK: false,
		},
		{
			name:   "unrelated question",
			query:  "how much does it cost?",
			wantOK: false,
		},
		{
			name:   "empty query",
			query:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			answer, ok := Answer(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("Answer(%q) ok = %v, want %v", tt.query, ok, tt.wantOK)
			}
			if ok && answer == "" {
				t.Error("matched prompt returned empty answer")
			}
			if !ok && answer != "" {
				t.Errorf("unmatched prompt returned %q", answer)
			}
		})
	}
}

func TestAnswerCoversAllPrompts(t *testing.T) {
	t.Parallel()

	for prompt := range answers {
		if prompt != strings.ToLower(strings.TrimSpace(prompt)) {
			t.Errorf("prompt key %q is not stored normalized", prompt)
		}
		if _, ok := Answer(prompt); !ok {
			t.Errorf("Answer(%q) did not match its own key", prompt)
		}
	}
}
