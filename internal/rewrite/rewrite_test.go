package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nvandessel/faqloop/internal/llm/llmtest"
)

func TestRewrite(t *testing.T) {
	const original = "Ставка 20% годовых. Ставка 20% действует до конца года."

	tests := []struct {
		name        string
		client      *llmtest.Fake
		snippet     string
		wantAnswer  string
		wantChanged bool
		wantReason  string
		wantCalls   int
	}{
		{
			name:        "replaces first occurrence only",
			client:      &llmtest.Fake{Replies: []string{`{"replacement": "15%"}`}},
			snippet:     "20%",
			wantAnswer:  "Ставка 15% годовых. Ставка 20% действует до конца года.",
			wantChanged: true,
			wantReason:  ReasonFixed,
			wantCalls:   1,
		},
		{
			name:        "fenced reply with padding",
			client:      &llmtest.Fake{Replies: []string{"```json\n{\"replacement\": \"  Ставка 15%  \"}\n```"}},
			snippet:     "Ставка 20%",
			wantAnswer:  "Ставка 15% годовых. Ставка 20% действует до конца года.",
			wantChanged: true,
			wantReason:  ReasonFixed,
			wantCalls:   1,
		},
		{
			name:       "empty snippet",
			client:     &llmtest.Fake{Replies: []string{`{"replacement": "x"}`}},
			snippet:    "",
			wantAnswer: original,
			wantReason: ReasonNoSnippet,
		},
		{
			name:       "collaborator unavailable",
			client:     &llmtest.Fake{Unavailable: true},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonNoSnippet,
		},
		{
			name:       "call failure",
			client:     &llmtest.Fake{Err: errors.New("deadline exceeded")},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonNoSnippet,
			wantCalls:  1,
		},
		{
			name:       "prose reply",
			client:     &llmtest.Fake{Replies: []string{"Замените на 15%"}},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonParseError,
			wantCalls:  1,
		},
		{
			name:       "array reply",
			client:     &llmtest.Fake{Replies: []string{`[{"replacement": "15%"}]`}},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonParseError,
			wantCalls:  1,
		},
		{
			name:       "missing replacement key",
			client:     &llmtest.Fake{Replies: []string{`{"text": "15%"}`}},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonParseError,
			wantCalls:  1,
		},
		{
			name:       "non-string replacement",
			client:     &llmtest.Fake{Replies: []string{`{"replacement": 15}`}},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonParseError,
			wantCalls:  1,
		},
		{
			name:       "blank replacement",
			client:     &llmtest.Fake{Replies: []string{`{"replacement": "   "}`}},
			snippet:    "20%",
			wantAnswer: original,
			wantReason: ReasonEmptyRewrite,
			wantCalls:  1,
		},
		{
			name:       "snippet not verbatim",
			client:     &llmtest.Fake{Replies: []string{`{"replacement": "15%"}`}},
			snippet:    "ставка 20%",
			wantAnswer: original,
			wantReason: ReasonSnippetNotFound,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.client, nil)
			got := r.Rewrite(context.Background(), original, tt.snippet, "Ставка 15%", "снизили ставку")

			if got.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", got.Answer, tt.wantAnswer)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if tt.client.Calls() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", tt.client.Calls(), tt.wantCalls)
			}
		})
	}
}

// Text outside the snippet is never altered.
func TestRewrite_PreservesSurroundingText(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{`{"replacement": "НДС 20%"}`}}
	original := "До: НДС 18%. После: без изменений, НДС 18% ещё раз."
	got := New(fake, nil).Rewrite(context.Background(), original, "НДС 18%", "НДС 20%", "")

	idx := strings.Index(original, "НДС 18%")
	prefix := original[:idx]
	suffix := original[idx+len("НДС 18%"):]
	if !strings.HasPrefix(got.Answer, prefix) || !strings.HasSuffix(got.Answer, suffix) {
		t.Errorf("surrounding text changed: %q", got.Answer)
	}
	if got.Answer != prefix+"НДС 20%"+suffix {
		t.Errorf("Answer = %q", got.Answer)
	}
}

func TestRewrite_PromptCarriesContext(t *testing.T) {
	fake := &llmtest.Fake{Replies: []string{`{"replacement": "15%"}`}}
	New(fake, nil).Rewrite(context.Background(), "Ставка 20%", "20%", "Ставка 15%", "снизили")

	user := fake.Call(0)[1].Content
	for _, want := range []string{"Ставка 20%", "Фрагмент: 20%", "Ставка 15%", "снизили"} {
		if !strings.Contains(user, want) {
			t.Errorf("prompt missing %q: %q", want, user)
		}
	}
}
