package extract

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()
	got := SplitSentences("First one. Second one! Third? ...   ")
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %q", len(got), got)
	}
	if got[1] != "Second one!" {
		t.Fatalf("unexpected sentence %q", got[1])
	}
}

func TestCountSyllables(t *testing.T) {
	t.Parallel()
	tests := []struct {
		word string
		want int
	}{
		{"the", 1},
		{"coffee", 2},
		{"reading", 2},
		{"happy", 2},
		{"", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			if got := CountSyllables(tt.word); got != tt.want {
				t.Fatalf("CountSyllables(%q) = %d, want %d", tt.word, got, tt.want)
			}
		})
	}
}

func TestFleschReadingEase(t *testing.T) {
	t.Parallel()
	if _, ok := FleschReadingEase("Der Hund ist gross.", "de"); ok {
		t.Fatalf("expected non-English text to be skipped")
	}
	score, ok := FleschReadingEase("The cat sat on the mat. The dog ran.", "en")
	if !ok {
		t.Fatalf("expected score")
	}
	if score < 90 || score > 100 {
		t.Fatalf("expected very easy text, got %v", score)
	}
}

func TestPassiveVoice(t *testing.T) {
	t.Parallel()
	passive, total, pct := PassiveVoice("The ball was kicked. I kicked the ball.")
	if total != 2 || len(passive) != 1 || pct != 50 {
		t.Fatalf("unexpected passive result %v %d %v", passive, total, pct)
	}
}

func TestUnexplainedAcronyms(t *testing.T) {
	t.Parallel()
	acr, density := UnexplainedAcronyms("The SLA is strict. Search engine optimization (SEO) matters. HTML is fine.")
	if len(acr) != 1 || acr[0] != "SLA" {
		t.Fatalf("expected only SLA, got %v", acr)
	}
	if density <= 0 {
		t.Fatalf("expected positive density")
	}
}

func TestTruncateAtSentence(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 85) + ". " + strings.Repeat("b", 30)
	got := TruncateAtSentence(text, 100)
	if got != strings.Repeat("a", 85)+"." {
		t.Fatalf("expected cut at sentence end, got %q", got)
	}
	short := "short text"
	if TruncateAtSentence(short, 100) != short {
		t.Fatalf("short text must be unchanged")
	}
	noBoundary := strings.Repeat("c", 120)
	if got := TruncateAtSentence(noBoundary, 100); len(got) != 100 {
		t.Fatalf("expected hard cut at 100, got %d", len(got))
	}
}
