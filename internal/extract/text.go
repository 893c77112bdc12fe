package extract

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	whitespaceRe     = regexp.MustCompile(`\s+`)
	sentenceBreakRe  = regexp.MustCompile(`([.!?])\s+`)
	wordCharRe       = regexp.MustCompile(`\w`)
	nonLetterRe      = regexp.MustCompile(`[^a-z]`)
	silentSuffixRe   = regexp.MustCompile(`(?:[^leas]es|ed|[^aeiou]e)$`)
	leadingYRe       = regexp.MustCompile(`^y`)
	vowelGroupRe     = regexp.MustCompile(`[aeiouy]{1,2}`)
	passiveVoiceRe   = regexp.MustCompile(`(?i)\b(is|are|was|were|been|being)\s+\w*(ed|en|wn|ght|lt)\b`)
	acronymRe        = regexp.MustCompile(`\b[A-Z]{2,}\b`)
	commonAcronymSet = map[string]bool{
		"US": true, "UK": true, "EU": true, "URL": true, "HTML": true, "CSS": true, "JS": true,
		"API": true, "OK": true, "AM": true, "PM": true, "ID": true, "IT": true, "AI": true,
	}
)

// CollapseWhitespace trims s and folds every whitespace run to one space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// SplitSentences splits on terminal punctuation followed by whitespace and
// drops fragments with no word characters.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	marked := sentenceBreakRe.ReplaceAllString(text, "${1}\x00")
	var out []string
	for _, part := range strings.Split(marked, "\x00") {
		part = strings.TrimSpace(part)
		if part != "" && wordCharRe.MatchString(part) {
			out = append(out, part)
		}
	}
	return out
}

// AverageSentenceLength returns words per sentence, rounded to two decimals.
func AverageSentenceLength(text string) float64 {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += CountWords(s)
	}
	return round2(float64(total) / float64(len(sentences)))
}

// CountSyllables approximates English syllables in one word.
func CountSyllables(word string) int {
	w := nonLetterRe.ReplaceAllString(strings.ToLower(word), "")
	if w == "" {
		return 0
	}
	if len(w) <= 3 {
		return 1
	}
	w = silentSuffixRe.ReplaceAllString(w, "")
	w = leadingYRe.ReplaceAllString(w, "")
	if n := len(vowelGroupRe.FindAllString(w, -1)); n > 0 {
		return n
	}
	return 1
}

// FleschReadingEase scores English text 0..100. ok is false for non-English
// or empty text.
func FleschReadingEase(text, language string) (score float64, ok bool) {
	if language != "" && language != "en" {
		return 0, false
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0, false
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return 0, false
	}
	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}
	wps := float64(len(words)) / float64(len(sentences))
	spw := float64(syllables) / float64(len(words))
	raw := 206.835 - 1.015*wps - 84.6*spw
	return round2(math.Max(0, math.Min(100, raw))), true
}

// PassiveVoice returns the passive sentences and the share of all sentences in percent.
func PassiveVoice(text string) (passive []string, total int, percentage float64) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, 0, 0
	}
	for _, s := range sentences {
		if passiveVoiceRe.MatchString(s) {
			passive = append(passive, s)
		}
	}
	return passive, len(sentences), round2(float64(len(passive)) / float64(len(sentences)) * 100)
}

// UnexplainedAcronyms lists distinct all-caps tokens that are not common and
// never expanded in parentheses or with a dash. density is per 100 words.
func UnexplainedAcronyms(text string) (acronyms []string, density float64) {
	words := CountWords(text)
	if words == 0 {
		return nil, 0
	}
	seen := map[string]bool{}
	for _, acr := range acronymRe.FindAllString(text, -1) {
		if seen[acr] || commonAcronymSet[acr] {
			continue
		}
		seen[acr] = true
		q := regexp.QuoteMeta(acr)
		explained := regexp.MustCompile(`(?i)\(` + q + `\)|` + q + `\s*\(|` + q + `\s*-\s*`)
		if !explained.MatchString(text) {
			acronyms = append(acronyms, acr)
		}
	}
	return acronyms, round2(float64(len(acronyms)) / float64(words) * 100)
}

// TruncateAtSentence cuts text to at most maxChars, preferring the last
// sentence end in the final fifth of the window.
func TruncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	for maxChars > 0 && !utf8.RuneStart(text[maxChars]) {
		maxChars--
	}
	truncated := text[:maxChars]
	last := -1
	for _, marker := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if i := strings.LastIndex(truncated, marker); i > last {
			last = i
		}
	}
	if float64(last) > float64(maxChars)*0.8 {
		return truncated[:last+1]
	}
	return truncated
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
