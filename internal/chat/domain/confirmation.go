package domain

import "strings"

// Verdict is the prospect's answer to the summary confirmation prompt.
type Verdict string

const (
	VerdictPositive  Verdict = "positive"
	VerdictNegative  Verdict = "negative"
	VerdictAmbiguous Verdict = "ambiguous"
)

var positivePhrases = []string{
	"yes", "confirm", "correct", "right", "looks good", "good",
	"ok", "okay", "sure", "agreed",
}

var negativePhrases = []string{
	"no", "incorrect", "wrong", "not right", "needs correction",
}

// ClassifyVerdict maps a free-text confirmation reply to a verdict using a
// fixed phrase lexicon. Negative phrases are checked first so replies like
// "not right" do not match the positive "right". Anything that matches
// neither list is ambiguous.
func ClassifyVerdict(message string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return VerdictAmbiguous
	}

	for _, phrase := range negativePhrases {
		if containsPhrase(normalized, phrase) {
			return VerdictNegative
		}
	}
	for _, phrase := range positivePhrases {
		if containsPhrase(normalized, phrase) {
			return VerdictPositive
		}
	}
	return VerdictAmbiguous
}

// containsPhrase matches the phrase on word boundaries so "no" does not
// match inside "know".
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], phrase)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(phrase)

		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\''
}
