package qa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/aurora-qa/internal/model"
)

var (
	numeralRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|\d+)\b`)

	// The leading \b keeps "on" inside words such as "London" from anchoring
	// a phrase. Alternatives are tried in order, so weekend precedes week.
	temporalRe = regexp.MustCompile(`(?i)\b(this|next|on)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday|weekend|week|month|[\w\s]+day)`)

	properNounRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

var wordNumerals = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// Capitalized words that start sentences but never name a thing.
var functionWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "also": {}, "but": {}, "can": {}, "could": {},
	"he": {}, "her": {}, "his": {}, "it": {}, "its": {}, "let": {},
	"my": {}, "our": {}, "please": {}, "she": {}, "so": {}, "that": {},
	"the": {}, "their": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"we": {}, "would": {}, "you": {}, "your": {},
}

// numerals returns every digit or one..ten numeral in s, in order.
func numerals(s string) []int {
	var out []int
	for _, m := range numeralRe.FindAllString(s, -1) {
		if n, ok := wordNumerals[strings.ToLower(m)]; ok {
			out = append(out, n)
			continue
		}
		if n, err := strconv.Atoi(m); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// temporalPhrase returns the first "next Friday" / "this weekend" style phrase
// in s, verbatim.
func temporalPhrase(s string) (string, bool) {
	m := temporalRe.FindString(s)
	return m, m != ""
}

// properNouns returns capitalized word spans from s in order of appearance.
// Leading function words are dropped from each span, as are spans matching
// any token of exclude (compared case-insensitively) or exclude itself.
func properNouns(s, exclude string) []string {
	excluded := map[string]struct{}{}
	if e := strings.TrimSpace(exclude); e != "" {
		excluded[model.Fold(e)] = struct{}{}
		for _, tok := range strings.Fields(e) {
			excluded[model.Fold(tok)] = struct{}{}
		}
	}

	var out []string
	for _, span := range properNounRe.FindAllString(s, -1) {
		words := strings.Fields(span)
		for len(words) > 0 {
			if _, ok := functionWords[strings.ToLower(words[0])]; !ok {
				break
			}
			words = words[1:]
		}
		if len(words) == 0 {
			continue
		}
		name := strings.Join(words, " ")
		if _, ok := excluded[model.Fold(name)]; ok {
			continue
		}
		out = append(out, name)
	}
	return out
}

// dedupe keeps the first occurrence of each string.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// containsAny reports whether s contains any of the keywords, ignoring case.
func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if model.ContainsFold(s, k) {
			return true
		}
	}
	return false
}
