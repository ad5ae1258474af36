package guardrails

import (
	"regexp"
	"strings"
)

// space matches exactly the runes unicode.IsSpace reports as white space.
const space = `[\t\n\v\f\r\x{85}\p{Z}]`

var whitespaceRun = regexp.MustCompile(space + `+`)

// phraseSet matches a fixed list of lower-case phrases. Words inside a phrase
// may be separated by any run of white space so that a phrase split across
// lines is caught before whitespace is collapsed.
type phraseSet struct {
	phrases []string
	re      []*regexp.Regexp
}

func newPhraseSet(phrases ...string) *phraseSet {
	s := &phraseSet{phrases: phrases}
	for _, p := range phrases {
		words := strings.Fields(p)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		s.re = append(s.re, regexp.MustCompile(strings.Join(words, space+`+`)))
	}
	return s
}

// replace substitutes every match of every phrase in lower with marker.
func (s *phraseSet) replace(lower, marker string) string {
	for _, re := range s.re {
		lower = re.ReplaceAllLiteralString(lower, marker)
	}
	return lower
}

// first returns the first phrase found in lower, in list order.
func (s *phraseSet) first(lower string) (string, bool) {
	for i, re := range s.re {
		if re.MatchString(lower) {
			return s.phrases[i], true
		}
	}
	return "", false
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
