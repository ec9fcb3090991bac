package direction

import (
	"strings"

	"github.com/coregx/ahocorasick"
)

// cuePhrases maps surface phrases in chat text to the narrative beat
// they signal. Multiword phrases are matched leftmost-longest so
// "double cross" wins over "cross".
var cuePhrases = map[string]string{
	"betray":        "betrayal brewing",
	"betrayal":      "betrayal brewing",
	"double cross":  "betrayal brewing",
	"secret":        "a secret surfaces",
	"hidden":        "a secret surfaces",
	"confess":       "a confession",
	"confession":    "a confession",
	"revenge":       "a score to settle",
	"avenge":        "a score to settle",
	"missing":       "someone is missing",
	"disappeared":   "someone is missing",
	"letter":        "a message arrives",
	"message":       "a message arrives",
	"storm":         "weather turns hostile",
	"blizzard":      "weather turns hostile",
	"wound":         "an injury complicates things",
	"injured":       "an injury complicates things",
	"bleeding":      "an injury complicates things",
	"reunion":       "an unexpected reunion",
	"old friend":    "an unexpected reunion",
	"stranger":      "a stranger intrudes",
	"debt":          "a debt comes due",
	"owe":           "a debt comes due",
	"nightmare":     "the past resurfaces",
	"memory":        "the past resurfaces",
	"first kiss":    "romance escalates",
	"heart racing":  "romance escalates",
	"goodbye":       "a parting looms",
	"leaving":       "a parting looms",
}

// Matcher detects narrative cue phrases in text with a single
// Aho-Corasick pass.
type Matcher struct {
	ac       *ahocorasick.Automaton
	patterns []string
}

// NewMatcher compiles the built-in cue automaton.
func NewMatcher() (*Matcher, error) {
	patterns := make([]string, 0, len(cuePhrases))
	for p := range cuePhrases {
		patterns = append(patterns, p)
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}

	return &Matcher{ac: ac, patterns: patterns}, nil
}

// Cues returns the distinct narrative beats signaled in the text, in
// first-occurrence order.
func (m *Matcher) Cues(text string) []string {
	if m.ac == nil || text == "" {
		return nil
	}

	haystack := []byte(strings.ToLower(text))
	matches := m.ac.FindAllOverlapping(haystack)

	var out []string
	seen := make(map[string]bool)
	for _, match := range matches {
		cue := cuePhrases[m.patterns[match.PatternID]]
		if seen[cue] {
			continue
		}
		seen[cue] = true
		out = append(out, cue)
	}
	return out
}
