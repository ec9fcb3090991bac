// Package direction derives plot-direction hints from the recent
// exchange window: salient keywords surviving stopword filtering, plus
// known narrative cue phrases matched with Aho-Corasick.
package direction

import (
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

// localStopWords supplements the library list with chat-transcript noise
// the library considers content words.
var localStopWords = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"says": true, "said": true, "asks": true, "asked": true,
	"looks": true, "looked": true, "smiles": true, "nods": true,
	"really": true, "maybe": true, "just": true, "like": true,
	"ooc": true, "rp": true,
}

// Extractor ranks candidate direction keywords by frequency across the
// recent exchange window.
type Extractor struct {
	checker *stopwords.Stopwords
	custom  map[string]bool
}

// NewExtractor creates an extractor with English stopwords.
func NewExtractor() *Extractor {
	e := &Extractor{
		checker: stopwords.MustGet("en"),
		custom:  make(map[string]bool),
	}
	for w := range localStopWords {
		e.custom[w] = true
	}
	return e
}

// AddStopWord adds a custom ignored word.
func (e *Extractor) AddStopWord(word string) {
	e.custom[strings.ToLower(word)] = true
}

// Extract returns up to limit direction-hint keywords from the window,
// most frequent first; ties break toward earlier first appearance so the
// output is stable across calls.
func (e *Extractor) Extract(window []string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	type stat struct {
		display string
		count   int
		first   int
	}
	stats := make(map[string]*stat)
	pos := 0

	for _, msg := range window {
		for _, tok := range tokenize(msg) {
			pos++
			key := strings.ToLower(tok)
			if len(key) < 3 {
				continue
			}
			if e.custom[key] {
				continue
			}
			if e.checker != nil && e.checker.Contains(key) {
				continue
			}
			s, ok := stats[key]
			if !ok {
				s = &stat{display: key, first: pos}
				stats[key] = s
			}
			s.count++
		}
	}

	ranked := make([]*stat, 0, len(stats))
	for _, s := range stats {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.display
	}
	return out
}

// tokenize splits on non-word runes, folding case and keeping intra-word
// apostrophes and hyphens so names like "jean-luc" stay whole.
func tokenize(s string) []string {
	var out []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '\'' || r == '’':
			if b.Len() > 0 {
				b.WriteRune('\'')
			}
		case r == '-':
			if b.Len() > 0 {
				b.WriteRune('-')
			}
		default:
			flush()
		}
	}
	flush()
	return out
}
