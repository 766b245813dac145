package utils

import (
	"regexp"
	"strings"
)

var wordSplitter = regexp.MustCompile(`[^\p{L}\p{N}']+`)

// Tokenize lowercases text and splits it into words. Apostrophes stay inside
// words so "what's" is one token.
func Tokenize(text string) []string {
	parts := wordSplitter.Split(strings.ToLower(text), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "'")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// gap separates the segments of a term that may have other words between
// them, as in "compare ... vs".
const gap = "..."

type pattern struct {
	term     string
	segments [][]string
}

// KeywordMatcher matches single words exactly and phrases as contiguous
// token sequences, so "price" does not match "priceless" and "talk to a
// human" tolerates punctuation and casing. Segments of a term split by
// "..." must appear in order with any words between them.
type KeywordMatcher struct {
	words    map[string]bool
	patterns []pattern
}

func NewKeywordMatcher(terms ...string) *KeywordMatcher {
	m := &KeywordMatcher{words: make(map[string]bool)}
	for _, term := range terms {
		var segs [][]string
		for _, part := range strings.Split(term, gap) {
			if toks := Tokenize(part); len(toks) > 0 {
				segs = append(segs, toks)
			}
		}
		switch {
		case len(segs) == 0:
		case len(segs) == 1 && len(segs[0]) == 1:
			m.words[segs[0][0]] = true
		default:
			names := make([]string, len(segs))
			for i, s := range segs {
				names[i] = strings.Join(s, " ")
			}
			m.patterns = append(m.patterns, pattern{term: strings.Join(names, " "+gap+" "), segments: segs})
		}
	}
	return m
}

// Matches returns the terms found in text, in first-seen order without duplicates.
func (m *KeywordMatcher) Matches(text string) []string {
	toks := Tokenize(text)
	seen := make(map[string]bool)
	var found []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			found = append(found, s)
		}
	}
	for _, t := range toks {
		if m.words[t] {
			add(t)
		}
	}
	for _, p := range m.patterns {
		if matchSegments(toks, p.segments) {
			add(p.term)
		}
	}
	return found
}

func matchSegments(toks []string, segs [][]string) bool {
	from := 0
	for _, seg := range segs {
		at := indexSequence(toks[from:], seg)
		if at < 0 {
			return false
		}
		from += at + len(seg)
	}
	return true
}

func indexSequence(toks, seq []string) int {
	for i := 0; i+len(seq) <= len(toks); i++ {
		match := true
		for j := range seq {
			if toks[i+j] != seq[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
