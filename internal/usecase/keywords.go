package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// KeywordMatcher reports whether a text mentions any configured keyword.
// Matching is case-insensitive on whole words; a multi-word keyword matches
// the same words appearing contiguously.
type KeywordMatcher struct {
	phrases [][]string
}

// NewKeywordMatcher tokenizes keywords once. Keywords without any word are ignored.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	m := &KeywordMatcher{}
	for _, kw := range keywords {
		if tokens := tokenize(kw); len(tokens) > 0 {
			m.phrases = append(m.phrases, tokens)
		}
	}
	return m
}

// Empty reports whether no usable keyword was configured.
func (m *KeywordMatcher) Empty() bool {
	return m == nil || len(m.phrases) == 0
}

// Match checks every given text. An empty matcher matches nothing.
func (m *KeywordMatcher) Match(texts ...string) bool {
	if m.Empty() {
		return false
	}
	for _, text := range texts {
		tokens := tokenize(text)
		for _, phrase := range m.phrases {
			if containsRun(tokens, phrase) {
				return true
			}
		}
	}
	return false
}

func tokenize(s string) []string {
	folder := cases.Fold()
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = folder.String(f)
	}
	return fields
}

func containsRun(tokens, phrase []string) bool {
	if len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		matched := true
		for j := range phrase {
			if tokens[i+j] != phrase[j] {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}
