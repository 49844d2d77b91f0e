package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxClueLength = 30

// IsValidClue rejects a candidate that equals a board word, or that is a
// prefix or suffix of one (or the other way round). Case-insensitive.
func IsValidClue(candidate string, boardWords []string) bool {
	c := strings.ToUpper(strings.TrimSpace(candidate))
	if c == "" {
		return false
	}
	for _, w := range boardWords {
		w = strings.ToUpper(w)
		if w == "" {
			continue
		}
		if c == w ||
			strings.HasPrefix(w, c) || strings.HasSuffix(w, c) ||
			strings.HasPrefix(c, w) || strings.HasSuffix(c, w) {
			return false
		}
	}
	return true
}

// NormalizeClueWord checks the shape of a clue word and returns it uppercased.
// A clue is a single word of letters, hyphens and apostrophes with at least
// one letter.
func NormalizeClueWord(word string) (string, error) {
	word = strings.TrimSpace(word)
	if word == "" || utf8.RuneCountInString(word) > maxClueLength {
		return "", ErrInvalidClue
	}
	letters := 0
	for _, r := range word {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == '-', r == '\'':
		default:
			return "", ErrInvalidClue
		}
	}
	if letters == 0 {
		return "", ErrInvalidClue
	}
	return strings.ToUpper(word), nil
}
