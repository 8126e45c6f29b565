package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	ellipsis       = "…"
	leadingContext = 50
	scoreWindow    = 100
)

// Snippet returns the window of text around the best query-term match with every term
// highlighted by <mark> tags. Lengths are counted in runes.
func Snippet(text, query string, maxLength int) string {
	if text == "" || query == "" {
		return truncate(text, maxLength)
	}

	runes := []rune(text)
	lower := lowerRunes(runes)
	terms := strings.Fields(strings.ToLower(query))

	bestIndex, bestScore := -1, -1
	for _, term := range terms {
		idx := indexFrom(lower, term, 0)
		if idx == -1 || (bestIndex != -1 && idx >= bestIndex) {
			continue
		}

		if score := coOccurrences(lower, terms, idx); score > bestScore {
			bestScore = score
			bestIndex = idx
		}
	}

	if bestIndex == -1 {
		return truncate(text, maxLength)
	}

	start := max(0, bestIndex-leadingContext)
	end := min(len(runes), bestIndex+maxLength-leadingContext)
	if end < start {
		end = start
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(runes) {
		snippet += ellipsis
	}

	return highlight(snippet, terms)
}

// coOccurrences counts the terms appearing in the window that starts leadingContext runes
// before idx and ends scoreWindow runes after it.
func coOccurrences(lower string, terms []string, idx int) int {
	score := 0
	for _, t := range terms {
		i := indexFrom(lower, t, max(0, idx-leadingContext))
		if i != -1 && i < idx+scoreWindow {
			score++
		}
	}

	return score
}

func highlight(snippet string, terms []string) string {
	for _, t := range terms {
		re := regexp.MustCompile("(?i)(" + regexp.QuoteMeta(t) + ")")
		snippet = re.ReplaceAllString(snippet, "<mark>${1}</mark>")
	}

	return snippet
}

func truncate(text string, maxLength int) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	return string([]rune(text)[:max(0, maxLength)]) + ellipsis
}

// lowerRunes lower-cases rune by rune so rune offsets in the result match the input.
func lowerRunes(runes []rune) string {
	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// indexFrom finds sub in s starting at rune offset from and returns a rune offset.
func indexFrom(s, sub string, from int) int {
	start := len(s)
	n := 0
	for i := range s {
		if n == from {
			start = i
			break
		}
		n++
	}

	i := strings.Index(s[start:], sub)
	if i == -1 {
		return -1
	}

	return from + utf8.RuneCountInString(s[start:start+i])
}
