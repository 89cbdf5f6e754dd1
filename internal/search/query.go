package search

import (
	"regexp"
	"strings"

	"github.com/acervolabs/newsletter-search/internal/textutil"
)

// Characters the index treats as token separators; left in place they would
// be matched literally and miss.
var separatorRe = regexp.MustCompile(`[-_/]+`)

// Compile rewrites raw user input into a query expression for the search
// index. An empty return means "no results", not an error.
//
// A query wrapped in double quotes is a literal phrase search: the outer
// quotes are stripped, inner quotes escaped, and the content matched as an
// exact phrase with no prefix expansion. Anything else is diacritic-
// normalized and lowercased, then emitted as a prefix query (single word) or
// a conjunction of prefix terms (multiple words, AND semantics).
func Compile(raw string) string {
	q := strings.TrimSpace(raw)
	if q == "" {
		return ""
	}

	if len(q) >= 2 && q[0] == '"' && q[len(q)-1] == '"' {
		if len(q) <= 2 {
			// Bare "" is an empty literal, not a phrase search for nothing.
			return ""
		}
		inner := strings.ReplaceAll(q[1:len(q)-1], `"`, `""`)
		return `"` + inner + `"`
	}

	q = textutil.RemoveDiacritics(q)
	q = strings.ToLower(q)
	q = strings.ReplaceAll(q, `"`, `""`)
	q = separatorRe.ReplaceAllString(q, " ")

	words := strings.Fields(q)
	if len(words) == 0 {
		return ""
	}
	if len(words) == 1 {
		return words[0] + "*"
	}

	terms := make([]string, len(words))
	for i, w := range words {
		terms[i] = w + "*"
	}
	return strings.Join(terms, " AND ")
}
