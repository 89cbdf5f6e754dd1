package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Merge-tag placeholders left behind by email vendors, e.g. *|UNSUB|* or
// *|MC:SUBJECT|*. They carry no indexable content.
var mergeTagRe = regexp.MustCompile(`\*\|[^|]+\|\*`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractText converts raw newsletter HTML into plain text suitable for
// indexing. Script and style contents, comments (including templating
// conditionals embedded in comments) and vendor merge tags are dropped,
// remaining tags are stripped and entities decoded, and whitespace is
// collapsed to single spaces.
//
// Extraction is best-effort: malformed HTML never produces an error, it just
// degrades to whatever text the tokenizer can recover.
func ExtractText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	rawHTML = mergeTagRe.ReplaceAllString(rawHTML, "")

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(rawHTML))

	// Tag name of the raw-text element we are currently inside, if any.
	skipUntil := ""

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// EOF or unrecoverable garbage; keep what we have.
			break
		}

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skipUntil = string(name)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipUntil != "" && string(name) == skipUntil {
				skipUntil = ""
			}
		case html.TextToken:
			if skipUntil != "" {
				continue
			}
			b.Write(z.Text())
			b.WriteByte(' ')
		}
	}

	text := whitespaceRe.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(text)
}
