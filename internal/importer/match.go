package importer

import (
	"regexp"
	"strings"

	"github.com/acervolabs/newsletter-search/internal/textutil"
)

// matchThreshold is the minimum similarity (inclusive) for a fuzzy match.
// Below it a metadata row is archived without a content file.
const matchThreshold = 0.70

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	matchSpaceRe = regexp.MustCompile(`\s+`)
)

// MatchFile correlates one metadata row to a content file. Identifier
// correlation always wins: if sourceID is present and appears in an entry's
// filename fragment or raw filename, the first such entry is returned
// outright. Otherwise each entry's slug is scored against the normalized
// subject and title and the highest scorer at or above the threshold wins;
// ties keep the first-encountered entry, so results are stable across runs
// on identical input. Returns nil when nothing qualifies.
func MatchFile(subject, title, sourceID string, inventory []InventoryEntry) *InventoryEntry {
	if sourceID != "" {
		for i := range inventory {
			entry := &inventory[i]
			if strings.Contains(entry.Fragment, sourceID) || strings.Contains(entry.Filename, sourceID) {
				return entry
			}
		}
	}

	subjectNorm := normalizeForMatching(subject)
	titleNorm := normalizeForMatching(title)

	var best *InventoryEntry
	bestScore := 0.0

	for i := range inventory {
		entry := &inventory[i]
		slug := normalizeForMatching(entry.Slug)

		score := Similarity(subjectNorm, slug)
		if titleNorm != "" {
			if s := Similarity(titleNorm, slug); s > score {
				score = s
			}
		}

		if score >= matchThreshold && score > bestScore {
			bestScore = score
			best = entry
		}
	}

	return best
}

// normalizeForMatching folds text for similarity scoring: diacritics
// removed, lowercased, everything but alphanumerics and spaces dropped,
// whitespace collapsed.
func normalizeForMatching(s string) string {
	s = textutil.RemoveDiacritics(s)
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = matchSpaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// Similarity scores two strings as the fraction (0..1) of characters they
// share: the longest common substring is counted, then the regions to its
// left and right are scored recursively, and the total is scaled by the
// combined length. Either input empty scores zero.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return float64(similarChars(a, b)) * 2 / float64(len(a)+len(b))
}

func similarChars(a, b string) int {
	max, posA, posB := 0, 0, 0
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			k := 0
			for i+k < len(a) && j+k < len(b) && a[i+k] == b[j+k] {
				k++
			}
			if k > max {
				max, posA, posB = k, i, j
			}
		}
	}
	if max == 0 {
		return 0
	}
	return max + similarChars(a[:posA], b[:posB]) + similarChars(a[posA+max:], b[posB+max:])
}
