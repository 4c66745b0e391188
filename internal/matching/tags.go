package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTag folds a skill or diploma label for comparison: trimmed,
// lower-cased, inner whitespace collapsed, diacritics removed.
func NormalizeTag(tag string) string {
	tag = strings.Join(strings.Fields(tag), " ")
	if tag == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, tag)
	if err != nil {
		folded = tag
	}

	return strings.ToLower(folded)
}

type tagSet map[string]struct{}

func newTagSet(tags []string) tagSet {
	set := make(tagSet, len(tags))
	for _, tag := range tags {
		if n := NormalizeTag(tag); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// overlap returns the required tags found in have, in the order of required.
// Duplicates in required count once.
func overlap(required []string, have tagSet) (matched []string, total int) {
	seen := make(tagSet, len(required))
	for _, tag := range required {
		n := NormalizeTag(tag)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		total++
		if _, ok := have[n]; ok {
			matched = append(matched, tag)
		}
	}
	return matched, total
}
