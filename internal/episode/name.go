package episode

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// NameNormalizer strips conversational suffixes such as Korean sentence-final particles from a name reply, so
// that "Jimin이야" becomes "Jimin".
type NameNormalizer struct {
	suffixes  []string
	trim      string
	minLength int
}

// NewNameNormalizer returns a normalizer trying suffixes longest first. Stripping a suffix never leaves fewer than
// minLength runes.
func NewNameNormalizer(suffixes []string, trim string, minLength int) NameNormalizer {
	sorted := slices.Clone(suffixes)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return cmp.Compare(utf8.RuneCountInString(b), utf8.RuneCountInString(a))
	})
	return NameNormalizer{
		suffixes:  sorted,
		trim:      trim,
		minLength: max(minLength, 1),
	}
}

// Normalize returns the bare name. The result is empty only when raw has no content after trimming.
func (n NameNormalizer) Normalize(raw string) string {
	name := n.clean(raw)
	for _, suffix := range n.suffixes {
		if suffix == "" || !strings.HasSuffix(name, suffix) {
			continue
		}
		stripped := n.clean(strings.TrimSuffix(name, suffix))
		if utf8.RuneCountInString(stripped) >= n.minLength {
			return stripped
		}
	}
	return name
}

func (n NameNormalizer) clean(s string) string {
	s = strings.TrimSpace(s)
	if n.trim != "" {
		s = strings.TrimRight(s, n.trim)
	}
	return strings.TrimSpace(s)
}
