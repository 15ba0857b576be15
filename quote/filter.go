package quote

import (
	"strings"
	"unicode/utf8"
)

// Length buckets accepted by Criteria.Length.
const (
	LengthShort = "short"
	LengthLong  = "long"

	// ShortMaxRunes is the longest text, in characters, that counts as short.
	ShortMaxRunes = 120
)

// Criteria are the optional constraints of a filter. Zero fields impose no
// restriction.
type Criteria struct {
	Category string
	Length   string
	Q        string
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return c.Category == "" && c.Length == "" && c.Q == ""
}

// Match reports whether q satisfies every constraint in c.
func (c Criteria) Match(q Quote) bool {
	if c.Category != "" && q.Category != c.Category {
		return false
	}

	switch c.Length {
	case LengthShort:
		if utf8.RuneCountInString(q.Text) > ShortMaxRunes {
			return false
		}
	case LengthLong:
		if utf8.RuneCountInString(q.Text) <= ShortMaxRunes {
			return false
		}
	}

	if c.Q != "" {
		haystack := strings.ToLower(q.Text + " " + q.Author)
		if !strings.Contains(haystack, strings.ToLower(c.Q)) {
			return false
		}
	}
	return true
}

// Filter returns the quotes matching c in their original order. The result
// is never nil and encodes as an empty JSON array when nothing matches.
func Filter(quotes []Quote, c Criteria) []Quote {
	if c.IsZero() && quotes != nil {
		return quotes
	}
	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if c.Match(q) {
			out = append(out, q)
		}
	}
	return out
}
