package quote

import "strings"

type dedupeKey struct {
	text   string
	author string
}

func keyOf(q Quote) dedupeKey {
	return dedupeKey{
		text:   strings.ToLower(q.Text),
		author: strings.ToLower(q.Author),
	}
}

// Dedupe returns quotes with every repeated (text, author) pair removed,
// compared case-insensitively. The first occurrence is kept along with its
// fields, and input order is preserved. Inputs are expected to be normalized.
func Dedupe(quotes []Quote) []Quote {
	seen := make(map[dedupeKey]struct{}, len(quotes))
	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.Text == "" {
			continue
		}
		k := keyOf(q)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}
	return out
}
