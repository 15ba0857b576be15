package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Dataset is an immutable, de-duplicated and fully categorized quote list.
// It is safe for concurrent use.
type Dataset struct {
	quotes   []Quote
	index    map[string]int
	fallback bool
}

// NewDataset builds a Dataset from normalized quotes. Duplicates are dropped
// keeping the first occurrence and missing categories are inferred from the
// author.
func NewDataset(quotes []Quote) *Dataset {
	unique := Dedupe(quotes)
	ds := &Dataset{
		quotes: unique,
		index:  make(map[string]int, len(unique)),
	}
	for i := range ds.quotes {
		q := &ds.quotes[i]
		if q.Category == "" {
			q.Category = InferCategory(q.Author)
		}
		id := q.ID()
		if _, ok := ds.index[id]; !ok {
			ds.index[id] = i
		}
	}
	return ds
}

// Quotes returns the dataset in its original order. Callers must not modify
// the returned slice.
func (d *Dataset) Quotes() []Quote {
	return d.quotes
}

// Len returns the number of quotes.
func (d *Dataset) Len() int {
	return len(d.quotes)
}

// Fallback reports whether the built-in quotes are being served because the
// dataset file could not be used.
func (d *Dataset) Fallback() bool {
	return d.fallback
}

// Lookup returns the first quote whose identifier equals id.
func (d *Dataset) Lookup(id string) (Quote, bool) {
	i, ok := d.index[id]
	if !ok {
		return Quote{}, false
	}
	return d.quotes[i], true
}

// Categories returns the distinct categories in sorted order.
func (d *Dataset) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, q := range d.quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}
	slices.Sort(out)
	return out
}

// Parse decodes a dataset document into normalized, de-duplicated and
// categorized quotes. It fails with ErrNotArray when the root is not an array
// and with ErrNoQuotes when no element carries usable text.
func Parse(data []byte) ([]Quote, error) {
	records, err := Records(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoQuotes
	}
	return NewDataset(records).Quotes(), nil
}

// Records decodes a dataset document into normalized quotes, skipping
// elements that are not objects or have no text. It neither de-duplicates nor
// infers categories. The text is read from "text", or from "quote" when
// "text" is absent or empty.
func Records(data []byte) ([]Quote, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("quote: decode dataset: %w", err)
	}
	if raw == nil {
		return nil, ErrNotArray
	}

	out := make([]Quote, 0, len(raw))
	for _, elem := range raw {
		var obj map[string]any
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			continue
		}

		text := scalar(obj["text"])
		if text == "" {
			text = scalar(obj["quote"])
		}
		text = Normalize(text)
		if text == "" {
			continue
		}

		out = append(out, Quote{
			Text:     text,
			Author:   Normalize(scalar(obj["author"])),
			Category: Normalize(scalar(obj["category"])),
		})
	}
	return out, nil
}

// scalar renders a decoded JSON scalar as text. Objects, arrays and null
// yield the empty string.
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
