// Package quote holds the quote dataset and the pure operations over it:
// normalization, identifiers, de-duplication, filtering and selection.
//
// Quotes are immutable once a Dataset is built. Identifiers are never stored;
// they are derived from the normalized text and author on demand.
package quote

import "errors"

var (
	// ErrEmpty is returned by Pick when there is nothing to choose from.
	ErrEmpty = errors.New("quote: empty selection")

	// ErrNotArray is returned when a dataset document is not a JSON array.
	ErrNotArray = errors.New("quote: dataset must be a JSON array of objects")

	// ErrNoQuotes is returned when a dataset contains no usable records.
	ErrNoQuotes = errors.New("quote: dataset contained no valid quotes")
)

// Quote is a single normalized dataset entry.
type Quote struct {
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category,omitempty"`
}

// ID returns the derived identifier of the quote.
func (q Quote) ID() string {
	return ID(q.Text, q.Author)
}
